package domain

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"time"
)

// ==================== EMPLOYEE DIRECTORY ====================

// Employee is a stored employee record.
// FullName is derived and recomputed on every read and write.
type Employee struct {
	ID         string    `json:"_id" bson:"_id" datastore:"-"`
	FirstName  string    `json:"firstName" bson:"firstName" datastore:"FirstName"`
	LastName   string    `json:"lastName" bson:"lastName" datastore:"LastName"`
	Email      string    `json:"email" bson:"email" datastore:"Email"`
	Phone      string    `json:"phone" bson:"phone" datastore:"Phone"`
	Position   string    `json:"position" bson:"position" datastore:"Position"`
	Department string    `json:"department" bson:"department" datastore:"Department"`
	Salary     float64   `json:"salary" bson:"salary" datastore:"Salary"`
	HireDate   time.Time `json:"hireDate" bson:"hireDate" datastore:"HireDate"`
	IsActive   bool      `json:"isActive" bson:"isActive" datastore:"IsActive"`
	CreatedAt  time.Time `json:"createdAt" bson:"createdAt" datastore:"CreatedAt"`
	UpdatedAt  time.Time `json:"updatedAt" bson:"updatedAt" datastore:"UpdatedAt"`
	FullName   string    `json:"fullName" bson:"-" datastore:"-"`
}

// EmployeeInput carries client-supplied fields for create and update.
// A nil field is absent: it is required on create and left untouched on update.
type EmployeeInput struct {
	FirstName  *string  `json:"firstName" validate:"required,notblank"`
	LastName   *string  `json:"lastName" validate:"required,notblank"`
	Email      *string  `json:"email" validate:"required,notblank,employee_email"`
	Phone      *string  `json:"phone" validate:"required,phone10"`
	Position   *string  `json:"position" validate:"required,notblank"`
	Department *string  `json:"department" validate:"required,notblank"`
	Salary     *float64 `json:"salary" validate:"required,gte=0"`
	HireDate   *string  `json:"hireDate" validate:"omitempty,hiredate"`
	IsActive   *bool    `json:"isActive"`
}

// UnmarshalJSON keeps an explicit null apart from an absent field.
// A null text field decodes as empty and a null salary as NaN, so both
// fail validation instead of being skipped by a partial update.
func (in *EmployeeInput) UnmarshalJSON(data []byte) error {
	type plain EmployeeInput
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	isNull := func(key string) bool {
		v, ok := raw[key]
		return ok && string(bytes.TrimSpace(v)) == "null"
	}
	blank := func(dst **string, key string) {
		if *dst == nil && isNull(key) {
			empty := ""
			*dst = &empty
		}
	}
	blank(&p.FirstName, "firstName")
	blank(&p.LastName, "lastName")
	blank(&p.Email, "email")
	blank(&p.Phone, "phone")
	blank(&p.Position, "position")
	blank(&p.Department, "department")
	if p.Salary == nil && isNull("salary") {
		nan := math.NaN()
		p.Salary = &nan
	}

	*in = EmployeeInput(p)
	return nil
}

// SortDirection is the order of a list query.
type SortDirection int

const (
	SortAscending  SortDirection = 1
	SortDescending SortDirection = -1
)

// ListQuery defines criteria for listing employees
type ListQuery struct {
	Search        string
	SortField     string
	SortDirection SortDirection
	Skip          int
	// Limit of 0 returns every matching record.
	Limit int
}

// ListResult is one page of employees plus the size of the filtered set.
type ListResult struct {
	Employees []Employee
	Total     int64
}

// DepartmentStat counts active employees of one department.
type DepartmentStat struct {
	Department string `json:"department" bson:"_id"`
	Count      int64  `json:"count" bson:"count"`
}

// Summary aggregates the active part of the directory.
type Summary struct {
	TotalEmployees  int64            `json:"totalEmployees"`
	DepartmentStats []DepartmentStat `json:"departmentStats"`
	AverageSalary   float64          `json:"averageSalary"`
}

// Sortable fields, by their wire name.
const (
	FieldFirstName  = "firstName"
	FieldLastName   = "lastName"
	FieldEmail      = "email"
	FieldPhone      = "phone"
	FieldPosition   = "position"
	FieldDepartment = "department"
	FieldSalary     = "salary"
	FieldHireDate   = "hireDate"
	FieldIsActive   = "isActive"
	FieldCreatedAt  = "createdAt"
	FieldUpdatedAt  = "updatedAt"

	DefaultSortField = FieldLastName
)

var sortableFields = map[string]bool{
	FieldFirstName:  true,
	FieldLastName:   true,
	FieldEmail:      true,
	FieldPhone:      true,
	FieldPosition:   true,
	FieldDepartment: true,
	FieldSalary:     true,
	FieldHireDate:   true,
	FieldIsActive:   true,
	FieldCreatedAt:  true,
	FieldUpdatedAt:  true,
}

// SearchFields are matched by a free-text list search.
var SearchFields = []string{FieldFirstName, FieldLastName, FieldEmail, FieldPosition, FieldDepartment}

// Normalized returns q with a trimmed search term, an allowed sort field and a defined direction.
func (q ListQuery) Normalized() ListQuery {
	q.Search = strings.TrimSpace(q.Search)
	if !sortableFields[q.SortField] {
		q.SortField = DefaultSortField
	}
	if q.SortDirection != SortDescending {
		q.SortDirection = SortAscending
	}
	if q.Skip < 0 {
		q.Skip = 0
	}
	if q.Limit < 0 {
		q.Limit = 0
	}
	return q
}
