// Package query runs list queries and aggregates over an in-memory record set.
// It backs the stores that cannot push these operations down to their medium.
package query

import (
	"sort"
	"strings"
	"time"

	"github.com/locvowork/employee_directory/internal/domain"
)

// Matches reports whether e contains term, case-insensitively, in any searchable field.
// An empty term matches everything.
func Matches(e domain.Employee, term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	for _, v := range []string{e.FirstName, e.LastName, e.Email, e.Position, e.Department} {
		if strings.Contains(strings.ToLower(v), term) {
			return true
		}
	}
	return false
}

// Filter returns the employees matching term, keeping their order.
func Filter(employees []domain.Employee, term string) []domain.Employee {
	out := make([]domain.Employee, 0, len(employees))
	for _, e := range employees {
		if Matches(e, term) {
			out = append(out, e)
		}
	}
	return out
}

// Sort orders employees in place by field and direction, equal values by ID ascending.
func Sort(employees []domain.Employee, field string, dir domain.SortDirection) {
	sort.SliceStable(employees, func(i, j int) bool {
		c := compareField(employees[i], employees[j], field)
		if c == 0 {
			return employees[i].ID < employees[j].ID
		}
		if dir == domain.SortDescending {
			return c > 0
		}
		return c < 0
	})
}

// Paginate drops skip records and keeps at most limit; limit 0 keeps the rest.
func Paginate(employees []domain.Employee, skip, limit int) []domain.Employee {
	if skip >= len(employees) {
		return []domain.Employee{}
	}
	employees = employees[skip:]
	if limit > 0 && limit < len(employees) {
		employees = employees[:limit]
	}
	return employees
}

// Apply runs filter, sort and pagination of q over employees.
// The input slice is not modified.
func Apply(employees []domain.Employee, q domain.ListQuery) *domain.ListResult {
	q = q.Normalized()
	matched := Filter(employees, q.Search)
	Sort(matched, q.SortField, q.SortDirection)
	total := int64(len(matched))

	page := Paginate(matched, q.Skip, q.Limit)
	out := make([]domain.Employee, len(page))
	for i, e := range page {
		out[i] = e.WithFullName()
	}
	return &domain.ListResult{Employees: out, Total: total}
}

// CountActive counts the active employees.
func CountActive(employees []domain.Employee) int64 {
	var n int64
	for _, e := range employees {
		if e.IsActiveRecord() {
			n++
		}
	}
	return n
}

// DepartmentSummary groups active employees by department,
// largest first and equal counts by department name.
func DepartmentSummary(employees []domain.Employee) []domain.DepartmentStat {
	counts := make(map[string]int64)
	for _, e := range employees {
		if e.IsActiveRecord() {
			counts[e.Department]++
		}
	}

	stats := make([]domain.DepartmentStat, 0, len(counts))
	for dept, n := range counts {
		stats = append(stats, domain.DepartmentStat{Department: dept, Count: n})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Count != stats[j].Count {
			return stats[i].Count > stats[j].Count
		}
		return stats[i].Department < stats[j].Department
	})
	return stats
}

// AverageActiveSalary is the mean salary of active employees, 0 when there are none.
func AverageActiveSalary(employees []domain.Employee) float64 {
	var sum float64
	var n int
	for _, e := range employees {
		if e.IsActiveRecord() {
			sum += e.Salary
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func compareField(a, b domain.Employee, field string) int {
	switch field {
	case domain.FieldFirstName:
		return strings.Compare(a.FirstName, b.FirstName)
	case domain.FieldLastName:
		return strings.Compare(a.LastName, b.LastName)
	case domain.FieldEmail:
		return strings.Compare(a.Email, b.Email)
	case domain.FieldPhone:
		return strings.Compare(a.Phone, b.Phone)
	case domain.FieldPosition:
		return strings.Compare(a.Position, b.Position)
	case domain.FieldDepartment:
		return strings.Compare(a.Department, b.Department)
	case domain.FieldSalary:
		return compareFloat(a.Salary, b.Salary)
	case domain.FieldHireDate:
		return compareTime(a.HireDate, b.HireDate)
	case domain.FieldIsActive:
		return compareBool(a.IsActive, b.IsActive)
	case domain.FieldCreatedAt:
		return compareTime(a.CreatedAt, b.CreatedAt)
	case domain.FieldUpdatedAt:
		return compareTime(a.UpdatedAt, b.UpdatedAt)
	}
	return 0
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareTime(a, b time.Time) int {
	return a.Compare(b)
}

// false sorts before true, as in MongoDB.
func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	}
	return 1
}
