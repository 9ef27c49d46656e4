package repository

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/locvowork/employee_directory/internal/domain"
	"github.com/locvowork/employee_directory/internal/validation"
)

// newEmployee validates in as a full record and builds it with a fresh id and timestamps.
func newEmployee(in domain.EmployeeInput, now time.Time) (domain.Employee, error) {
	if err := validation.Check(in, false); err != nil {
		return domain.Employee{}, err
	}

	stamp := domain.Stamp(now)
	e := domain.Employee{
		ID:        uuid.NewString(),
		HireDate:  stamp,
		IsActive:  true,
		CreatedAt: stamp,
		UpdatedAt: stamp,
	}
	setFields(&e, in)
	return e.WithFullName(), nil
}

// applyInput validates the present fields of in and merges them over e.
func applyInput(e domain.Employee, in domain.EmployeeInput, now time.Time) (domain.Employee, error) {
	if err := validation.Check(in, true); err != nil {
		return domain.Employee{}, err
	}

	setFields(&e, in)
	e.UpdatedAt = domain.NextUpdate(now, e.UpdatedAt)
	return e.WithFullName(), nil
}

// setFields assumes in already passed validation.
func setFields(e *domain.Employee, in domain.EmployeeInput) {
	if in.FirstName != nil {
		e.FirstName = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		e.LastName = strings.TrimSpace(*in.LastName)
	}
	if in.Email != nil {
		e.Email = validation.NormalizeEmail(*in.Email)
	}
	if in.Phone != nil {
		e.Phone = validation.NormalizePhone(*in.Phone)
	}
	if in.Position != nil {
		e.Position = strings.TrimSpace(*in.Position)
	}
	if in.Department != nil {
		e.Department = strings.TrimSpace(*in.Department)
	}
	if in.Salary != nil {
		e.Salary = *in.Salary
	}
	if in.HireDate != nil && strings.TrimSpace(*in.HireDate) != "" {
		if t, err := validation.ParseHireDate(*in.HireDate); err == nil {
			e.HireDate = domain.Stamp(t)
		}
	}
	if in.IsActive != nil {
		e.IsActive = *in.IsActive
	}
}

// emailOf returns the normalized email in carries, if any.
func emailOf(in domain.EmployeeInput) (string, bool) {
	if in.Email == nil {
		return "", false
	}
	return validation.NormalizeEmail(*in.Email), true
}
