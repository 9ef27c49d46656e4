package domain

import "context"

// EmployeeRepository is the record store contract every backend satisfies.
//
// Create and Update validate their input and enforce email uniqueness.
// FindByID, Update and Delete report a missing id as ErrEmployeeNotFound.
type EmployeeRepository interface {
	Find(ctx context.Context, q ListQuery) (*ListResult, error)
	FindByID(ctx context.Context, id string) (*Employee, error)
	Create(ctx context.Context, in EmployeeInput) (*Employee, error)
	Update(ctx context.Context, id string, in EmployeeInput) (*Employee, error)
	Delete(ctx context.Context, id string) (*Employee, error)

	// Aggregates over active records
	CountActive(ctx context.Context) (int64, error)
	DepartmentSummary(ctx context.Context) ([]DepartmentStat, error)
	AverageActiveSalary(ctx context.Context) (float64, error)

	Ping(ctx context.Context) error
}
