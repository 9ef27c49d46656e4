package repository

import (
	"context"
	"errors"

	"cloud.google.com/go/datastore"
	"github.com/locvowork/employee_directory/internal/domain"
	"github.com/locvowork/employee_directory/internal/repository/query"
)

const (
	EmployeeKind      = "Employee"
	EmployeeEmailKind = "EmployeeEmail"
)

// DatastoreEmployeeRepository stores employees in Cloud Datastore.
//
// Each employee is an Employee entity keyed by its id. Email uniqueness is held
// by an EmployeeEmail entity keyed by the normalized address, written in the
// same transaction as the employee. Datastore has no substring match or group
// by, so searches and aggregates run over the loaded kind.
type DatastoreEmployeeRepository struct {
	client    *datastore.Client
	namespace string
	clock     domain.Clock
}

type emailClaim struct {
	EmployeeID string `datastore:"EmployeeID"`
}

// NewDatastoreEmployeeRepository creates a Datastore-backed repository
func NewDatastoreEmployeeRepository(client *datastore.Client, namespace string, clock domain.Clock) *DatastoreEmployeeRepository {
	if clock == nil {
		clock = domain.SystemClock
	}
	return &DatastoreEmployeeRepository{client: client, namespace: namespace, clock: clock}
}

func (r *DatastoreEmployeeRepository) Find(ctx context.Context, q domain.ListQuery) (*domain.ListResult, error) {
	employees, err := r.loadAll(ctx, false)
	if err != nil {
		return nil, err
	}
	return query.Apply(employees, q), nil
}

func (r *DatastoreEmployeeRepository) FindByID(ctx context.Context, id string) (*domain.Employee, error) {
	var e domain.Employee
	err := r.client.Get(ctx, r.employeeKey(id), &e)
	if errors.Is(err, datastore.ErrNoSuchEntity) {
		return nil, domain.ErrEmployeeNotFound
	}
	if err != nil {
		return nil, domain.NewStorageError("get employee", err)
	}
	e = loaded(id, e)
	return &e, nil
}

func (r *DatastoreEmployeeRepository) Create(ctx context.Context, in domain.EmployeeInput) (*domain.Employee, error) {
	e, err := newEmployee(in, r.clock.Now())
	if err != nil {
		return nil, err
	}

	_, err = r.client.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		if err := r.claimEmail(tx, e.Email, e.ID); err != nil {
			return err
		}
		_, err := tx.Put(r.employeeKey(e.ID), &e)
		return err
	})
	if err != nil {
		return nil, domain.NewStorageError("create employee", err)
	}
	return &e, nil
}

func (r *DatastoreEmployeeRepository) Update(ctx context.Context, id string, in domain.EmployeeInput) (*domain.Employee, error) {
	var updated domain.Employee
	_, err := r.client.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		var existing domain.Employee
		if err := tx.Get(r.employeeKey(id), &existing); err != nil {
			if errors.Is(err, datastore.ErrNoSuchEntity) {
				return domain.ErrEmployeeNotFound
			}
			return err
		}
		existing = loaded(id, existing)

		var err error
		updated, err = applyInput(existing, in, r.clock.Now())
		if err != nil {
			return err
		}

		if updated.Email != existing.Email {
			if err := r.claimEmail(tx, updated.Email, id); err != nil {
				return err
			}
			if err := tx.Delete(r.emailKey(existing.Email)); err != nil {
				return err
			}
		}
		_, err = tx.Put(r.employeeKey(id), &updated)
		return err
	})
	if err != nil {
		return nil, domain.NewStorageError("update employee", err)
	}
	return &updated, nil
}

func (r *DatastoreEmployeeRepository) Delete(ctx context.Context, id string) (*domain.Employee, error) {
	var removed domain.Employee
	_, err := r.client.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		if err := tx.Get(r.employeeKey(id), &removed); err != nil {
			if errors.Is(err, datastore.ErrNoSuchEntity) {
				return domain.ErrEmployeeNotFound
			}
			return err
		}
		removed = loaded(id, removed)

		if err := tx.Delete(r.employeeKey(id)); err != nil {
			return err
		}
		return tx.Delete(r.emailKey(removed.Email))
	})
	if err != nil {
		return nil, domain.NewStorageError("delete employee", err)
	}
	return &removed, nil
}

func (r *DatastoreEmployeeRepository) CountActive(ctx context.Context) (int64, error) {
	n, err := r.client.Count(ctx, r.activeQuery())
	if err != nil {
		return 0, domain.NewStorageError("count active employees", err)
	}
	return int64(n), nil
}

func (r *DatastoreEmployeeRepository) DepartmentSummary(ctx context.Context) ([]domain.DepartmentStat, error) {
	employees, err := r.loadAll(ctx, true)
	if err != nil {
		return nil, err
	}
	return query.DepartmentSummary(employees), nil
}

func (r *DatastoreEmployeeRepository) AverageActiveSalary(ctx context.Context) (float64, error) {
	employees, err := r.loadAll(ctx, true)
	if err != nil {
		return 0, err
	}
	return query.AverageActiveSalary(employees), nil
}

func (r *DatastoreEmployeeRepository) Ping(ctx context.Context) error {
	q := datastore.NewQuery(EmployeeKind).Namespace(r.namespace).KeysOnly().Limit(1)
	if _, err := r.client.GetAll(ctx, q, nil); err != nil {
		return domain.NewStorageError("ping", err)
	}
	return nil
}

// claimEmail reserves email for id inside tx, failing if another employee holds it.
func (r *DatastoreEmployeeRepository) claimEmail(tx *datastore.Transaction, email, id string) error {
	key := r.emailKey(email)

	var claim emailClaim
	err := tx.Get(key, &claim)
	switch {
	case err == nil && claim.EmployeeID != id:
		return domain.ErrDuplicateEmail
	case err != nil && !errors.Is(err, datastore.ErrNoSuchEntity):
		return err
	}

	_, err = tx.Put(key, &emailClaim{EmployeeID: id})
	return err
}

func (r *DatastoreEmployeeRepository) loadAll(ctx context.Context, activeOnly bool) ([]domain.Employee, error) {
	q := datastore.NewQuery(EmployeeKind).Namespace(r.namespace)
	if activeOnly {
		q = r.activeQuery()
	}

	var employees []domain.Employee
	keys, err := r.client.GetAll(ctx, q, &employees)
	if err != nil {
		return nil, domain.NewStorageError("load employees", err)
	}
	for i := range employees {
		employees[i] = loaded(keys[i].Name, employees[i])
	}
	return employees, nil
}

func (r *DatastoreEmployeeRepository) activeQuery() *datastore.Query {
	return datastore.NewQuery(EmployeeKind).Namespace(r.namespace).FilterField("IsActive", "=", true)
}

func (r *DatastoreEmployeeRepository) employeeKey(id string) *datastore.Key {
	k := datastore.NameKey(EmployeeKind, id, nil)
	k.Namespace = r.namespace
	return k
}

func (r *DatastoreEmployeeRepository) emailKey(email string) *datastore.Key {
	k := datastore.NameKey(EmployeeEmailKind, email, nil)
	k.Namespace = r.namespace
	return k
}

// loaded restores what Datastore does not keep: the key name, UTC and the derived name.
func loaded(id string, e domain.Employee) domain.Employee {
	e.ID = id
	e.HireDate = e.HireDate.UTC()
	e.CreatedAt = e.CreatedAt.UTC()
	e.UpdatedAt = e.UpdatedAt.UTC()
	return e.WithFullName()
}
