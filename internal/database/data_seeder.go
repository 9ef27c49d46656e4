package database

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/locvowork/employee_directory/internal/domain"
	"github.com/locvowork/employee_directory/pkg/dataflow"
)

// BulkIndexer receives the full record set on reindex.
type BulkIndexer interface {
	BulkIndexEmployees(ctx context.Context, employees []domain.Employee) error
}

// DefaultReindexBatch is how many employees go into one bulk index request.
const DefaultReindexBatch = 500

type DataSeeder struct {
	repo      domain.EmployeeRepository
	workers   int
	batchSize int
	backoff   func(int) time.Duration
}

// NewDataSeeder creates a seeder writing through repo
func NewDataSeeder(repo domain.EmployeeRepository) *DataSeeder {
	return &DataSeeder{
		repo:      repo,
		workers:   1,
		batchSize: DefaultReindexBatch,
		backoff:   func(attempt int) time.Duration { return time.Duration(attempt) * 200 * time.Millisecond },
	}
}

// SetWorkers sets how many records are written concurrently.
// The file backend loses concurrent writes and must stay at 1.
func (ds *DataSeeder) SetWorkers(n int) *DataSeeder {
	if n > 0 {
		ds.workers = n
	}
	return ds
}

// SampleEmployees returns the five sample employees of the directory.
func SampleEmployees() []domain.EmployeeInput {
	sample := func(first, last, email, phone, position, dept string, salary float64, hired string) domain.EmployeeInput {
		return domain.EmployeeInput{
			FirstName:  &first,
			LastName:   &last,
			Email:      &email,
			Phone:      &phone,
			Position:   &position,
			Department: &dept,
			Salary:     &salary,
			HireDate:   &hired,
		}
	}

	return []domain.EmployeeInput{
		sample("John", "Doe", "john.doe@company.com", "5551234567", "Software Engineer", "Engineering", 75000, "2023-01-15"),
		sample("Jane", "Smith", "jane.smith@company.com", "5551234568", "Product Manager", "Product", 85000, "2023-02-01"),
		sample("Mike", "Johnson", "mike.johnson@company.com", "5551234569", "UI/UX Designer", "Design", 65000, "2023-03-10"),
		sample("Sarah", "Williams", "sarah.williams@company.com", "5551234570", "DevOps Engineer", "Engineering", 80000, "2023-01-20"),
		sample("David", "Brown", "david.brown@company.com", "5551234571", "Marketing Manager", "Marketing", 70000, "2023-04-05"),
	}
}

// SeedData inserts the sample employees. A non-empty store is left alone unless force is set;
// with force, samples whose email already exists are skipped.
func (ds *DataSeeder) SeedData(ctx context.Context, force bool) (int, error) {
	start := time.Now()
	fmt.Println("🚀 Seeding data...")

	existing, err := ds.repo.Find(ctx, domain.ListQuery{Limit: 1})
	if err != nil {
		return 0, fmt.Errorf("failed to count employees: %w", err)
	}
	if existing.Total > 0 && !force {
		fmt.Printf("ℹ️  Sample data already exists (%d employees)\n", existing.Total)
		return 0, nil
	}

	var skipped int32
	var errOnce sync.Once
	var failure error
	source := dataflow.From(ctx, SampleEmployees()...)
	created := dataflow.Map(ctx, source, func(in domain.EmployeeInput) (*domain.Employee, error) {
		return ds.repo.Create(ctx, in)
	},
		dataflow.WithWorkers(ds.workers),
		dataflow.WithRetry(3, ds.backoff),
		dataflow.WithRetryIf(isTransient),
		dataflow.WithErrorHandler(func(err error) bool {
			if errors.Is(err, domain.ErrDuplicateEmail) {
				atomic.AddInt32(&skipped, 1)
				return true
			}
			fmt.Printf("❌ Failed to create employee: %v\n", err)
			errOnce.Do(func() { failure = err })
			return false
		}),
	)

	employees, err := dataflow.Collect(ctx, created)
	if err == nil {
		err = failure
	}
	for _, e := range employees {
		fmt.Printf("✅ Created %s <%s>\n", e.FullName, e.Email)
	}
	count := len(employees)
	if err != nil {
		return count, fmt.Errorf("failed to seed employees: %w", err)
	}

	if n := atomic.LoadInt32(&skipped); n > 0 {
		fmt.Printf("⚠️  Skipped %d employees with existing emails\n", n)
	}
	fmt.Printf("🎉 Done in %v\n", time.Since(start))
	fmt.Printf("📊 Stats: %d employees created\n", count)

	return count, nil
}

// ClearData deletes every employee.
func (ds *DataSeeder) ClearData(ctx context.Context) (int, error) {
	fmt.Println("🗑️  Clearing data...")

	all, err := ds.repo.Find(ctx, domain.ListQuery{})
	if err != nil {
		return 0, fmt.Errorf("failed to list employees: %w", err)
	}

	var deleted int32
	err = dataflow.ForEach(ctx, dataflow.From(ctx, all.Employees...), func(e domain.Employee) error {
		_, err := ds.repo.Delete(ctx, e.ID)
		if errors.Is(err, domain.ErrEmployeeNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to delete employee %s: %w", e.ID, err)
		}
		atomic.AddInt32(&deleted, 1)
		return nil
	}, dataflow.WithWorkers(ds.workers), dataflow.WithRetry(3, ds.backoff), dataflow.WithRetryIf(isTransient))

	fmt.Printf("✅ Deleted %d employees\n", deleted)
	return int(deleted), err
}

// ReindexData pushes every employee into the search mirror, one page per bulk request.
func (ds *DataSeeder) ReindexData(ctx context.Context, indexer BulkIndexer) (int, error) {
	fmt.Println("🔁 Reindexing employees...")

	size := ds.batchSize
	if size < 1 {
		size = DefaultReindexBatch
	}

	pages := make(chan []domain.Employee)
	var readErr error
	go func() {
		defer close(pages)
		for skip := 0; ; skip += size {
			res, err := ds.repo.Find(ctx, domain.ListQuery{Skip: skip, Limit: size})
			if err != nil {
				readErr = err
				return
			}
			if len(res.Employees) == 0 {
				return
			}
			select {
			case <-ctx.Done():
				return
			case pages <- res.Employees:
			}
			if len(res.Employees) < size {
				return
			}
		}
	}()

	var indexed int64
	err := dataflow.ForEach(ctx, dataflow.New(pages), func(page []domain.Employee) error {
		if err := indexer.BulkIndexEmployees(ctx, page); err != nil {
			return err
		}
		atomic.AddInt64(&indexed, int64(len(page)))
		return nil
	}, dataflow.WithWorkers(ds.workers), dataflow.WithRetry(3, ds.backoff))

	n := int(atomic.LoadInt64(&indexed))
	if readErr != nil {
		return n, fmt.Errorf("failed to list employees: %w", readErr)
	}
	if err != nil {
		return n, fmt.Errorf("failed to reindex employees: %w", err)
	}

	fmt.Printf("✅ Indexed %d employees\n", n)
	return n, nil
}

// isTransient reports whether err may succeed on retry.
func isTransient(err error) bool {
	var se *domain.StorageError
	return errors.As(err, &se)
}
