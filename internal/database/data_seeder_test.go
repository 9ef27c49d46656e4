package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/locvowork/employee_directory/internal/domain"
	"github.com/locvowork/employee_directory/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureIndexer struct {
	got     []domain.Employee
	batches int
	err     error
}

func (c *captureIndexer) BulkIndexEmployees(_ context.Context, employees []domain.Employee) error {
	if c.err != nil {
		return c.err
	}
	c.batches++
	c.got = append(c.got, employees...)
	return nil
}

// flakyRepo fails the first create of every email with a storage error.
type flakyRepo struct {
	domain.EmployeeRepository
	failed map[string]bool
}

func (f *flakyRepo) Create(ctx context.Context, in domain.EmployeeInput) (*domain.Employee, error) {
	if !f.failed[*in.Email] {
		f.failed[*in.Email] = true
		return nil, domain.NewStorageError("insert employee", errors.New("connection reset"))
	}
	return f.EmployeeRepository.Create(ctx, in)
}

func newSeeder(t *testing.T) (*DataSeeder, domain.EmployeeRepository) {
	t.Helper()
	repo, err := repository.NewFileEmployeeRepository(filepath.Join(t.TempDir(), "employees.json"), nil)
	require.NoError(t, err)

	ds := NewDataSeeder(repo)
	ds.workers = 1
	ds.backoff = func(int) time.Duration { return time.Millisecond }
	return ds, repo
}

func TestSampleEmployeesAreValid(t *testing.T) {
	ds, repo := newSeeder(t)
	ctx := context.Background()

	n, err := ds.SeedData(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	summary, err := repo.DepartmentSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.DepartmentStat{Department: "Engineering", Count: 2}, summary[0])

	avg, err := repo.AverageActiveSalary(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 75000.0, avg, 0.001)
}

func TestSeedData_SkipsNonEmptyStore(t *testing.T) {
	ds, _ := newSeeder(t)
	ctx := context.Background()

	_, err := ds.SeedData(ctx, false)
	require.NoError(t, err)

	n, err := ds.SeedData(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = ds.SeedData(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "forced reseed skips existing emails")
}

func TestSeedData_RetriesTransientFailures(t *testing.T) {
	ds, repo := newSeeder(t)
	ds.repo = &flakyRepo{EmployeeRepository: repo, failed: map[string]bool{}}

	n, err := ds.SeedData(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestClearData(t *testing.T) {
	ds, repo := newSeeder(t)
	ctx := context.Background()

	_, err := ds.SeedData(ctx, false)
	require.NoError(t, err)

	n, err := ds.ClearData(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	res, err := repo.Find(ctx, domain.ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.Total)
}

func TestReindexData(t *testing.T) {
	ds, _ := newSeeder(t)
	ctx := context.Background()

	_, err := ds.SeedData(ctx, false)
	require.NoError(t, err)

	idx := &captureIndexer{}
	n, err := ds.ReindexData(ctx, idx)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Len(t, idx.got, 5)
	assert.Equal(t, 1, idx.batches)

	idx = &captureIndexer{err: errors.New("cluster down")}
	n, err = ds.ReindexData(ctx, idx)
	assert.ErrorContains(t, err, "cluster down")
	assert.Equal(t, 0, n)
}

func TestReindexData_Pages(t *testing.T) {
	ds, _ := newSeeder(t)
	ds.batchSize = 2
	ctx := context.Background()

	_, err := ds.SeedData(ctx, false)
	require.NoError(t, err)

	idx := &captureIndexer{}
	n, err := ds.ReindexData(ctx, idx)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, 3, idx.batches)

	seen := map[string]bool{}
	for _, e := range idx.got {
		seen[e.ID] = true
	}
	assert.Len(t, seen, 5, "every employee is indexed exactly once")
}

func TestReindexData_EmptyStore(t *testing.T) {
	ds, _ := newSeeder(t)

	idx := &captureIndexer{}
	n, err := ds.ReindexData(context.Background(), idx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 0, idx.batches)
}
