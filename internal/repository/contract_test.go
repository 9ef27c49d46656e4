package repository

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/datastore"
	"github.com/google/uuid"
	"github.com/locvowork/employee_directory/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// stepClock advances one second on every reading.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStepClock() *stepClock {
	return &stepClock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type backendFactory func(t *testing.T) domain.EmployeeRepository

func backends(t *testing.T) map[string]backendFactory {
	t.Helper()

	out := map[string]backendFactory{
		"file": func(t *testing.T) domain.EmployeeRepository {
			repo, err := NewFileEmployeeRepository(filepath.Join(t.TempDir(), "data", "employees.json"), newStepClock())
			require.NoError(t, err)
			return repo
		},
	}

	if uri := os.Getenv("MONGODB_TEST_URI"); uri != "" {
		out["mongo"] = func(t *testing.T) domain.EmployeeRepository {
			ctx := context.Background()
			client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
			require.NoError(t, err)

			db := client.Database("employee_directory_test_" + strings.ReplaceAll(uuid.NewString(), "-", ""))
			t.Cleanup(func() {
				_ = db.Drop(ctx)
				_ = client.Disconnect(ctx)
			})

			repo := NewMongoEmployeeRepository(db.Collection("employees"), newStepClock())
			require.NoError(t, repo.EnsureIndexes(ctx))
			return repo
		}
	}

	if os.Getenv("DATASTORE_EMULATOR_HOST") != "" {
		out["datastore"] = func(t *testing.T) domain.EmployeeRepository {
			client, err := datastore.NewClient(context.Background(), "employee-directory-test")
			require.NoError(t, err)
			t.Cleanup(func() { _ = client.Close() })

			return NewDatastoreEmployeeRepository(client, "t"+strings.ReplaceAll(uuid.NewString(), "-", ""), newStepClock())
		}
	}

	return out
}

func str(s string) *string   { return &s }
func num(f float64) *float64 { return &f }
func flag(b bool) *bool      { return &b }

func input(first, last, email, dept string, salary float64) domain.EmployeeInput {
	return domain.EmployeeInput{
		FirstName:  str(first),
		LastName:   str(last),
		Email:      str(email),
		Phone:      str("5551234567"),
		Position:   str("Engineer"),
		Department: str(dept),
		Salary:     num(salary),
	}
}

// sameRecord compares two records, timestamps by instant.
func sameRecord(t *testing.T, want, got *domain.Employee) {
	t.Helper()
	require.NotNil(t, got)

	assert.True(t, want.HireDate.Equal(got.HireDate), "hireDate %v != %v", want.HireDate, got.HireDate)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt), "createdAt %v != %v", want.CreatedAt, got.CreatedAt)
	assert.True(t, want.UpdatedAt.Equal(got.UpdatedAt), "updatedAt %v != %v", want.UpdatedAt, got.UpdatedAt)

	w, g := *want, *got
	w.HireDate, w.CreatedAt, w.UpdatedAt = time.Time{}, time.Time{}, time.Time{}
	g.HireDate, g.CreatedAt, g.UpdatedAt = time.Time{}, time.Time{}, time.Time{}
	assert.Equal(t, w, g)
}

func TestEmployeeRepositoryContract(t *testing.T) {
	for name, factory := range backends(t) {
		factory := factory
		t.Run(name, func(t *testing.T) {
			runContract(t, factory)
		})
	}
}

func runContract(t *testing.T, newRepo backendFactory) {
	ctx := context.Background()

	t.Run("create normalizes and derives", func(t *testing.T) {
		repo := newRepo(t)

		e, err := repo.Create(ctx, domain.EmployeeInput{
			FirstName:  str(" John "),
			LastName:   str("Doe"),
			Email:      str("John.Doe@x.com"),
			Phone:      str("(555) 123-4567"),
			Position:   str("Eng"),
			Department: str("R&D"),
			Salary:     num(75000),
		})
		require.NoError(t, err)

		assert.NotEmpty(t, e.ID)
		assert.Equal(t, "john.doe@x.com", e.Email)
		assert.Equal(t, "John Doe", e.FullName)
		assert.Equal(t, "5551234567", e.Phone)
		assert.True(t, e.IsActive)
		assert.True(t, e.CreatedAt.Equal(e.UpdatedAt))
		assert.True(t, e.HireDate.Equal(e.CreatedAt), "hireDate defaults to creation time")
	})

	t.Run("create with explicit hire date and inactive flag", func(t *testing.T) {
		repo := newRepo(t)

		in := input("Jane", "Smith", "jane@x.com", "Product", 85000)
		in.HireDate = str("2023-02-01")
		in.IsActive = flag(false)
		e, err := repo.Create(ctx, in)
		require.NoError(t, err)

		assert.True(t, e.HireDate.Equal(time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC)))
		assert.False(t, e.IsActive)
	})

	t.Run("round trip", func(t *testing.T) {
		repo := newRepo(t)

		created, err := repo.Create(ctx, input("Ann", "Lee", "ann@x.com", "Ops", 50000))
		require.NoError(t, err)

		got, err := repo.FindByID(ctx, created.ID)
		require.NoError(t, err)
		sameRecord(t, created, got)
	})

	t.Run("invalid input never persists", func(t *testing.T) {
		repo := newRepo(t)

		_, err := repo.Create(ctx, domain.EmployeeInput{FirstName: str("Only")})
		var ve *domain.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Len(t, ve.Messages, 6)

		res, err := repo.Find(ctx, domain.ListQuery{})
		require.NoError(t, err)
		assert.Equal(t, int64(0), res.Total)
	})

	t.Run("duplicate email differing only by case", func(t *testing.T) {
		repo := newRepo(t)

		_, err := repo.Create(ctx, input("A", "One", "same@x.com", "Ops", 1))
		require.NoError(t, err)
		_, err = repo.Create(ctx, input("B", "Two", "SAME@X.com", "Ops", 1))
		assert.ErrorIs(t, err, domain.ErrDuplicateEmail)
	})

	t.Run("duplicate email counts inactive records", func(t *testing.T) {
		repo := newRepo(t)

		in := input("A", "One", "gone@x.com", "Ops", 1)
		in.IsActive = flag(false)
		_, err := repo.Create(ctx, in)
		require.NoError(t, err)

		_, err = repo.Create(ctx, input("B", "Two", "gone@x.com", "Ops", 1))
		assert.ErrorIs(t, err, domain.ErrDuplicateEmail)
	})

	t.Run("update email uniqueness", func(t *testing.T) {
		repo := newRepo(t)

		a, err := repo.Create(ctx, input("A", "One", "a@x.com", "Ops", 1))
		require.NoError(t, err)
		_, err = repo.Create(ctx, input("B", "Two", "b@x.com", "Ops", 1))
		require.NoError(t, err)

		_, err = repo.Update(ctx, a.ID, domain.EmployeeInput{Email: str("B@x.com")})
		assert.ErrorIs(t, err, domain.ErrDuplicateEmail)

		got, err := repo.FindByID(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, "a@x.com", got.Email, "failed update leaves the record intact")

		same, err := repo.Update(ctx, a.ID, domain.EmployeeInput{Email: str("A@X.com")})
		require.NoError(t, err)
		assert.Equal(t, "a@x.com", same.Email)

		moved, err := repo.Update(ctx, a.ID, domain.EmployeeInput{Email: str("c@x.com")})
		require.NoError(t, err)
		assert.Equal(t, "c@x.com", moved.Email)

		// the released address is free again
		_, err = repo.Create(ctx, input("D", "Four", "a@x.com", "Ops", 1))
		assert.NoError(t, err)
	})

	t.Run("update merges present fields", func(t *testing.T) {
		repo := newRepo(t)

		created, err := repo.Create(ctx, input("John", "Doe", "john@x.com", "Ops", 100))
		require.NoError(t, err)

		updated, err := repo.Update(ctx, created.ID, domain.EmployeeInput{
			LastName: str(" Smith "),
			Salary:   num(200),
		})
		require.NoError(t, err)

		assert.Equal(t, created.ID, updated.ID)
		assert.Equal(t, "Smith", updated.LastName)
		assert.Equal(t, "John Smith", updated.FullName)
		assert.Equal(t, 200.0, updated.Salary)
		assert.Equal(t, "john@x.com", updated.Email)
		assert.Equal(t, "Ops", updated.Department)
		assert.True(t, updated.CreatedAt.Equal(created.CreatedAt))
		assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))

		again, err := repo.Update(ctx, created.ID, domain.EmployeeInput{})
		require.NoError(t, err)
		assert.True(t, again.UpdatedAt.After(updated.UpdatedAt))

		got, err := repo.FindByID(ctx, created.ID)
		require.NoError(t, err)
		sameRecord(t, again, got)
	})

	t.Run("update rejects invalid fields", func(t *testing.T) {
		repo := newRepo(t)

		created, err := repo.Create(ctx, input("John", "Doe", "john@x.com", "Ops", 100))
		require.NoError(t, err)

		_, err = repo.Update(ctx, created.ID, domain.EmployeeInput{Salary: num(-1), Phone: str("12")})
		var ve *domain.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Len(t, ve.Messages, 2)
	})

	t.Run("missing ids", func(t *testing.T) {
		repo := newRepo(t)

		_, err := repo.FindByID(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrEmployeeNotFound)
		_, err = repo.Update(ctx, "missing", domain.EmployeeInput{Salary: num(1)})
		assert.ErrorIs(t, err, domain.ErrEmployeeNotFound)
		_, err = repo.Delete(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrEmployeeNotFound)
	})

	t.Run("delete is hard", func(t *testing.T) {
		repo := newRepo(t)

		created, err := repo.Create(ctx, input("John", "Doe", "john@x.com", "Ops", 100))
		require.NoError(t, err)

		removed, err := repo.Delete(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, removed.ID)
		assert.Equal(t, "John Doe", removed.FullName)

		_, err = repo.FindByID(ctx, created.ID)
		assert.ErrorIs(t, err, domain.ErrEmployeeNotFound)
		_, err = repo.Delete(ctx, created.ID)
		assert.ErrorIs(t, err, domain.ErrEmployeeNotFound)

		again, err := repo.Create(ctx, input("John", "Doe", "john@x.com", "Ops", 100))
		require.NoError(t, err)
		assert.NotEqual(t, created.ID, again.ID, "ids are never reused")
	})

	t.Run("find search sort paginate", func(t *testing.T) {
		repo := newRepo(t)
		seedFive(t, repo)

		res, err := repo.Find(ctx, domain.ListQuery{Search: "doe"})
		require.NoError(t, err)
		require.Equal(t, int64(1), res.Total)
		assert.Equal(t, "John Doe", res.Employees[0].FullName)

		res, err = repo.Find(ctx, domain.ListQuery{Search: "ENGINEER"})
		require.NoError(t, err)
		assert.Equal(t, int64(2), res.Total, "position and department both match")

		res, err = repo.Find(ctx, domain.ListQuery{Search: "  ENGINEER \t"})
		require.NoError(t, err)
		assert.Equal(t, int64(2), res.Total, "surrounding whitespace is ignored")

		res, err = repo.Find(ctx, domain.ListQuery{Search: "   "})
		require.NoError(t, err)
		assert.Equal(t, int64(5), res.Total, "a blank search matches everything")

		res, err = repo.Find(ctx, domain.ListQuery{Search: "a.b+c"})
		require.NoError(t, err)
		assert.Equal(t, int64(0), res.Total, "search terms are literal")

		res, err = repo.Find(ctx, domain.ListQuery{SortField: domain.FieldSalary, SortDirection: domain.SortDescending})
		require.NoError(t, err)
		require.Len(t, res.Employees, 5)
		assert.Equal(t, "Jane", res.Employees[0].FirstName)
		assert.Equal(t, "Mike", res.Employees[4].FirstName)

		for skip := 0; skip < 7; skip++ {
			res, err = repo.Find(ctx, domain.ListQuery{Skip: skip, Limit: 2})
			require.NoError(t, err)
			assert.LessOrEqual(t, len(res.Employees), 2)
			assert.Equal(t, int64(5), res.Total)
		}

		res, err = repo.Find(ctx, domain.ListQuery{SortField: domain.FieldLastName, Skip: 1, Limit: 2})
		require.NoError(t, err)
		require.Len(t, res.Employees, 2)
		assert.Equal(t, "Doe", res.Employees[0].LastName)
		assert.Equal(t, "Johnson", res.Employees[1].LastName)
	})

	t.Run("equal sort values tie by id", func(t *testing.T) {
		repo := newRepo(t)
		for _, email := range []string{"a@x.com", "b@x.com", "c@x.com"} {
			_, err := repo.Create(ctx, input("Same", "Name", email, "Ops", 1))
			require.NoError(t, err)
		}

		for _, dir := range []domain.SortDirection{domain.SortAscending, domain.SortDescending} {
			res, err := repo.Find(ctx, domain.ListQuery{SortField: domain.FieldLastName, SortDirection: dir})
			require.NoError(t, err)
			require.Len(t, res.Employees, 3)
			assert.Less(t, res.Employees[0].ID, res.Employees[1].ID)
			assert.Less(t, res.Employees[1].ID, res.Employees[2].ID)
		}
	})

	t.Run("summary aggregates", func(t *testing.T) {
		repo := newRepo(t)
		seedFive(t, repo)

		n, err := repo.CountActive(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(5), n)

		stats, err := repo.DepartmentSummary(ctx)
		require.NoError(t, err)
		require.Len(t, stats, 4)
		assert.Equal(t, domain.DepartmentStat{Department: "Engineering", Count: 2}, stats[0])
		assert.Equal(t, []domain.DepartmentStat{
			{Department: "Design", Count: 1},
			{Department: "Marketing", Count: 1},
			{Department: "Product", Count: 1},
		}, stats[1:])

		avg, err := repo.AverageActiveSalary(ctx)
		require.NoError(t, err)
		assert.InDelta(t, 75000.0, avg, 0.001)
	})

	t.Run("inactive records leave the aggregates", func(t *testing.T) {
		repo := newRepo(t)
		ids := seedFive(t, repo)

		_, err := repo.Update(ctx, ids["Jane"], domain.EmployeeInput{IsActive: flag(false)})
		require.NoError(t, err)

		n, err := repo.CountActive(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(4), n)

		stats, err := repo.DepartmentSummary(ctx)
		require.NoError(t, err)
		assert.Len(t, stats, 3)

		avg, err := repo.AverageActiveSalary(ctx)
		require.NoError(t, err)
		assert.InDelta(t, 72500.0, avg, 0.001)

		res, err := repo.Find(ctx, domain.ListQuery{})
		require.NoError(t, err)
		assert.Equal(t, int64(5), res.Total, "find lists inactive records too")
	})

	t.Run("aggregates over nothing", func(t *testing.T) {
		repo := newRepo(t)

		avg, err := repo.AverageActiveSalary(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0.0, avg)

		stats, err := repo.DepartmentSummary(ctx)
		require.NoError(t, err)
		assert.Empty(t, stats)

		in := input("Off", "Line", "off@x.com", "Ops", 90000)
		in.IsActive = flag(false)
		_, err = repo.Create(ctx, in)
		require.NoError(t, err)

		avg, err = repo.AverageActiveSalary(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0.0, avg)

		n, err := repo.CountActive(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(0), n)
	})

	t.Run("ping", func(t *testing.T) {
		assert.NoError(t, newRepo(t).Ping(ctx))
	})
}

// seedFive creates the sample directory and returns ids by first name.
func seedFive(t *testing.T, repo domain.EmployeeRepository) map[string]string {
	t.Helper()

	rows := []struct {
		first, last, email, position, dept string
		salary                             float64
	}{
		{"John", "Doe", "john.doe@company.com", "Software Engineer", "Engineering", 75000},
		{"Jane", "Smith", "jane.smith@company.com", "Product Manager", "Product", 85000},
		{"Mike", "Johnson", "mike.johnson@company.com", "UI/UX Designer", "Design", 65000},
		{"Sarah", "Williams", "sarah.williams@company.com", "DevOps Engineer", "Engineering", 80000},
		{"David", "Brown", "david.brown@company.com", "Marketing Manager", "Marketing", 70000},
	}

	ids := make(map[string]string, len(rows))
	for _, r := range rows {
		in := input(r.first, r.last, r.email, r.dept, r.salary)
		in.Position = str(r.position)
		e, err := repo.Create(context.Background(), in)
		require.NoError(t, err)
		ids[r.first] = e.ID
	}
	return ids
}
