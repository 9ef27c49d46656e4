package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/locvowork/employee_directory/internal/domain"
	"github.com/locvowork/employee_directory/internal/repository/query"
	"github.com/locvowork/employee_directory/internal/validation"
)

// FileEmployeeRepository keeps the whole directory as one JSON array on disk.
//
// Every operation loads the full snapshot; mutations write a new snapshot to a
// temporary file and rename it over the old one. Writers are not excluded from
// each other: two concurrent mutations both read the same snapshot and the last
// rename wins, silently dropping the other change.
type FileEmployeeRepository struct {
	path  string
	clock domain.Clock
}

// fileRecord lets a record written without isActive load as active,
// and one written with a bare YYYY-MM-DD hireDate load at midnight UTC.
type fileRecord struct {
	domain.Employee
	IsActive *bool    `json:"isActive,omitempty"`
	HireDate fileDate `json:"hireDate"`
}

// fileDate reads RFC 3339 timestamps and bare dates; it always writes RFC 3339.
type fileDate time.Time

func (d fileDate) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Time(d))
}

func (d *fileDate) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if strings.TrimSpace(s) == "" {
		*d = fileDate{}
		return nil
	}
	t, err := validation.ParseHireDate(s)
	if err != nil {
		return err
	}
	*d = fileDate(t.UTC())
	return nil
}

// NewFileEmployeeRepository creates a file-backed repository at path
func NewFileEmployeeRepository(path string, clock domain.Clock) (*FileEmployeeRepository, error) {
	if clock == nil {
		clock = domain.SystemClock
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &FileEmployeeRepository{path: path, clock: clock}, nil
}

// Path of the snapshot file
func (r *FileEmployeeRepository) Path() string {
	return r.path
}

func (r *FileEmployeeRepository) Find(ctx context.Context, q domain.ListQuery) (*domain.ListResult, error) {
	employees, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	return query.Apply(employees, q), nil
}

func (r *FileEmployeeRepository) FindByID(ctx context.Context, id string) (*domain.Employee, error) {
	employees, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	i := indexOf(employees, id)
	if i < 0 {
		return nil, domain.ErrEmployeeNotFound
	}
	e := employees[i].WithFullName()
	return &e, nil
}

func (r *FileEmployeeRepository) Create(ctx context.Context, in domain.EmployeeInput) (*domain.Employee, error) {
	e, err := newEmployee(in, r.clock.Now())
	if err != nil {
		return nil, err
	}

	employees, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	if emailTaken(employees, e.Email, "") {
		return nil, domain.ErrDuplicateEmail
	}

	employees = append(employees, e)
	if err := r.save(ctx, employees); err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *FileEmployeeRepository) Update(ctx context.Context, id string, in domain.EmployeeInput) (*domain.Employee, error) {
	employees, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	i := indexOf(employees, id)
	if i < 0 {
		return nil, domain.ErrEmployeeNotFound
	}

	updated, err := applyInput(employees[i], in, r.clock.Now())
	if err != nil {
		return nil, err
	}
	if email, ok := emailOf(in); ok && emailTaken(employees, email, id) {
		return nil, domain.ErrDuplicateEmail
	}

	employees[i] = updated
	if err := r.save(ctx, employees); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *FileEmployeeRepository) Delete(ctx context.Context, id string) (*domain.Employee, error) {
	employees, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	i := indexOf(employees, id)
	if i < 0 {
		return nil, domain.ErrEmployeeNotFound
	}

	removed := employees[i].WithFullName()
	employees = append(employees[:i], employees[i+1:]...)
	if err := r.save(ctx, employees); err != nil {
		return nil, err
	}
	return &removed, nil
}

func (r *FileEmployeeRepository) CountActive(ctx context.Context) (int64, error) {
	employees, err := r.load(ctx)
	if err != nil {
		return 0, err
	}
	return query.CountActive(employees), nil
}

func (r *FileEmployeeRepository) DepartmentSummary(ctx context.Context) ([]domain.DepartmentStat, error) {
	employees, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	return query.DepartmentSummary(employees), nil
}

func (r *FileEmployeeRepository) AverageActiveSalary(ctx context.Context) (float64, error) {
	employees, err := r.load(ctx)
	if err != nil {
		return 0, err
	}
	return query.AverageActiveSalary(employees), nil
}

// Ping checks that the snapshot is readable.
func (r *FileEmployeeRepository) Ping(ctx context.Context) error {
	_, err := r.load(ctx)
	return err
}

// load reads the snapshot. A missing or empty file is an empty directory.
func (r *FileEmployeeRepository) load(ctx context.Context) ([]domain.Employee, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []domain.Employee{}, nil
	}
	if err != nil {
		return nil, domain.NewStorageError("read snapshot", err)
	}
	if len(data) == 0 {
		return []domain.Employee{}, nil
	}

	var records []fileRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, domain.NewStorageError("decode snapshot", err)
	}

	employees := make([]domain.Employee, len(records))
	for i, rec := range records {
		e := rec.Employee
		e.IsActive = rec.IsActive == nil || *rec.IsActive
		e.HireDate = time.Time(rec.HireDate)
		employees[i] = e
	}
	return employees, nil
}

// save replaces the snapshot atomically; the old file survives any failure.
func (r *FileEmployeeRepository) save(ctx context.Context, employees []domain.Employee) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	records := make([]fileRecord, len(employees))
	for i, e := range employees {
		active := e.IsActive
		records[i] = fileRecord{Employee: e.WithFullName(), IsActive: &active, HireDate: fileDate(e.HireDate)}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return domain.NewStorageError("encode snapshot", err)
	}

	dir := filepath.Dir(r.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return domain.NewStorageError("create temp snapshot", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return domain.NewStorageError("write temp snapshot", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return domain.NewStorageError("sync temp snapshot", err)
	}
	if err := tmp.Close(); err != nil {
		return domain.NewStorageError("close temp snapshot", err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		return domain.NewStorageError("replace snapshot", err)
	}
	return nil
}

func indexOf(employees []domain.Employee, id string) int {
	for i := range employees {
		if employees[i].ID == id {
			return i
		}
	}
	return -1
}

// emailTaken reports whether a record other than exceptID uses email.
func emailTaken(employees []domain.Employee, email, exceptID string) bool {
	for _, e := range employees {
		if e.ID != exceptID && e.Email == email {
			return true
		}
	}
	return false
}
