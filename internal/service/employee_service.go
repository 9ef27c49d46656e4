package service

import (
	"context"
	"errors"
	"time"

	"github.com/locvowork/employee_directory/internal/domain"
	"github.com/locvowork/employee_directory/internal/logger"
	"github.com/locvowork/employee_directory/internal/metrics"
)

// SearchIndexer mirrors employee records into a search engine.
type SearchIndexer interface {
	IndexEmployee(ctx context.Context, emp domain.Employee) error
	DeleteEmployee(ctx context.Context, id string) error
}

// EmployeeService wraps a record store with logging, metrics and search mirroring.
// It satisfies domain.EmployeeRepository itself.
type EmployeeService struct {
	repo    domain.EmployeeRepository
	indexer SearchIndexer
	metrics *metrics.Metrics
}

var _ domain.EmployeeRepository = (*EmployeeService)(nil)

// NewEmployeeService creates a new EmployeeService instance.
// indexer and m may be nil.
func NewEmployeeService(repo domain.EmployeeRepository, indexer SearchIndexer, m *metrics.Metrics) *EmployeeService {
	return &EmployeeService{
		repo:    repo,
		indexer: indexer,
		metrics: m,
	}
}

// ==================== Queries ====================

// Find lists employees matching q
func (s *EmployeeService) Find(ctx context.Context, q domain.ListQuery) (*domain.ListResult, error) {
	start := time.Now()
	res, err := s.repo.Find(ctx, q)
	s.observe(ctx, "find", start, err)
	if err == nil {
		logger.DebugLog(ctx, "Listed %d of %d employees (search=%q sort=%s)", len(res.Employees), res.Total, q.Search, q.SortField)
	}
	return res, err
}

// FindByID retrieves a single employee
func (s *EmployeeService) FindByID(ctx context.Context, id string) (*domain.Employee, error) {
	start := time.Now()
	e, err := s.repo.FindByID(ctx, id)
	s.observe(ctx, "get", start, err)
	return e, err
}

// ==================== Mutations ====================

// Create stores a new employee and mirrors it
func (s *EmployeeService) Create(ctx context.Context, in domain.EmployeeInput) (*domain.Employee, error) {
	start := time.Now()
	e, err := s.repo.Create(ctx, in)
	s.observe(ctx, "create", start, err)
	if err != nil {
		return nil, err
	}

	logger.InfoLog(ctx, "Created employee %s", e.ID)
	s.mirror(ctx, "index", func(idx SearchIndexer) error { return idx.IndexEmployee(ctx, *e) })
	return e, nil
}

// Update merges in over an existing employee and mirrors the result
func (s *EmployeeService) Update(ctx context.Context, id string, in domain.EmployeeInput) (*domain.Employee, error) {
	start := time.Now()
	e, err := s.repo.Update(ctx, id, in)
	s.observe(ctx, "update", start, err)
	if err != nil {
		return nil, err
	}

	logger.InfoLog(ctx, "Updated employee %s", e.ID)
	s.mirror(ctx, "index", func(idx SearchIndexer) error { return idx.IndexEmployee(ctx, *e) })
	return e, nil
}

// Delete removes an employee and its mirror document
func (s *EmployeeService) Delete(ctx context.Context, id string) (*domain.Employee, error) {
	start := time.Now()
	e, err := s.repo.Delete(ctx, id)
	s.observe(ctx, "delete", start, err)
	if err != nil {
		return nil, err
	}

	logger.InfoLog(ctx, "Deleted employee %s", e.ID)
	s.mirror(ctx, "delete", func(idx SearchIndexer) error { return idx.DeleteEmployee(ctx, id) })
	return e, nil
}

// ==================== Aggregates ====================

func (s *EmployeeService) CountActive(ctx context.Context) (int64, error) {
	start := time.Now()
	n, err := s.repo.CountActive(ctx)
	s.observe(ctx, "count_active", start, err)
	return n, err
}

func (s *EmployeeService) DepartmentSummary(ctx context.Context) ([]domain.DepartmentStat, error) {
	start := time.Now()
	stats, err := s.repo.DepartmentSummary(ctx)
	s.observe(ctx, "department_summary", start, err)
	return stats, err
}

func (s *EmployeeService) AverageActiveSalary(ctx context.Context) (float64, error) {
	start := time.Now()
	avg, err := s.repo.AverageActiveSalary(ctx)
	s.observe(ctx, "average_salary", start, err)
	return avg, err
}

// Summary composes the three aggregates of the active directory.
func (s *EmployeeService) Summary(ctx context.Context) (*domain.Summary, error) {
	total, err := s.CountActive(ctx)
	if err != nil {
		return nil, err
	}
	stats, err := s.DepartmentSummary(ctx)
	if err != nil {
		return nil, err
	}
	avg, err := s.AverageActiveSalary(ctx)
	if err != nil {
		return nil, err
	}

	if stats == nil {
		stats = []domain.DepartmentStat{}
	}
	return &domain.Summary{
		TotalEmployees:  total,
		DepartmentStats: stats,
		AverageSalary:   avg,
	}, nil
}

// Ping checks the store.
func (s *EmployeeService) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// ==================== Helpers ====================

// observe records the outcome of one store operation.
func (s *EmployeeService) observe(ctx context.Context, op string, start time.Time, err error) {
	status := outcome(err)
	if s.metrics != nil {
		s.metrics.Operations.WithLabelValues(op, status).Inc()
		s.metrics.OperationLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}

	switch status {
	case metrics.StatusFailure:
		logger.ErrorLog(ctx, "Employee operation %s failed: %v", op, err)
	case metrics.StatusRejected:
		logger.DebugLog(ctx, "Employee operation %s rejected: %v", op, err)
	}
}

// mirror applies fn to the search index. Failures never reach the caller.
func (s *EmployeeService) mirror(ctx context.Context, op string, fn func(SearchIndexer) error) {
	if s.indexer == nil {
		return
	}
	if err := fn(s.indexer); err != nil {
		if s.metrics != nil {
			s.metrics.IndexFailures.WithLabelValues(op).Inc()
		}
		logger.WarnLog(ctx, "Search index %s failed: %v", op, err)
	}
}

func outcome(err error) string {
	if err == nil {
		return metrics.StatusSuccess
	}
	var ve *domain.ValidationError
	if errors.Is(err, domain.ErrEmployeeNotFound) || errors.Is(err, domain.ErrDuplicateEmail) || errors.As(err, &ve) {
		return metrics.StatusRejected
	}
	return metrics.StatusFailure
}
