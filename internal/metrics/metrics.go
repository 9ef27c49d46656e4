package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors of the employee directory.
// It counts store operations by outcome, times them, and tracks the
// health of the search mirror.
type Metrics struct {
	Operations       *prometheus.CounterVec
	OperationLatency *prometheus.HistogramVec
	IndexFailures    *prometheus.CounterVec
	EmployeesSeeded  prometheus.Counter
}

// Operation outcomes.
const (
	StatusSuccess  = "success"
	StatusRejected = "rejected"
	StatusFailure  = "failure"
)

// NewMetrics creates a new Metrics instance registered on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	metrics := &Metrics{
		Operations: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "employee_directory_operations_total",
			Help: "Total employee store operations by operation and outcome.",
		}, []string{"operation", "status"}),
		OperationLatency: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "employee_directory_operation_duration_seconds",
			Help:    "Duration of employee store operations.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		IndexFailures: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "employee_directory_search_index_failures_total",
			Help: "Failed writes to the search mirror.",
		}, []string{"operation"}),
		EmployeesSeeded: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "employee_directory_employees_seeded_total",
			Help: "Total number of sample employees inserted by the seeder.",
		}),
	}

	return metrics
}
