package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for the billing client
type Metrics struct {
	// Lifecycle metrics
	LifecycleOperationsTotal *prometheus.CounterVec
	ConfirmationsTotal       *prometheus.CounterVec
	RefreshRetriesTotal      prometheus.Counter

	// Usage metering metrics
	UsageReportsTotal        prometheus.Counter
	UsageReportsDroppedTotal prometheus.Counter

	// Backend metrics
	BackendRequestsTotal   *prometheus.CounterVec
	BackendRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		LifecycleOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "glintly_billing_lifecycle_operations_total",
				Help: "Total number of subscription lifecycle operations",
			},
			[]string{"operation", "outcome"},
		),
		ConfirmationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "glintly_billing_payment_confirmations_total",
				Help: "Total number of payment confirmation attempts",
			},
			[]string{"outcome"},
		),
		RefreshRetriesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "glintly_billing_refresh_retries_total",
				Help: "Total number of subscription refresh retries after a mutation",
			},
		),
		UsageReportsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "glintly_billing_usage_reports_total",
				Help: "Total number of usage reports delivered to the backend",
			},
		),
		UsageReportsDroppedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "glintly_billing_usage_reports_dropped_total",
				Help: "Total number of usage reports dropped after a delivery failure",
			},
		),
		BackendRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "glintly_billing_backend_requests_total",
				Help: "Total number of requests to the billing backend",
			},
			[]string{"method", "path", "status"},
		),
		BackendRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "glintly_billing_backend_request_duration_seconds",
				Help:    "Billing backend request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}

	registry.MustRegister(
		m.LifecycleOperationsTotal,
		m.ConfirmationsTotal,
		m.RefreshRetriesTotal,
		m.UsageReportsTotal,
		m.UsageReportsDroppedTotal,
		m.BackendRequestsTotal,
		m.BackendRequestDuration,
	)

	return m
}

// RecordOperation records the outcome of a lifecycle operation
func (m *Metrics) RecordOperation(operation, outcome string) {
	if m == nil {
		return
	}
	m.LifecycleOperationsTotal.WithLabelValues(operation, outcome).Inc()
}

// RecordConfirmation records the outcome of a payment confirmation attempt
func (m *Metrics) RecordConfirmation(outcome string) {
	if m == nil {
		return
	}
	m.ConfirmationsTotal.WithLabelValues(outcome).Inc()
}

// RecordRefreshRetry records one post-mutation refresh retry
func (m *Metrics) RecordRefreshRetry() {
	if m == nil {
		return
	}
	m.RefreshRetriesTotal.Inc()
}

// RecordUsageReport records a delivered or dropped usage report
func (m *Metrics) RecordUsageReport(delivered bool) {
	if m == nil {
		return
	}
	if delivered {
		m.UsageReportsTotal.Inc()
	} else {
		m.UsageReportsDroppedTotal.Inc()
	}
}

// ObserveBackendRequest records a completed billing backend request
func (m *Metrics) ObserveBackendRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.BackendRequestsTotal.WithLabelValues(method, path, statusLabel(status)).Inc()
	m.BackendRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "error"
	}
}
