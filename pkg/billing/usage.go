package billing

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/glintly/billing-go/pkg/apiclient"
	"github.com/glintly/billing-go/pkg/async"
	"github.com/glintly/billing-go/pkg/observability"
)

// ReportResult is the outcome of a best-effort usage report. Metering is
// advisory, not transactional: a failed report is recorded here and logged
// but never raised, so losing a usage tick can never break a user flow.
type ReportResult struct {
	Delivered bool
	Err       error
}

// Meter reports consumption events and retrieves monthly usage records.
type Meter struct {
	client  *apiclient.Client
	store   *Store
	logger  *observability.Logger
	metrics *observability.Metrics

	// Frozen past-month records only; the current month keeps accumulating
	// and is always fetched fresh.
	cache *lru.Cache[string, *UsageRecord]

	refreshTimeout time.Duration
}

// MeterOption configures a Meter
type MeterOption func(*Meter)

// WithMeterLogger sets the logger
func WithMeterLogger(logger *observability.Logger) MeterOption {
	return func(m *Meter) {
		m.logger = logger
	}
}

// WithMeterMetrics sets the metrics recorder
func WithMeterMetrics(metrics *observability.Metrics) MeterOption {
	return func(m *Meter) {
		m.metrics = metrics
	}
}

// WithMeterCacheSize sets how many frozen months are kept in memory
func WithMeterCacheSize(size int) MeterOption {
	return func(m *Meter) {
		if cache, err := lru.New[string, *UsageRecord](size); err == nil {
			m.cache = cache
		}
	}
}

// WithReportRefreshTimeout sets the budget for the async usage refresh
// triggered by a delivered report
func WithReportRefreshTimeout(timeout time.Duration) MeterOption {
	return func(m *Meter) {
		m.refreshTimeout = timeout
	}
}

// NewMeter creates a usage meter client
func NewMeter(client *apiclient.Client, store *Store, opts ...MeterOption) *Meter {
	cache, _ := lru.New[string, *UsageRecord](24)
	m := &Meter{
		client:         client,
		store:          store,
		logger:         observability.NopLogger(),
		cache:          cache,
		refreshTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Report delivers a batch of consumption events. Failures are swallowed by
// design; the result says whether the report landed. A delivered report
// triggers an asynchronous refresh of the current month's usage record.
func (m *Meter) Report(ctx context.Context, report UsageReport) ReportResult {
	if err := m.client.Post(ctx, "/track-usage", report, nil); err != nil {
		m.logger.WithError(err).Warn("usage report dropped")
		m.metrics.RecordUsageReport(false)
		return ReportResult{Delivered: false, Err: err}
	}

	m.metrics.RecordUsageReport(true)

	async.SafeGo(context.Background(), m.refreshTimeout, "usage refresh", m.logger, func(ctx context.Context) error {
		return m.RefreshCurrentMonth(ctx)
	})

	return ReportResult{Delivered: true}
}

// Usage returns the usage record for the given month key ("2006-01"), or
// the current month when month is empty. Frozen past months are served
// from the in-memory cache.
func (m *Meter) Usage(ctx context.Context, month string) (*UsageRecord, error) {
	current := CurrentMonthKey()
	if month == "" {
		month = current
	}

	frozen := month < current
	if frozen {
		if rec, ok := m.cache.Get(month); ok {
			out := *rec
			return &out, nil
		}
	}

	path := "/usage"
	if month != current {
		path = "/usage/" + month
	}

	var rec UsageRecord
	if err := m.client.Get(ctx, path, &rec); err != nil {
		return nil, wrapBackendError(ErrUsageUnavailable, err)
	}

	if frozen {
		m.cache.Add(month, &rec)
	}

	out := rec
	return &out, nil
}

// RefreshCurrentMonth fetches the current month's usage record and stores
// it as the latest observed record
func (m *Meter) RefreshCurrentMonth(ctx context.Context) error {
	rec, err := m.Usage(ctx, "")
	if err != nil {
		return err
	}
	m.store.SetUsage(rec)
	return nil
}
