package billing

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/glintly/billing-go/pkg/observability"
)

// UsageRefresher keeps the current month's usage record warm by refreshing
// it on a cron schedule. Partner dashboards read the record from the store
// without issuing their own fetches.
type UsageRefresher struct {
	meter    *Meter
	logger   *observability.Logger
	schedule string

	mu   sync.Mutex
	cron *cron.Cron
}

// NewUsageRefresher creates a refresher for the given cron schedule
// (e.g. "@every 15m")
func NewUsageRefresher(meter *Meter, schedule string, logger *observability.Logger) *UsageRefresher {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &UsageRefresher{
		meter:    meter,
		logger:   logger,
		schedule: schedule,
	}
}

// Start begins periodic refreshing. Returns an error for an invalid
// schedule. Starting an already started refresher is a no-op.
func (r *UsageRefresher) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cron != nil {
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(r.schedule, r.refresh); err != nil {
		return err
	}

	c.Start()
	r.cron = c
	r.logger.WithField("schedule", r.schedule).Debug("usage refresher started")
	return nil
}

// Stop halts periodic refreshing and waits for an in-flight refresh
func (r *UsageRefresher) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cron == nil {
		return
	}

	<-r.cron.Stop().Done()
	r.cron = nil
}

func (r *UsageRefresher) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := r.meter.RefreshCurrentMonth(ctx); err != nil {
		// Periodic refresh is best effort, same as metering itself.
		r.logger.WithError(err).Warn("periodic usage refresh failed")
	}
}
