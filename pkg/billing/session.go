package billing

import (
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/glintly/billing-go/pkg/apiclient"
	"github.com/glintly/billing-go/pkg/config"
	"github.com/glintly/billing-go/pkg/observability"
)

// Session wires the billing components for one authenticated principal.
// Each session owns its own store; two sessions for the same principal are
// independent and see no shared state.
type Session struct {
	Catalog    *Catalog
	Store      *Store
	Meter      *Meter
	Controller *Controller
	Refresher  *UsageRefresher

	logger *observability.Logger
}

// NewSession builds a fully wired billing session from configuration. The
// token source supplies the principal's bearer credential; the confirmer is
// the payment-processor capability and may be nil when the processor SDK
// failed to initialize (confirmations then fail fast).
func NewSession(cfg *config.Config, tokens apiclient.TokenSource, confirmer CardConfirmer, registry *prometheus.Registry) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)

	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled && registry != nil {
		metrics = observability.NewMetrics(registry)
	}

	clientOpts := []apiclient.Option{
		apiclient.WithTimeout(cfg.Billing.HTTPTimeout),
		apiclient.WithLogger(logger.WithField("component", "apiclient")),
		apiclient.WithObserver(metrics.ObserveBackendRequest),
	}
	if cfg.Billing.TracingEnabled {
		clientOpts = append(clientOpts, apiclient.WithTracing())
	}
	client := apiclient.New(cfg.Billing.BaseURL, tokens, clientOpts...)

	store := NewStore(client,
		WithStoreLogger(logger.WithField("component", "store")),
		WithStoreMetrics(metrics),
		WithRefreshRetryPolicy(cfg.Refresh.MaxRetries, cfg.Refresh.Backoff),
	)

	meter := NewMeter(client, store,
		WithMeterLogger(logger.WithField("component", "meter")),
		WithMeterMetrics(metrics),
		WithMeterCacheSize(cfg.Usage.CacheSize),
		WithReportRefreshTimeout(cfg.Usage.ReportRefreshTimeout),
	)

	coordinator := NewCoordinator(confirmer, logger.WithField("component", "confirm"), metrics)

	controller := NewController(client, store, coordinator,
		WithControllerLogger(logger.WithField("component", "controller")),
		WithControllerMetrics(metrics),
	)

	s := &Session{
		Catalog:    NewCatalog(client, logger.WithField("component", "catalog")),
		Store:      store,
		Meter:      meter,
		Controller: controller,
		logger:     logger,
	}

	if cfg.Usage.RefreshSchedule != "" {
		s.Refresher = NewUsageRefresher(meter, cfg.Usage.RefreshSchedule, logger.WithField("component", "refresher"))
		if err := s.Refresher.Start(); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Close disposes the session: the refresher stops and the store is cleared
// so a later session never observes this principal's cached state.
func (s *Session) Close() {
	if s.Refresher != nil {
		s.Refresher.Stop()
	}
	s.Store.Reset()
}
