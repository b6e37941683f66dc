package billing

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/glintly/billing-go/pkg/apiclient"
	"github.com/glintly/billing-go/pkg/observability"
)

// Store holds the single subscription record for the authenticated
// principal, plus the most recently observed usage record. It is explicitly
// constructed per session; independent sessions get independent stores.
//
// Reads never block behind mutations: Get returns the latest cached
// snapshot, which may be briefly stale while a mutation is in flight.
// Refresh is reserved for the lifecycle controller and the usage refresh
// paths; everything else reads through Get.
type Store struct {
	client  *apiclient.Client
	logger  *observability.Logger
	metrics *observability.Metrics

	maxRetries int
	backoff    time.Duration

	group singleflight.Group

	mu    sync.RWMutex
	sub   *Subscription
	usage *UsageRecord
}

// StoreOption configures a Store
type StoreOption func(*Store)

// WithStoreLogger sets the logger
func WithStoreLogger(logger *observability.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithStoreMetrics sets the metrics recorder
func WithStoreMetrics(metrics *observability.Metrics) StoreOption {
	return func(s *Store) {
		s.metrics = metrics
	}
}

// WithRefreshRetryPolicy sets the bounded retry policy used when a refresh
// follows a successful mutation
func WithRefreshRetryPolicy(maxRetries int, backoff time.Duration) StoreOption {
	return func(s *Store) {
		s.maxRetries = maxRetries
		s.backoff = backoff
	}
}

// NewStore creates an empty subscription store
func NewStore(client *apiclient.Client, opts ...StoreOption) *Store {
	s := &Store{
		client:     client,
		logger:     observability.NopLogger(),
		maxRetries: 2,
		backoff:    250 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns a snapshot of the current subscription, or nil when the
// principal has none. The snapshot is a copy; mutating it does not affect
// the store.
func (s *Store) Get() *Subscription {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copySubscription(s.sub)
}

// LatestUsage returns the most recently observed usage record, or nil
func (s *Store) LatestUsage() *UsageRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.usage == nil {
		return nil
	}
	rec := *s.usage
	return &rec
}

// Refresh fetches the authoritative subscription from the backend and
// replaces the cached value. A 404 is not an error: it is the valid
// representation of "no subscription" and clears the cached value.
// Concurrent refreshes are coalesced into a single backend call.
func (s *Store) Refresh(ctx context.Context) error {
	_, err, _ := s.group.Do("subscription", func() (interface{}, error) {
		return nil, s.fetch(ctx)
	})
	return err
}

func (s *Store) fetch(ctx context.Context) error {
	var sub Subscription
	err := s.client.Get(ctx, "/subscription", &sub)
	if err != nil {
		var apiErr *apiclient.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			s.set(nil)
			return nil
		}
		return wrapBackendError(ErrSubscriptionFetchFailed, err)
	}

	s.set(&sub)
	return nil
}

// RefreshAfterMutation refreshes with bounded retries. The backend write
// has already landed when this runs, so a transient fetch failure should
// not leave callers staring at a stale store. If every attempt fails the
// error is surfaced and the store keeps its previous value.
func (s *Store) RefreshAfterMutation(ctx context.Context) error {
	var err error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			s.metrics.RecordRefreshRetry()
			select {
			case <-ctx.Done():
				return wrapBackendError(ErrSubscriptionFetchFailed, ctx.Err())
			case <-time.After(s.backoff * time.Duration(1<<(attempt-1))):
			}
		}

		if err = s.Refresh(ctx); err == nil {
			return nil
		}
		s.logger.WithField("attempt", attempt+1).WithError(err).Warn("post-mutation refresh failed")
	}
	return err
}

// SetUsage replaces the cached usage record
func (s *Store) SetUsage(rec *UsageRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usage = rec
}

// Reset clears all cached state. Call when the session ends so a later
// session never observes another principal's data.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sub = nil
	s.usage = nil
}

func (s *Store) set(sub *Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sub = sub
}

func copySubscription(sub *Subscription) *Subscription {
	if sub == nil {
		return nil
	}
	out := *sub
	if sub.TrialEnd != nil {
		trialEnd := *sub.TrialEnd
		out.TrialEnd = &trialEnd
	}
	if sub.NextInvoice != nil {
		invoice := *sub.NextInvoice
		invoice.LineItems = append([]InvoiceLineItem(nil), sub.NextInvoice.LineItems...)
		out.NextInvoice = &invoice
	}
	return &out
}
