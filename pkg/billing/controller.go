package billing

import (
	"context"
	"fmt"

	"github.com/glintly/billing-go/pkg/apiclient"
	"github.com/glintly/billing-go/pkg/observability"
)

// Controller orchestrates the subscription lifecycle: trial start,
// creation, tier changes and cancellation. It is the only component that
// refreshes the store, and every successful mutation refreshes before
// returning, so a caller observing completion never reads state older than
// the mutation it issued.
//
// Two guards serialize mutations: "creating" covers StartTrial and
// CreateSubscription, "updating" covers UpdateSubscription and
// CancelSubscription. An overlapping call of the same class fails
// immediately with ErrOperationInProgress.
type Controller struct {
	client  *apiclient.Client
	store   *Store
	confirm *Coordinator
	logger  *observability.Logger
	metrics *observability.Metrics

	creating opGuard
	updating opGuard
}

// ControllerOption configures a Controller
type ControllerOption func(*Controller)

// WithControllerLogger sets the logger
func WithControllerLogger(logger *observability.Logger) ControllerOption {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithControllerMetrics sets the metrics recorder
func WithControllerMetrics(metrics *observability.Metrics) ControllerOption {
	return func(c *Controller) {
		c.metrics = metrics
	}
}

// NewController creates a subscription lifecycle controller
func NewController(client *apiclient.Client, store *Store, coordinator *Coordinator, opts ...ControllerOption) *Controller {
	c := &Controller{
		client:  client,
		store:   store,
		confirm: coordinator,
		logger:  observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StartTrial begins a free trial for a principal with no subscription.
func (c *Controller) StartTrial(ctx context.Context) error {
	if !c.creating.tryAcquire() {
		c.metrics.RecordOperation("start_trial", "blocked")
		return ErrOperationInProgress
	}
	defer c.creating.release()

	if c.store.Get() != nil {
		c.metrics.RecordOperation("start_trial", "failure")
		return fmt.Errorf("%w: a subscription already exists", ErrTrialUnavailable)
	}

	if err := c.client.Post(ctx, "/start-trial", nil, nil); err != nil {
		c.metrics.RecordOperation("start_trial", "failure")
		return wrapBackendError(ErrTrialUnavailable, err)
	}

	c.logger.Info("trial started")
	return c.settle(ctx, "start_trial")
}

// CreateSubscription subscribes the principal to a tier. When the backend
// answers that the charge needs confirmation, the coordinator resolves it
// with the processor before the subscription is considered created. A
// failed confirmation means no subscription was created; the caller must
// start over with a fresh CreateSubscription, not reuse the spent secret.
func (c *Controller) CreateSubscription(ctx context.Context, tierID, paymentMethodID string) error {
	if !c.creating.tryAcquire() {
		c.metrics.RecordOperation("create_subscription", "blocked")
		return ErrOperationInProgress
	}
	defer c.creating.release()

	if sub := c.store.Get(); sub != nil && sub.Status != StatusTrialing {
		c.metrics.RecordOperation("create_subscription", "failure")
		return fmt.Errorf("%w: a subscription already exists", ErrSubscriptionCreationFailed)
	}

	req := createSubscriptionRequest{
		Tier:            tierID,
		PaymentMethodID: paymentMethodID,
	}
	var resp createSubscriptionResponse
	if err := c.client.Post(ctx, "/create-subscription", req, &resp); err != nil {
		c.metrics.RecordOperation("create_subscription", "failure")
		return wrapBackendError(ErrSubscriptionCreationFailed, err)
	}

	if resp.RequiresConfirmation {
		if err := c.confirm.Confirm(ctx, resp.ConfirmationSecret); err != nil {
			// The charge never finalized, so the store stays untouched.
			c.metrics.RecordOperation("create_subscription", "failure")
			return err
		}
	}

	c.logger.WithField("tier", tierID).Info("subscription created")
	return c.settle(ctx, "create_subscription")
}

// UpdateSubscription switches an active subscription to a new tier. The
// server computes proration; the client only displays what it returns.
func (c *Controller) UpdateSubscription(ctx context.Context, newTierID string) error {
	if !c.updating.tryAcquire() {
		c.metrics.RecordOperation("update_subscription", "blocked")
		return ErrOperationInProgress
	}
	defer c.updating.release()

	sub := c.store.Get()
	if sub == nil || sub.Status != StatusActive {
		c.metrics.RecordOperation("update_subscription", "failure")
		return fmt.Errorf("%w: subscription is not active", ErrSubscriptionUpdateFailed)
	}

	req := updateSubscriptionRequest{Tier: newTierID}
	if err := c.client.Put(ctx, "/update-subscription", req, nil); err != nil {
		c.metrics.RecordOperation("update_subscription", "failure")
		return wrapBackendError(ErrSubscriptionUpdateFailed, err)
	}

	c.logger.WithField("tier", newTierID).Info("subscription updated")
	return c.settle(ctx, "update_subscription")
}

// CancelSubscription cancels the subscription. With immediately=false the
// subscription stays usable until the period end; with immediately=true
// access terminates now and the principal is left with no subscription.
func (c *Controller) CancelSubscription(ctx context.Context, immediately bool) error {
	if !c.updating.tryAcquire() {
		c.metrics.RecordOperation("cancel_subscription", "blocked")
		return ErrOperationInProgress
	}
	defer c.updating.release()

	if c.store.Get() == nil {
		c.metrics.RecordOperation("cancel_subscription", "failure")
		return fmt.Errorf("%w: no subscription to cancel", ErrCancellationFailed)
	}

	path := fmt.Sprintf("/cancel-subscription?immediately=%t", immediately)
	if err := c.client.Delete(ctx, path); err != nil {
		c.metrics.RecordOperation("cancel_subscription", "failure")
		return wrapBackendError(ErrCancellationFailed, err)
	}

	c.logger.WithField("immediately", immediately).Info("subscription canceled")
	return c.settle(ctx, "cancel_subscription")
}

// settle finishes a successful mutation by refreshing the store before the
// operation resolves. The backend write has landed; if the refresh still
// fails after bounded retries the error says so without undoing anything.
func (c *Controller) settle(ctx context.Context, operation string) error {
	if err := c.store.RefreshAfterMutation(ctx); err != nil {
		c.metrics.RecordOperation(operation, "stale")
		return fmt.Errorf("%s applied but local state could not be refreshed: %w", operation, err)
	}
	c.metrics.RecordOperation(operation, "success")
	return nil
}

// Busy reports whether a mutating operation of either class is in flight
func (c *Controller) Busy() bool {
	return c.creating.held() || c.updating.held()
}
