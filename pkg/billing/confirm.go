package billing

import (
	"context"
	"fmt"

	"github.com/glintly/billing-go/pkg/observability"
)

// CardConfirmer is the injected payment-processor capability. The processor
// SDK owns any interactive challenge and any timeout; a nil error means the
// charge was confirmed.
type CardConfirmer interface {
	ConfirmCardPayment(ctx context.Context, secret string) error
}

// Coordinator drives the two-phase confirmation flow required when the
// processor demands additional customer authentication before finalizing a
// charge. A confirmation secret is single-use: after a failure the caller
// must start a new subscription attempt, never retry the spent secret.
type Coordinator struct {
	confirmer CardConfirmer
	logger    *observability.Logger
	metrics   *observability.Metrics
}

// NewCoordinator creates a confirmation coordinator. A nil confirmer is
// allowed and makes every confirmation fail fast with
// ErrProcessorUnavailable instead of hanging.
func NewCoordinator(confirmer CardConfirmer, logger *observability.Logger, metrics *observability.Metrics) *Coordinator {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Coordinator{
		confirmer: confirmer,
		logger:    logger,
		metrics:   metrics,
	}
}

// Confirm resolves a pending charge with the processor. It suspends until
// the processor settles; cancellation mid-confirmation is not supported.
func (c *Coordinator) Confirm(ctx context.Context, secret string) error {
	if c.confirmer == nil {
		c.metrics.RecordConfirmation("unavailable")
		return ErrProcessorUnavailable
	}

	if err := c.confirmer.ConfirmCardPayment(ctx, secret); err != nil {
		c.metrics.RecordConfirmation("failed")
		c.logger.WithError(err).Info("payment confirmation declined")
		return fmt.Errorf("%w: %v", ErrConfirmationFailed, err)
	}

	c.metrics.RecordConfirmation("confirmed")
	return nil
}
