package billing

import (
	"errors"
	"fmt"

	"github.com/glintly/billing-go/pkg/apiclient"
)

// Error kinds surfaced by the billing client. Backend-supplied detail is
// wrapped around these sentinels, so callers match with errors.Is and still
// get a human-readable message to display.
var (
	// ErrUnauthenticated indicates no credential was available. It is a
	// precondition failure checked before any network call.
	ErrUnauthenticated = errors.New("not authenticated")

	// ErrCatalogUnavailable indicates the tier catalog could not be fetched
	ErrCatalogUnavailable = errors.New("tier catalog unavailable")

	// ErrSubscriptionFetchFailed indicates the subscription could not be
	// fetched. A 404 is not this error; it means "no subscription".
	ErrSubscriptionFetchFailed = errors.New("subscription fetch failed")

	// ErrUsageUnavailable indicates a usage record could not be fetched
	ErrUsageUnavailable = errors.New("usage unavailable")

	// ErrTrialUnavailable indicates the backend rejected a trial start
	ErrTrialUnavailable = errors.New("trial unavailable")

	// ErrSubscriptionCreationFailed indicates the backend rejected the
	// subscription creation attempt
	ErrSubscriptionCreationFailed = errors.New("subscription creation failed")

	// ErrSubscriptionUpdateFailed indicates the backend rejected a tier change
	ErrSubscriptionUpdateFailed = errors.New("subscription update failed")

	// ErrCancellationFailed indicates the backend rejected a cancellation
	ErrCancellationFailed = errors.New("subscription cancellation failed")

	// ErrConfirmationFailed indicates the payment processor declined the
	// confirmation. The secret is spent; the caller must start a new
	// creation attempt.
	ErrConfirmationFailed = errors.New("payment confirmation failed")

	// ErrProcessorUnavailable indicates the payment processor capability
	// was never initialized
	ErrProcessorUnavailable = errors.New("payment processor unavailable")

	// ErrOperationInProgress indicates another mutating operation of the
	// same class is still in flight. Calls are rejected, never queued.
	ErrOperationInProgress = errors.New("operation already in progress")
)

// wrapBackendError classifies a backend call failure under the given
// sentinel, preserving the backend's message for display. A missing
// credential always maps to ErrUnauthenticated.
func wrapBackendError(sentinel, err error) error {
	if errors.Is(err, apiclient.ErrNoCredential) {
		return ErrUnauthenticated
	}

	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: %s", sentinel, apiErr.Message)
	}

	return fmt.Errorf("%w: %v", sentinel, err)
}
