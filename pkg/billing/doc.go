// Package billing implements the subscription billing lifecycle for
// Glintly partner accounts: tier catalog, usage metering, subscription
// state, payment confirmation and the lifecycle controller that ties them
// together against the billing backend.
//
// # Components
//
// Catalog lists the subscription tiers (price, interval, features, quota
// limits), cached for the session and ordered by price.
//
// Store holds the single subscription record for the authenticated
// principal. Reads are lock-free snapshots; only the lifecycle controller
// refreshes it. A 404 from the backend is not an error, it means the
// principal has no subscription.
//
// Meter reports consumption events (impressions, qualified clicks, API
// calls) best-effort and retrieves monthly usage/overage records. Report
// failures are logged and swallowed: metering must never break a
// user-facing flow.
//
// Coordinator resolves payment confirmations when the processor requires
// strong customer authentication before finalizing a charge. Confirmation
// secrets are single-use.
//
// Controller drives StartTrial, CreateSubscription, UpdateSubscription and
// CancelSubscription. Mutations of the same class are serialized by an
// atomic guard; overlapping calls fail with ErrOperationInProgress rather
// than queue. Every successful mutation refreshes the store before
// returning.
//
// # Usage
//
//	session, err := billing.NewSession(cfg, tokens, stripeConfirmer, registry)
//	if err != nil {
//		return err
//	}
//	defer session.Close()
//
//	if err := session.Controller.CreateSubscription(ctx, "professional", paymentMethodID); err != nil {
//		switch {
//		case errors.Is(err, billing.ErrConfirmationFailed):
//			// start a fresh attempt; the secret is spent
//		case errors.Is(err, billing.ErrOperationInProgress):
//			// a previous submission is still settling
//		}
//	}
//	sub := session.Store.Get() // reflects the creation
package billing
