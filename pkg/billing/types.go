package billing

import (
	"sort"
	"time"
)

// Unlimited is the sentinel quota value for tiers without a numeric limit
const Unlimited int64 = -1

// Tier is a subscription plan offered by the platform. Tiers are immutable
// once fetched; ordering by price defines the upgrade/downgrade direction.
type Tier struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	PriceCents int64       `json:"price_cents"`
	Currency   string      `json:"currency"`
	Interval   string      `json:"interval"`
	Features   []string    `json:"features"`
	Limits     QuotaLimits `json:"limits"`
}

// QuotaLimits holds the monthly quota included in a tier. A value of
// Unlimited means no cap.
type QuotaLimits struct {
	Impressions     int64 `json:"impressions"`
	QualifiedClicks int64 `json:"qualified_clicks"`
	APICalls        int64 `json:"api_calls"`
}

// Includes reports whether the tier carries a named feature
func (t *Tier) Includes(feature string) bool {
	for _, f := range t.Features {
		if f == feature {
			return true
		}
	}
	return false
}

// sortTiersByPrice orders tiers ascending by price, cheapest first
func sortTiersByPrice(tiers []Tier) {
	sort.SliceStable(tiers, func(i, j int) bool {
		return tiers[i].PriceCents < tiers[j].PriceCents
	})
}

// SubscriptionStatus represents the lifecycle status of a subscription
type SubscriptionStatus string

const (
	StatusTrialing      SubscriptionStatus = "trialing"
	StatusActive        SubscriptionStatus = "active"
	StatusPastDue       SubscriptionStatus = "past_due"
	StatusCancelPending SubscriptionStatus = "cancel_pending"
)

// UsageCounter pairs consumed and remaining units for one metric
type UsageCounter struct {
	Used      int64 `json:"used"`
	Remaining int64 `json:"remaining"`
}

// UsageSnapshot is the per-period consumption embedded in a subscription
type UsageSnapshot struct {
	Impressions     UsageCounter `json:"impressions"`
	QualifiedClicks UsageCounter `json:"qualified_clicks"`
	APICalls        UsageCounter `json:"api_calls"`
}

// InvoiceLineItem is one line of the upcoming invoice preview
type InvoiceLineItem struct {
	Description string `json:"description"`
	AmountCents int64  `json:"amount_cents"`
}

// InvoicePreview is the server-computed upcoming invoice. Display only;
// the client never predicts amounts itself.
type InvoicePreview struct {
	AmountCents int64             `json:"amount_cents"`
	Currency    string            `json:"currency"`
	DueDate     time.Time         `json:"due_date"`
	LineItems   []InvoiceLineItem `json:"line_items,omitempty"`
}

// Subscription is the authoritative subscription record for the
// authenticated principal. Absence of a subscription is a nil *Subscription.
type Subscription struct {
	TierID             string             `json:"tier_id"`
	Status             SubscriptionStatus `json:"status"`
	CurrentPeriodStart time.Time          `json:"current_period_start"`
	CurrentPeriodEnd   time.Time          `json:"current_period_end"`
	TrialEnd           *time.Time         `json:"trial_end,omitempty"`
	CancelAtPeriodEnd  bool               `json:"cancel_at_period_end"`
	Usage              UsageSnapshot      `json:"usage"`
	NextInvoice        *InvoicePreview    `json:"next_invoice,omitempty"`
}

// InTrial reports whether the subscription is in its trial period
func (s *Subscription) InTrial() bool {
	return s != nil && s.Status == StatusTrialing
}

// IsActive reports whether the subscription currently grants access
func (s *Subscription) IsActive() bool {
	return s != nil && (s.Status == StatusActive || s.Status == StatusTrialing || s.Status == StatusCancelPending)
}

// WillCancel reports whether the subscription ends at the current period end
func (s *Subscription) WillCancel() bool {
	return s != nil && (s.CancelAtPeriodEnd || s.Status == StatusCancelPending)
}

// UsageRecord is the accumulated overage charge for one calendar month.
// Records for past months are frozen.
type UsageRecord struct {
	Month        string `json:"month"`
	OverageCents int64  `json:"overage_cents"`
	Currency     string `json:"currency"`
}

// UsageReport is a batch of consumption events to meter
type UsageReport struct {
	Impressions     int64 `json:"impressions"`
	QualifiedClicks int64 `json:"qualified_clicks"`
	APICalls        int64 `json:"api_calls"`
}

// createSubscriptionRequest is the wire request for subscription creation
type createSubscriptionRequest struct {
	Tier            string `json:"tier"`
	PaymentMethodID string `json:"payment_method_id"`
}

// createSubscriptionResponse is the wire response for subscription creation.
// The backend answers with either the final subscription state or a
// confirmation secret when the charge needs strong customer authentication.
type createSubscriptionResponse struct {
	Subscription         *Subscription `json:"subscription,omitempty"`
	RequiresConfirmation bool          `json:"requires_confirmation"`
	ConfirmationSecret   string        `json:"confirmation_secret,omitempty"`
}

// updateSubscriptionRequest is the wire request for a tier change
type updateSubscriptionRequest struct {
	Tier string `json:"tier"`
}

// MonthKey formats a time as the usage record month key
func MonthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// CurrentMonthKey returns the month key for the current calendar month
func CurrentMonthKey() string {
	return MonthKey(time.Now())
}
