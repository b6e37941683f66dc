package billing

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/glintly/billing-go/pkg/apiclient"
)

func newTestClient(baseURL string) *apiclient.Client {
	return apiclient.New(baseURL, apiclient.StaticToken("test-token"))
}

// fakeBackend is a stateful in-memory billing backend for tests. It keeps a
// single subscription per server, mirroring the one-subscription-per-
// principal invariant.
type fakeBackend struct {
	mu       sync.Mutex
	sub      *Subscription
	pending  *Subscription
	usage    map[string]*UsageRecord
	tiers    []Tier
	requests map[string]int

	trialUsed          bool
	confirmationSecret string
	failTrackUsage     bool
	failSubscription   int // non-zero status forces GET /subscription to fail
	gate               chan struct{}

	server *httptest.Server
}

func newFakeBackend() *fakeBackend {
	b := &fakeBackend{
		usage: map[string]*UsageRecord{
			CurrentMonthKey(): {Month: CurrentMonthKey(), OverageCents: 0, Currency: "usd"},
		},
		tiers: []Tier{
			{ID: "professional", Name: "Professional", PriceCents: 14900, Currency: "usd", Interval: "month",
				Features: []string{"widget", "api", "analytics"},
				Limits:   QuotaLimits{Impressions: Unlimited, QualifiedClicks: 5000, APICalls: 100000}},
			{ID: "starter", Name: "Starter", PriceCents: 4900, Currency: "usd", Interval: "month",
				Features: []string{"widget"},
				Limits:   QuotaLimits{Impressions: 50000, QualifiedClicks: 500, APICalls: 10000}},
		},
		requests: make(map[string]int),
	}

	router := mux.NewRouter()
	router.HandleFunc("/tiers", b.handleTiers).Methods("GET")
	router.HandleFunc("/subscription", b.handleGetSubscription).Methods("GET")
	router.HandleFunc("/usage", b.handleUsage).Methods("GET")
	router.HandleFunc("/usage/{month}", b.handleUsage).Methods("GET")
	router.HandleFunc("/start-trial", b.handleStartTrial).Methods("POST")
	router.HandleFunc("/create-subscription", b.handleCreateSubscription).Methods("POST")
	router.HandleFunc("/update-subscription", b.handleUpdateSubscription).Methods("PUT")
	router.HandleFunc("/cancel-subscription", b.handleCancelSubscription).Methods("DELETE")
	router.HandleFunc("/track-usage", b.handleTrackUsage).Methods("POST")

	b.server = httptest.NewServer(router)
	return b
}

func (b *fakeBackend) Close() {
	b.server.Close()
}

func (b *fakeBackend) URL() string {
	return b.server.URL
}

func (b *fakeBackend) count(key string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.requests[key]
}

func (b *fakeBackend) record(r *http.Request) {
	b.mu.Lock()
	b.requests[r.Method+" "+r.URL.Path]++
	b.mu.Unlock()
}

// setSubscription seeds backend state
func (b *fakeBackend) setSubscription(sub *Subscription) {
	b.mu.Lock()
	b.sub = sub
	b.mu.Unlock()
}

// completePending finalizes a creation that required confirmation, the way
// the processor webhook would on the real backend
func (b *fakeBackend) completePending() {
	b.mu.Lock()
	b.sub = b.pending
	b.pending = nil
	b.mu.Unlock()
}

func (b *fakeBackend) waitGate() {
	b.mu.Lock()
	gate := b.gate
	b.mu.Unlock()
	if gate != nil {
		<-gate
	}
}

func writeFakeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeFakeError(w http.ResponseWriter, status int, message string) {
	writeFakeJSON(w, status, map[string]string{"error": message})
}

func (b *fakeBackend) handleTiers(w http.ResponseWriter, r *http.Request) {
	b.record(r)
	writeFakeJSON(w, http.StatusOK, b.tiers)
}

func (b *fakeBackend) handleGetSubscription(w http.ResponseWriter, r *http.Request) {
	b.record(r)
	b.mu.Lock()
	sub := b.sub
	failStatus := b.failSubscription
	b.mu.Unlock()

	if failStatus != 0 {
		writeFakeError(w, failStatus, "backend unavailable")
		return
	}
	if sub == nil {
		writeFakeError(w, http.StatusNotFound, "no subscription")
		return
	}
	writeFakeJSON(w, http.StatusOK, sub)
}

func (b *fakeBackend) handleUsage(w http.ResponseWriter, r *http.Request) {
	b.record(r)
	month := mux.Vars(r)["month"]
	if month == "" {
		month = CurrentMonthKey()
	}

	b.mu.Lock()
	rec, ok := b.usage[month]
	b.mu.Unlock()
	if !ok {
		rec = &UsageRecord{Month: month, OverageCents: 0, Currency: "usd"}
	}
	writeFakeJSON(w, http.StatusOK, rec)
}

func (b *fakeBackend) handleStartTrial(w http.ResponseWriter, r *http.Request) {
	b.record(r)
	b.waitGate()

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.trialUsed {
		writeFakeError(w, http.StatusBadRequest, "trial already used")
		return
	}
	b.trialUsed = true
	trialEnd := time.Now().UTC().AddDate(0, 0, 14)
	b.sub = &Subscription{
		TierID:             "starter",
		Status:             StatusTrialing,
		CurrentPeriodStart: time.Now().UTC(),
		CurrentPeriodEnd:   trialEnd,
		TrialEnd:           &trialEnd,
	}
	writeFakeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (b *fakeBackend) handleCreateSubscription(w http.ResponseWriter, r *http.Request) {
	b.record(r)
	b.waitGate()

	var req createSubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFakeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	valid := false
	for _, tier := range b.tiers {
		if tier.ID == req.Tier {
			valid = true
		}
	}
	if !valid {
		writeFakeError(w, http.StatusBadRequest, "unknown tier")
		return
	}

	now := time.Now().UTC()
	sub := &Subscription{
		TierID:             req.Tier,
		Status:             StatusActive,
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   now.AddDate(0, 1, 0),
	}

	if b.confirmationSecret != "" {
		b.pending = sub
		writeFakeJSON(w, http.StatusOK, createSubscriptionResponse{
			RequiresConfirmation: true,
			ConfirmationSecret:   b.confirmationSecret,
		})
		return
	}

	b.sub = sub
	writeFakeJSON(w, http.StatusOK, createSubscriptionResponse{Subscription: sub})
}

func (b *fakeBackend) handleUpdateSubscription(w http.ResponseWriter, r *http.Request) {
	b.record(r)
	b.waitGate()

	var req updateSubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFakeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sub == nil {
		writeFakeError(w, http.StatusNotFound, "no subscription")
		return
	}
	b.sub.TierID = req.Tier
	writeFakeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (b *fakeBackend) handleCancelSubscription(w http.ResponseWriter, r *http.Request) {
	b.record(r)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sub == nil {
		writeFakeError(w, http.StatusNotFound, "no subscription")
		return
	}
	if r.URL.Query().Get("immediately") == "true" {
		b.sub = nil
	} else {
		b.sub.CancelAtPeriodEnd = true
	}
	writeFakeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (b *fakeBackend) handleTrackUsage(w http.ResponseWriter, r *http.Request) {
	b.record(r)

	b.mu.Lock()
	fail := b.failTrackUsage
	b.mu.Unlock()
	if fail {
		writeFakeError(w, http.StatusInternalServerError, "metering pipeline down")
		return
	}

	var report UsageReport
	if err := json.NewDecoder(r.Body).Decode(&report); err != nil {
		writeFakeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	b.mu.Lock()
	rec, ok := b.usage[CurrentMonthKey()]
	if !ok {
		rec = &UsageRecord{Month: CurrentMonthKey(), Currency: "usd"}
		b.usage[CurrentMonthKey()] = rec
	}
	rec.OverageCents += report.Impressions / 100
	b.mu.Unlock()

	writeFakeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
