package billing

import (
	"context"
	"sync"

	"github.com/glintly/billing-go/pkg/apiclient"
	"github.com/glintly/billing-go/pkg/observability"
)

// Catalog fetches and caches the subscription tiers offered by the
// platform. Tiers are assumed stable for the lifetime of a session, so the
// first successful fetch is cached in memory.
type Catalog struct {
	client *apiclient.Client
	logger *observability.Logger

	mu    sync.RWMutex
	tiers []Tier
}

// NewCatalog creates a tier catalog backed by the billing backend
func NewCatalog(client *apiclient.Client, logger *observability.Logger) *Catalog {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Catalog{
		client: client,
		logger: logger,
	}
}

// ListTiers returns all subscription tiers ordered by price, cheapest
// first. The result is cached for the session.
func (c *Catalog) ListTiers(ctx context.Context) ([]Tier, error) {
	c.mu.RLock()
	if c.tiers != nil {
		tiers := copyTiers(c.tiers)
		c.mu.RUnlock()
		return tiers, nil
	}
	c.mu.RUnlock()

	var tiers []Tier
	if err := c.client.Get(ctx, "/tiers", &tiers); err != nil {
		return nil, wrapBackendError(ErrCatalogUnavailable, err)
	}

	sortTiersByPrice(tiers)

	c.mu.Lock()
	c.tiers = tiers
	c.mu.Unlock()

	c.logger.WithField("tiers", len(tiers)).Debug("tier catalog loaded")
	return copyTiers(tiers), nil
}

// Tier returns a single tier by identifier, or nil if unknown
func (c *Catalog) Tier(ctx context.Context, id string) (*Tier, error) {
	tiers, err := c.ListTiers(ctx)
	if err != nil {
		return nil, err
	}
	for i := range tiers {
		if tiers[i].ID == id {
			return &tiers[i], nil
		}
	}
	return nil, nil
}

// Invalidate drops the cached tiers so the next ListTiers refetches
func (c *Catalog) Invalidate() {
	c.mu.Lock()
	c.tiers = nil
	c.mu.Unlock()
}

func copyTiers(tiers []Tier) []Tier {
	out := make([]Tier, len(tiers))
	copy(out, tiers)
	return out
}
