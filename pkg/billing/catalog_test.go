package billing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glintly/billing-go/pkg/apiclient"
)

func TestCatalogListTiers(t *testing.T) {
	backend := newFakeBackend()
	defer backend.Close()

	catalog := NewCatalog(newTestClient(backend.URL()), nil)

	tiers, err := catalog.ListTiers(context.Background())
	require.NoError(t, err)
	require.Len(t, tiers, 2)

	t.Run("ordered cheapest first", func(t *testing.T) {
		assert.Equal(t, "starter", tiers[0].ID)
		assert.Equal(t, "professional", tiers[1].ID)
		assert.Less(t, tiers[0].PriceCents, tiers[1].PriceCents)
	})

	t.Run("second fetch served from cache", func(t *testing.T) {
		_, err := catalog.ListTiers(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, backend.count("GET /tiers"))
	})

	t.Run("result is a copy", func(t *testing.T) {
		tiers[0].Name = "mutated"
		again, err := catalog.ListTiers(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "Starter", again[0].Name)
	})

	t.Run("invalidate refetches", func(t *testing.T) {
		catalog.Invalidate()
		_, err := catalog.ListTiers(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 2, backend.count("GET /tiers"))
	})
}

func TestCatalogTierLookup(t *testing.T) {
	backend := newFakeBackend()
	defer backend.Close()

	catalog := NewCatalog(newTestClient(backend.URL()), nil)

	tier, err := catalog.Tier(context.Background(), "professional")
	require.NoError(t, err)
	require.NotNil(t, tier)
	assert.Equal(t, "Professional", tier.Name)
	assert.Equal(t, Unlimited, tier.Limits.Impressions)
	assert.True(t, tier.Includes("analytics"))
	assert.False(t, tier.Includes("sso"))

	unknown, err := catalog.Tier(context.Background(), "enterprise")
	require.NoError(t, err)
	assert.Nil(t, unknown)
}

func TestCatalogUnauthenticated(t *testing.T) {
	backend := newFakeBackend()
	defer backend.Close()

	catalog := NewCatalog(apiclient.New(backend.URL(), apiclient.StaticToken("")), nil)

	_, err := catalog.ListTiers(context.Background())
	assert.True(t, errors.Is(err, ErrUnauthenticated))
	assert.Equal(t, 0, backend.count("GET /tiers"))
}
