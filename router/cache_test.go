package router

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// setupCacheTestRedis starts a miniredis instance for cache testing.
func setupCacheTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestCacheRoundTrip(t *testing.T) {
	cache := NewCache(setupCacheTestRedis(t), 0)
	ctx := context.Background()
	req := Request{AgentID: "x", RequestedCapabilities: []string{"perf_audit"}, BudgetUSD: budgetOf(0.25)}

	_, hit := cache.Get(ctx, req)
	require.False(t, hit, "expected a miss before Set")

	dec := Plan(req, basicRegistry(), basicPolicy())
	cache.Set(ctx, req, dec)

	cached, hit := cache.Get(ctx, req)
	require.True(t, hit)
	require.Equal(t, dec, cached)
}

func TestCacheKeyIgnoresCapabilityOrderAndDuplicates(t *testing.T) {
	a := Request{AgentID: "x", RequestedCapabilities: []string{"perf_audit", "sbom"}}
	b := Request{AgentID: "x", RequestedCapabilities: []string{"sbom", "perf_audit", "sbom"}}
	require.Equal(t, cacheKey(a), cacheKey(b))
}

func TestCacheKeyDistinguishesBudgetAndConsent(t *testing.T) {
	base := Request{AgentID: "x", RequestedCapabilities: []string{"sbom"}}
	withBudget := base
	withBudget.BudgetUSD = budgetOf(0.01)
	withConsent := base
	withConsent.SecondaryConsent = true

	require.NotEqual(t, cacheKey(base), cacheKey(withBudget))
	require.NotEqual(t, cacheKey(base), cacheKey(withConsent))
}

func TestNilClientCacheIsNoOp(t *testing.T) {
	cache := NewCache(nil, 0)
	ctx := context.Background()
	req := Request{AgentID: "x", RequestedCapabilities: []string{"perf_audit"}}

	_, hit := cache.Get(ctx, req)
	require.False(t, hit)

	cache.Set(ctx, req, Decision{OK: true})
	_, hit = cache.Get(ctx, req)
	require.False(t, hit, "a nil-client cache must never report a hit")
}
