package main

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"swarm1.dev/core/engine"
	"swarm1.dev/core/router"
)

// newRouterCache constructs a router.Cache backed by Redis when cfg names
// an address via ROUTER_CACHE_REDIS_ADDR; otherwise it
// returns a Cache wrapping a nil client, which router.Cache documents as an
// unconditional no-op, so callers never need to branch on whether caching
// is configured.
func newRouterCache(cfg engine.Config) *router.Cache {
	var rdb *redis.Client
	if cfg.RouterCacheRedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RouterCacheRedisAddr})
	}
	return router.NewCache(rdb, time.Duration(cfg.RouterCacheTTLSeconds)*time.Second)
}

// planCached wraps router.Plan with cache's Get/Set: a hit returns the
// previously computed Decision unchanged; a miss plans fresh and populates
// the cache for next time.
func planCached(ctx context.Context, cache *router.Cache, req router.Request, reg router.Registry, pol router.Policy) router.Decision {
	if dec, ok := cache.Get(ctx, req); ok {
		return dec
	}
	dec := router.Plan(req, reg, pol)
	cache.Set(ctx, req, dec)
	return dec
}
