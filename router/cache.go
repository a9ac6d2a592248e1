package router

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache memoizes Plan decisions keyed by (agent_id, capabilities, budget,
// secondary_consent): a cache hit returns the previously computed decision
// unchanged. Request.Env is not part of the key (see cacheKey), so within
// the TTL a hit is returned even if credential availability has changed
// since it was planned. Disabled (nil *redis.Client), planning is still a
// pure function with no I/O.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewCache constructs a Cache backed by rdb. A nil rdb makes every method a
// no-op, so callers can construct a Cache unconditionally and only gate on
// whether ROUTER_CACHE_REDIS_ADDR was configured.
func NewCache(rdb *redis.Client, ttl time.Duration) *Cache {
	return &Cache{rdb: rdb, ttl: ttl}
}

// Get returns a previously cached Decision for req, if present.
func (c *Cache) Get(ctx context.Context, req Request) (Decision, bool) {
	if c == nil || c.rdb == nil {
		return Decision{}, false
	}
	key := cacheKey(req)
	val, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		return Decision{}, false
	}
	var dec Decision
	if err := json.Unmarshal([]byte(val), &dec); err != nil {
		return Decision{}, false
	}
	return dec, true
}

// Set stores dec under req's derived key, keyed identically to Get.
func (c *Cache) Set(ctx context.Context, req Request, dec Decision) {
	if c == nil || c.rdb == nil {
		return
	}
	data, err := json.Marshal(dec)
	if err != nil {
		return
	}
	c.rdb.Set(ctx, cacheKey(req), data, c.ttl)
}

// cacheKey derives a stable key from the planning inputs that determine
// Plan's output: agent id, the deduped+sorted capability set, budget, and
// consent. Request.Env is deliberately excluded — a per-node merged
// environment would defeat every hit — so the cache assumes credential
// availability does not change within the configured TTL.
func cacheKey(req Request) string {
	caps := append([]string{}, dedupeCapabilities(req.RequestedCapabilities)...)
	sort.Strings(caps)
	budget := "none"
	if req.BudgetUSD != nil {
		budget = fmt.Sprintf("%.6f", *req.BudgetUSD)
	}
	raw := fmt.Sprintf("%s|%v|%s|%v", req.AgentID, caps, budget, req.SecondaryConsent)
	sum := sha256.Sum256([]byte(raw))
	return "router:plan:" + hex.EncodeToString(sum[:])
}
