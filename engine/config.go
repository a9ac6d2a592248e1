// Package engine implements the scheduler core: ready-set
// computation, concurrency-gated dispatch, completion reaping, and
// teardown, driving the typed node executors in engine/exec under the
// resource lock manager, retry/backoff policy, and durable state store.
package engine

import (
	"os"
	"strconv"
	"strings"
)

// Config is the engine's environment-variable-driven configuration, read
// once at process startup into a typed struct.
type Config struct {
	StagingURL   string
	APIBase      string
	SessionID    string
	RouterDry    bool
	AuthRequired bool

	// RouterRegistryPath/RouterPolicyPath locate the tool registry and
	// capability policy documents the ROUTER_DRY preview hook plans
	// against, the same files the `route` CLI command accepts as flags.
	RouterRegistryPath string
	RouterPolicyPath   string

	// RouterCacheRedisAddr enables the router decision cache when non-empty; RouterCacheTTLSeconds bounds how long a cached
	// Decision is reused.
	RouterCacheRedisAddr  string
	RouterCacheTTLSeconds int

	// StateBackend selects the engine/state.Store implementation: "file"
	// (default, FileStore under <base-dir>/runs/graph) or "mongo"
	// (MongoStore, for multi-host deployments with no shared filesystem).
	StateBackend         string
	StateMongoURI        string
	StateMongoDatabase   string
	StateMongoCollection string
}

// ConfigFromEnv reads the engine's environment variables.
func ConfigFromEnv() Config {
	return Config{
		StagingURL:   envOr("STAGING_URL", "http://127.0.0.1:3000"),
		APIBase:      os.Getenv("API_BASE"),
		SessionID:    os.Getenv("SESSION_ID"),
		RouterDry:    strings.EqualFold(os.Getenv("ROUTER_DRY"), "true"),
		AuthRequired: strings.EqualFold(os.Getenv("AUTH_REQUIRED"), "true"),

		RouterRegistryPath:    envOr("ROUTER_REGISTRY_PATH", "registry.json"),
		RouterPolicyPath:      envOr("ROUTER_POLICY_PATH", "policy.json"),
		RouterCacheRedisAddr:  os.Getenv("ROUTER_CACHE_REDIS_ADDR"),
		RouterCacheTTLSeconds: envInt("ROUTER_CACHE_TTL_SECONDS", 300),

		StateBackend:         strings.ToLower(envOr("STATE_BACKEND", "file")),
		StateMongoURI:        os.Getenv("MONGO_URI"),
		StateMongoDatabase:   envOr("MONGO_DATABASE", "swarm1"),
		StateMongoCollection: envOr("MONGO_COLLECTION", "runs"),
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
