package main

import (
	"context"
	"fmt"
	"path/filepath"

	"golang.org/x/time/rate"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"swarm1.dev/core/engine"
	"swarm1.dev/core/engine/exec"
	"swarm1.dev/core/engine/locks"
	"swarm1.dev/core/engine/state"
	"swarm1.dev/core/graph"
	"swarm1.dev/core/observability"
	"swarm1.dev/core/router"
	"swarm1.dev/core/telemetry"
)

// buildScheduler assembles a production Scheduler rooted at baseDir/runs:
// a durable Store (FileStore or MongoStore, per cfg.StateBackend), a lock
// manager with advisory hint files, a rate-limited event emitter, a spend
// ledger, and a Router func wired for the ROUTER_DRY preview hook.
func buildScheduler(spec *graph.Spec) (*engine.Scheduler, *observability.Ledger, error) {
	runsDir := filepath.Join(baseDir, "runs")
	cfg := engine.ConfigFromEnv()
	tel := newTelemetry()

	store, err := buildStateStore(cfg, runsDir)
	if err != nil {
		return nil, nil, err
	}

	lockMgr := locks.NewManager(filepath.Join(runsDir, "locks"))
	emitter := observability.NewEmitter(runsDir, tel.Logger, rate.NewLimiter(rate.Limit(50), 100))
	ledger := observability.NewLedger(filepath.Join(runsDir, "observability", "ledgers"))

	deps := &exec.Deps{
		BaseDir:   runsDir,
		Logger:    tel.Logger,
		Emitter:   emitter,
		Ledger:    ledger,
		Router:    buildRouterFunc(cfg, tel.Logger),
		RouterDry: cfg.RouterDry,
		SessionID: cfg.SessionID,
		Server:    &exec.ServerHandle{},
	}

	sched := engine.New(spec, store, lockMgr, emitter, deps, tel, cfg)
	return sched, ledger, nil
}

// buildStateStore selects the engine/state.Store backend named by
// cfg.StateBackend: "mongo" connects to cfg.StateMongoURI and persists runs
// in StateMongoDatabase/StateMongoCollection (MongoStore); anything else,
// including the default "file", uses the FileStore under runsDir/graph.
func buildStateStore(cfg engine.Config, runsDir string) (state.Store, error) {
	if cfg.StateBackend != "mongo" {
		return state.NewFileStore(filepath.Join(runsDir, "graph")), nil
	}
	client, err := mongo.Connect(options.Client().ApplyURI(cfg.StateMongoURI))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo state backend: %w", err)
	}
	collection := client.Database(cfg.StateMongoDatabase).Collection(cfg.StateMongoCollection)
	return state.NewMongoStore(context.Background(), collection), nil
}

// buildRouterFunc wires the ROUTER_DRY preview hook to a real
// router.Plan call over the registry/policy files cfg names, through the
// shared Redis decision cache. When ROUTER_DRY is unset the
// preview never fires, so no registry/policy is loaded; when it is set but
// the files fail to load, the preview is disabled and a warning is logged
// rather than failing the run — the hook is diagnostic, not load-bearing.
func buildRouterFunc(cfg engine.Config, logger telemetry.Logger) exec.RouterFunc {
	if !cfg.RouterDry {
		return nil
	}
	reg, err := loadRegistry(cfg.RouterRegistryPath)
	if err != nil {
		logger.Warn(context.Background(), "engine: router preview disabled, registry load failed", "path", cfg.RouterRegistryPath, "err", err.Error())
		return nil
	}
	pol, err := loadPolicy(cfg.RouterPolicyPath)
	if err != nil {
		logger.Warn(context.Background(), "engine: router preview disabled, policy load failed", "path", cfg.RouterPolicyPath, "err", err.Error())
		return nil
	}

	cache := newRouterCache(cfg)
	return func(req router.Request) router.Decision {
		return planCached(context.Background(), cache, req, reg, pol)
	}
}
