package exec

import (
	"swarm1.dev/core/observability"
	"swarm1.dev/core/router"
	"swarm1.dev/core/telemetry"
)

// RouterFunc plans tool selection for the router preview hook. It is
// normally router.Plan bound to a concrete Registry/Policy by the caller; a
// nil RouterFunc disables the preview regardless of Deps.RouterDry.
type RouterFunc func(req router.Request) router.Decision

// Deps bundles the collaborators executors need beyond the node itself, so
// Execute's signature stays small and mockable in tests.
type Deps struct {
	BaseDir   string // runs/ root
	Logger    telemetry.Logger
	Emitter   *observability.Emitter
	Ledger    *observability.Ledger
	Router    RouterFunc
	RouterDry bool
	SessionID string

	// Server is shared across the lifetime of a run so the server
	// executor's teardown only stops a process this run actually started.
	Server *ServerHandle

	// PlaywrightBin/LighthouseScript/CVFScript override the subprocess
	// contract's default command names, primarily so tests can point at
	// fakes.
	PlaywrightBin    string
	LighthouseScript string
	CVFScript        string

	// PackageBuilder/ReportBuilder invoke the out-of-scope builder
	// libraries that turn an AUV's artifacts into a manifest. Tests
	// supply stubs. cmd/swarmctl's buildScheduler sets neither, so there
	// package and report nodes fail with PACKAGE_FAILED/REPORT_FAILED.
	PackageBuilder func(auv, outDir, manifest string) (map[string]any, error)
	ReportBuilder  func(auv, outDir string) (map[string]any, error)
}
