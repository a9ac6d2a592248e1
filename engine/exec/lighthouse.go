package exec

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"swarm1.dev/core/graph"
	"swarm1.dev/core/swarmerr"
)

// LighthouseExecutor implements the "lighthouse" node type:
// runs the perf script against params.url, writing its report to
// params.out.
type LighthouseExecutor struct{}

func (LighthouseExecutor) DefaultTimeoutMs() int { return 90000 }

func (LighthouseExecutor) Execute(ctx context.Context, in Input, deps *Deps) error {
	p, ok := in.Params.(graph.LighthouseParams)
	if !ok {
		return swarmerr.Newf(swarmerr.InvalidParams, "node %q: expected LighthouseParams", in.Node.ID)
	}
	if err := os.MkdirAll(filepath.Dir(p.Out), 0o755); err != nil {
		return swarmerr.Wrap(swarmerr.CommandError, "creating lighthouse output directory", err)
	}
	if err := previewRoute(ctx, deps, in, graph.TypeLighthouse); err != nil {
		deps.Logger.Warn(ctx, "engine/exec: router preview failed", "node_id", in.Node.ID, "err", err.Error())
	}

	script := deps.LighthouseScript
	if script == "" {
		script = "scripts/perf_lighthouse.mjs"
	}
	url := strings.ReplaceAll(p.URL, "${STAGING_URL}", in.Env["STAGING_URL"])
	return runSubprocess(ctx, in.Env, "node", script, url, p.Out)
}
