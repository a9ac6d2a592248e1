package exec

import (
	"context"

	"swarm1.dev/core/graph"
	"swarm1.dev/core/swarmerr"
)

// PlaywrightExecutor implements the "playwright" node type:
// `npx playwright test -c <config> <specs...>`.
type PlaywrightExecutor struct{}

func (PlaywrightExecutor) DefaultTimeoutMs() int { return 180000 }

func (PlaywrightExecutor) Execute(ctx context.Context, in Input, deps *Deps) error {
	p, ok := in.Params.(graph.PlaywrightParams)
	if !ok {
		return swarmerr.Newf(swarmerr.InvalidParams, "node %q: expected PlaywrightParams", in.Node.ID)
	}
	if err := previewRoute(ctx, deps, in, graph.TypePlaywright); err != nil {
		deps.Logger.Warn(ctx, "engine/exec: router preview failed", "node_id", in.Node.ID, "err", err.Error())
	}

	bin := deps.PlaywrightBin
	if bin == "" {
		bin = "npx"
	}
	args := append([]string{"playwright", "test", "-c", p.Config}, p.Specs...)
	return runSubprocess(ctx, in.Env, bin, args...)
}
