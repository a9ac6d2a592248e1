package exec

import (
	"context"

	"swarm1.dev/core/graph"
	"swarm1.dev/core/swarmerr"
)

// CVFExecutor implements the "cvf" (capability verification) node type:
// a verification script invoked against the node's AUV.
type CVFExecutor struct{}

func (CVFExecutor) DefaultTimeoutMs() int { return 60000 }

func (CVFExecutor) Execute(ctx context.Context, in Input, deps *Deps) error {
	p, ok := in.Params.(graph.CVFParams)
	if !ok {
		return swarmerr.Newf(swarmerr.InvalidParams, "node %q: expected CVFParams", in.Node.ID)
	}
	if err := previewRoute(ctx, deps, in, graph.TypeCVF); err != nil {
		deps.Logger.Warn(ctx, "engine/exec: router preview failed", "node_id", in.Node.ID, "err", err.Error())
	}

	script := deps.CVFScript
	if script == "" {
		script = "scripts/cvf_check.mjs"
	}
	return runSubprocess(ctx, in.Env, "node", script, p.AUV)
}
