// Package exec implements the typed node executors: one handler per
// node kind, each given the node's decoded params, a merged environment,
// and the owning run id. Subprocess-backed executors share the subprocess
// contract in subprocess.go (exit 0 success, kill_tree on timeout or
// cancellation).
package exec

import (
	"context"

	"swarm1.dev/core/graph"
)

// Input is the per-attempt input to Execute: the node, its typed params
// (decoded by graph.ParamsFor), the merged environment,
// and the owning run id.
type Input struct {
	Node   graph.Node
	Params any
	Env    map[string]string
	RunID  string
}

// Executor is the per-node-type contract: given (node, merged env,
// run id) it returns success or a *swarmerr.Error.
type Executor interface {
	Execute(ctx context.Context, in Input, deps *Deps) error

	// DefaultTimeoutMs is this node type's default timeout, used when
	// neither the node nor the graph defaults override it.
	DefaultTimeoutMs() int
}
