package exec

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"swarm1.dev/core/graph"
	"swarm1.dev/core/observability"
	"swarm1.dev/core/router"
)

// defaultCapabilities maps a node type to the capability it requests from
// the router preview when the node's params carry no explicit
// "capabilities" override.
func defaultCapabilities(t graph.NodeType) []string {
	switch t {
	case graph.TypePlaywright:
		return []string{"browser.automation"}
	case graph.TypeLighthouse:
		return []string{"perf.web"}
	case graph.TypeCVF:
		return []string{"capability.verification"}
	default:
		return nil
	}
}

// previewRoute implements the ROUTER_DRY preview hook: for
// playwright, lighthouse, and cvf nodes, when Deps.RouterDry and Deps.Router
// are both set, it plans routing for the node's capabilities and writes the
// decision to runs/<auv_id>/router_preview_<type>.json, emits a
// RouterPreview event, and appends one spend-ledger entry per planned tool.
// It never blocks or fails node execution — planning errors are swallowed
// by the caller, matching the hook's "preview only" framing.
func previewRoute(ctx context.Context, deps *Deps, in Input, nodeType graph.NodeType) error {
	if deps == nil || !deps.RouterDry || deps.Router == nil {
		return nil
	}
	caps := capabilitiesFor(in.Node, defaultCapabilities(nodeType))
	if len(caps) == 0 {
		return nil
	}
	decision := deps.Router(router.Request{
		AgentID:               "engine/exec:" + in.Node.ID,
		RequestedCapabilities: caps,
		Env:                   in.Env,
	})

	auvID := graph.AUVID(in.Node)
	dir := filepath.Join(deps.BaseDir, auvID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(decision, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(dir, "router_preview_"+string(nodeType)+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}

	now := time.Now().UTC()
	if deps.Emitter != nil {
		deps.Emitter.Emit(observability.Event{
			Timestamp: now,
			EventType: observability.RouterPreview,
			Module:    "engine/exec",
			RunID:     in.RunID,
			Fields: map[string]any{
				"node_id": in.Node.ID,
				"auv_id":  auvID,
				"ok":      decision.OK,
			},
		})
	}
	if deps.Ledger != nil {
		for _, entry := range decision.ToolPlan {
			_ = deps.Ledger.Append(observability.SpendEntry{
				SessionID:        deps.SessionID,
				ToolID:           entry.ToolID,
				EstimatedCostUSD: entry.EstimatedCostUSD,
				Timestamp:        now,
			})
		}
	}
	return nil
}

// capabilitiesFor honors an explicit params.capabilities override (a string
// list) over the node type's default.
func capabilitiesFor(n graph.Node, fallback []string) []string {
	raw, ok := n.Params["capabilities"]
	if !ok {
		return fallback
	}
	list, ok := raw.([]any)
	if !ok {
		return fallback
	}
	caps := make([]string, 0, len(list))
	for _, v := range list {
		if s, ok := v.(string); ok {
			caps = append(caps, s)
		}
	}
	if len(caps) == 0 {
		return fallback
	}
	return caps
}
