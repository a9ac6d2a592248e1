package engine

import (
	"os"
	"strings"

	"swarm1.dev/core/graph"
)

// mergedEnv builds one node's execution environment: process_env
// overlaid by the scheduler's resolved config, then the node's own env
// block, then a forced AUV_ID — each layer overriding the last.
func (s *Scheduler) mergedEnv(n graph.Node) map[string]string {
	merged := make(map[string]string, len(n.Env)+4)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			merged[k] = v
		}
	}
	merged["STAGING_URL"] = s.cfg.StagingURL
	if s.cfg.APIBase != "" {
		merged["API_BASE"] = s.cfg.APIBase
	}
	if s.cfg.SessionID != "" {
		merged["SESSION_ID"] = s.cfg.SessionID
	}
	for k, v := range n.Env {
		merged[k] = v
	}
	merged["AUV_ID"] = graph.AUVID(n)
	return merged
}
