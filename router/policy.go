package router

// allowedForAgent reports whether toolID is usable by agentID under the
// policy's allowlists. An agent absent
// from AgentAllowlists has no restriction — allowlists are opt-in.
func allowedForAgent(p Policy, agentID, toolID string) bool {
	list, ok := p.AgentAllowlists[agentID]
	if !ok || len(list) == 0 {
		return true
	}
	for _, id := range list {
		if id == toolID {
			return true
		}
	}
	return false
}

// dedupeCapabilities preserves first occurrence order.
func dedupeCapabilities(caps []string) []string {
	seen := make(map[string]struct{}, len(caps))
	out := make([]string, 0, len(caps))
	for _, c := range caps {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
