package router

import (
	"fmt"
	"sort"
	"strings"
)

// selection is one capability's resolved tool assignment, before entries
// covering the same tool_id are merged into a single PlanEntry.
type selection struct {
	capability string
	toolID     string
}

// Plan runs the capability router's planning algorithm: a pure
// function over Request, Registry, and Policy — no I/O, so it is
// trivially cacheable and deterministic given identical inputs.
func Plan(req Request, reg Registry, pol Policy) Decision {
	caps := dedupeCapabilities(req.RequestedCapabilities)

	var selections []selection
	var rejected []Rejection
	var warnings []string

	for _, cap := range caps {
		capPolicy, known := pol.Capabilities[cap]
		if !known || len(capPolicy.Candidates) == 0 {
			warnings = append(warnings, fmt.Sprintf("no candidates configured for capability %q", cap))
			continue
		}

		ordered := orderByTier(capPolicy.Candidates, reg)

		chosen, rejections := selectCandidate(req, reg, pol, capPolicy, ordered)
		rejected = append(rejected, rejections...)

		if chosen == "" {
			if capPolicy.OnMissingPrimary != nil && capPolicy.OnMissingPrimary.Propose {
				fallback, ok := proposeSecondary(req, reg, pol, capPolicy, ordered)
				if ok {
					selections = append(selections, selection{capability: cap, toolID: fallback})
					warnings = append(warnings, fmt.Sprintf("proposing secondary %q with budget %.4f for capability %q", fallback, capPolicy.OnMissingPrimary.FallbackBudgetUSD, cap))
					continue
				}
			}
			continue
		}
		selections = append(selections, selection{capability: cap, toolID: chosen})
	}

	toolPlan, totalCost := mergeSelections(selections, reg)

	dec := Decision{
		OK:       true,
		ToolPlan: toolPlan,
		Rejected: rejected,
		Warnings: warnings,
		Totals:   Totals{TotalCostUSD: totalCost},
	}
	if req.BudgetUSD != nil && totalCost > *req.BudgetUSD {
		dec.OK = false
		dec.Warnings = append(dec.Warnings, fmt.Sprintf("Total cost %.4f exceeds budget %.4f", totalCost, *req.BudgetUSD))
		dec.Totals.MinFeasibleBudgetUSD = totalCost
	}
	return dec
}

// orderByTier stably sorts candidates so primary-tier entries precede
// secondary-tier ones while preserving each tier's relative preference
// order.
func orderByTier(candidates []string, reg Registry) []string {
	ordered := append([]string{}, candidates...)
	sort.SliceStable(ordered, func(i, j int) bool {
		ti := tierRank(reg[ordered[i]].Tier)
		tj := tierRank(reg[ordered[j]].Tier)
		return ti < tj
	})
	return ordered
}

func tierRank(t Tier) int {
	if t == TierPrimary {
		return 0
	}
	return 1
}

// selectCandidate applies the gates, in order, to each
// candidate until one survives; it records a rejection with the first
// failing gate's reason for every candidate that doesn't.
func selectCandidate(req Request, reg Registry, pol Policy, capPolicy CapabilityPolicy, ordered []string) (string, []Rejection) {
	var rejections []Rejection
	for _, toolID := range ordered {
		entry, ok := reg[toolID]
		if !ok {
			rejections = append(rejections, Rejection{ToolID: toolID, Reason: "unknown tool"})
			continue
		}
		if !allowedForAgent(pol, req.AgentID, toolID) {
			rejections = append(rejections, Rejection{ToolID: toolID, Reason: "not in agent allowlist"})
			continue
		}
		if entry.RequiresAPIKey {
			envVar := apiKeyEnvVar(entry)
			if req.Env[envVar] == "" {
				rejections = append(rejections, Rejection{ToolID: toolID, Reason: fmt.Sprintf("missing API key (%s)", envVar)})
				continue
			}
		}
		if entry.Tier == TierSecondary && !req.SecondaryConsent {
			authorized := capPolicy.OnMissingPrimary != nil && capPolicy.OnMissingPrimary.Propose
			if !authorized {
				rejections = append(rejections, Rejection{ToolID: toolID, Reason: "secondary requires consent"})
				continue
			}
		}
		budget := applicableBudget(capPolicy, pol, entry.Tier, toolID)
		if budget != nil && entry.CostPerCallUSD > *budget {
			rejections = append(rejections, Rejection{ToolID: toolID, Reason: "exceeds per-tool budget"})
			continue
		}
		return toolID, rejections
	}
	return "", rejections
}

// applicableBudget resolves the per-tool budget chain: per-tool override,
// then tier default budget. The caller's overall budget_usd never gates
// individual candidates here — it is checked once, in aggregate, in Plan,
// so a lone over-budget tool still appears in the plan and surfaces as an
// aggregate "Total cost exceeds budget" warning rather than a rejection.
func applicableBudget(capPolicy CapabilityPolicy, pol Policy, tier Tier, toolID string) *float64 {
	if capPolicy.PerToolBudgetUSD != nil {
		if v, ok := capPolicy.PerToolBudgetUSD[toolID]; ok {
			return &v
		}
	}
	if v, ok := pol.TierDefaultBudget[tier]; ok {
		return &v
	}
	return nil
}

// proposeSecondary selects the first secondary-tier candidate (in the
// tier-ordered list) that passes the allowlist and API-key gates and whose
// cost fits within the capability's fallback budget, bypassing the
// consent gate.
func proposeSecondary(req Request, reg Registry, pol Policy, capPolicy CapabilityPolicy, ordered []string) (string, bool) {
	fallbackBudget := capPolicy.OnMissingPrimary.FallbackBudgetUSD
	for _, toolID := range ordered {
		entry, ok := reg[toolID]
		if !ok || entry.Tier != TierSecondary {
			continue
		}
		if !allowedForAgent(pol, req.AgentID, toolID) {
			continue
		}
		if entry.RequiresAPIKey && req.Env[apiKeyEnvVar(entry)] == "" {
			continue
		}
		if entry.CostPerCallUSD > fallbackBudget {
			continue
		}
		return toolID, true
	}
	return "", false
}

func apiKeyEnvVar(entry ToolEntry) string {
	if entry.APIKeyEnv != "" {
		return entry.APIKeyEnv
	}
	return strings.ToUpper(entry.ToolID) + "_API_KEY"
}

// mergeSelections groups per-capability selections by tool_id, preserving
// the order each tool_id was first selected in so the
// output is deterministic for identical input, and sums each distinct
// tool's cost exactly once into the plan total.
func mergeSelections(selections []selection, reg Registry) ([]PlanEntry, float64) {
	order := make([]string, 0, len(selections))
	byTool := make(map[string]*PlanEntry, len(selections))
	var total float64

	for _, s := range selections {
		entry, ok := byTool[s.toolID]
		if !ok {
			regEntry := reg[s.toolID]
			pe := PlanEntry{
				ToolID:           s.toolID,
				EstimatedCostUSD: regEntry.CostPerCallUSD,
				SideEffects:      regEntry.SideEffects,
			}
			byTool[s.toolID] = &pe
			entry = &pe
			order = append(order, s.toolID)
			total += regEntry.CostPerCallUSD
		}
		entry.Capabilities = appendUnique(entry.Capabilities, s.capability)
	}

	plan := make([]PlanEntry, 0, len(order))
	for _, id := range order {
		plan = append(plan, *byTool[id])
	}
	return plan, total
}

func appendUnique(list []string, v string) []string {
	for _, e := range list {
		if e == v {
			return list
		}
	}
	return append(list, v)
}
