package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"swarm1.dev/core/authgate"
	"swarm1.dev/core/engine"
	"swarm1.dev/core/router"
)

var (
	routeRegistryPath string
	routePolicyPath   string
	routeAgentID      string
	routeCapabilities string
	routeBudget       float64
	routeConsent      bool
)

var routeCmd = &cobra.Command{
	Use:   "route",
	Short: "Preview a capability-router decision without dispatching a graph",
	RunE:  runRoute,
}

func init() {
	routeCmd.Flags().StringVar(&routeRegistryPath, "registry", "registry.json", "tool registry file")
	routeCmd.Flags().StringVar(&routePolicyPath, "policy", "policy.json", "capability policy file")
	routeCmd.Flags().StringVar(&routeAgentID, "agent", "", "requesting agent id")
	routeCmd.Flags().StringVar(&routeCapabilities, "capabilities", "", "comma-separated requested capabilities")
	routeCmd.Flags().Float64Var(&routeBudget, "budget", 0, "caller budget in USD (0 means unset)")
	routeCmd.Flags().BoolVar(&routeConsent, "secondary-consent", false, "authorize proposing a secondary tool without an explicit policy")
	rootCmd.AddCommand(routeCmd)
}

func runRoute(cmd *cobra.Command, args []string) error {
	if err := authorize(cmd.Context(), authgate.PermViewStatus, ""); err != nil {
		return err
	}

	reg, err := loadRegistry(routeRegistryPath)
	if err != nil {
		return err
	}
	pol, err := loadPolicy(routePolicyPath)
	if err != nil {
		return err
	}

	req := router.Request{
		AgentID:          routeAgentID,
		SecondaryConsent: routeConsent,
	}
	if routeCapabilities != "" {
		req.RequestedCapabilities = strings.Split(routeCapabilities, ",")
	}
	if routeBudget > 0 {
		req.BudgetUSD = &routeBudget
	}

	cache := newRouterCache(engine.ConfigFromEnv())
	decision := planCached(cmd.Context(), cache, req, reg, pol)
	out, err := json.MarshalIndent(decision, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func loadRegistry(path string) (router.Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg router.Registry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parsing registry %s: %w", path, err)
	}
	return reg, nil
}

func loadPolicy(path string) (router.Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return router.Policy{}, err
	}
	var pol router.Policy
	if err := json.Unmarshal(data, &pol); err != nil {
		return router.Policy{}, fmt.Errorf("parsing policy %s: %w", path, err)
	}
	return pol, nil
}
