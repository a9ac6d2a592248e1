package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"swarm1.dev/core/graph"
)

var validateCmd = &cobra.Command{
	Use:   "validate <graph.yaml>",
	Short: "Validate a graph file without running it",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	spec, err := graph.Load(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("%s: %d nodes, concurrency %d, ok\n", spec.ProjectID, len(spec.Nodes), spec.EffectiveConcurrency())
	return nil
}
