package main

import (
	"github.com/spf13/cobra"

	"swarm1.dev/core/authgate"
	"swarm1.dev/core/graph"
)

var resumeCmd = &cobra.Command{
	Use:   "resume <run-id> <graph.yaml>",
	Short: "Resume a previously started run from its durable state",
	Args:  cobra.ExactArgs(2),
	RunE:  runResume,
}

func init() {
	rootCmd.AddCommand(resumeCmd)
}

func runResume(cmd *cobra.Command, args []string) error {
	if err := authorize(cmd.Context(), authgate.PermEnqueueJobs, ""); err != nil {
		return err
	}

	spec, err := graph.Load(args[1])
	if err != nil {
		return err
	}

	sched, _, err := buildScheduler(spec)
	if err != nil {
		return err
	}
	run, err := sched.Run(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	return reportRunOutcome(spec, run)
}
