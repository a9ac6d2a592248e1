package main

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"swarm1.dev/core/authgate"
	"swarm1.dev/core/engine/state"
	"swarm1.dev/core/graph"
	"swarm1.dev/core/swarmerr"
)

var runCmd = &cobra.Command{
	Use:   "run <graph.yaml>",
	Short: "Run a graph file to completion",
	Args:  cobra.ExactArgs(1),
	RunE:  runRun,
}

var runID string

func init() {
	runCmd.Flags().StringVar(&runID, "run-id", "", "run id to persist state under (default: a generated id)")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	if err := authorize(cmd.Context(), authgate.PermEnqueueJobs, ""); err != nil {
		return err
	}

	spec, err := graph.Load(args[0])
	if err != nil {
		return err
	}

	id := runID
	if id == "" {
		id = newRunID()
	}

	sched, _, err := buildScheduler(spec)
	if err != nil {
		return err
	}
	run, err := sched.Run(cmd.Context(), id)
	if err != nil {
		return err
	}

	return reportRunOutcome(spec, run)
}

// newRunID generates a fresh 12-character opaque run id from a dashless
// UUID.
func newRunID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// reportRunOutcome maps a completed RunState to an exit code: a package
// or report node failure gets its dedicated code (401/402), any other
// node failure the generic graph-failed code (204, swarmerr.ExitCode's
// default case).
func reportRunOutcome(spec *graph.Spec, run *state.RunState) error {
	var failedIDs []string
	for id, ns := range run.Nodes {
		if ns.Status == state.StatusFailed {
			failedIDs = append(failedIDs, id)
		}
	}
	if len(failedIDs) == 0 {
		fmt.Printf("run %s succeeded\n", run.RunID)
		return nil
	}

	for _, id := range failedIDs {
		n, ok := spec.NodeByID(id)
		if !ok {
			continue
		}
		switch n.Type {
		case graph.TypePackage:
			return swarmerr.Newf(swarmerr.PackageFailed, "node %q failed", id)
		case graph.TypeReport:
			return swarmerr.Newf(swarmerr.ReportFailed, "node %q failed", id)
		}
	}
	return fmt.Errorf("run %s failed: nodes %v did not succeed", run.RunID, failedIDs)
}
