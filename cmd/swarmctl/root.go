// Command swarmctl drives the DAG execution engine and capability router
// from the command line: running and resuming graphs, previewing router
// decisions, aggregating spend, and validating graph files.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"goa.design/clue/log"

	"swarm1.dev/core/authgate"
	"swarm1.dev/core/swarmerr"
	"swarm1.dev/core/telemetry"
)

var (
	baseDir   string
	authToken string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "swarmctl",
	Short: "DAG execution engine and capability router CLI",
	Long: `swarmctl runs and resumes graph files against the engine scheduler,
previews capability-router decisions, aggregates spend ledgers, and
validates graph files before a run.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		format := log.FormatText
		if logFormat == "json" {
			format = log.FormatJSON
		}
		cmd.SetContext(log.Context(cmd.Context(), log.WithFormat(format)))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&baseDir, "base-dir", ".", "run artifact root (runs/, reports/)")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", os.Getenv("SWARM_TOKEN"), "bearer token for the auth gate (default: $SWARM_TOKEN)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format: text or json")
}

// Execute runs the root command and exits the process:
// 0 on success, a swarmerr.Kind's mapped code on a tagged
// error, or 204 (the taxonomy's own "otherwise" fallback) for anything
// else, including cobra usage errors.
func Execute() {
	err := rootCmd.ExecuteContext(context.Background())
	if err == nil {
		os.Exit(0)
	}
	fmt.Fprintln(os.Stderr, "swarmctl:", err)
	if e, ok := swarmerr.As(err); ok {
		os.Exit(swarmerr.ExitCode(e.Kind))
	}
	os.Exit(204)
}

func newTelemetry() telemetry.Set {
	return telemetry.Set{
		Logger:  telemetry.NewClueLogger(),
		Metrics: telemetry.NewOtelMetrics(),
		Tracer:  telemetry.NewOtelTracer(),
	}
}

func newGate() *authgate.Gate {
	return authgate.NewGate(authgate.ConfigFromEnv())
}

// authorize runs the submission-boundary gate for perm/tenant ahead of a
// command's real work, returning the gate's error unchanged so main's exit
// mapping produces 405/403.
func authorize(ctx context.Context, perm authgate.Permission, tenant string) error {
	_, err := newGate().Authorize(ctx, authToken, perm, tenant)
	return err
}
