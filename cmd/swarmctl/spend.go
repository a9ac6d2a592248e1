package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"swarm1.dev/core/authgate"
	"swarm1.dev/core/observability"
)

var spendSessionID string

var spendCmd = &cobra.Command{
	Use:   "spend",
	Short: "Aggregate spend ledgers into reports/observability/spend.json",
	RunE:  runSpend,
}

func init() {
	spendCmd.Flags().StringVar(&spendSessionID, "session", "", "only aggregate this session's ledger (default: all)")
	rootCmd.AddCommand(spendCmd)
}

func runSpend(cmd *cobra.Command, args []string) error {
	if err := authorize(cmd.Context(), authgate.PermViewStatus, ""); err != nil {
		return err
	}

	ledgerDir := filepath.Join(baseDir, "runs", "observability", "ledgers")
	totals, err := observability.Aggregate(ledgerDir, spendSessionID)
	if err != nil {
		return err
	}

	outPath := filepath.Join(baseDir, "reports", "observability", "spend.json")
	if err := observability.WriteReport(outPath, totals); err != nil {
		return err
	}

	out, err := json.MarshalIndent(totals, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
