// =============================================================================
// Sales Validator - History Command
// =============================================================================
//
// This file defines the 'history' command, which lists recent runs from the
// run ledger. The ledger is configured with history.driver and history.dsn
// (or SALESVAL_HISTORY_DRIVER / SALESVAL_HISTORY_DSN).
//
// COMMAND USAGE:
//   salesval history [--limit N]
//
// =============================================================================

package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/sales-validator/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent validation runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cfg, err := setup(cmd)
		if err != nil {
			return err
		}
		if cfg.History.Driver == "" {
			return fmt.Errorf("no run history configured (set history.driver and history.dsn)")
		}

		store, err := history.Open(ctx, cfg.History.Driver, cfg.History.DSN)
		if err != nil {
			return fmt.Errorf("failed to open history: %w", err)
		}
		defer store.Close()

		limit, _ := cmd.Flags().GetInt("limit")
		runs, err := store.Recent(ctx, limit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "STARTED\tRUN ID\tSTATUS\tROWS\tFAILURE\tFINGERPRINT\tINPUT")
		for _, r := range runs {
			status := r.Status
			if r.DryRun {
				status += " (dry run)"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
				r.StartedAt.Local().Format("2006-01-02 15:04:05"),
				r.ID, status, r.Rows, dash(r.FailureKind), dash(r.Fingerprint), r.InputPath)
		}
		return w.Flush()
	},
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().Int("limit", 10, "Number of runs to list")
}
