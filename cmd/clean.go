// =============================================================================
// Sales Validator - Clean Command
// =============================================================================
//
// This file defines the 'clean' command, the main command of the tool. It
// validates the input and, when every rule passes, writes the cleaned file.
//
// COMMAND USAGE:
//   salesval clean [flags]
//
// FLAGS:
//   --input    : Raw transaction file (.csv or .xlsx)
//   --output   : Cleaned output file
//   --rules    : Rules document (default: built-in rules)
//   --mode     : fail_fast or collect
//   --report   : Diagnostics workbook (.xlsx)
//   --dry-run  : Validate only, write nothing
//
// EXIT STATUS:
//   0 when every rule passed and the output was written, 1 otherwise.
//
// =============================================================================

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/sales-validator/internal/cleaner"
	"github.com/ginjaninja78/sales-validator/internal/config"
	"github.com/ginjaninja78/sales-validator/internal/report"
)

// =============================================================================
// CLEAN COMMAND DEFINITION
// =============================================================================

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Validate the input and write the cleaned file",
	Long: `The clean command reads the raw transactions, runs every validation stage in
order and writes the cleaned file only when all of them pass.

On success:
  - The cleaned file replaces the previous output atomically
  - The content fingerprint is logged and compared with the previous output
  - The file is published when a bucket is configured

On failure:
  - Nothing is written and any previous output is left untouched
  - Every reported failure names its rule, column(s) and example rows`,

	RunE: func(cmd *cobra.Command, args []string) error {
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		return runClean(cmd, dryRun)
	},
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.AddCommand(cleanCmd)
	addRunFlags(cleanCmd)
	cleanCmd.Flags().String("output", "", "Cleaned output file")
	cleanCmd.Flags().Bool("dry-run", false, "Validate only; write nothing")
}

// addRunFlags registers the flags shared by clean and check.
func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().String("input", "", "Raw transaction file (.csv or .xlsx)")
	cmd.Flags().String("rules", "", "Rules document (default: built-in rules)")
	cmd.Flags().String("mode", "", fmt.Sprintf("Failure mode: %s or %s", config.ModeFailFast, config.ModeCollect))
	cmd.Flags().String("report", "", "Write a diagnostics workbook (.xlsx)")
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// runClean loads configuration and rules, runs the cleaner and prints the
// summary.
func runClean(cmd *cobra.Command, dryRun bool) error {
	ctx, cfg, err := setup(cmd)
	if err != nil {
		return err
	}

	rules, err := config.LoadRules(cfg.RulesFile)
	if err != nil {
		return fmt.Errorf("failed to load rules: %w", err)
	}

	c, err := cleaner.Open(ctx, cfg, rules)
	if err != nil {
		return err
	}
	defer c.Close()

	summary, runErr := c.Run(ctx, dryRun)
	if err := report.WriteText(cmd.OutOrStdout(), summary); err != nil {
		return err
	}

	if runErr != nil && len(summary.Errors) > 0 {
		return fmt.Errorf("validation failed at stage %s with %d error(s)",
			report.FailedStage(summary.Stages), len(summary.Errors))
	}
	return runErr
}
