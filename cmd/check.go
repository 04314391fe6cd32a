package cmd

import (
	"github.com/spf13/cobra"
)

// checkCmd validates without writing. It is clean --dry-run with its own
// name, for use in CI jobs.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the input without writing any output",
	Long: `The check command runs every validation stage exactly as clean does but never
writes, fingerprints or publishes the output. Use --mode collect to see every
failure at once.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runClean(cmd, true)
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
	addRunFlags(checkCmd)
}
