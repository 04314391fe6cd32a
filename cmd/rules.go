// =============================================================================
// Sales Validator - Rules Command
// =============================================================================
//
// This file defines the 'rules' command, which prints the effective rules
// (built-in defaults merged with the rules document) as YAML. The output is
// itself a valid rules document.
//
// COMMAND USAGE:
//   salesval rules [--rules path]
//
// =============================================================================

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/sales-validator/internal/config"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Print the effective validation rules as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		rules, err := config.LoadRules(cfg.RulesFile)
		if err != nil {
			return fmt.Errorf("failed to load rules: %w", err)
		}
		out, err := config.MarshalRules(rules)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesCmd.Flags().String("rules", "", "Rules document (default: built-in rules)")
}
