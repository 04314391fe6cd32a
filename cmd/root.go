// =============================================================================
// Sales Validator - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. Every other command
// (clean, check, rules, history, version) is attached to it.
//
// COBRA CLI STRUCTURE:
//   rootCmd (salesval)
//   ├── cleanCmd   (salesval clean)
//   ├── checkCmd   (salesval check)
//   ├── rulesCmd   (salesval rules)
//   ├── historyCmd (salesval history)
//   └── versionCmd (salesval version)
//
// CONFIGURATION PRECEDENCE (highest first):
//   1. Command-line flags (--input, --output, --rules, --mode, --report)
//   2. Environment variables prefixed with SALESVAL_
//      (SALESVAL_INPUT, SALESVAL_HISTORY_DSN, SALESVAL_PUBLISH_BUCKET, ...)
//   3. The main configuration file (--config, default config.yaml)
//   4. Built-in defaults
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ginjaninja78/sales-validator/internal/config"
	"github.com/ginjaninja78/sales-validator/internal/logger"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// envPrefix is prepended to every environment override.
const envPrefix = "SALESVAL"

// v holds flag and environment overrides. The config file itself is decoded
// by the config package.
var v = newViper()

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "salesval",
	Short: "Sales Validator - Validate and clean retail sales transactions",
	Long: `Sales Validator checks a weekly retail sales export against a fixed set of
integrity rules and, when every rule passes, writes a cleaned copy of the data.

Key Features:
  - Schema, type, range and allowed-value checks
  - Revenue reconciliation against three accepted formulas
  - Fail-fast or collect-all reporting
  - Atomic, idempotent output with content fingerprints
  - Optional run history, metrics push and S3 publishing

Example Usage:
  salesval clean                          # Validate and write the cleaned file
  salesval clean --input raw.csv --output clean.csv
  salesval check --mode collect           # Report every failure, write nothing
  salesval rules > rules.yaml             # Dump the effective rules`,

	SilenceUsage:  true,
	SilenceErrors: true,

	// Flags of the command being run are bound here so that commands can
	// share flag names.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := v.BindPFlags(cmd.Flags()); err != nil {
			return fmt.Errorf("failed to bind flags: %w", err)
		}
		return nil
	},

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().String(
		"config",
		config.DefaultConfigPath,
		"Path to the main configuration file",
	)
	rootCmd.PersistentFlags().BoolP(
		"verbose",
		"v",
		false,
		"Enable debug logging",
	)
}

// =============================================================================
// SHARED SETUP
// =============================================================================

// overrides maps viper keys onto configuration fields. Keys with a dot are
// reachable only through the environment.
func overrides(cfg *config.MainConfig) map[string]*string {
	return map[string]*string{
		"input":                   &cfg.InputPath,
		"output":                  &cfg.OutputPath,
		"rules":                   &cfg.RulesFile,
		"mode":                    &cfg.Mode,
		"report":                  &cfg.ReportPath,
		"log_level":               &cfg.LogLevel,
		"log_format":              &cfg.LogFormat,
		"csv.delimiter":           &cfg.CSV.Delimiter,
		"csv.encoding":            &cfg.CSV.Encoding,
		"csv.sheet":               &cfg.CSV.Sheet,
		"history.driver":          &cfg.History.Driver,
		"history.dsn":             &cfg.History.DSN,
		"metrics.pushgateway_url": &cfg.Metrics.PushgatewayURL,
		"metrics.job":             &cfg.Metrics.Job,
		"publish.bucket":          &cfg.Publish.Bucket,
		"publish.key":             &cfg.Publish.Key,
		"publish.region":          &cfg.Publish.Region,
		"publish.endpoint":        &cfg.Publish.Endpoint,
	}
}

// loadConfig reads the main configuration and applies flag and environment
// overrides.
//
// RETURNS:
//   - The validated configuration.
//   - An error if the file is invalid or an override breaks validation.
func loadConfig(cmd *cobra.Command) (*config.MainConfig, error) {
	path := v.GetString("config")
	_, envSet := os.LookupEnv(envPrefix + "_CONFIG")
	explicit := envSet
	if f := cmd.Flags().Lookup("config"); f != nil && f.Changed {
		explicit = true
	}

	cfg, err := config.LoadMainConfigOrDefault(path, explicit)
	if err != nil {
		return nil, fmt.Errorf("failed to load main config: %w", err)
	}

	for key, field := range overrides(cfg) {
		if v.IsSet(key) {
			if value := v.GetString(key); value != "" {
				*field = value
			}
		}
	}
	if v.IsSet("publish.path_style") {
		cfg.Publish.PathStyle = v.GetBool("publish.path_style")
	}

	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// setup loads the configuration and attaches a logger to the command context.
func setup(cmd *cobra.Command) (context.Context, *config.MainConfig, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}

	level := cfg.LogLevel
	if v.GetBool("verbose") {
		level = "debug"
	}
	log, err := logger.New(logger.Options{Level: level, Format: cfg.LogFormat, Out: cmd.ErrOrStderr()})
	if err != nil {
		return nil, nil, err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return logger.WithContext(ctx, log), cfg, nil
}
