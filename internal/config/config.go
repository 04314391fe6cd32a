// =============================================================================
// Sales Validator - Configuration Module
// =============================================================================
//
// This module is responsible for loading and managing all configuration files.
// It handles both the main application configuration and the rules document
// that drives validation.
//
// CONFIGURATION FILES:
//   1. Main Config (config.yaml): Paths, parsing, logging, integrations
//   2. Rules (rules.yaml, optional): Required columns, types, allowed values,
//      tolerance, date layouts
//
// OVERRIDES:
//   Command-line flags and SALESVAL_* environment variables are applied on
//   top of the loaded file by the cmd package (viper).
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// MODES
// =============================================================================

// Run modes.
const (
	// ModeFailFast stops at the first failing stage.
	ModeFailFast = "fail_fast"

	// ModeCollect runs every stage and reports every failure.
	ModeCollect = "collect"
)

// Log formats.
const (
	LogFormatConsole = "console"
	LogFormatJSON    = "json"
)

// History drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
// This is loaded from the main config.yaml file.
type MainConfig struct {
	// =========================================================================
	// PATH SETTINGS
	// =========================================================================

	// InputPath is the raw transaction file (.csv or .xlsx).
	// Default: "data/raw/Supplement_Sales_Weekly_Expanded.csv"
	InputPath string `yaml:"input_path"`

	// OutputPath is where the cleaned file is written. It is overwritten on
	// every successful run and never touched on failure.
	// Default: "data/cleaned/supplement_sales_cleaned.csv"
	OutputPath string `yaml:"output_path"`

	// RulesFile is an optional rules document. Empty means built-in rules.
	RulesFile string `yaml:"rules_file"`

	// ReportPath is an optional XLSX diagnostics workbook.
	ReportPath string `yaml:"report_path"`

	// =========================================================================
	// PROCESSING SETTINGS
	// =========================================================================

	// Mode is "fail_fast" or "collect".
	// Default: "fail_fast"
	Mode string `yaml:"mode"`

	// CSV contains settings for reading and writing delimited files.
	CSV CSVSettings `yaml:"csv"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// LogFormat is "console" or "json".
	// Default: "console"
	LogFormat string `yaml:"log_format"`

	// =========================================================================
	// INTEGRATIONS
	// =========================================================================

	// Metrics configures the Prometheus Pushgateway backend.
	Metrics MetricsSettings `yaml:"metrics"`

	// History configures the run ledger.
	History HistorySettings `yaml:"history"`

	// Publish configures upload of the cleaned file.
	Publish PublishSettings `yaml:"publish"`
}

// =============================================================================
// CSV SETTINGS STRUCTURE
// =============================================================================

// CSVSettings contains settings for parsing delimited and XLSX input.
type CSVSettings struct {
	// Delimiter is the character used to separate fields.
	// Common values: "," (comma), ";" (semicolon), "|" (pipe), "\t" (tab)
	// Default: ","
	Delimiter string `yaml:"delimiter"`

	// DataStartRow is the row number where the data begins. Row 1 is the
	// header; rows between the header and DataStartRow are skipped.
	// Default: 2
	DataStartRow int `yaml:"data_start_row"`

	// Encoding is the character encoding of the input file.
	// Valid values: "UTF-8", "ISO-8859-1", "Windows-1252"
	// Default: "UTF-8"
	Encoding string `yaml:"encoding"`

	// Sheet is the worksheet read from XLSX input. Empty means the first sheet.
	Sheet string `yaml:"sheet"`
}

// MetricsSettings configures metric export.
type MetricsSettings struct {
	// PushgatewayURL enables pushing when set.
	PushgatewayURL string `yaml:"pushgateway_url"`

	// Job is the Pushgateway job label.
	// Default: "sales_validator"
	Job string `yaml:"job"`
}

// HistorySettings configures the run ledger.
type HistorySettings struct {
	// Driver is "sqlite" or "postgres". Empty disables history.
	Driver string `yaml:"driver"`

	// DSN is the data source name (a file path for sqlite).
	DSN string `yaml:"dsn"`
}

// PublishSettings configures upload to S3-compatible storage.
type PublishSettings struct {
	// Bucket enables publishing when set.
	Bucket string `yaml:"bucket"`

	// Key is the object key. Default: the output file name.
	Key string `yaml:"key"`

	// Region is the bucket region.
	// Default: "us-east-1"
	Region string `yaml:"region"`

	// Endpoint overrides the service endpoint (MinIO, localstack).
	Endpoint string `yaml:"endpoint"`

	// PathStyle forces path-style addressing.
	PathStyle bool `yaml:"path_style"`

	// AccessKeyID and SecretAccessKey select static credentials. When empty
	// the default AWS credential chain is used.
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// DefaultConfigPath is used when no --config flag is given.
const DefaultConfigPath = "config.yaml"

// LoadMainConfig loads the main configuration from the specified file.
//
// PARAMETERS:
//   - configPath: The path to the config.yaml file.
//
// RETURNS:
//   - A pointer to the loaded MainConfig.
//   - An error if the file cannot be read or parsed.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	// Read the configuration file.
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse the YAML.
	var config MainConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Apply default values.
	ApplyDefaults(&config)

	// Validate the configuration.
	if err := Validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// LoadMainConfigOrDefault loads configPath, falling back to defaults when the
// file does not exist and was not explicitly requested.
func LoadMainConfigOrDefault(configPath string, explicit bool) (*MainConfig, error) {
	config, err := LoadMainConfig(configPath)
	if err == nil {
		return config, nil
	}
	if !explicit && errors.Is(err, fs.ErrNotExist) {
		return DefaultMainConfig(), nil
	}
	return nil, err
}

// DefaultMainConfig returns a configuration with every default applied.
func DefaultMainConfig() *MainConfig {
	config := &MainConfig{}
	ApplyDefaults(config)
	return config
}

// ApplyDefaults fills in empty fields.
func ApplyDefaults(config *MainConfig) {
	if config.InputPath == "" {
		config.InputPath = filepath.Join("data", "raw", "Supplement_Sales_Weekly_Expanded.csv")
	}
	if config.OutputPath == "" {
		config.OutputPath = filepath.Join("data", "cleaned", "supplement_sales_cleaned.csv")
	}
	if config.Mode == "" {
		config.Mode = ModeFailFast
	}
	if config.CSV.Delimiter == "" {
		config.CSV.Delimiter = ","
	}
	if config.CSV.DataStartRow == 0 {
		config.CSV.DataStartRow = 2
	}
	if config.CSV.Encoding == "" {
		config.CSV.Encoding = "UTF-8"
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.LogFormat == "" {
		config.LogFormat = LogFormatConsole
	}
	if config.Metrics.Job == "" {
		config.Metrics.Job = "sales_validator"
	}
	if config.Publish.Region == "" {
		config.Publish.Region = "us-east-1"
	}
}

// Validate checks the configuration for inconsistent settings. It is called
// again by the cmd package after overrides are applied.
func Validate(config *MainConfig) error {
	if config.InputPath == "" {
		return fmt.Errorf("input_path is required")
	}
	if config.OutputPath == "" {
		return fmt.Errorf("output_path is required")
	}
	if filepath.Clean(config.InputPath) == filepath.Clean(config.OutputPath) {
		return fmt.Errorf("output_path must differ from input_path")
	}

	switch config.Mode {
	case ModeFailFast, ModeCollect:
	default:
		return fmt.Errorf("unknown mode %q (expected %s or %s)", config.Mode, ModeFailFast, ModeCollect)
	}

	switch config.LogFormat {
	case LogFormatConsole, LogFormatJSON:
	default:
		return fmt.Errorf("unknown log_format %q", config.LogFormat)
	}

	if config.CSV.DataStartRow < 2 {
		return fmt.Errorf("csv.data_start_row must be at least 2")
	}
	if _, err := ParseDelimiter(config.CSV.Delimiter); err != nil {
		return err
	}

	switch strings.ToLower(config.History.Driver) {
	case "":
	case DriverSQLite, DriverPostgres, "pgx":
		if config.History.DSN == "" {
			return fmt.Errorf("history.dsn is required when history.driver is set")
		}
	default:
		return fmt.Errorf("unknown history driver %q", config.History.Driver)
	}

	if config.ReportPath != "" && !strings.EqualFold(filepath.Ext(config.ReportPath), ".xlsx") {
		return fmt.Errorf("report_path must end in .xlsx")
	}

	return nil
}

// ParseDelimiter converts a configured delimiter into a rune.
//
// Supported values: any single character, or the names "tab", "pipe",
// "comma" and "semicolon". The escape "\t" is accepted for tab.
func ParseDelimiter(delimiter string) (rune, error) {
	switch strings.ToLower(delimiter) {
	case "", ",", "comma":
		return ',', nil
	case "\t", "\\t", "tab":
		return '\t', nil
	case "|", "pipe":
		return '|', nil
	case ";", "semicolon":
		return ';', nil
	}

	runes := []rune(delimiter)
	if len(runes) != 1 || runes[0] == '"' || runes[0] == '\n' || runes[0] == '\r' {
		return 0, fmt.Errorf("invalid delimiter %q", delimiter)
	}
	return runes[0], nil
}
