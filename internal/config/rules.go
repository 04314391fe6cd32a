package config

import (
	"fmt"
	"math"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/sales-validator/internal/table"
	"github.com/ginjaninja78/sales-validator/internal/validation"
)

// =============================================================================
// RULES DOCUMENT
// =============================================================================

// RulesDocument is the YAML form of validation.Rules. Omitted fields keep
// their built-in values.
//
// EXAMPLE:
//
//	required_columns: [Date, Product Name, ...]
//	expected_types:
//	  Units Sold: int64
//	  Price: float64
//	allowed_values:
//	  Platform: [iHerb, Amazon, Walmart]
//	tolerance: 0.01
type RulesDocument struct {
	RequiredColumns []string            `yaml:"required_columns,omitempty"`
	ExpectedTypes   map[string]string   `yaml:"expected_types,omitempty"`
	AllowedValues   map[string][]string `yaml:"allowed_values,omitempty"`
	Tolerance       *float64            `yaml:"tolerance,omitempty"`
	DateLayouts     []string            `yaml:"date_layouts,omitempty"`
	ExampleLimit    int                 `yaml:"example_limit,omitempty"`
}

// LoadRules reads a rules document and merges it over the built-in rules.
// An empty path returns the built-in rules.
func LoadRules(path string) (validation.Rules, error) {
	rules := validation.DefaultRules()
	if path == "" {
		return rules, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return validation.Rules{}, fmt.Errorf("failed to read rules file: %w", err)
	}

	var doc RulesDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return validation.Rules{}, fmt.Errorf("failed to parse rules file: %w", err)
	}

	if err := mergeRules(&rules, doc); err != nil {
		return validation.Rules{}, fmt.Errorf("invalid rules file %s: %w", path, err)
	}
	return rules, nil
}

func mergeRules(rules *validation.Rules, doc RulesDocument) error {
	if len(doc.RequiredColumns) > 0 {
		rules.RequiredColumns = doc.RequiredColumns
	}

	// Types and value sets merge per column.
	for column, name := range doc.ExpectedTypes {
		kind, err := table.ParseKind(name)
		if err != nil {
			return fmt.Errorf("expected_types[%s]: %w", column, err)
		}
		rules.ExpectedTypes[column] = kind
	}

	for column, values := range doc.AllowedValues {
		if len(values) == 0 {
			return fmt.Errorf("allowed_values[%s] is empty", column)
		}
		rules.AllowedValues[column] = values
	}

	if doc.Tolerance != nil {
		if *doc.Tolerance < 0 {
			return fmt.Errorf("tolerance must not be negative")
		}
		if math.IsInf(*doc.Tolerance, 0) || math.IsNaN(*doc.Tolerance) {
			return fmt.Errorf("tolerance must be finite")
		}
		rules.Tolerance = *doc.Tolerance
	}

	if len(doc.DateLayouts) > 0 {
		rules.DateLayouts = doc.DateLayouts
	}

	if doc.ExampleLimit < 0 {
		return fmt.Errorf("example_limit must not be negative")
	}
	if doc.ExampleLimit > 0 {
		rules.ExampleLimit = doc.ExampleLimit
	}

	return nil
}

// RulesToDocument converts rules into their YAML form.
func RulesToDocument(rules validation.Rules) RulesDocument {
	types := make(map[string]string, len(rules.ExpectedTypes))
	for column, kind := range rules.ExpectedTypes {
		types[column] = string(kind)
	}
	tolerance := rules.Tolerance
	return RulesDocument{
		RequiredColumns: rules.RequiredColumns,
		ExpectedTypes:   types,
		AllowedValues:   rules.AllowedValues,
		Tolerance:       &tolerance,
		DateLayouts:     rules.DateLayouts,
		ExampleLimit:    rules.Limit(),
	}
}

// MarshalRules renders rules as YAML. Map keys are emitted in sorted order
// by yaml.v3, so the output is stable.
func MarshalRules(rules validation.Rules) ([]byte, error) {
	out, err := yaml.Marshal(RulesToDocument(rules))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal rules: %w", err)
	}
	return out, nil
}

// AllowedColumns returns the columns with allowed-value sets, sorted.
func AllowedColumns(rules validation.Rules) []string {
	columns := make([]string, 0, len(rules.AllowedValues))
	for column := range rules.AllowedValues {
		columns = append(columns, column)
	}
	sort.Strings(columns)
	return columns
}
