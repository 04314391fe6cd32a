package validation

import (
	"github.com/ginjaninja78/sales-validator/internal/table"
)

// Rules is the rule data injected into the checks. Callers treat a Rules
// value as read-only once the pipeline is built.
type Rules struct {
	// RequiredColumns must all be present and fully populated.
	RequiredColumns []string

	// ExpectedTypes maps column names to their expected runtime type.
	ExpectedTypes map[string]table.Kind

	// AllowedValues maps categorical columns to their closed value sets.
	AllowedValues map[string][]string

	// Tolerance is the absolute difference accepted when reconciling revenue.
	Tolerance float64

	// DateLayouts are tried in order when coercing the date column.
	DateLayouts []string

	// ExampleLimit caps the example rows attached to a failure.
	ExampleLimit int
}

// Default rule constants.
const (
	DefaultTolerance    = 0.01
	DefaultExampleLimit = 10
)

// DefaultDateLayouts are accepted by the date coercion step. Month-first
// forms are tried before day-first forms.
var DefaultDateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"01/02/2006",
	"1/2/2006",
	"01/02/2006 15:04",
	"01/02/2006 15:04:05",
	"02/01/2006",
	"2006/01/02",
	"02-Jan-2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"20060102",
}

// DefaultRules returns the rules for the supplement sales dataset. Each call
// returns fresh slices and maps.
func DefaultRules() Rules {
	return Rules{
		RequiredColumns: []string{
			table.ColDate,
			table.ColProductName,
			table.ColCategory,
			table.ColUnitsSold,
			table.ColPrice,
			table.ColRevenue,
			table.ColDiscount,
			table.ColUnitsReturned,
			table.ColLocation,
			table.ColPlatform,
		},
		ExpectedTypes: map[string]table.Kind{
			table.ColDate:          table.KindDate,
			table.ColProductName:   table.KindString,
			table.ColCategory:      table.KindString,
			table.ColUnitsSold:     table.KindInt,
			table.ColPrice:         table.KindFloat,
			table.ColRevenue:       table.KindFloat,
			table.ColDiscount:      table.KindFloat,
			table.ColUnitsReturned: table.KindInt,
			table.ColLocation:      table.KindString,
			table.ColPlatform:      table.KindString,
		},
		AllowedValues: map[string][]string{
			table.ColProductName: {
				"Whey Protein", "Vitamin C", "Fish Oil", "Multivitamin",
				"Pre-Workout", "BCAA", "Creatine", "Zinc",
				"Collagen Peptides", "Magnesium", "Ashwagandha", "Melatonin",
				"Biotin", "Green Tea Extract", "Iron Supplement", "Electrolyte Powder",
			},
			table.ColCategory: {
				"Vitamin", "Mineral", "Protein", "Performance", "Omega",
				"Amino Acid", "Herbal", "Sleep Aid", "Fat Burner", "Hydration",
			},
			table.ColLocation: {"Canada", "UK", "USA"},
			table.ColPlatform: {"iHerb", "Amazon", "Walmart"},
		},
		Tolerance:    DefaultTolerance,
		DateLayouts:  append([]string(nil), DefaultDateLayouts...),
		ExampleLimit: DefaultExampleLimit,
	}
}

// Limit returns the example limit, falling back to the default.
func (r Rules) Limit() int {
	if r.ExampleLimit <= 0 {
		return DefaultExampleLimit
	}
	return r.ExampleLimit
}
