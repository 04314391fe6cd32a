// =============================================================================
// Sales Validator - Validation Engine
// =============================================================================
//
// This module provides the rule checks applied to a transaction table before
// it is allowed to be written as cleaned output:
//   - Schema (required columns present)
//   - Date coercion
//   - Column types
//   - Allowed values for categorical columns
//   - Numeric rules for units, price and discount
//   - Revenue reconciliation
//   - Completeness of required columns
//
// ERROR HANDLING:
//   - Every check returns a list of failures; an empty list means the check
//     passed. The caller decides whether to stop or continue.
//   - Within a check, all offending columns/values/rows are aggregated into
//     one failure where that is feasible.
//   - Each failure carries a Kind sentinel usable with errors.Is.
//
// RULE DATA:
//   - Rule data (allowed values, expected types, tolerance) is passed in by
//     the caller; see Rules and DefaultRules.
//
// =============================================================================

package validation

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// =============================================================================
// ERROR KINDS
// =============================================================================

// Failure kinds. Compare with errors.Is.
var (
	ErrSchema          = errors.New("schema error")
	ErrConversion      = errors.New("conversion error")
	ErrDtype           = errors.New("dtype error")
	ErrColumnMissing   = errors.New("column missing")
	ErrMissingColumns  = errors.New("missing columns")
	ErrMissingValue    = errors.New("missing value")
	ErrInvalidValue    = errors.New("invalid value")
	ErrRange           = errors.New("range error")
	ErrRevenueMismatch = errors.New("revenue mismatch")
	ErrCompleteness    = errors.New("completeness error")
)

// KindName returns a short, stable name for a failure kind.
func KindName(kind error) string {
	switch kind {
	case ErrSchema:
		return "SchemaError"
	case ErrConversion:
		return "ConversionError"
	case ErrDtype:
		return "DtypeError"
	case ErrColumnMissing:
		return "ColumnMissingError"
	case ErrMissingColumns:
		return "MissingColumnsError"
	case ErrMissingValue:
		return "MissingValueError"
	case ErrInvalidValue:
		return "InvalidValueError"
	case ErrRange:
		return "RangeError"
	case ErrRevenueMismatch:
		return "RevenueMismatchError"
	case ErrCompleteness:
		return "CompletenessError"
	default:
		return "Error"
	}
}

// =============================================================================
// VALIDATION ERROR
// =============================================================================

// Example is one offending row.
type Example struct {
	// Row is the zero-based data row index.
	Row int

	// Value is the offending value as text. Missing values read "<missing>".
	Value string
}

// RevenueRow holds the candidate revenues computed for one failing row.
// A candidate is nil when an operand was missing or not numeric.
type RevenueRow struct {
	Row     int
	Revenue *float64
	F1      *float64
	F2      *float64
	F3      *float64
}

// Error is a single rule failure.
type Error struct {
	// Kind is one of the Err* sentinels.
	Kind error

	// Stage is the pipeline stage that produced the failure. Checks leave it
	// empty; the pipeline fills it in.
	Stage string

	// Columns names the offending column(s).
	Columns []string

	// Message is the human-readable description.
	Message string

	// Invalid lists distinct offending values (or per-column details).
	Invalid []string

	// Examples holds up to the configured limit of offending rows.
	Examples []Example

	// Count is the total number of offending rows (or columns).
	Count int

	// Rows lists every failing row index where the check reports them.
	Rows []int

	// Revenue holds candidate values for failing rows of the revenue check.
	Revenue []RevenueRow
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Stage == "" {
		return e.Message
	}
	return fmt.Sprintf("[%s] %s", e.Stage, e.Message)
}

// Unwrap exposes Kind to errors.Is.
func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, message string, columns ...string) *Error {
	return &Error{Kind: kind, Message: message, Columns: columns}
}

// =============================================================================
// ERROR FORMATTING
// =============================================================================

// FormatErrors formats validation failures for display or logging.
func FormatErrors(errs []*Error) string {
	if len(errs) == 0 {
		return "No validation errors."
	}

	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("Validation failed with %d error(s):\n\n", len(errs)))

	for i, err := range errs {
		builder.WriteString(fmt.Sprintf("%d. %s: %s\n", i+1, KindName(err.Kind), err.Error()))

		if len(err.Invalid) > 0 {
			builder.WriteString(fmt.Sprintf("   Invalid values: %s\n", strings.Join(err.Invalid, ", ")))
		}

		if len(err.Examples) > 0 {
			builder.WriteString("   Example rows:\n")
			for _, ex := range err.Examples {
				builder.WriteString(fmt.Sprintf("     row %d: %q\n", ex.Row, ex.Value))
			}
		}
	}

	return builder.String()
}

// Join combines failures into one error. It returns nil for an empty list.
func Join(errs []*Error) error {
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	}
	out := make([]error, len(errs))
	for i, e := range errs {
		out[i] = e
	}
	return errors.Join(out...)
}

// =============================================================================
// HELPERS
// =============================================================================

const missingText = "<missing>"

// sortedKeys returns the keys of a string set in sorted order.
func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
