package validation

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ginjaninja78/sales-validator/internal/table"
)

// =============================================================================
// SCHEMA
// =============================================================================

// CheckSchema fails when any required column is absent. Missing columns are
// reported in the order they appear in required.
func CheckSchema(t *table.Table, required []string) []*Error {
	var missing []string
	for _, name := range required {
		if !t.Has(name) {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	e := newError(ErrSchema,
		fmt.Sprintf("Schema validation failed. Missing required columns: %s", strings.Join(missing, ", ")),
		missing...)
	e.Count = len(missing)
	return []*Error{e}
}

// =============================================================================
// DATE COERCION
// =============================================================================

// NormalizeDates converts the named column to dates in place. Values that
// cannot be parsed with any of the layouts become missing and are reported;
// nothing is dropped or substituted.
//
// The first value parsed with a numeric month-first or day-first layout fixes
// that order for the column. Later values are only tried against layouts of
// the same order, so 01/02/2024 and 13/02/2024 cannot both parse.
//
// PARAMETERS:
//   - t: The working copy. Its column is replaced even when the check fails.
//   - column: The date column name.
//   - layouts: time.Parse layouts, tried in order.
//   - limit: Maximum number of example rows to report.
func NormalizeDates(t *table.Table, column string, layouts []string, limit int) []*Error {
	col, ok := t.Column(column)
	if !ok {
		return []*Error{newError(ErrColumnMissing,
			fmt.Sprintf("Date conversion failed: column '%s' not found.", column), column)}
	}

	values := make([]any, len(col.Values))
	var bad []Example
	count := 0
	order := orderAny

	for i, v := range col.Values {
		parsed, used, ok := coerceDate(v, layouts, order)
		if ok {
			values[i] = parsed
			if order == orderAny {
				order = used
			}
			continue
		}
		count++
		if len(bad) < limit {
			bad = append(bad, Example{Row: i, Value: valueText(v)})
		}
	}

	col.Values = values
	col.Kind = table.KindDate

	if count == 0 {
		return nil
	}

	e := newError(ErrConversion, "Date conversion failed: invalid or missing date values found.", column)
	e.Examples = bad
	e.Count = count
	return []*Error{e}
}

// dateOrder is the day and month order of a numeric date layout.
type dateOrder int

const (
	orderAny dateOrder = iota
	orderMonthFirst
	orderDayFirst
)

var (
	monthFirstLayout = regexp.MustCompile(`^(01|1)[/.-](02|2|_2)[/.-]`)
	dayFirstLayout   = regexp.MustCompile(`^(02|2|_2)[/.-](01|1)[/.-]`)
)

func layoutOrder(layout string) dateOrder {
	switch {
	case monthFirstLayout.MatchString(layout):
		return orderMonthFirst
	case dayFirstLayout.MatchString(layout):
		return orderDayFirst
	default:
		return orderAny
	}
}

// ParseDate parses s with the first matching layout.
func ParseDate(s string, layouts []string) (time.Time, bool) {
	t, _, ok := parseDate(s, layouts, orderAny)
	return t, ok
}

// parseDate skips layouts whose order conflicts with order.
func parseDate(s string, layouts []string, order dateOrder) (time.Time, dateOrder, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, orderAny, false
	}
	for _, layout := range layouts {
		lo := layoutOrder(layout)
		if order != orderAny && lo != orderAny && lo != order {
			continue
		}
		if t, err := time.Parse(layout, s); err == nil {
			return t, lo, true
		}
	}
	return time.Time{}, orderAny, false
}

func coerceDate(v any, layouts []string, order dateOrder) (time.Time, dateOrder, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, orderAny, true
	case string:
		return parseDate(x, layouts, order)
	case int64:
		return parseDate(strconv.FormatInt(x, 10), layouts, order)
	case float64:
		if x != math.Trunc(x) || math.IsInf(x, 0) {
			return time.Time{}, orderAny, false
		}
		return parseDate(strconv.FormatInt(int64(x), 10), layouts, order)
	default:
		return time.Time{}, orderAny, false
	}
}

// =============================================================================
// COLUMN TYPES
// =============================================================================

// CheckDtypes compares every present column with its expected type and
// reports all mismatches in one failure. Columns absent from the table or
// from the expected map are skipped.
func CheckDtypes(t *table.Table, expected map[string]table.Kind) []*Error {
	var columns, details []string

	for _, col := range t.Columns() {
		if col.Scratch() {
			continue
		}
		want, ok := expected[col.Name]
		if !ok || col.Kind == want {
			continue
		}
		columns = append(columns, col.Name)
		details = append(details, fmt.Sprintf("%s: expected %s, got %s", col.Name, want, col.Kind))
	}

	if len(columns) == 0 {
		return nil
	}

	e := newError(ErrDtype,
		fmt.Sprintf("Dtype validation failed: %s", strings.Join(details, "; ")),
		columns...)
	e.Invalid = details
	e.Count = len(columns)
	return []*Error{e}
}

// valueText renders a cell for reports.
func valueText(v any) string {
	switch x := v.(type) {
	case nil:
		return missingText
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		return x.Format(time.RFC3339)
	default:
		return fmt.Sprint(x)
	}
}
