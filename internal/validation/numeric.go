package validation

import (
	"fmt"
	"math"

	"github.com/ginjaninja78/sales-validator/internal/table"
)

// =============================================================================
// NUMERIC COLUMN CHECKS
// =============================================================================
//
// Each check below runs a fixed sequence of conditions and stops at the first
// one that fails, so a single call yields at most one failure.
//
// =============================================================================

// numericCheck is one condition of a numeric column check.
type numericCheck struct {
	kind    error
	message string
	bad     func(v float64) bool
}

// CheckUnitsSold requires a complete, integral, non-negative Units Sold column.
func CheckUnitsSold(t *table.Table, limit int) []*Error {
	return checkNumericColumn(t, table.ColUnitsSold, "Units Sold validation failed", limit,
		numericCheck{ErrDtype, "non-integer values found.", notIntegral},
		numericCheck{ErrRange, "negative values found.", func(v float64) bool { return v < 0 }},
	)
}

// CheckUnitsReturned requires a complete, integral, non-negative Units
// Returned column that never exceeds Units Sold on the same row.
func CheckUnitsReturned(t *table.Table, limit int) []*Error {
	const prefix = "Units Returned validation failed"

	if !t.Has(table.ColUnitsReturned) {
		return []*Error{columnMissing(prefix, table.ColUnitsReturned)}
	}
	sold, ok := t.Column(table.ColUnitsSold)
	if !ok {
		e := newError(ErrColumnMissing,
			fmt.Sprintf("%s: required column '%s' is missing.", prefix, table.ColUnitsSold),
			table.ColUnitsSold)
		return []*Error{e}
	}

	if errs := checkNumericColumn(t, table.ColUnitsReturned, prefix, limit,
		numericCheck{ErrDtype, "non-integer values found.", notIntegral},
		numericCheck{ErrRange, "negative values found.", func(v float64) bool { return v < 0 }},
	); len(errs) > 0 {
		return errs
	}

	returned, _ := t.Column(table.ColUnitsReturned)
	var examples []Example
	var rows []int
	for i := range returned.Values {
		r, rok := returned.Float(i)
		s, sok := sold.Float(i)
		if !rok || !sok || r <= s {
			continue
		}
		rows = append(rows, i)
		if len(examples) < limit {
			examples = append(examples, Example{
				Row:   i,
				Value: fmt.Sprintf("returned=%s sold=%s", valueText(returned.Values[i]), valueText(sold.Values[i])),
			})
		}
	}
	if len(rows) == 0 {
		return nil
	}

	e := newError(ErrRange, prefix+": returned units exceed sold units.",
		table.ColUnitsReturned, table.ColUnitsSold)
	e.Examples = examples
	e.Rows = rows
	e.Count = len(rows)
	return []*Error{e}
}

// CheckPrice requires a complete, numeric, strictly positive Price column.
func CheckPrice(t *table.Table, limit int) []*Error {
	return checkNumericColumn(t, table.ColPrice, "Price validation failed", limit,
		numericCheck{ErrRange, "zero or negative values found.", func(v float64) bool { return !(v > 0) }},
	)
}

// CheckDiscount requires a complete, numeric Discount column within [0, 1].
func CheckDiscount(t *table.Table, limit int) []*Error {
	return checkNumericColumn(t, table.ColDiscount, "Discount validation failed", limit,
		numericCheck{ErrRange, "values outside range [0, 1] found.", func(v float64) bool { return !(v >= 0 && v <= 1) }},
	)
}

// checkNumericColumn runs presence, completeness, numeric type and finiteness
// checks, followed by the given value conditions in order.
func checkNumericColumn(t *table.Table, column, prefix string, limit int, checks ...numericCheck) []*Error {
	if limit <= 0 {
		limit = DefaultExampleLimit
	}

	col, ok := t.Column(column)
	if !ok {
		return []*Error{columnMissing(prefix, column)}
	}

	if missing := col.MissingRows(); len(missing) > 0 {
		e := newError(ErrMissingValue, prefix+": missing values found.", column)
		e.Examples = examplesAt(col, missing, limit)
		e.Rows = missing
		e.Count = len(missing)
		return []*Error{e}
	}

	if !col.Kind.IsNumeric() {
		e := newError(ErrDtype, prefix+": non-numeric values found.", column)
		var rows []int
		for i := range col.Values {
			if _, ok := col.Float(i); !ok {
				rows = append(rows, i)
			}
		}
		e.Examples = examplesAt(col, rows, limit)
		e.Rows = rows
		e.Count = len(rows)
		return []*Error{e}
	}

	var nonFinite []int
	for i := range col.Values {
		if v, _ := col.Float(i); math.IsInf(v, 0) || math.IsNaN(v) {
			nonFinite = append(nonFinite, i)
		}
	}
	if len(nonFinite) > 0 {
		e := newError(ErrRange, prefix+": non-finite values found.", column)
		e.Examples = examplesAt(col, nonFinite, limit)
		e.Rows = nonFinite
		e.Count = len(nonFinite)
		return []*Error{e}
	}

	for _, check := range checks {
		var rows []int
		for i := range col.Values {
			v, _ := col.Float(i)
			if check.bad(v) {
				rows = append(rows, i)
			}
		}
		if len(rows) == 0 {
			continue
		}
		e := newError(check.kind, prefix+": "+check.message, column)
		e.Examples = examplesAt(col, rows, limit)
		e.Rows = rows
		e.Count = len(rows)
		return []*Error{e}
	}

	return nil
}

func columnMissing(prefix, column string) *Error {
	return newError(ErrColumnMissing, fmt.Sprintf("%s: column '%s' is missing.", prefix, column), column)
}

func examplesAt(col *table.Column, rows []int, limit int) []Example {
	n := len(rows)
	if n > limit {
		n = limit
	}
	examples := make([]Example, n)
	for i := 0; i < n; i++ {
		examples[i] = Example{Row: rows[i], Value: valueText(col.Values[rows[i]])}
	}
	return examples
}

func notIntegral(v float64) bool {
	return math.IsInf(v, 0) || v != math.Trunc(v)
}
