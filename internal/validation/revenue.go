package validation

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/sales-validator/internal/table"
)

// Scratch column names for the revenue candidates.
const (
	ScratchRevenueF1 = "_revenue_f1"
	ScratchRevenueF2 = "_revenue_f2"
	ScratchRevenueF3 = "_revenue_f3"
)

// CheckRevenue reconciles Revenue against three candidate formulas:
//
//	F1 = Units Sold * Price
//	F2 = Units Sold * Price * (1 - Discount)
//	F3 = Units Sold * Price * Discount
//
// A row passes when |Revenue - Fi| <= tolerance for at least one candidate.
// Arithmetic is decimal so that a difference of exactly the tolerance passes.
// A row with a missing or non-finite operand fails.
//
// The candidates are attached to the table as scratch columns. A data column
// already carrying one of those names is reported as a schema failure.
func CheckRevenue(t *table.Table, tolerance float64, limit int) []*Error {
	if limit <= 0 {
		limit = DefaultExampleLimit
	}

	var missing []string
	for _, name := range []string{table.ColRevenue, table.ColUnitsSold, table.ColPrice, table.ColDiscount} {
		if !t.Has(name) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		e := newError(ErrMissingColumns,
			fmt.Sprintf("Revenue validation failed: missing required columns %s", strings.Join(missing, ", ")),
			missing...)
		e.Count = len(missing)
		return []*Error{e}
	}

	revenue, _ := t.Column(table.ColRevenue)
	units, _ := t.Column(table.ColUnitsSold)
	price, _ := t.Column(table.ColPrice)
	discount, _ := t.Column(table.ColDiscount)

	tol := decimal.NewFromFloat(tolerance)
	one := decimal.NewFromInt(1)

	n := t.Len()
	f1 := make([]any, n)
	f2 := make([]any, n)
	f3 := make([]any, n)

	var failed []RevenueRow
	var rows []int
	var examples []Example

	for i := 0; i < n; i++ {
		us, usOK := finite(units.Float(i))
		p, pOK := finite(price.Float(i))
		d, dOK := finite(discount.Float(i))
		r, rOK := finite(revenue.Float(i))

		var candidates []decimal.Decimal
		var row RevenueRow
		row.Row = i
		if rOK {
			row.Revenue = floatPtr(r)
		}

		if usOK && pOK {
			gross := decimal.NewFromFloat(us).Mul(decimal.NewFromFloat(p))
			candidates = append(candidates, gross)
			f1[i] = gross.InexactFloat64()
			row.F1 = floatPtr(gross.InexactFloat64())

			if dOK {
				disc := decimal.NewFromFloat(d)
				net := gross.Mul(one.Sub(disc))
				amount := gross.Mul(disc)
				candidates = append(candidates, net, amount)
				f2[i] = net.InexactFloat64()
				f3[i] = amount.InexactFloat64()
				row.F2 = floatPtr(net.InexactFloat64())
				row.F3 = floatPtr(amount.InexactFloat64())
			}
		}

		if rOK && matchesAny(decimal.NewFromFloat(r), candidates, tol) {
			continue
		}

		rows = append(rows, i)
		failed = append(failed, row)
		if len(examples) < limit {
			examples = append(examples, Example{Row: i, Value: valueText(revenue.Values[i])})
		}
	}

	scratch := []struct {
		name   string
		values []any
	}{
		{ScratchRevenueF1, f1},
		{ScratchRevenueF2, f2},
		{ScratchRevenueF3, f3},
	}
	var errs []*Error
	for _, s := range scratch {
		// A data column with the same name keeps its values.
		if err := t.AddScratch(s.name, table.KindFloat, s.values); err != nil {
			errs = append(errs, newError(ErrSchema,
				fmt.Sprintf("Revenue validation failed: column '%s' is reserved for revenue candidates.", s.name),
				s.name))
		}
	}

	if len(rows) == 0 {
		return errs
	}

	e := newError(ErrRevenueMismatch,
		fmt.Sprintf("Revenue validation failed: %d rows do not match any valid formula", len(rows)),
		table.ColRevenue)
	e.Rows = rows
	e.Examples = examples
	e.Revenue = failed
	e.Count = len(rows)
	return append(errs, e)
}

// finite drops NaN and infinite values, which decimal cannot represent.
func finite(v float64, ok bool) (float64, bool) {
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func matchesAny(actual decimal.Decimal, candidates []decimal.Decimal, tol decimal.Decimal) bool {
	for _, c := range candidates {
		if actual.Sub(c).Abs().LessThanOrEqual(tol) {
			return true
		}
	}
	return false
}

func floatPtr(v float64) *float64 {
	return &v
}
