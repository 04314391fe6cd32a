package validation

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ginjaninja78/sales-validator/internal/table"
)

func mustTable(t *testing.T, header []string, rows ...[]string) *table.Table {
	t.Helper()
	tbl, err := table.FromStrings(header, rows)
	if err != nil {
		t.Fatalf("FromStrings: %v", err)
	}
	return tbl
}

func expectKind(t *testing.T, errs []*Error, kind error) *Error {
	t.Helper()
	if len(errs) != 1 {
		t.Fatalf("got %d errors, want 1: %v", len(errs), errs)
	}
	if !errors.Is(errs[0], kind) {
		t.Fatalf("error kind = %v, want %v (%s)", errs[0].Kind, kind, errs[0].Message)
	}
	return errs[0]
}

func TestCheckSchema(t *testing.T) {
	tbl := mustTable(t, []string{"Date", "Price"}, []string{"2024-01-01", "1.0"})

	if errs := CheckSchema(tbl, []string{"Date", "Price"}); len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	e := expectKind(t, CheckSchema(tbl, []string{"Date", "Revenue", "Platform"}), ErrSchema)
	if len(e.Columns) != 2 || e.Columns[0] != "Revenue" || e.Columns[1] != "Platform" {
		t.Errorf("columns = %v", e.Columns)
	}
	if !strings.Contains(e.Message, "Revenue, Platform") {
		t.Errorf("message = %q", e.Message)
	}
}

func TestNormalizeDates(t *testing.T) {
	tests := []struct {
		name    string
		values  []string
		wantErr bool
		count   int
	}{
		{"iso", []string{"2024-03-04", "2024-03-05"}, false, 0},
		{"mixed layouts", []string{"2024-03-04", "03/05/2024", "Mar 6, 2024"}, false, 0},
		{"unparseable", []string{"2024-03-04", "not a date"}, true, 1},
		{"missing", []string{"2024-03-04", ""}, true, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := make([][]string, len(tt.values))
			for i, v := range tt.values {
				rows[i] = []string{v}
			}
			tbl := mustTable(t, []string{table.ColDate}, rows...)

			errs := NormalizeDates(tbl, table.ColDate, DefaultDateLayouts, 10)
			col, _ := tbl.Column(table.ColDate)
			if col.Kind != table.KindDate {
				t.Errorf("kind = %s, want datetime", col.Kind)
			}
			if len(col.Values) != len(tt.values) {
				t.Errorf("rows dropped: %d", len(col.Values))
			}

			if !tt.wantErr {
				if len(errs) != 0 {
					t.Fatalf("unexpected errors: %v", errs)
				}
				return
			}
			e := expectKind(t, errs, ErrConversion)
			if e.Count != tt.count {
				t.Errorf("count = %d, want %d", e.Count, tt.count)
			}
		})
	}
}

func TestNormalizeDatesMonthFirst(t *testing.T) {
	tbl := mustTable(t, []string{table.ColDate}, []string{"03/05/2024"})
	if errs := NormalizeDates(tbl, table.ColDate, DefaultDateLayouts, 10); len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	col, _ := tbl.Column(table.ColDate)
	got, _ := col.Time(0)
	want := time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("parsed %v, want %v", got, want)
	}
}

func TestNormalizeDatesKeepsDayMonthOrder(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		count  int
		row    int
		want   time.Time
	}{
		{"month first", []string{"01/02/2024", "13/02/2024", "02/03/2024"}, 1, 2, time.Date(2024, time.February, 3, 0, 0, 0, 0, time.UTC)},
		{"day first", []string{"13/02/2024", "01/02/2024"}, 0, 1, time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)},
		{"iso does not fix order", []string{"2024-02-13", "13/02/2024", "01/02/2024"}, 0, 2, time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := make([][]string, len(tt.values))
			for i, v := range tt.values {
				rows[i] = []string{v}
			}
			tbl := mustTable(t, []string{table.ColDate}, rows...)

			errs := NormalizeDates(tbl, table.ColDate, DefaultDateLayouts, 10)
			if tt.count == 0 && len(errs) != 0 {
				t.Fatalf("unexpected errors: %v", errs)
			}
			if tt.count > 0 {
				e := expectKind(t, errs, ErrConversion)
				if e.Count != tt.count || e.Examples[0].Value != "13/02/2024" {
					t.Errorf("count = %d examples = %v", e.Count, e.Examples)
				}
			}

			col, _ := tbl.Column(table.ColDate)
			got, ok := col.Time(tt.row)
			if !ok || !got.Equal(tt.want) {
				t.Errorf("row %d parsed %v, want %v", tt.row, got, tt.want)
			}
		})
	}
}

func TestNormalizeDatesColumnMissing(t *testing.T) {
	tbl := mustTable(t, []string{"x"}, []string{"1"})
	expectKind(t, NormalizeDates(tbl, table.ColDate, DefaultDateLayouts, 10), ErrColumnMissing)
}

func TestCheckDtypesAggregates(t *testing.T) {
	tbl := mustTable(t,
		[]string{table.ColUnitsSold, table.ColPrice, table.ColLocation},
		[]string{"1.5", "abc", "USA"},
	)
	expected := map[string]table.Kind{
		table.ColUnitsSold: table.KindInt,
		table.ColPrice:     table.KindFloat,
		table.ColLocation:  table.KindString,
		table.ColRevenue:   table.KindFloat,
	}

	e := expectKind(t, CheckDtypes(tbl, expected), ErrDtype)
	if len(e.Columns) != 2 {
		t.Fatalf("columns = %v, want Units Sold and Price", e.Columns)
	}
	if !strings.Contains(e.Message, "Units Sold: expected int64, got float64") {
		t.Errorf("message = %q", e.Message)
	}
	if !strings.Contains(e.Message, "Price: expected float64, got string") {
		t.Errorf("message = %q", e.Message)
	}
}

func TestCheckAllowedValues(t *testing.T) {
	allowed := NewValueSet("iHerb", "Amazon", "Walmart")
	opts := AllowedOptions{Normalize: true}

	tests := []struct {
		name   string
		values []string
		kind   error
	}{
		{"trimmed passes", []string{" Amazon ", "Walmart"}, nil},
		{"case mismatch", []string{"amazon", "Walmart"}, ErrInvalidValue},
		{"blank", []string{"Amazon", ""}, ErrMissingValue},
		{"na marker", []string{"Amazon", "N/A"}, ErrMissingValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := make([][]string, len(tt.values))
			for i, v := range tt.values {
				rows[i] = []string{v}
			}
			tbl := mustTable(t, []string{table.ColPlatform}, rows...)
			errs := CheckAllowedValues(tbl, table.ColPlatform, allowed, opts)
			if tt.kind == nil {
				if len(errs) != 0 {
					t.Fatalf("unexpected errors: %v", errs)
				}
				return
			}
			expectKind(t, errs, tt.kind)
		})
	}
}

func TestCheckAllowedValuesReportsDistinctInvalid(t *testing.T) {
	tbl := mustTable(t, []string{table.ColLocation},
		[]string{"Mars"}, []string{"USA"}, []string{"Mars"}, []string{"Venus"})

	e := expectKind(t, CheckAllowedValues(tbl, table.ColLocation, NewValueSet("USA", "UK", "Canada"), AllowedOptions{Normalize: true}), ErrInvalidValue)
	if len(e.Invalid) != 2 || e.Invalid[0] != "Mars" || e.Invalid[1] != "Venus" {
		t.Errorf("invalid = %v", e.Invalid)
	}
	if e.Count != 3 || len(e.Examples) != 3 {
		t.Errorf("count = %d, examples = %d", e.Count, len(e.Examples))
	}
	if e.Examples[1].Row != 2 {
		t.Errorf("example row = %d, want 2", e.Examples[1].Row)
	}
}

func TestCheckAllowedValuesExampleLimit(t *testing.T) {
	rows := make([][]string, 25)
	for i := range rows {
		rows[i] = []string{"bad"}
	}
	tbl := mustTable(t, []string{table.ColCategory}, rows...)
	e := expectKind(t, CheckAllowedValues(tbl, table.ColCategory, NewValueSet("Vitamin"), AllowedOptions{}), ErrInvalidValue)
	if len(e.Examples) != DefaultExampleLimit {
		t.Errorf("examples = %d, want %d", len(e.Examples), DefaultExampleLimit)
	}
	if e.Count != 25 {
		t.Errorf("count = %d, want 25", e.Count)
	}
}

func TestCheckAllowedValuesColumnMissing(t *testing.T) {
	tbl := mustTable(t, []string{"x"}, []string{"1"})
	expectKind(t, CheckAllowedValues(tbl, table.ColCategory, NewValueSet("Vitamin"), AllowedOptions{}), ErrColumnMissing)
}

func TestCheckUnitsSold(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		kind   error
		msg    string
	}{
		{"valid", []string{"0", "10"}, nil, ""},
		{"integral floats", []string{"1.0", "2.0"}, nil, ""},
		{"fractional", []string{"1.5", "2"}, ErrDtype, "non-integer"},
		{"negative", []string{"-1", "2"}, ErrRange, "negative"},
		{"missing", []string{"", "2"}, ErrMissingValue, "missing"},
		{"text", []string{"ten", "2"}, ErrDtype, "non-numeric"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := make([][]string, len(tt.values))
			for i, v := range tt.values {
				rows[i] = []string{v}
			}
			tbl := mustTable(t, []string{table.ColUnitsSold}, rows...)
			errs := CheckUnitsSold(tbl, 10)
			if tt.kind == nil {
				if len(errs) != 0 {
					t.Fatalf("unexpected errors: %v", errs)
				}
				return
			}
			e := expectKind(t, errs, tt.kind)
			if !strings.Contains(e.Message, tt.msg) {
				t.Errorf("message = %q, want %q", e.Message, tt.msg)
			}
		})
	}
}

func TestCheckUnitsReturned(t *testing.T) {
	header := []string{table.ColUnitsSold, table.ColUnitsReturned}

	if errs := CheckUnitsReturned(mustTable(t, header, []string{"5", "5"}, []string{"3", "0"}), 10); len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	e := expectKind(t, CheckUnitsReturned(mustTable(t, header, []string{"5", "1"}, []string{"3", "4"}), 10), ErrRange)
	if len(e.Rows) != 1 || e.Rows[0] != 1 {
		t.Errorf("rows = %v, want [1]", e.Rows)
	}
	if !strings.Contains(e.Message, "exceed") {
		t.Errorf("message = %q", e.Message)
	}

	expectKind(t, CheckUnitsReturned(mustTable(t, []string{table.ColUnitsReturned}, []string{"1"}), 10), ErrColumnMissing)
	expectKind(t, CheckUnitsReturned(mustTable(t, []string{table.ColUnitsSold}, []string{"1"}), 10), ErrColumnMissing)
}

func TestCheckPrice(t *testing.T) {
	header := []string{table.ColPrice}
	if errs := CheckPrice(mustTable(t, header, []string{"0.01"}, []string{"19.99"}), 10); len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	expectKind(t, CheckPrice(mustTable(t, header, []string{"0"}), 10), ErrRange)
	expectKind(t, CheckPrice(mustTable(t, header, []string{"-3.5"}), 10), ErrRange)
	expectKind(t, CheckPrice(mustTable(t, header, []string{"1.0"}, []string{""}), 10), ErrMissingValue)
	expectKind(t, CheckPrice(mustTable(t, header, []string{"free"}), 10), ErrDtype)

	for _, v := range []string{"inf", "+Inf", "Infinity"} {
		e := expectKind(t, CheckPrice(mustTable(t, header, []string{"1.0"}, []string{v}), 10), ErrRange)
		if !strings.Contains(e.Message, "non-finite") || e.Rows[0] != 1 {
			t.Errorf("%s: message = %q rows = %v", v, e.Message, e.Rows)
		}
	}
}

func TestCheckDiscountBoundaries(t *testing.T) {
	tests := []struct {
		value string
		ok    bool
	}{
		{"0", true},
		{"1", true},
		{"0.5", true},
		{"1.0001", false},
		{"-0.0001", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			tbl := mustTable(t, []string{table.ColDiscount}, []string{tt.value})
			errs := CheckDiscount(tbl, 10)
			if tt.ok && len(errs) != 0 {
				t.Fatalf("unexpected errors: %v", errs)
			}
			if !tt.ok {
				expectKind(t, errs, ErrRange)
			}
		})
	}
}

func TestCheckRevenue(t *testing.T) {
	header := []string{table.ColUnitsSold, table.ColPrice, table.ColDiscount, table.ColRevenue}

	tests := []struct {
		name    string
		revenue string
		ok      bool
	}{
		{"gross", "20.0", true},
		{"discounted", "18.0", true},
		{"discount amount", "2.0", true},
		{"within tolerance", "20.01", true},
		{"outside tolerance", "20.02", false},
		{"unrelated", "5.0", false},
		{"tenth of discount amount", "0.2", false},
		{"missing", "", false},
		{"infinite", "Infinity", false},
		{"negative infinite", "-inf", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl := mustTable(t, header,
				[]string{"10", "2.0", "0.1", tt.revenue},
				[]string{"1", "5.0", "0.0", "5.0"},
			)
			errs := CheckRevenue(tbl, DefaultTolerance, 10)
			if tt.ok {
				if len(errs) != 0 {
					t.Fatalf("unexpected errors: %v", errs)
				}
			} else {
				e := expectKind(t, errs, ErrRevenueMismatch)
				if e.Count != 1 || e.Rows[0] != 0 {
					t.Errorf("count = %d rows = %v", e.Count, e.Rows)
				}
				if !strings.Contains(e.Message, "1 rows do not match") {
					t.Errorf("message = %q", e.Message)
				}
			}
			for _, name := range []string{ScratchRevenueF1, ScratchRevenueF2, ScratchRevenueF3} {
				col, ok := tbl.Column(name)
				if !ok || !col.Scratch() {
					t.Errorf("scratch column %s not attached", name)
				}
			}
		})
	}
}

func TestCheckRevenueInfiniteOperand(t *testing.T) {
	header := []string{table.ColUnitsSold, table.ColPrice, table.ColDiscount, table.ColRevenue}
	tbl := mustTable(t, header,
		[]string{"10", "inf", "0.1", "18.0"},
		[]string{"10", "2.0", "0.1", "18.0"},
	)

	e := expectKind(t, CheckRevenue(tbl, DefaultTolerance, 10), ErrRevenueMismatch)
	if e.Count != 1 || e.Rows[0] != 0 {
		t.Fatalf("count = %d rows = %v", e.Count, e.Rows)
	}
	row := e.Revenue[0]
	if row.F1 != nil || row.F2 != nil || row.F3 != nil {
		t.Errorf("candidates computed from an infinite price: %+v", row)
	}
	if row.Revenue == nil || *row.Revenue != 18.0 {
		t.Errorf("revenue = %v", row.Revenue)
	}
}

func TestCheckRevenueReservedColumn(t *testing.T) {
	header := []string{table.ColUnitsSold, table.ColPrice, table.ColDiscount, table.ColRevenue, ScratchRevenueF1}
	tbl := mustTable(t, header, []string{"10", "2.0", "0.1", "20.0", "note"})

	e := expectKind(t, CheckRevenue(tbl, DefaultTolerance, 10), ErrSchema)
	if len(e.Columns) != 1 || e.Columns[0] != ScratchRevenueF1 {
		t.Errorf("columns = %v", e.Columns)
	}
	if !strings.Contains(e.Message, "reserved") {
		t.Errorf("message = %q", e.Message)
	}
	col, _ := tbl.Column(ScratchRevenueF1)
	if col.Scratch() {
		t.Errorf("data column replaced by scratch candidates")
	}
	if s, _ := col.String(0); s != "note" {
		t.Errorf("data column value = %q", s)
	}
}

func TestCheckRevenueMissingColumns(t *testing.T) {
	tbl := mustTable(t, []string{table.ColUnitsSold, table.ColPrice}, []string{"1", "2.0"})
	e := expectKind(t, CheckRevenue(tbl, DefaultTolerance, 10), ErrMissingColumns)
	if len(e.Columns) != 2 {
		t.Errorf("columns = %v", e.Columns)
	}
}

func TestCheckCompleteness(t *testing.T) {
	tbl := mustTable(t, []string{"a", "b"}, []string{"1", ""}, []string{"2", ""})
	if errs := CheckCompleteness(tbl, []string{"a"}); len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	e := expectKind(t, CheckCompleteness(tbl, []string{"a", "b", "c"}), ErrCompleteness)
	if len(e.Columns) != 2 {
		t.Errorf("columns = %v, want [b c]", e.Columns)
	}
	if !strings.Contains(e.Message, "b (2)") {
		t.Errorf("message = %q", e.Message)
	}
}

func TestFormatErrors(t *testing.T) {
	if got := FormatErrors(nil); got != "No validation errors." {
		t.Errorf("FormatErrors(nil) = %q", got)
	}

	e := &Error{
		Kind:     ErrInvalidValue,
		Stage:    "platform",
		Message:  "bad platform",
		Invalid:  []string{"eBay"},
		Examples: []Example{{Row: 3, Value: "eBay"}},
	}
	out := FormatErrors([]*Error{e})
	for _, want := range []string{"InvalidValueError", "[platform] bad platform", "eBay", "row 3"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestJoin(t *testing.T) {
	if Join(nil) != nil {
		t.Errorf("Join(nil) should be nil")
	}
	a := &Error{Kind: ErrRange, Message: "a"}
	b := &Error{Kind: ErrSchema, Message: "b"}
	err := Join([]*Error{a, b})
	if !errors.Is(err, ErrRange) || !errors.Is(err, ErrSchema) {
		t.Errorf("joined error lost kinds: %v", err)
	}
}

func TestDefaultRulesAreIndependent(t *testing.T) {
	a := DefaultRules()
	a.AllowedValues[table.ColLocation][0] = "Mars"
	b := DefaultRules()
	if b.AllowedValues[table.ColLocation][0] != "Canada" {
		t.Errorf("DefaultRules shares state")
	}
	if len(b.AllowedValues[table.ColProductName]) != 16 || len(b.AllowedValues[table.ColCategory]) != 10 {
		t.Errorf("unexpected allowed set sizes")
	}
}
