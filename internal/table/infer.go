package table

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// =============================================================================
// TYPE INFERENCE
// =============================================================================

// FromStrings builds a table from a header and raw string rows, inferring a
// Kind per column.
//
// INFERENCE RULES:
//   - An empty (or whitespace-only) cell is missing, and so is one of the
//     NA markers (NA, N/A, null, NaN, None, ...) listed in naTokens.
//   - All non-missing cells parse as integers: int64, or float64 when the
//     column has any missing cell.
//   - All non-missing cells parse as numbers: float64.
//   - Otherwise: string. String values are kept exactly as read.
//
// Short rows are padded with missing cells; extra cells are an error.
func FromStrings(header []string, rows [][]string) (*Table, error) {
	seen := make(map[string]bool, len(header))
	for _, h := range header {
		if seen[h] {
			return nil, fmt.Errorf("duplicate column %q in header", h)
		}
		seen[h] = true
	}

	for i, row := range rows {
		if len(row) > len(header) {
			return nil, fmt.Errorf("row %d has %d fields, header has %d", i+1, len(row), len(header))
		}
	}

	t := New(len(rows))
	for c, name := range header {
		cells := make([]string, len(rows))
		for r, row := range rows {
			if c < len(row) {
				cells[r] = row[c]
			}
		}
		if err := t.AddColumn(InferColumn(name, cells)); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// naTokens are the markers read as missing values, matched case-sensitively
// after trimming.
var naTokens = map[string]struct{}{
	"":         {},
	"#N/A":     {},
	"#N/A N/A": {},
	"#NA":      {},
	"-1.#IND":  {},
	"-1.#QNAN": {},
	"-NaN":     {},
	"-nan":     {},
	"1.#IND":   {},
	"1.#QNAN":  {},
	"<NA>":     {},
	"N/A":      {},
	"NA":       {},
	"NULL":     {},
	"NaN":      {},
	"None":     {},
	"n/a":      {},
	"nan":      {},
	"null":     {},
}

// IsMissingToken reports whether a trimmed cell denotes a missing value.
func IsMissingToken(s string) bool {
	_, ok := naTokens[s]
	return ok
}

// InferColumn converts raw cells into a typed column using the inference rules
// of FromStrings.
func InferColumn(name string, cells []string) *Column {
	allInt, allNum := true, true
	missing, present := 0, 0

	for _, cell := range cells {
		s := strings.TrimSpace(cell)
		if IsMissingToken(s) {
			missing++
			continue
		}
		present++
		if allInt {
			if _, err := strconv.ParseInt(s, 10, 64); err != nil {
				allInt = false
			}
		}
		if !allInt && allNum {
			if _, err := strconv.ParseFloat(s, 64); err != nil {
				allNum = false
				break
			}
		}
	}

	kind := KindString
	switch {
	case present == 0:
		// An entirely empty column carries no type information.
		kind = KindFloat
	case allInt && missing == 0:
		kind = KindInt
	case allInt || allNum:
		kind = KindFloat
	}

	values := make([]any, len(cells))
	for i, cell := range cells {
		s := strings.TrimSpace(cell)
		if IsMissingToken(s) {
			continue
		}
		switch kind {
		case KindInt:
			v, _ := strconv.ParseInt(s, 10, 64)
			values[i] = v
		case KindFloat:
			v, _ := strconv.ParseFloat(s, 64)
			if math.IsNaN(v) {
				continue
			}
			values[i] = v
		default:
			values[i] = cell
		}
	}

	return &Column{Name: name, Kind: kind, Values: values}
}
