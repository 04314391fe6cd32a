// =============================================================================
// Sales Validator - Transaction Table
// =============================================================================
//
// This package contains the in-memory table shared by the parsers, the
// validators and the writer. It lives in its own package to avoid import
// cycles between those modules.
//
// TABLE MODEL:
//   - An ordered list of named columns, each with a single runtime Kind.
//   - Every column holds exactly Len() values.
//   - A nil value is the missing marker (an empty cell, an unparseable date).
//   - Scratch columns are derived working state; they are dropped before
//     completeness checks and are never written.
//
// =============================================================================

package table

import (
	"fmt"
	"time"
)

// =============================================================================
// COLUMN NAMES
// =============================================================================

// Canonical column headers of the retail transaction dataset.
const (
	ColDate          = "Date"
	ColProductName   = "Product Name"
	ColCategory      = "Category"
	ColUnitsSold     = "Units Sold"
	ColPrice         = "Price"
	ColRevenue       = "Revenue"
	ColDiscount      = "Discount"
	ColUnitsReturned = "Units Returned"
	ColLocation      = "Location"
	ColPlatform      = "Platform"
)

// =============================================================================
// KINDS
// =============================================================================

// Kind is the runtime type of a column.
type Kind string

const (
	// KindString holds string values (free text and categorical columns).
	KindString Kind = "string"

	// KindInt holds int64 values.
	KindInt Kind = "int64"

	// KindFloat holds float64 values.
	KindFloat Kind = "float64"

	// KindDate holds time.Time values.
	KindDate Kind = "datetime"
)

// ParseKind maps a textual type name onto a Kind.
// It accepts the names used in rules files as well as a few common aliases.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "string", "str", "text", "object":
		return KindString, nil
	case "int64", "int", "integer":
		return KindInt, nil
	case "float64", "float", "double", "decimal":
		return KindFloat, nil
	case "datetime", "date", "datetime64[ns]", "timestamp":
		return KindDate, nil
	default:
		return "", fmt.Errorf("unknown column type %q", s)
	}
}

// IsNumeric reports whether the kind holds numbers.
func (k Kind) IsNumeric() bool {
	return k == KindInt || k == KindFloat
}

// =============================================================================
// COLUMN
// =============================================================================

// Column is a single named, typed column.
type Column struct {
	// Name is the column header.
	Name string

	// Kind is the runtime type shared by every non-missing value.
	Kind Kind

	// Values holds one entry per row. The concrete type of each non-nil entry
	// matches Kind: string, int64, float64 or time.Time.
	Values []any

	scratch bool
}

// IsMissing reports whether row i holds the missing marker.
func (c *Column) IsMissing(i int) bool {
	return c.Values[i] == nil
}

// MissingRows returns the indices of all rows holding the missing marker.
func (c *Column) MissingRows() []int {
	var rows []int
	for i, v := range c.Values {
		if v == nil {
			rows = append(rows, i)
		}
	}
	return rows
}

// MissingCount returns the number of missing values.
func (c *Column) MissingCount() int {
	n := 0
	for _, v := range c.Values {
		if v == nil {
			n++
		}
	}
	return n
}

// Float returns row i as a float64. ok is false for missing or non-numeric values.
func (c *Column) Float(i int) (float64, bool) {
	switch v := c.Values[i].(type) {
	case int64:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}

// String returns row i as a string. ok is false for missing or non-string values.
func (c *Column) String(i int) (string, bool) {
	s, ok := c.Values[i].(string)
	return s, ok
}

// Time returns row i as a time.Time. ok is false for missing or non-date values.
func (c *Column) Time(i int) (time.Time, bool) {
	t, ok := c.Values[i].(time.Time)
	return t, ok
}

// Scratch reports whether the column is derived working state.
func (c *Column) Scratch() bool {
	return c.scratch
}

func (c *Column) clone() *Column {
	values := make([]any, len(c.Values))
	copy(values, c.Values)
	return &Column{Name: c.Name, Kind: c.Kind, Values: values, scratch: c.scratch}
}

// =============================================================================
// TABLE
// =============================================================================

// Table is an ordered set of equally sized columns.
type Table struct {
	columns []*Column
	index   map[string]int
	rows    int
}

// New creates an empty table with the given row count.
func New(rows int) *Table {
	return &Table{
		index: make(map[string]int),
		rows:  rows,
	}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return t.rows
}

// AddColumn appends a column. The column must have exactly Len() values and a
// name not already present.
func (t *Table) AddColumn(c *Column) error {
	if c == nil {
		return fmt.Errorf("nil column")
	}
	if len(c.Values) != t.rows {
		return fmt.Errorf("column %q has %d values, table has %d rows", c.Name, len(c.Values), t.rows)
	}
	if _, exists := t.index[c.Name]; exists {
		return fmt.Errorf("duplicate column %q", c.Name)
	}
	t.index[c.Name] = len(t.columns)
	t.columns = append(t.columns, c)
	return nil
}

// AddScratch appends a derived column that is dropped before output.
// An existing scratch column with the same name is replaced.
func (t *Table) AddScratch(name string, kind Kind, values []any) error {
	if i, exists := t.index[name]; exists {
		if !t.columns[i].scratch {
			return fmt.Errorf("scratch column %q would shadow a data column", name)
		}
		if len(values) != t.rows {
			return fmt.Errorf("column %q has %d values, table has %d rows", name, len(values), t.rows)
		}
		t.columns[i] = &Column{Name: name, Kind: kind, Values: values, scratch: true}
		return nil
	}
	return t.AddColumn(&Column{Name: name, Kind: kind, Values: values, scratch: true})
}

// DropScratch removes every scratch column and returns their names.
func (t *Table) DropScratch() []string {
	var dropped []string
	kept := t.columns[:0]
	for _, c := range t.columns {
		if c.scratch {
			dropped = append(dropped, c.Name)
			continue
		}
		kept = append(kept, c)
	}
	t.columns = kept
	t.reindex()
	return dropped
}

func (t *Table) reindex() {
	t.index = make(map[string]int, len(t.columns))
	for i, c := range t.columns {
		t.index[c.Name] = i
	}
}

// Column returns the named column.
func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.columns[i], true
}

// Has reports whether the named column exists.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Columns returns all columns in order, scratch columns included.
func (t *Table) Columns() []*Column {
	out := make([]*Column, len(t.columns))
	copy(out, t.columns)
	return out
}

// Names returns the column names in order, scratch columns included.
func (t *Table) Names() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// Clone returns a deep copy. Values are immutable scalars, so copying the
// value slices is sufficient.
func (t *Table) Clone() *Table {
	out := New(t.rows)
	for _, c := range t.columns {
		out.columns = append(out.columns, c.clone())
	}
	out.reindex()
	return out
}
