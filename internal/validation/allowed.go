package validation

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/ginjaninja78/sales-validator/internal/table"
)

// ValueSet is a closed enumeration of allowed values.
type ValueSet map[string]struct{}

// NewValueSet builds a set. Members are stored in Unicode NFC form so that
// normalized input compares equal regardless of composition.
func NewValueSet(values ...string) ValueSet {
	set := make(ValueSet, len(values))
	for _, v := range values {
		set[norm.NFC.String(v)] = struct{}{}
	}
	return set
}

// Contains reports whether v is a member.
func (s ValueSet) Contains(v string) bool {
	_, ok := s[v]
	return ok
}

// AllowedOptions controls CheckAllowedValues.
type AllowedOptions struct {
	// AllowNull tolerates missing and blank values.
	AllowNull bool

	// Normalize trims surrounding whitespace (and applies NFC) before the
	// blank and membership tests. Case is never folded.
	Normalize bool

	// Limit caps the example rows. Zero means DefaultExampleLimit.
	Limit int
}

// CheckAllowedValues verifies that every value of column belongs to allowed.
//
// FAILURES:
//   - ErrColumnMissing when the column is absent.
//   - ErrMissingValue when nulls are not allowed and a missing or blank
//     value is present. Membership is not checked in that case.
//   - ErrInvalidValue listing the distinct invalid values and example rows.
func CheckAllowedValues(t *table.Table, column string, allowed ValueSet, opts AllowedOptions) []*Error {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultExampleLimit
	}

	col, ok := t.Column(column)
	if !ok {
		return []*Error{newError(ErrColumnMissing,
			fmt.Sprintf("Allowed values validation failed: column '%s' not found.", column), column)}
	}

	normalized := make([]string, len(col.Values))
	blank := make([]bool, len(col.Values))
	for i, v := range col.Values {
		if v == nil {
			blank[i] = true
			continue
		}
		s := valueText(v)
		if opts.Normalize {
			s = norm.NFC.String(strings.TrimSpace(s))
		}
		normalized[i] = s
		blank[i] = s == ""
	}

	if !opts.AllowNull {
		var examples []Example
		count := 0
		for i, b := range blank {
			if !b {
				continue
			}
			count++
			if len(examples) < limit {
				examples = append(examples, Example{Row: i, Value: valueText(col.Values[i])})
			}
		}
		if count > 0 {
			e := newError(ErrMissingValue,
				fmt.Sprintf("Allowed values validation failed for '%s': missing/blank values found.", column), column)
			e.Examples = examples
			e.Count = count
			return []*Error{e}
		}
	}

	invalid := make(map[string]struct{})
	var examples []Example
	count := 0
	for i, s := range normalized {
		if blank[i] || allowed.Contains(s) {
			continue
		}
		invalid[s] = struct{}{}
		count++
		if len(examples) < limit {
			examples = append(examples, Example{Row: i, Value: valueText(col.Values[i])})
		}
	}

	if count == 0 {
		return nil
	}

	values := sortedKeys(invalid)
	e := newError(ErrInvalidValue,
		fmt.Sprintf("Allowed values validation failed for '%s'. Invalid values: [%s].", column, quoteAll(values)), column)
	e.Invalid = values
	e.Examples = examples
	e.Count = count
	return []*Error{e}
}

func quoteAll(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = fmt.Sprintf("%q", v)
	}
	return strings.Join(quoted, ", ")
}
