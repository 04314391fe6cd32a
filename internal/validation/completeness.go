package validation

import (
	"fmt"
	"strings"

	"github.com/ginjaninja78/sales-validator/internal/table"
)

// CheckCompleteness fails when any required column holds a missing value or
// is absent. Run it after scratch columns have been dropped.
func CheckCompleteness(t *table.Table, required []string) []*Error {
	var columns, details []string
	total := 0

	for _, name := range required {
		col, ok := t.Column(name)
		if !ok {
			columns = append(columns, name)
			details = append(details, fmt.Sprintf("%s (absent)", name))
			continue
		}
		if n := col.MissingCount(); n > 0 {
			columns = append(columns, name)
			details = append(details, fmt.Sprintf("%s (%d)", name, n))
			total += n
		}
	}

	if len(columns) == 0 {
		return nil
	}

	e := newError(ErrCompleteness,
		fmt.Sprintf("Completeness validation failed: missing values in required columns: %s", strings.Join(details, ", ")),
		columns...)
	e.Invalid = details
	e.Count = total
	return []*Error{e}
}
