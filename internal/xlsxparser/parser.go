// =============================================================================
// Sales Validator - XLSX Input Parser
// =============================================================================
//
// This module reads transaction workbooks exported from spreadsheet tools.
// The first row of the selected sheet is the header; every following
// non-empty row is a transaction.
//
// CELL VALUES:
//   Cells are read raw (unformatted) so that number formats such as currency
//   or percentages do not leak into the data. Date cells are therefore serial
//   numbers and are converted back to times for the date column.
//
// =============================================================================

package xlsxparser

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/sales-validator/internal/config"
	"github.com/ginjaninja78/sales-validator/internal/table"
)

// Parse reads a sheet of an XLSX workbook into a table.
//
// PARAMETERS:
//   - path: The workbook path.
//   - settings: CSV settings; Sheet selects the worksheet (default: first)
//     and DataStartRow skips metadata rows below the header.
//
// RETURNS:
//   - The parsed table with inferred column types.
//   - An error if the workbook cannot be read.
func Parse(path string, settings config.CSVSettings) (*table.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheetName := settings.Sheet
	if sheetName == "" {
		sheetName = f.GetSheetName(0)
	}
	if sheetName == "" {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	if idx, err := f.GetSheetIndex(sheetName); err != nil || idx < 0 {
		return nil, fmt.Errorf("sheet %q not found", sheetName)
	}

	rows, err := f.GetRows(sheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheetName)
	}

	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.TrimSpace(h)
	}
	// Trailing empty header cells come from formatting, not data.
	for len(headers) > 0 && headers[len(headers)-1] == "" {
		headers = headers[:len(headers)-1]
	}

	start := settings.DataStartRow - 1
	if start < 1 {
		start = 1
	}

	var data [][]string
	for i := start; i < len(rows); i++ {
		row := rows[i]
		if isRowEmpty(row) {
			continue
		}
		if len(row) > len(headers) {
			if !isRowEmpty(row[len(headers):]) {
				return nil, fmt.Errorf("row %d has values beyond the header", i+1)
			}
			row = row[:len(headers)]
		}
		data = append(data, row)
	}

	tbl, err := table.FromStrings(headers, data)
	if err != nil {
		return nil, fmt.Errorf("failed to build table: %w", err)
	}

	if col, ok := tbl.Column(table.ColDate); ok {
		convertSerialDates(col)
	}
	return tbl, nil
}

// convertSerialDates turns spreadsheet serial numbers in the date column into
// times. A column that still mixes text and serials stays textual, with the
// serials rendered as ISO timestamps.
func convertSerialDates(col *table.Column) {
	if !col.Kind.IsNumeric() && col.Kind != table.KindString {
		return
	}

	converted := make([]any, len(col.Values))
	allDates := true
	for i := range col.Values {
		if col.IsMissing(i) {
			continue
		}
		if serial, ok := serialValue(col.Values[i]); ok {
			if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
				converted[i] = t
				continue
			}
		}
		allDates = false
		converted[i] = col.Values[i]
	}

	if allDates {
		col.Values = converted
		col.Kind = table.KindDate
		return
	}
	if col.Kind != table.KindString {
		return
	}
	for i, v := range converted {
		if t, ok := v.(time.Time); ok {
			converted[i] = t.Format("2006-01-02 15:04:05")
		}
	}
	col.Values = converted
}

func serialValue(v any) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case float64:
		return x, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// isRowEmpty checks if a row is empty (all cells are empty or whitespace).
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
