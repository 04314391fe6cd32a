package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/sales-validator/internal/validation"
)

// Workbook sheet names.
const (
	SheetSummary  = "Summary"
	SheetFailures = "Failures"
	SheetRevenue  = "Revenue"
)

// WriteWorkbook writes the diagnostics workbook for s to path.
//
// PARAMETERS:
//   - path: The .xlsx destination. The parent directory is created.
//   - s: The run summary.
//
// RETURNS:
//   - An error if the workbook cannot be built or saved.
func WriteWorkbook(path string, s *Summary) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return fmt.Errorf("failed to name summary sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	if err := writeSummarySheet(f, s, bold); err != nil {
		return err
	}
	if err := writeFailuresSheet(f, s.Errors, bold); err != nil {
		return err
	}
	if rows := revenueRows(s.Errors); len(rows) > 0 {
		if err := writeRevenueSheet(f, rows, bold); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

func writeSummarySheet(f *excelize.File, s *Summary, bold int) error {
	output := s.OutputPath
	if s.DryRun {
		output = "(dry run)"
	}
	info := [][]any{
		{"Run ID", s.RunID},
		{"Input", s.InputPath},
		{"Output", output},
		{"Mode", s.Mode},
		{"Status", s.Status},
		{"Rows", s.Rows},
		{"Started", s.StartedAt.Format("2006-01-02 15:04:05")},
		{"Duration (s)", s.Duration().Seconds()},
		{"Fingerprint", s.Fingerprint},
		{"Published", s.Published},
	}
	if s.Failure != "" {
		info = append(info, []any{"Run Error", s.Failure})
	}

	row := 1
	for _, r := range info {
		if err := setRow(f, SheetSummary, row, r); err != nil {
			return err
		}
		row++
	}

	row++
	header := []any{"Stage", "Status", "Duration (s)", "Failures"}
	if err := setRow(f, SheetSummary, row, header); err != nil {
		return err
	}
	if err := f.SetRowStyle(SheetSummary, row, row, bold); err != nil {
		return fmt.Errorf("failed to style summary header: %w", err)
	}
	for _, st := range s.Stages {
		row++
		if err := setRow(f, SheetSummary, row, []any{st.Name, st.Status, st.Duration.Seconds(), len(st.Errors)}); err != nil {
			return err
		}
	}

	return f.SetColWidth(SheetSummary, "A", "B", 24)
}

func writeFailuresSheet(f *excelize.File, errs []*validation.Error, bold int) error {
	if _, err := f.NewSheet(SheetFailures); err != nil {
		return fmt.Errorf("failed to create failures sheet: %w", err)
	}
	header := []any{"Kind", "Stage", "Columns", "Message", "Count", "Invalid Values", "Example Rows"}
	if err := setRow(f, SheetFailures, 1, header); err != nil {
		return err
	}
	if err := f.SetRowStyle(SheetFailures, 1, 1, bold); err != nil {
		return fmt.Errorf("failed to style failures header: %w", err)
	}

	for i, e := range errs {
		row := []any{
			validation.KindName(e.Kind),
			e.Stage,
			strings.Join(e.Columns, ", "),
			e.Message,
			e.Count,
			strings.Join(e.Invalid, ", "),
			joinExamples(e.Examples),
		}
		if err := setRow(f, SheetFailures, i+2, row); err != nil {
			return err
		}
	}

	return f.SetColWidth(SheetFailures, "D", "D", 60)
}

func writeRevenueSheet(f *excelize.File, rows []validation.RevenueRow, bold int) error {
	if _, err := f.NewSheet(SheetRevenue); err != nil {
		return fmt.Errorf("failed to create revenue sheet: %w", err)
	}
	header := []any{"Row", "Revenue", "Gross", "Net of Discount", "Discount Amount"}
	if err := setRow(f, SheetRevenue, 1, header); err != nil {
		return err
	}
	if err := f.SetRowStyle(SheetRevenue, 1, 1, bold); err != nil {
		return fmt.Errorf("failed to style revenue header: %w", err)
	}
	for i, r := range rows {
		row := []any{r.Row, optional(r.Revenue), optional(r.F1), optional(r.F2), optional(r.F3)}
		if err := setRow(f, SheetRevenue, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func revenueRows(errs []*validation.Error) []validation.RevenueRow {
	var rows []validation.RevenueRow
	for _, e := range errs {
		rows = append(rows, e.Revenue...)
	}
	return rows
}

func optional(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, row, err)
	}
	return nil
}
