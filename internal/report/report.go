// =============================================================================
// Sales Validator - Run Report
// =============================================================================
//
// This module renders the outcome of a run in two forms:
//   - A plain-text summary for the terminal: run information, one line per
//     stage, and the formatted failures.
//   - An optional XLSX diagnostics workbook with Summary, Failures and
//     (when the revenue check failed) Revenue sheets.
//
// The workbook is a diagnostic artifact. It is written whether the run passed
// or failed and is never the cleaned output.
//
// =============================================================================

package report

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ginjaninja78/sales-validator/internal/pipeline"
	"github.com/ginjaninja78/sales-validator/internal/validation"
)

// Run statuses.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

const (
	rule    = "================================================================================"
	divider = "--------------------------------------------------------------------------------"
)

// Summary collects everything reported about one run.
type Summary struct {
	RunID      string
	InputPath  string
	OutputPath string
	Mode       string
	DryRun     bool
	StartedAt  time.Time
	FinishedAt time.Time

	// Status is StatusSuccess or StatusFailure.
	Status string

	// Rows is the number of data rows read.
	Rows int

	// Fingerprint is the xxh3 fingerprint of the written output, if any.
	Fingerprint string

	// Unchanged is set when the new output is identical to the previous one.
	Unchanged bool

	// Published is the object URI of the uploaded output, if any.
	Published string

	Stages []pipeline.StageResult
	Errors []*validation.Error

	// Failure describes an infrastructure error that ended the run early.
	Failure string
}

// Duration is the wall time of the run.
func (s *Summary) Duration() time.Duration {
	if s.FinishedAt.IsZero() || s.StartedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// =============================================================================
// TEXT SUMMARY
// =============================================================================

// WriteText writes the terminal summary for s to w.
//
// PARAMETERS:
//   - w: The destination, usually stdout.
//   - s: The run summary.
//
// RETURNS:
//   - An error if writing fails.
func WriteText(w io.Writer, s *Summary) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "%s\nSales Validator - Run Summary\n%s\n\n", rule, rule)

	fmt.Fprintf(bw, "Run Information:\n")
	fmt.Fprintf(bw, "  Run ID:       %s\n", s.RunID)
	fmt.Fprintf(bw, "  Input:        %s\n", s.InputPath)
	if s.DryRun {
		fmt.Fprintf(bw, "  Output:       (dry run, nothing written)\n")
	} else {
		fmt.Fprintf(bw, "  Output:       %s\n", s.OutputPath)
	}
	fmt.Fprintf(bw, "  Mode:         %s\n", s.Mode)
	fmt.Fprintf(bw, "  Status:       %s\n", s.Status)
	fmt.Fprintf(bw, "  Rows:         %d\n", s.Rows)
	fmt.Fprintf(bw, "  Duration:     %s\n", formatDuration(s.Duration()))
	if s.Fingerprint != "" {
		note := ""
		if s.Unchanged {
			note = " (unchanged)"
		}
		fmt.Fprintf(bw, "  Fingerprint:  %s%s\n", s.Fingerprint, note)
	}
	if s.Published != "" {
		fmt.Fprintf(bw, "  Published:    %s\n", s.Published)
	}
	bw.WriteString("\n")

	if len(s.Stages) > 0 {
		bw.WriteString("Stages:\n")
		bw.WriteString(divider + "\n")
		fmt.Fprintf(bw, "  %-20s %-8s %12s  %s\n", "STAGE", "STATUS", "DURATION", "FAILURES")
		for _, st := range s.Stages {
			fmt.Fprintf(bw, "  %-20s %-8s %12s  %d\n", st.Name, st.Status, formatDuration(st.Duration), len(st.Errors))
		}
		bw.WriteString("\n")
	}

	if s.Failure != "" {
		bw.WriteString("Run Error:\n")
		bw.WriteString(divider + "\n")
		fmt.Fprintf(bw, "  %s\n\n", s.Failure)
	}

	if len(s.Errors) > 0 {
		bw.WriteString("Failures:\n")
		bw.WriteString(divider + "\n")
		bw.WriteString(validation.FormatErrors(s.Errors))
		bw.WriteString("\n\n")
	}

	bw.WriteString(rule + "\nEnd of Summary\n")

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}

// FailedStage returns the name of the first failing stage, or "".
func FailedStage(stages []pipeline.StageResult) string {
	for _, st := range stages {
		if st.Status == pipeline.StatusFailed {
			return st.Name
		}
	}
	return ""
}

func formatDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "0s"
	case d < time.Millisecond:
		return d.Round(time.Microsecond).String()
	default:
		return d.Round(time.Millisecond / 10).String()
	}
}

func joinExamples(examples []validation.Example) string {
	parts := make([]string, len(examples))
	for i, ex := range examples {
		parts[i] = fmt.Sprintf("%d: %s", ex.Row, ex.Value)
	}
	return strings.Join(parts, "; ")
}
