// =============================================================================
// Sales Validator - Validation Pipeline
// =============================================================================
//
// This module sequences the validation stages over a working copy of the
// input table.
//
// STAGE ORDER:
//   schema, date, dtypes, product_name, category, units_sold,
//   units_returned, price, discount, revenue, location, platform,
//   completeness
//
// Allowed-value stages for any extra categorical columns in the rules run
// after platform, in column name order.
//
// MODES:
//   - fail_fast: the first failing stage ends the run; later stages are
//     reported as skipped.
//   - collect: every stage runs and every failure is reported.
//
// The input table is never modified. On success the report carries the
// cleaned working copy with scratch columns removed.
//
// =============================================================================

package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ginjaninja78/sales-validator/internal/config"
	"github.com/ginjaninja78/sales-validator/internal/logger"
	"github.com/ginjaninja78/sales-validator/internal/metrics"
	"github.com/ginjaninja78/sales-validator/internal/table"
	"github.com/ginjaninja78/sales-validator/internal/validation"
)

// Stage statuses.
const (
	StatusPassed  = "passed"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// Stage is one named validation step. Run may modify the working copy.
type Stage struct {
	Name string
	Run  func(t *table.Table) []*validation.Error
}

// StageResult is the outcome of one stage.
type StageResult struct {
	Name     string
	Status   string
	Duration time.Duration
	Errors   []*validation.Error
}

// Report is the outcome of a pipeline run.
type Report struct {
	// Stages holds one result per stage, in execution order.
	Stages []StageResult

	// Errors holds every failure in stage order.
	Errors []*validation.Error

	// Table is the validated working copy. It is nil unless every stage
	// passed.
	Table *table.Table
}

// OK reports whether every stage passed.
func (r *Report) OK() bool {
	return len(r.Errors) == 0
}

// Err returns nil on success, otherwise the failures as one error.
func (r *Report) Err() error {
	return validation.Join(r.Errors)
}

// Pipeline runs stages in order.
type Pipeline struct {
	stages []Stage
	mode   string
}

// New builds the standard pipeline from rules.
func New(rules validation.Rules, mode string) *Pipeline {
	return NewWithStages(Stages(rules), mode)
}

// NewWithStages builds a pipeline from explicit stages.
func NewWithStages(stages []Stage, mode string) *Pipeline {
	if mode == "" {
		mode = config.ModeFailFast
	}
	return &Pipeline{stages: stages, mode: mode}
}

// StageNames lists the stage names in order.
func (p *Pipeline) StageNames() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name
	}
	return names
}

// Stages returns the standard stage list for rules.
func Stages(rules validation.Rules) []Stage {
	limit := rules.Limit()

	allowed := func(column string) Stage {
		set := validation.NewValueSet(rules.AllowedValues[column]...)
		return Stage{
			Name: StageName(column),
			Run: func(t *table.Table) []*validation.Error {
				return validation.CheckAllowedValues(t, column, set, validation.AllowedOptions{
					Normalize: true,
					Limit:     limit,
				})
			},
		}
	}

	stages := []Stage{
		{Name: "schema", Run: func(t *table.Table) []*validation.Error {
			return validation.CheckSchema(t, rules.RequiredColumns)
		}},
		{Name: "date", Run: func(t *table.Table) []*validation.Error {
			return validation.NormalizeDates(t, table.ColDate, rules.DateLayouts, limit)
		}},
		{Name: "dtypes", Run: func(t *table.Table) []*validation.Error {
			return validation.CheckDtypes(t, rules.ExpectedTypes)
		}},
	}

	used := make(map[string]bool)
	addAllowed := func(column string) {
		if _, ok := rules.AllowedValues[column]; ok {
			stages = append(stages, allowed(column))
			used[column] = true
		}
	}

	addAllowed(table.ColProductName)
	addAllowed(table.ColCategory)
	stages = append(stages,
		Stage{Name: "units_sold", Run: func(t *table.Table) []*validation.Error {
			return validation.CheckUnitsSold(t, limit)
		}},
		Stage{Name: "units_returned", Run: func(t *table.Table) []*validation.Error {
			return validation.CheckUnitsReturned(t, limit)
		}},
		Stage{Name: "price", Run: func(t *table.Table) []*validation.Error {
			return validation.CheckPrice(t, limit)
		}},
		Stage{Name: "discount", Run: func(t *table.Table) []*validation.Error {
			return validation.CheckDiscount(t, limit)
		}},
		Stage{Name: "revenue", Run: func(t *table.Table) []*validation.Error {
			return validation.CheckRevenue(t, rules.Tolerance, limit)
		}},
	)
	addAllowed(table.ColLocation)
	addAllowed(table.ColPlatform)

	for _, column := range config.AllowedColumns(rules) {
		if !used[column] {
			addAllowed(column)
		}
	}

	stages = append(stages, Stage{Name: "completeness", Run: func(t *table.Table) []*validation.Error {
		t.DropScratch()
		return validation.CheckCompleteness(t, rules.RequiredColumns)
	}})

	return stages
}

// StageName converts a column name into a stage name ("Product Name" ->
// "product_name").
func StageName(column string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(column)), " ", "_")
}

// Run validates a working copy of input.
//
// PARAMETERS:
//   - ctx: Carries the logger; cancellation is checked between stages.
//   - input: The table as read. It is not modified.
//
// RETURNS:
//   - The report. Its Table is set only when every stage passed.
//   - A non-nil error only when ctx is cancelled.
func (p *Pipeline) Run(ctx context.Context, input *table.Table) (*Report, error) {
	log := logger.FromContext(ctx)
	work := input.Clone()
	report := &Report{}
	stopped := false

	for _, stage := range p.stages {
		if stopped {
			report.Stages = append(report.Stages, StageResult{Name: stage.Name, Status: StatusSkipped})
			metrics.RecordStage(stage.Name, StatusSkipped, 0)
			continue
		}
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("validation cancelled before stage %s: %w", stage.Name, err)
		}

		start := time.Now()
		errs := stage.Run(work)
		elapsed := time.Since(start)

		for _, e := range errs {
			if e.Stage == "" {
				e.Stage = stage.Name
			}
		}

		result := StageResult{Name: stage.Name, Status: StatusPassed, Duration: elapsed, Errors: errs}
		if len(errs) > 0 {
			result.Status = StatusFailed
			report.Errors = append(report.Errors, errs...)
			for _, e := range errs {
				log.Error().
					Str("stage", stage.Name).
					Str("kind", validation.KindName(e.Kind)).
					Strs("columns", e.Columns).
					Int("count", e.Count).
					Dur("duration", elapsed).
					Msg(e.Message)
			}
			if p.mode != config.ModeCollect {
				stopped = true
			}
		} else {
			log.Debug().
				Str("stage", stage.Name).
				Str("status", StatusPassed).
				Dur("duration", elapsed).
				Msg("stage passed")
		}

		metrics.RecordStage(stage.Name, result.Status, elapsed)
		report.Stages = append(report.Stages, result)
	}

	if report.OK() {
		work.DropScratch()
		report.Table = work
	}
	return report, nil
}
