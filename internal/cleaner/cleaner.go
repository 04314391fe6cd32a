// =============================================================================
// Sales Validator - Cleaner Module
// =============================================================================
//
// This module runs the end-to-end cleaning of one input file, from reading
// the raw transactions to publishing the cleaned output.
//
// RUN PIPELINE:
//   1. Read the input (delimited text or XLSX workbook)
//   2. Validate a working copy through every pipeline stage
//   3. Write the cleaned output atomically (skipped on dry runs)
//   4. Compare the output fingerprint with the previous output
//   5. Publish the output to object storage (optional)
//   6. Record the run in the history ledger (optional)
//   7. Write the diagnostics workbook (optional)
//   8. Push metrics (optional)
//
// A run that fails validation writes nothing: the previous output, if any,
// is left exactly as it was.
//
// =============================================================================

package cleaner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ginjaninja78/sales-validator/internal/config"
	"github.com/ginjaninja78/sales-validator/internal/csvparser"
	"github.com/ginjaninja78/sales-validator/internal/csvwriter"
	"github.com/ginjaninja78/sales-validator/internal/history"
	"github.com/ginjaninja78/sales-validator/internal/logger"
	"github.com/ginjaninja78/sales-validator/internal/metrics"
	"github.com/ginjaninja78/sales-validator/internal/metrics/prompush"
	"github.com/ginjaninja78/sales-validator/internal/pipeline"
	"github.com/ginjaninja78/sales-validator/internal/publish"
	"github.com/ginjaninja78/sales-validator/internal/report"
	"github.com/ginjaninja78/sales-validator/internal/table"
	"github.com/ginjaninja78/sales-validator/internal/validation"
	"github.com/ginjaninja78/sales-validator/internal/xlsxparser"
	"github.com/ginjaninja78/sales-validator/pkg/utils"
)

// Row counter kinds.
const (
	RowsRead            = "read"
	RowsWritten         = "written"
	RowsRevenueMismatch = "revenue_mismatch"
)

// Publisher uploads the cleaned output.
type Publisher interface {
	Publish(ctx context.Context, path, fingerprint string) (*publish.Object, error)
}

// Recorder stores run history.
type Recorder interface {
	Record(ctx context.Context, run history.Run) error
}

// =============================================================================
// CLEANER STRUCTURE
// =============================================================================

// Cleaner runs validation and cleaning for the configured input.
type Cleaner struct {
	cfg       *config.MainConfig
	rules     validation.Rules
	publisher Publisher
	recorder  Recorder
	now       func() time.Time
	closers   []func() error
}

// Option customizes a Cleaner.
type Option func(*Cleaner)

// WithPublisher sets the output publisher.
func WithPublisher(p Publisher) Option {
	return func(c *Cleaner) { c.publisher = p }
}

// WithRecorder sets the history recorder.
func WithRecorder(r Recorder) Option {
	return func(c *Cleaner) { c.recorder = r }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Cleaner) { c.now = now }
}

// New creates a Cleaner without optional integrations unless given as
// options.
func New(cfg *config.MainConfig, rules validation.Rules, opts ...Option) *Cleaner {
	c := &Cleaner{cfg: cfg, rules: rules, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Open creates a Cleaner and connects the integrations enabled in cfg:
// the S3 publisher, the history ledger and the Pushgateway metrics backend.
//
// RETURNS:
//   - The cleaner. Call Close when done.
//   - An error if an enabled integration cannot be set up.
func Open(ctx context.Context, cfg *config.MainConfig, rules validation.Rules) (*Cleaner, error) {
	c := New(cfg, rules)

	if cfg.Publish.Bucket != "" {
		p, err := publish.New(ctx, cfg.Publish)
		if err != nil {
			return nil, fmt.Errorf("failed to set up publishing: %w", err)
		}
		c.publisher = p
	}

	if cfg.History.Driver != "" {
		store, err := history.Open(ctx, cfg.History.Driver, cfg.History.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open history: %w", err)
		}
		c.recorder = store
		c.closers = append(c.closers, store.Close)
	}

	if cfg.Metrics.PushgatewayURL != "" {
		b, err := prompush.NewBackend(cfg.Metrics.Job, cfg.Metrics.PushgatewayURL)
		if err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("failed to set up metrics: %w", err)
		}
		prev := metrics.SetBackend(b)
		c.closers = append(c.closers, func() error {
			metrics.SetBackend(prev)
			return nil
		})
	}

	return c, nil
}

// Close releases the integrations opened by Open.
func (c *Cleaner) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// Run executes one cleaning run.
//
// PARAMETERS:
//   - ctx: Carries the logger and cancellation.
//   - dryRun: Validate only; nothing is written or published.
//
// RETURNS:
//   - The run summary. It is never nil.
//   - The validation failures joined into one error (each is a
//     *validation.Error), or the infrastructure error that ended the run.
func (c *Cleaner) Run(ctx context.Context, dryRun bool) (*report.Summary, error) {
	summary := &report.Summary{
		RunID:      utils.NewRunID(),
		InputPath:  c.cfg.InputPath,
		OutputPath: c.cfg.OutputPath,
		Mode:       c.cfg.Mode,
		DryRun:     dryRun,
		StartedAt:  c.now(),
	}

	log := logger.FromContext(ctx).With().Str("run_id", summary.RunID).Logger()
	ctx = logger.WithContext(ctx, log)

	runErr := c.run(ctx, summary, dryRun)
	return summary, c.finish(ctx, summary, runErr)
}

func (c *Cleaner) run(ctx context.Context, summary *report.Summary, dryRun bool) error {
	log := logger.FromContext(ctx)

	// =========================================================================
	// STEP 1: READ INPUT
	// =========================================================================

	log.Info().Str("input", c.cfg.InputPath).Msg("reading input")

	tbl, err := c.readInput()
	if err != nil {
		return err
	}
	summary.Rows = tbl.Len()
	metrics.RecordRows(RowsRead, int64(tbl.Len()))
	log.Debug().Int("rows", tbl.Len()).Strs("columns", tbl.Names()).Msg("input read")

	// =========================================================================
	// STEP 2: VALIDATE
	// =========================================================================
	// Every stage works on a copy of the table. In fail_fast mode the first
	// failing stage ends validation.

	rep, err := pipeline.New(c.rules, c.cfg.Mode).Run(ctx, tbl)
	if rep != nil {
		summary.Stages = rep.Stages
		summary.Errors = rep.Errors
	}
	if err != nil {
		return err
	}
	if !rep.OK() {
		for _, e := range rep.Errors {
			if errors.Is(e, validation.ErrRevenueMismatch) {
				metrics.RecordRows(RowsRevenueMismatch, int64(e.Count))
			}
		}
		return rep.Err()
	}

	if dryRun {
		log.Info().Msg("dry run, skipping output")
		return nil
	}

	// =========================================================================
	// STEP 3: WRITE OUTPUT
	// =========================================================================

	previous, err := utils.FingerprintFile(c.cfg.OutputPath)
	if err != nil {
		log.Warn().Err(err).Msg("could not fingerprint previous output")
	}

	delimiter, err := config.ParseDelimiter(c.cfg.CSV.Delimiter)
	if err != nil {
		return err
	}
	written, err := csvwriter.Write(c.cfg.OutputPath, rep.Table, delimiter)
	if err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	metrics.RecordRows(RowsWritten, int64(written.Rows))

	// =========================================================================
	// STEP 4: COMPARE FINGERPRINTS
	// =========================================================================

	summary.Fingerprint = written.Fingerprint
	summary.Unchanged = previous != "" && previous == written.Fingerprint
	log.Info().
		Int("rows", written.Rows).
		Str("output", written.Path).
		Str("fingerprint", written.Fingerprint).
		Bool("unchanged", summary.Unchanged).
		Msg("output written")

	// =========================================================================
	// STEP 5: PUBLISH
	// =========================================================================
	// An upload failure fails the run but keeps the local output.

	if c.publisher != nil {
		obj, err := c.publisher.Publish(ctx, written.Path, written.Fingerprint)
		if err != nil {
			log.Error().Err(err).Str("output", written.Path).Msg("publish failed, local output kept")
			return fmt.Errorf("failed to publish output: %w", err)
		}
		summary.Published = fmt.Sprintf("s3://%s/%s", obj.Bucket, obj.Key)
		log.Info().Str("object", summary.Published).Msg("output published")
	}

	return nil
}

// readInput parses the configured input according to its extension.
func (c *Cleaner) readInput() (*table.Table, error) {
	var (
		tbl *table.Table
		err error
	)
	switch utils.DetectFormat(c.cfg.InputPath) {
	case utils.FormatXLSX:
		tbl, err = xlsxparser.Parse(c.cfg.InputPath, c.cfg.CSV)
	default:
		tbl, err = csvparser.Parse(c.cfg.InputPath, c.cfg.CSV)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read input %s: %w", c.cfg.InputPath, err)
	}
	return tbl, nil
}

// finish records the outcome everywhere it is reported and returns runErr.
// Reporting problems are logged; they never mask the run result.
func (c *Cleaner) finish(ctx context.Context, summary *report.Summary, runErr error) error {
	log := logger.FromContext(ctx)

	summary.FinishedAt = c.now()
	summary.Status = report.StatusSuccess
	if runErr != nil {
		summary.Status = report.StatusFailure
		if len(summary.Errors) == 0 {
			summary.Failure = runErr.Error()
		}
	}

	// =========================================================================
	// STEP 6: RECORD HISTORY
	// =========================================================================

	if c.recorder != nil {
		if err := c.recorder.Record(ctx, historyRun(summary)); err != nil {
			log.Warn().Err(err).Msg("failed to record run history")
		}
	}

	// =========================================================================
	// STEP 7: DIAGNOSTICS WORKBOOK
	// =========================================================================

	if c.cfg.ReportPath != "" {
		if err := report.WriteWorkbook(c.cfg.ReportPath, summary); err != nil {
			log.Warn().Err(err).Str("report", c.cfg.ReportPath).Msg("failed to write report")
		} else {
			log.Info().Str("report", c.cfg.ReportPath).Msg("report written")
		}
	}

	// =========================================================================
	// STEP 8: METRICS
	// =========================================================================

	metrics.RecordRun(summary.Status)
	if err := metrics.Flush(); err != nil {
		log.Warn().Err(err).Msg("failed to push metrics")
	}

	logRun(log, summary, runErr)
	return runErr
}

func historyRun(s *report.Summary) history.Run {
	run := history.Run{
		ID:          s.RunID,
		StartedAt:   s.StartedAt,
		FinishedAt:  s.FinishedAt,
		InputPath:   s.InputPath,
		OutputPath:  s.OutputPath,
		Mode:        s.Mode,
		DryRun:      s.DryRun,
		Status:      history.StatusSuccess,
		Rows:        s.Rows,
		Fingerprint: s.Fingerprint,
	}
	if s.Status == report.StatusFailure {
		run.Status = history.StatusFailure
		run.Message = s.Failure
		if len(s.Errors) > 0 {
			run.FailureKind = validation.KindName(s.Errors[0].Kind)
			run.Message = s.Errors[0].Error()
		}
	}
	return run
}

func logRun(log zerolog.Logger, s *report.Summary, runErr error) {
	event := log.Info()
	if runErr != nil {
		event = log.Error().Int("failures", len(s.Errors))
		if stage := report.FailedStage(s.Stages); stage != "" {
			event = event.Str("failed_stage", stage)
		}
	}
	event.
		Str("status", s.Status).
		Int("rows", s.Rows).
		Dur("duration", s.Duration()).
		Msg("run finished")
}
