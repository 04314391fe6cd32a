// Package metrics records operational metrics from validation runs behind a
// small backend interface.
//
// A no-op backend is installed by default, so recording is always safe even
// when no metrics system is configured. Concrete backends live in
// subpackages (see prompush).
package metrics

import "time"

// Metric names.
const (
	StageTotal           = "salesval_stage_total"
	StageDurationSeconds = "salesval_stage_duration_seconds"
	RowsTotal            = "salesval_rows_total"
	RunsTotal            = "salesval_runs_total"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

// nopBackend is used by default so metrics are optional.
type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend and returns the previous one.
// Passing nil restores the no-op backend.
func SetBackend(b Backend) Backend {
	prev := backend
	if b == nil {
		b = nopBackend{}
	}
	backend = b
	return prev
}

// Flush delegates to the current backend.
func Flush() error {
	return backend.Flush()
}

// RecordStage measures latency and outcome of one pipeline stage.
// status is "passed", "failed" or "skipped".
func RecordStage(stage, status string, d time.Duration) {
	lbls := Labels{
		"stage":  stage,
		"status": status,
	}

	backend.IncCounter(StageTotal, 1, lbls)
	backend.ObserveHistogram(StageDurationSeconds, d.Seconds(), lbls)
}

// RecordRows increments a row-level counter for the given kind.
//
// Kinds used by the cleaner:
//   - "read"
//   - "written"
//   - "revenue_mismatch"
func RecordRows(kind string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(RowsTotal, float64(delta), Labels{
		"kind": kind,
	})
}

// RecordRun counts a finished run by status ("success" or "failure").
func RecordRun(status string) {
	backend.IncCounter(RunsTotal, 1, Labels{
		"status": status,
	})
}
