package cleaner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ginjaninja78/sales-validator/internal/config"
	"github.com/ginjaninja78/sales-validator/internal/history"
	"github.com/ginjaninja78/sales-validator/internal/publish"
	"github.com/ginjaninja78/sales-validator/internal/report"
	"github.com/ginjaninja78/sales-validator/internal/validation"
	"github.com/ginjaninja78/sales-validator/pkg/utils"
)

const cleanInput = "Date,Product Name,Category,Units Sold,Price,Revenue,Discount,Units Returned,Location,Platform\n" +
	"2024-01-08,Whey Protein,Protein,10,2.5,25.0,0.1,1,USA,Amazon\n" +
	"2024-01-15,Zinc,Mineral,4,3.5,12.6,0.1,0,UK,iHerb\n"

// returned units (5) exceed sold units (4) on the second row
const badInput = "Date,Product Name,Category,Units Sold,Price,Revenue,Discount,Units Returned,Location,Platform\n" +
	"2024-01-08,Whey Protein,Protein,10,2.5,25.0,0.1,1,USA,Amazon\n" +
	"2024-01-15,Zinc,Mineral,4,3.5,12.6,0.1,5,UK,iHerb\n"

type fakePublisher struct {
	calls []string
	err   error
}

func (f *fakePublisher) Publish(_ context.Context, path, fingerprint string) (*publish.Object, error) {
	f.calls = append(f.calls, path+"@"+fingerprint)
	if f.err != nil {
		return nil, f.err
	}
	return &publish.Object{Bucket: "sales", Key: filepath.Base(path)}, nil
}

type fakeRecorder struct {
	runs []history.Run
}

func (f *fakeRecorder) Record(_ context.Context, run history.Run) error {
	f.runs = append(f.runs, run)
	return nil
}

func setup(t *testing.T, input string) *config.MainConfig {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultMainConfig()
	cfg.InputPath = filepath.Join(dir, "raw", "sales.csv")
	cfg.OutputPath = filepath.Join(dir, "cleaned", "sales_cleaned.csv")
	if err := os.MkdirAll(filepath.Dir(cfg.InputPath), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(cfg.InputPath, []byte(input), 0o644); err != nil {
		t.Fatal(err)
	}
	return cfg
}

func TestRunWritesCleanedOutput(t *testing.T) {
	cfg := setup(t, cleanInput)
	pub := &fakePublisher{}
	rec := &fakeRecorder{}
	c := New(cfg, validation.DefaultRules(), WithPublisher(pub), WithRecorder(rec))

	summary, err := c.Run(context.Background(), false)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Status != report.StatusSuccess || summary.Rows != 2 {
		t.Errorf("summary = %+v", summary)
	}

	got, err := os.ReadFile(cfg.OutputPath)
	if err != nil {
		t.Fatalf("output not written: %v", err)
	}
	if string(got) != cleanInput {
		t.Errorf("output:\n%s\nwant:\n%s", got, cleanInput)
	}

	fp, _ := utils.FingerprintFile(cfg.OutputPath)
	if summary.Fingerprint != fp {
		t.Errorf("fingerprint = %q, file = %q", summary.Fingerprint, fp)
	}
	if summary.Unchanged {
		t.Errorf("first write reported unchanged")
	}
	if len(pub.calls) != 1 || summary.Published != "s3://sales/sales_cleaned.csv" {
		t.Errorf("publish calls = %v, published = %q", pub.calls, summary.Published)
	}
	if len(rec.runs) != 1 || rec.runs[0].Status != history.StatusSuccess || rec.runs[0].ID != summary.RunID {
		t.Errorf("history = %+v", rec.runs)
	}
}

func TestRunTwiceIsUnchanged(t *testing.T) {
	cfg := setup(t, cleanInput)
	c := New(cfg, validation.DefaultRules())

	first, err := c.Run(context.Background(), false)
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}
	second, err := c.Run(context.Background(), false)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if !second.Unchanged || first.Fingerprint != second.Fingerprint {
		t.Errorf("second run: unchanged=%v fingerprints %q vs %q", second.Unchanged, first.Fingerprint, second.Fingerprint)
	}
	if first.RunID == second.RunID {
		t.Errorf("run ids repeat")
	}
}

func TestRunFailureLeavesPreviousOutput(t *testing.T) {
	cfg := setup(t, badInput)
	if err := os.MkdirAll(filepath.Dir(cfg.OutputPath), 0o755); err != nil {
		t.Fatal(err)
	}
	previous := []byte("previous run\n")
	if err := os.WriteFile(cfg.OutputPath, previous, 0o644); err != nil {
		t.Fatal(err)
	}

	rec := &fakeRecorder{}
	pub := &fakePublisher{}
	c := New(cfg, validation.DefaultRules(), WithRecorder(rec), WithPublisher(pub))

	summary, err := c.Run(context.Background(), false)
	if !errors.Is(err, validation.ErrRange) {
		t.Fatalf("err = %v, want range error", err)
	}
	var verr *validation.Error
	if !errors.As(err, &verr) || verr.Stage != "units_returned" {
		t.Errorf("failing error = %+v", verr)
	}
	if summary.Status != report.StatusFailure {
		t.Errorf("status = %q", summary.Status)
	}

	got, _ := os.ReadFile(cfg.OutputPath)
	if string(got) != string(previous) {
		t.Errorf("previous output modified: %q", got)
	}
	if len(pub.calls) != 0 {
		t.Errorf("published after failure")
	}
	if len(rec.runs) != 1 || rec.runs[0].FailureKind != "RangeError" {
		t.Errorf("history = %+v", rec.runs)
	}
}

func TestRunDryRun(t *testing.T) {
	cfg := setup(t, cleanInput)
	pub := &fakePublisher{}
	c := New(cfg, validation.DefaultRules(), WithPublisher(pub))

	summary, err := c.Run(context.Background(), true)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if utils.FileExists(cfg.OutputPath) {
		t.Errorf("dry run wrote output")
	}
	if len(pub.calls) != 0 || summary.Fingerprint != "" {
		t.Errorf("dry run published or fingerprinted: %v %q", pub.calls, summary.Fingerprint)
	}
}

func TestRunPublishFailureKeepsOutput(t *testing.T) {
	cfg := setup(t, cleanInput)
	c := New(cfg, validation.DefaultRules(), WithPublisher(&fakePublisher{err: errors.New("denied")}))

	summary, err := c.Run(context.Background(), false)
	if err == nil {
		t.Fatalf("expected publish error")
	}
	if summary.Status != report.StatusFailure || summary.Failure == "" {
		t.Errorf("summary = %+v", summary)
	}
	if !utils.FileExists(cfg.OutputPath) {
		t.Errorf("local output removed after publish failure")
	}
}

func TestRunWritesReport(t *testing.T) {
	cfg := setup(t, badInput)
	cfg.ReportPath = filepath.Join(t.TempDir(), "report.xlsx")
	cfg.Mode = config.ModeCollect

	summary, err := New(cfg, validation.DefaultRules()).Run(context.Background(), false)
	if err == nil {
		t.Fatalf("expected validation failure")
	}
	if !utils.FileExists(cfg.ReportPath) {
		t.Errorf("report not written on failure")
	}
	if len(summary.Stages) != len(validation.DefaultRules().RequiredColumns)+3 {
		t.Errorf("collect mode ran %d stages", len(summary.Stages))
	}
}

func TestRunMissingInput(t *testing.T) {
	cfg := setup(t, cleanInput)
	cfg.InputPath = filepath.Join(t.TempDir(), "missing.csv")
	rec := &fakeRecorder{}

	summary, err := New(cfg, validation.DefaultRules(), WithRecorder(rec)).Run(context.Background(), false)
	if err == nil {
		t.Fatalf("expected error for missing input")
	}
	if summary.Failure == "" || len(summary.Stages) != 0 {
		t.Errorf("summary = %+v", summary)
	}
	if len(rec.runs) != 1 || rec.runs[0].Message == "" {
		t.Errorf("history = %+v", rec.runs)
	}
}
