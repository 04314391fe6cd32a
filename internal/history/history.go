// Package history keeps a ledger of validation runs in a SQL database.
//
// Two drivers are supported through database/sql: the pure Go SQLite driver
// (a local file, the default) and pgx for Postgres.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	_ "modernc.org/sqlite"             // pure go sqlite driver
)

// Run statuses.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Run is one ledger entry.
type Run struct {
	ID          string
	StartedAt   time.Time
	FinishedAt  time.Time
	InputPath   string
	OutputPath  string
	Mode        string
	DryRun      bool
	Status      string
	Rows        int
	FailureKind string
	Message     string
	Fingerprint string
}

// Store records runs.
type Store struct {
	db       *sql.DB
	postgres bool
}

// timeLayout has a fixed width so that text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// sqlOpen is swapped in tests.
var sqlOpen = sql.Open

// Open connects to the ledger and creates its table if needed.
// driver is "sqlite" or "postgres" ("pgx" is accepted as an alias).
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	var driverName string
	postgres := false
	switch strings.ToLower(driver) {
	case "sqlite", "":
		driverName = "sqlite"
		if dsn == "" {
			dsn = "salesval.db"
		}
		if !strings.HasPrefix(dsn, "file:") && dsn != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(dsn), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
				return nil, fmt.Errorf("create dirs: %w", err)
			}
		}
	case "postgres", "pgx":
		driverName = "pgx"
		postgres = true
	default:
		return nil, fmt.Errorf("unsupported history driver %q", driver)
	}

	db, err := sqlOpen(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driverName, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driverName, err)
	}

	s := &Store{db: db, postgres: postgres}
	if err := s.ensureTable(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureTable(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS validation_runs (
		id TEXT PRIMARY KEY,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		input_path TEXT NOT NULL,
		output_path TEXT NOT NULL,
		mode TEXT NOT NULL,
		dry_run INTEGER NOT NULL,
		status TEXT NOT NULL,
		rows_read INTEGER NOT NULL,
		failure_kind TEXT NOT NULL,
		message TEXT NOT NULL,
		fingerprint TEXT NOT NULL
	)`); err != nil {
		return fmt.Errorf("create validation_runs table: %w", err)
	}
	return nil
}

// Record inserts a run. Recording the same ID twice replaces the entry.
func (s *Store) Record(ctx context.Context, r Run) error {
	dry := 0
	if r.DryRun {
		dry = 1
	}
	query := s.rebind(`INSERT INTO validation_runs
		(id, started_at, finished_at, input_path, output_path, mode, dry_run, status, rows_read, failure_kind, message, fingerprint)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			finished_at = excluded.finished_at,
			status = excluded.status,
			rows_read = excluded.rows_read,
			failure_kind = excluded.failure_kind,
			message = excluded.message,
			fingerprint = excluded.fingerprint`)
	_, err := s.db.ExecContext(ctx, query,
		r.ID,
		r.StartedAt.UTC().Format(timeLayout),
		r.FinishedAt.UTC().Format(timeLayout),
		r.InputPath,
		r.OutputPath,
		r.Mode,
		dry,
		r.Status,
		r.Rows,
		r.FailureKind,
		r.Message,
		r.Fingerprint,
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", r.ID, err)
	}
	return nil
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT
		id, started_at, finished_at, input_path, output_path, mode, dry_run, status, rows_read, failure_kind, message, fingerprint
		FROM validation_runs ORDER BY started_at DESC, id DESC LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("select runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		var (
			r                 Run
			started, finished string
			dry               int
		)
		if err := rows.Scan(&r.ID, &started, &finished, &r.InputPath, &r.OutputPath, &r.Mode, &dry,
			&r.Status, &r.Rows, &r.FailureKind, &r.Message, &r.Fingerprint); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		if r.StartedAt, err = time.Parse(timeLayout, started); err != nil {
			return nil, fmt.Errorf("parse started_at for %s: %w", r.ID, err)
		}
		if r.FinishedAt, err = time.Parse(timeLayout, finished); err != nil {
			return nil, fmt.Errorf("parse finished_at for %s: %w", r.ID, err)
		}
		r.DryRun = dry != 0
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// rebind rewrites ? placeholders as $n for Postgres.
func (s *Store) rebind(query string) string {
	if !s.postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
