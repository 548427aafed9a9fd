// Package journal persists a run history next to the stage caches. Every
// stage invocation becomes one row so curate can show what ran, when, and how
// it ended, even across interrupted pipelines.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Run statuses recorded in the journal.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

const schemaVersion = 1

// ErrSchemaMismatch indicates the journal database was written by an
// incompatible version. Cleaning the workspace resets it.
var ErrSchemaMismatch = errors.New("journal schema version mismatch")

const schemaSQL = `
CREATE TABLE schema_version (
    version INTEGER NOT NULL
);

CREATE TABLE runs (
    id TEXT PRIMARY KEY,
    stage TEXT NOT NULL,
    status TEXT NOT NULL,
    detail TEXT NOT NULL DEFAULT '',
    started_at TEXT NOT NULL,
    finished_at TEXT
);

CREATE INDEX idx_runs_stage ON runs (stage, started_at);

CREATE TABLE outcomes (
    run_id TEXT NOT NULL REFERENCES runs (id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    status TEXT NOT NULL,
    detail TEXT NOT NULL DEFAULT '',
    recorded_at TEXT NOT NULL
);

CREATE INDEX idx_outcomes_run ON outcomes (run_id);
`

// Run is one recorded stage invocation.
type Run struct {
	ID         string
	Stage      string
	Status     string
	Detail     string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Outcome is one per-collaborator result inside a run, for example a single
// harvester finishing or a deposition target failing.
type Outcome struct {
	RunID      string
	Name       string
	Status     string
	Detail     string
	RecordedAt time.Time
}

// Journal manages run persistence backed by SQLite.
type Journal struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open initializes or connects to the journal database at path.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	journal := &Journal{db: db, path: path, now: time.Now}
	if err := journal.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return journal, nil
}

// Close closes the underlying database connection.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

// Path returns the database file location.
func (j *Journal) Path() string {
	return j.path
}

func (j *Journal) initSchema(ctx context.Context) error {
	var tableExists int
	err := j.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return j.createSchema(ctx)
	}

	var version int
	if err := j.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (run 'hermes clean' to reset)",
			ErrSchemaMismatch, version, schemaVersion)
	}
	return nil
}

func (j *Journal) createSchema(ctx context.Context) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// Begin records the start of a stage invocation and returns its run id.
func (j *Journal) Begin(ctx context.Context, stage string) (string, error) {
	id := uuid.NewString()
	startedAt := j.now().UTC().Format(time.RFC3339Nano)
	_, err := j.db.ExecContext(ctx,
		"INSERT INTO runs (id, stage, status, started_at) VALUES (?, ?, ?, ?)",
		id, stage, StatusRunning, startedAt)
	if err != nil {
		return "", fmt.Errorf("record run start: %w", err)
	}
	return id, nil
}

// Finish marks a run completed or failed. The detail is empty for completed
// runs and carries the failure message otherwise.
func (j *Journal) Finish(ctx context.Context, runID string, runErr error) error {
	status := StatusCompleted
	detail := ""
	if runErr != nil {
		status = StatusFailed
		detail = runErr.Error()
	}
	finishedAt := j.now().UTC().Format(time.RFC3339Nano)
	res, err := j.db.ExecContext(ctx,
		"UPDATE runs SET status = ?, detail = ?, finished_at = ? WHERE id = ?",
		status, detail, finishedAt, runID)
	if err != nil {
		return fmt.Errorf("record run finish: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return fmt.Errorf("record run finish: unknown run %s", runID)
	}
	return nil
}

// RecordOutcome stores one collaborator result for a run.
func (j *Journal) RecordOutcome(ctx context.Context, runID, name string, outcomeErr error) error {
	status := StatusCompleted
	detail := ""
	if outcomeErr != nil {
		status = StatusFailed
		detail = outcomeErr.Error()
	}
	recordedAt := j.now().UTC().Format(time.RFC3339Nano)
	_, err := j.db.ExecContext(ctx,
		"INSERT INTO outcomes (run_id, name, status, detail, recorded_at) VALUES (?, ?, ?, ?, ?)",
		runID, name, status, detail, recordedAt)
	if err != nil {
		return fmt.Errorf("record outcome: %w", err)
	}
	return nil
}

// Runs returns the most recent runs, newest first, capped at limit. A limit
// of zero or less returns everything.
func (j *Journal) Runs(ctx context.Context, limit int) ([]Run, error) {
	query := "SELECT id, stage, status, detail, started_at, finished_at FROM runs ORDER BY started_at DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run        Run
			startedAt  string
			finishedAt sql.NullString
		)
		if err := rows.Scan(&run.ID, &run.Stage, &run.Status, &run.Detail, &startedAt, &finishedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.StartedAt, err = parseTimestamp(startedAt)
		if err != nil {
			return nil, err
		}
		if finishedAt.Valid {
			run.FinishedAt, err = parseTimestamp(finishedAt.String)
			if err != nil {
				return nil, err
			}
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Outcomes returns the collaborator results of one run in recording order.
func (j *Journal) Outcomes(ctx context.Context, runID string) ([]Outcome, error) {
	rows, err := j.db.QueryContext(ctx,
		"SELECT run_id, name, status, detail, recorded_at FROM outcomes WHERE run_id = ? ORDER BY rowid",
		runID)
	if err != nil {
		return nil, fmt.Errorf("list outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []Outcome
	for rows.Next() {
		var (
			outcome    Outcome
			recordedAt string
		)
		if err := rows.Scan(&outcome.RunID, &outcome.Name, &outcome.Status, &outcome.Detail, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		outcome.RecordedAt, err = parseTimestamp(recordedAt)
		if err != nil {
			return nil, err
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, rows.Err()
}

func parseTimestamp(raw string) (time.Time, error) {
	ts, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("parse journal timestamp %q: %w", raw, err)
	}
	return ts, nil
}
