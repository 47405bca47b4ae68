package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pevans/gridiron/record"
)

// SQLite stores records, the checkpoint, and a history of runs in a single
// database file. Every write happens inside one transaction.
type SQLite struct {
	db   *sql.DB
	path string
}

// Run is one collection run as recorded by a RunLog.
type Run struct {
	RunID      uuid.UUID
	Job        string
	StartedAt  time.Time
	FinishedAt time.Time
	Accepted   int
	Flushes    int
	StopReason string
	Error      string
}

// RunLog is implemented by stores that keep a history of runs.
type RunLog interface {
	RecordRun(run Run) error
	Runs(job string, limit int) ([]Run, error)
}

// NewSQLite opens (creating if needed) the database at path.
func NewSQLite(path string) (*SQLite, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite store requires a database path")
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLite{db: db, path: path}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates the tables if they don't exist.
func (s *SQLite) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS records (
		url TEXT PRIMARY KEY,
		date TEXT,
		payload TEXT NOT NULL,
		collected_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS checkpoint (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		token TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		job TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		accepted INTEGER NOT NULL DEFAULT 0,
		flushes INTEGER NOT NULL DEFAULT 0,
		stop_reason TEXT,
		error TEXT
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Load returns all records in insertion order.
func (s *SQLite) Load() ([]record.Record, error) {
	rows, err := s.db.Query(`SELECT url, date, payload FROM records ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	records := []record.Record{}
	for rows.Next() {
		var url, payloadJSON string
		var date sql.NullString
		if err := rows.Scan(&url, &date, &payloadJSON); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}

		rec := record.New(url, time.Time{})
		if date.Valid && date.String != "" {
			ts, err := time.Parse(time.RFC3339Nano, date.String)
			if err != nil {
				return nil, &CorruptStateError{Path: s.path, Err: fmt.Errorf("record %s: %w", url, err)}
			}
			rec.Timestamp = ts.UTC()
		}
		if err := json.Unmarshal([]byte(payloadJSON), &rec.Payload); err != nil {
			return nil, &CorruptStateError{Path: s.path, Err: fmt.Errorf("record %s: %w", url, err)}
		}
		if rec.Payload == nil {
			rec.Payload = map[string]any{}
		}

		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}
	return records, nil
}

// AppendAndSave inserts records in one transaction. Existing URLs are left
// untouched.
func (s *SQLite) AppendAndSave(records []record.Record) error {
	tx, err := s.db.Begin()
	if err != nil {
		return &StoreWriteError{Op: "begin transaction", Path: s.path, Err: err}
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO records (url, date, payload, collected_at)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return &StoreWriteError{Op: "prepare insert", Path: s.path, Err: err}
	}
	defer stmt.Close()

	now := formatTime(time.Now())
	for _, rec := range records {
		payload := rec.Payload
		if payload == nil {
			payload = map[string]any{}
		}
		payloadJSON, err := json.Marshal(payload)
		if err != nil {
			return &StoreWriteError{Op: "marshal payload", Path: s.path, Err: err}
		}

		var date any
		if !rec.Timestamp.IsZero() {
			date = formatTime(rec.Timestamp)
		}

		if _, err := stmt.Exec(rec.ID, date, string(payloadJSON), now); err != nil {
			return &StoreWriteError{Op: "insert record", Path: s.path, Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &StoreWriteError{Op: "commit", Path: s.path, Err: err}
	}
	return nil
}

// LoadCheckpoint returns the stored token.
func (s *SQLite) LoadCheckpoint() (string, bool, error) {
	var token string
	err := s.db.QueryRow(`SELECT token FROM checkpoint WHERE id = 1`).Scan(&token)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read checkpoint: %w", err)
	}
	return token, token != "", nil
}

// SaveCheckpoint replaces the stored token.
func (s *SQLite) SaveCheckpoint(token string) error {
	_, err := s.db.Exec(`
		INSERT INTO checkpoint (id, token, updated_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET token = excluded.token, updated_at = excluded.updated_at
	`, token, formatTime(time.Now()))
	if err != nil {
		return &StoreWriteError{Op: "save checkpoint", Path: s.path, Err: err}
	}
	return nil
}

// RecordRun stores the outcome of a run.
func (s *SQLite) RecordRun(run Run) error {
	if run.RunID == uuid.Nil {
		run.RunID = uuid.New()
	}

	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO runs (
			run_id, job, started_at, finished_at, accepted, flushes, stop_reason, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.RunID.String(),
		run.Job,
		formatTime(run.StartedAt),
		formatTime(run.FinishedAt),
		run.Accepted,
		run.Flushes,
		run.StopReason,
		run.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

// Runs returns the most recent runs of job, newest first. A limit of 0
// returns every run.
func (s *SQLite) Runs(job string, limit int) ([]Run, error) {
	query := `
		SELECT run_id, job, started_at, finished_at, accepted, flushes, stop_reason, error
		FROM runs
		WHERE job = ?
		ORDER BY started_at DESC
	`
	args := []any{job}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var runID, startedAt, finishedAt string
		var stopReason, errText sql.NullString
		var run Run
		if err := rows.Scan(
			&runID, &run.Job, &startedAt, &finishedAt,
			&run.Accepted, &run.Flushes, &stopReason, &errText,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		run.RunID, err = uuid.Parse(runID)
		if err != nil {
			return nil, fmt.Errorf("invalid run_id: %w", err)
		}
		run.StartedAt = parseTime(startedAt)
		run.FinishedAt = parseTime(finishedAt)
		run.StopReason = stopReason.String
		run.Error = errText.String

		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// Helper functions for time formatting
func formatTime(t time.Time) string {
	// Strip monotonic clock for consistent storage and comparisons
	return t.UTC().Truncate(0).Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	// Try RFC3339Nano first, fall back to RFC3339 for compatibility
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339, s)
	}
	return t.Truncate(0)
}
