// Package sqlite implements the reconciliation ledger over a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/example/studysync/internal/persistence"
)

const schema = `
CREATE TABLE IF NOT EXISTS calendar_events (
	date       TEXT NOT NULL,
	location   TEXT NOT NULL,
	run_id     TEXT NOT NULL,
	created_at TEXT NOT NULL,
	PRIMARY KEY (date, location)
);

CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	kind        TEXT NOT NULL,
	started_at  TEXT NOT NULL,
	finished_at TEXT NOT NULL,
	entries     INTEGER NOT NULL DEFAULT 0,
	inserted    INTEGER NOT NULL DEFAULT 0,
	skipped     INTEGER NOT NULL DEFAULT 0,
	error       TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS leases (
	name        TEXT PRIMARY KEY,
	holder      TEXT NOT NULL,
	acquired_at TEXT NOT NULL,
	expires_at  TEXT NOT NULL
);
`

const reconcileLeaseName = "reconcile"

// Ledger implements persistence.LedgerRepository using SQLite.
type Ledger struct {
	db *sql.DB
}

// Open opens the ledger database at the given DSN and applies the schema.
func Open(dsn string) (*Ledger, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("sqlite: dsn is required")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open ledger: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: migrate ledger: %w", err)
	}
	return &Ledger{db: db}, nil
}

// Close closes the underlying database.
func (l *Ledger) Close() error {
	if l.db != nil {
		return l.db.Close()
	}
	return nil
}

// Ping tests the database connection.
func (l *Ledger) Ping(ctx context.Context) error {
	return l.db.PingContext(ctx)
}

// SeenEvent reports whether an insert for the given day and location has
// already been recorded.
func (l *Ledger) SeenEvent(ctx context.Context, date, location string) (bool, error) {
	query := `SELECT 1 FROM calendar_events WHERE date = ? AND location = ?`

	var one int
	err := l.db.QueryRowContext(ctx, query, date, location).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, mapError(err)
	}
	return true, nil
}

// RecordEvent marks an insert as performed. A second record for the same day
// and location returns persistence.ErrDuplicate.
func (l *Ledger) RecordEvent(ctx context.Context, record persistence.EventRecord) error {
	query := `
		INSERT INTO calendar_events (date, location, run_id, created_at)
		VALUES (?, ?, ?, ?)
	`

	_, err := l.db.ExecContext(ctx, query,
		record.Date,
		record.Location,
		record.RunID,
		record.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return mapError(err)
	}
	return nil
}

// RecordRun journals a finished pipeline run.
func (l *Ledger) RecordRun(ctx context.Context, run persistence.RunRecord) error {
	query := `
		INSERT INTO runs (id, kind, started_at, finished_at, entries, inserted, skipped, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := l.db.ExecContext(ctx, query,
		run.ID,
		run.Kind,
		run.StartedAt.UTC().Format(time.RFC3339),
		run.FinishedAt.UTC().Format(time.RFC3339),
		run.Entries,
		run.Inserted,
		run.Skipped,
		run.Error,
	)
	if err != nil {
		return mapError(err)
	}
	return nil
}

// LastRun returns the most recently started run of the given kind.
func (l *Ledger) LastRun(ctx context.Context, kind string) (persistence.RunRecord, error) {
	query := `
		SELECT id, kind, started_at, finished_at, entries, inserted, skipped, error
		FROM runs
		WHERE kind = ?
		ORDER BY started_at DESC
		LIMIT 1
	`

	var run persistence.RunRecord
	var startedAt, finishedAt string

	err := l.db.QueryRowContext(ctx, query, kind).Scan(
		&run.ID,
		&run.Kind,
		&startedAt,
		&finishedAt,
		&run.Entries,
		&run.Inserted,
		&run.Skipped,
		&run.Error,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.RunRecord{}, persistence.ErrNotFound
		}
		return persistence.RunRecord{}, mapError(err)
	}

	if run.StartedAt, err = time.Parse(time.RFC3339, startedAt); err != nil {
		return persistence.RunRecord{}, fmt.Errorf("sqlite: parse started_at: %w", err)
	}
	if run.FinishedAt, err = time.Parse(time.RFC3339, finishedAt); err != nil {
		return persistence.RunRecord{}, fmt.Errorf("sqlite: parse finished_at: %w", err)
	}
	return run, nil
}

// AcquireLease takes the reconcile lease for holder. It returns false when
// another holder owns an unexpired lease. Expired leases are taken over.
func (l *Ledger) AcquireLease(ctx context.Context, holder string, at time.Time, ttl time.Duration) (bool, error) {
	atUTC := at.UTC()
	expires := atUTC.Add(ttl)

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("sqlite: begin lease transaction: %w", err)
	}
	defer tx.Rollback()

	var currentHolder, expiresAt string
	err = tx.QueryRowContext(ctx,
		`SELECT holder, expires_at FROM leases WHERE name = ?`, reconcileLeaseName,
	).Scan(&currentHolder, &expiresAt)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = tx.ExecContext(ctx,
			`INSERT INTO leases (name, holder, acquired_at, expires_at) VALUES (?, ?, ?, ?)`,
			reconcileLeaseName, holder,
			atUTC.Format(time.RFC3339), expires.Format(time.RFC3339),
		)
		if err != nil {
			return false, mapError(err)
		}
	case err != nil:
		return false, mapError(err)
	default:
		current, perr := time.Parse(time.RFC3339, expiresAt)
		if perr != nil {
			return false, fmt.Errorf("sqlite: parse lease expires_at: %w", perr)
		}
		if currentHolder != holder && atUTC.Before(current) {
			return false, nil
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE leases SET holder = ?, acquired_at = ?, expires_at = ? WHERE name = ?`,
			holder, atUTC.Format(time.RFC3339), expires.Format(time.RFC3339),
			reconcileLeaseName,
		)
		if err != nil {
			return false, mapError(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("sqlite: commit lease transaction: %w", err)
	}
	return true, nil
}

// ReleaseLease drops the reconcile lease if holder still owns it.
func (l *Ledger) ReleaseLease(ctx context.Context, holder string) error {
	_, err := l.db.ExecContext(ctx,
		`DELETE FROM leases WHERE name = ? AND holder = ?`, reconcileLeaseName, holder,
	)
	if err != nil {
		return mapError(err)
	}
	return nil
}

// mapError maps driver errors to persistence layer errors. The driver has no
// typed errors, so constraint violations are recognized by message.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%w: %v", persistence.ErrDuplicate, err)
	}
	return err
}
