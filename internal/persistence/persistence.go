// Package persistence defines the local reconciliation ledger: an advisory
// idempotency record for calendar inserts, a run journal, and an exclusive
// lease that serializes reconciliation runs.
package persistence

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = errors.New("persistence: duplicate")
)

// EventRecord marks one calendar insert this system performed or observed.
type EventRecord struct {
	Date      string
	Location  string
	RunID     string
	CreatedAt time.Time
}

// RunRecord journals one pipeline run.
type RunRecord struct {
	ID         string
	Kind       string
	StartedAt  time.Time
	FinishedAt time.Time
	Entries    int
	Inserted   int
	Skipped    int
	Error      string
}

// LedgerRepository captures the ledger interactions the services need.
type LedgerRepository interface {
	SeenEvent(ctx context.Context, date, location string) (bool, error)
	RecordEvent(ctx context.Context, record EventRecord) error
	RecordRun(ctx context.Context, run RunRecord) error
	AcquireLease(ctx context.Context, holder string, at time.Time, ttl time.Duration) (bool, error)
	ReleaseLease(ctx context.Context, holder string) error
}
