package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// CalendarAPI is the slice of the calendar provider the services need. The
// client is bound to a single calendar.
type CalendarAPI interface {
	// FindEvents lists events on the given day (UTC window) whose text
	// matches the query.
	FindEvents(ctx context.Context, date string, query string) ([]CalendarEvent, error)
	// InsertEvent creates an all-day event.
	InsertEvent(ctx context.Context, event CalendarEvent) error
	// NextEvent returns the nearest event starting at or after from.
	NextEvent(ctx context.Context, from time.Time) (CalendarEvent, bool, error)
}

// ReconcileLedger is the local idempotency record for inserted events. It is
// advisory: the provider-side duplicate query remains authoritative, the
// ledger only saves round-trips and serializes concurrent runs.
type ReconcileLedger interface {
	RunJournal
	SeenEvent(ctx context.Context, date string, location Location) (bool, error)
	RecordEvent(ctx context.Context, date string, location Location, runID string, at time.Time) error
	AcquireLease(ctx context.Context, holder string, at time.Time, ttl time.Duration) (bool, error)
	ReleaseLease(ctx context.Context, holder string) error
}

const (
	eventSummaryPrefix = "Study: "
	eventDescription   = "Auto-added from WhatsApp Schedule Analysis"
	eventTransparency  = "transparent"
	leaseTTL           = 5 * time.Minute
)

// ReconcileService applies an extracted schedule to the calendar without
// creating duplicates: for each entry, query the day for a matching event and
// insert only when nothing matches.
type ReconcileService struct {
	calendar CalendarAPI
	ledger   ReconcileLedger
	now      func() time.Time
	newRunID func() string
	logger   *slog.Logger
}

// NewReconcileService constructs a ReconcileService. ledger may be nil, in
// which case deduplication relies on the provider query alone.
func NewReconcileService(calendar CalendarAPI, ledger ReconcileLedger, now func() time.Time, newRunID func() string, logger *slog.Logger) *ReconcileService {
	if now == nil {
		now = time.Now
	}
	if newRunID == nil {
		newRunID = func() string { return "" }
	}
	return &ReconcileService{
		calendar: calendar,
		ledger:   ledger,
		now:      now,
		newRunID: newRunID,
		logger:   defaultLogger(logger),
	}
}

// ReconcileResult reports what one reconciliation run changed.
type ReconcileResult struct {
	RunID    string
	Inserted int
	Skipped  int
}

// Reconcile processes entries independently and in input order. The first
// failing entry aborts the run; earlier inserts stand and are not rolled
// back. Repeated runs over the same schedule insert nothing new.
func (s *ReconcileService) Reconcile(ctx context.Context, entries []ScheduleEntry) (result ReconcileResult, err error) {
	runID := s.newRunID()
	startedAt := s.now()
	result.RunID = runID
	logger := serviceLogger(ctx, s.logger, "ReconcileService", "Reconcile",
		"run_id", runID,
		"entries", len(entries),
	)

	if len(entries) == 0 {
		logger.InfoContext(ctx, "empty schedule, nothing to reconcile")
		return result, nil
	}

	if s.ledger != nil {
		ok, leaseErr := s.ledger.AcquireLease(ctx, runID, startedAt, leaseTTL)
		if leaseErr != nil {
			return result, fmt.Errorf("acquire lease: %w", leaseErr)
		}
		if !ok {
			return result, ErrReconcileLocked
		}
		defer func() {
			if releaseErr := s.ledger.ReleaseLease(ctx, runID); releaseErr != nil {
				logger.WarnContext(ctx, "lease release failed", "error", releaseErr)
			}
		}()
	}

	defer func() {
		s.journalRun(ctx, logger, RunRecord{
			ID:         runID,
			Kind:       RunKindReconcile,
			StartedAt:  startedAt,
			FinishedAt: s.now(),
			Entries:    len(entries),
			Inserted:   result.Inserted,
			Skipped:    result.Skipped,
			Error:      errorText(err),
		})
	}()

	for _, entry := range entries {
		if err = entry.Validate(); err != nil {
			return result, err
		}

		inserted, entryErr := s.reconcileEntry(ctx, logger, runID, entry)
		if entryErr != nil {
			err = fmt.Errorf("entry %s/%s: %w", entry.Date, entry.Location, entryErr)
			return result, err
		}
		if inserted {
			result.Inserted++
		} else {
			result.Skipped++
		}
	}

	logger.InfoContext(ctx, "reconciliation finished", "inserted", result.Inserted, "skipped", result.Skipped)
	return result, nil
}

func (s *ReconcileService) reconcileEntry(ctx context.Context, logger *slog.Logger, runID string, entry ScheduleEntry) (bool, error) {
	if s.ledger != nil {
		seen, err := s.ledger.SeenEvent(ctx, entry.Date, entry.Location)
		if err != nil {
			return false, fmt.Errorf("ledger lookup: %w", err)
		}
		if seen {
			logger.InfoContext(ctx, "event already in ledger, skipping", "date", entry.Date, "location", entry.Location)
			return false, nil
		}
	}

	existing, err := s.calendar.FindEvents(ctx, entry.Date, string(entry.Location))
	if err != nil {
		return false, fmt.Errorf("calendar query: %w", err)
	}
	if len(existing) > 0 {
		logger.InfoContext(ctx, "event already on calendar, skipping", "date", entry.Date, "location", entry.Location)
		s.recordEvent(ctx, logger, runID, entry)
		return false, nil
	}

	event, err := allDayEvent(entry)
	if err != nil {
		return false, err
	}
	if err := s.calendar.InsertEvent(ctx, event); err != nil {
		return false, fmt.Errorf("calendar insert: %w", err)
	}
	s.recordEvent(ctx, logger, runID, entry)
	logger.InfoContext(ctx, "event inserted", "date", entry.Date, "location", entry.Location)
	return true, nil
}

// recordEvent backfills the ledger. A duplicate row means another run got
// there first; that is exactly the state we wanted.
func (s *ReconcileService) recordEvent(ctx context.Context, logger *slog.Logger, runID string, entry ScheduleEntry) {
	if s.ledger == nil {
		return
	}
	if err := s.ledger.RecordEvent(ctx, entry.Date, entry.Location, runID, s.now()); err != nil {
		logger.WarnContext(ctx, "ledger record failed", "error", err, "date", entry.Date, "location", entry.Location)
	}
}

func (s *ReconcileService) journalRun(ctx context.Context, logger *slog.Logger, run RunRecord) {
	if s.ledger == nil {
		return
	}
	if err := s.ledger.RecordRun(ctx, run); err != nil {
		logger.WarnContext(ctx, "run journal write failed", "error", err)
	}
}

func allDayEvent(entry ScheduleEntry) (CalendarEvent, error) {
	start, err := time.Parse(dateLayout, entry.Date)
	if err != nil {
		return CalendarEvent{}, fmt.Errorf("%w: invalid date %q", ErrMalformedSchedule, entry.Date)
	}
	return CalendarEvent{
		Summary:      eventSummaryPrefix + string(entry.Location),
		Description:  eventDescription,
		StartDate:    entry.Date,
		EndDate:      start.AddDate(0, 0, 1).Format(dateLayout),
		Transparency: eventTransparency,
	}, nil
}
