package application

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// SecretStore fetches named secrets from the secret storage collaborator.
type SecretStore interface {
	GetSecret(ctx context.Context, name string) (string, error)
}

// NoEventReason is reported when the calendar holds no upcoming event.
const NoEventReason = "NO_EVENT"

// StatusService answers "should the external trigger fire" from the nearest
// upcoming calendar event.
type StatusService struct {
	calendar CalendarAPI
	now      func() time.Time
	logger   *slog.Logger
}

// NewStatusService constructs a StatusService.
func NewStatusService(calendar CalendarAPI, now func() time.Time, logger *slog.Logger) *StatusService {
	if now == nil {
		now = time.Now
	}
	return &StatusService{calendar: calendar, now: now, logger: defaultLogger(logger)}
}

// StatusResult is the classification verdict and the event title behind it.
type StatusResult struct {
	Trigger bool
	Reason  string
}

// Check queries the single nearest event starting at or after now and
// classifies its title. A missing event yields NoEventReason, which
// classifies to false.
func (s *StatusService) Check(ctx context.Context) (StatusResult, error) {
	logger := serviceLogger(ctx, s.logger, "StatusService", "Check")

	event, found, err := s.calendar.NextEvent(ctx, s.now().UTC())
	if err != nil {
		logger.ErrorContext(ctx, "calendar query failed", "error", err)
		return StatusResult{}, err
	}

	reason := NoEventReason
	if found {
		reason = event.Summary
	}

	result := StatusResult{Trigger: ClassifyTitle(reason), Reason: reason}
	logger.InfoContext(ctx, "status classified", "trigger", result.Trigger, "reason", result.Reason)
	return result, nil
}

// ClassifyTitle maps an event title to the trigger decision: "afeka" or
// "college" turns it on, "home" turns it off. The home rule is checked last
// so it wins when both appear in one title.
func ClassifyTitle(title string) bool {
	lower := strings.ToLower(title)

	trigger := false
	if strings.Contains(lower, "afeka") || strings.Contains(lower, "college") {
		trigger = true
	}
	if strings.Contains(lower, "home") {
		trigger = false
	}
	return trigger
}
