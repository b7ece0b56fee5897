package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// SessionAPI is the slice of the messaging provider the poller needs.
type SessionAPI interface {
	StartSession(ctx context.Context) error
	SessionStatus(ctx context.Context) (string, error)
}

// SessionWorking is the provider status that marks a usable session.
const SessionWorking = "WORKING"

// SessionPoller waits for the messaging session to become usable. It issues a
// single best-effort start request and then polls the session status on a
// bounded schedule. Transient status errors consume an attempt but never abort
// the wait.
type SessionPoller struct {
	api      SessionAPI
	attempts int
	interval time.Duration
	sleep    func(ctx context.Context, d time.Duration) error
	logger   *slog.Logger
}

// NewSessionPoller constructs a poller with the given retry budget.
func NewSessionPoller(api SessionAPI, attempts int, interval time.Duration, logger *slog.Logger) *SessionPoller {
	if attempts <= 0 {
		attempts = 10
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &SessionPoller{
		api:      api,
		attempts: attempts,
		interval: interval,
		sleep:    contextSleep,
		logger:   defaultLogger(logger),
	}
}

// AwaitReady blocks until the session reports the working status. It returns
// ErrSessionNotReady once the retry budget is exhausted; the caller decides
// whether that is a failure or a silent skip.
func (p *SessionPoller) AwaitReady(ctx context.Context) error {
	logger := serviceLogger(ctx, p.logger, "SessionPoller", "AwaitReady",
		"attempts", p.attempts,
		"interval", p.interval.String(),
	)

	// The session may already be running; a failed start is not fatal.
	if err := p.api.StartSession(ctx); err != nil {
		logger.WarnContext(ctx, "session start request failed", "error", err)
	}

	for attempt := 1; attempt <= p.attempts; attempt++ {
		status, err := p.api.SessionStatus(ctx)
		switch {
		case err != nil:
			logger.WarnContext(ctx, "session status query failed", "error", err, "attempt", attempt)
		case status == SessionWorking:
			logger.InfoContext(ctx, "session ready", "attempt", attempt)
			return nil
		default:
			logger.InfoContext(ctx, "session not ready", "status", status, "attempt", attempt)
		}

		if attempt < p.attempts {
			if err := p.sleep(ctx, p.interval); err != nil {
				return err
			}
		}
	}

	return fmt.Errorf("%w: no working session after %d attempts", ErrSessionNotReady, p.attempts)
}

func contextSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
