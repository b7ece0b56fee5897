package application

import (
	"context"
	"errors"
	"testing"
	"time"
)

type sessionAPIStub struct {
	startErr   error
	startCalls int
	statuses   []string
	statusErrs []error
	statusIdx  int
}

func (s *sessionAPIStub) StartSession(ctx context.Context) error {
	s.startCalls++
	return s.startErr
}

func (s *sessionAPIStub) SessionStatus(ctx context.Context) (string, error) {
	idx := s.statusIdx
	s.statusIdx++
	if idx < len(s.statusErrs) && s.statusErrs[idx] != nil {
		return "", s.statusErrs[idx]
	}
	if idx < len(s.statuses) {
		return s.statuses[idx], nil
	}
	return "STOPPED", nil
}

func noSleep(ctx context.Context, d time.Duration) error { return nil }

func TestSessionPollerAwaitReady(t *testing.T) {
	t.Parallel()

	t.Run("returns once the session reports working", func(t *testing.T) {
		t.Parallel()

		api := &sessionAPIStub{statuses: []string{"STARTING", "STARTING", SessionWorking}}
		poller := NewSessionPoller(api, 5, time.Millisecond, nil)
		poller.sleep = noSleep

		if err := poller.AwaitReady(context.Background()); err != nil {
			t.Fatalf("AwaitReady failed: %v", err)
		}
		if api.startCalls != 1 {
			t.Fatalf("expected one start request, got %d", api.startCalls)
		}
		if api.statusIdx != 3 {
			t.Fatalf("expected 3 status polls, got %d", api.statusIdx)
		}
	})

	t.Run("a failed start request is not fatal", func(t *testing.T) {
		t.Parallel()

		api := &sessionAPIStub{
			startErr: errors.New("already started"),
			statuses: []string{SessionWorking},
		}
		poller := NewSessionPoller(api, 3, time.Millisecond, nil)
		poller.sleep = noSleep

		if err := poller.AwaitReady(context.Background()); err != nil {
			t.Fatalf("AwaitReady failed: %v", err)
		}
	})

	t.Run("transient status errors consume attempts without aborting", func(t *testing.T) {
		t.Parallel()

		api := &sessionAPIStub{
			statusErrs: []error{errors.New("conn refused"), nil},
			statuses:   []string{"", SessionWorking},
		}
		poller := NewSessionPoller(api, 3, time.Millisecond, nil)
		poller.sleep = noSleep

		if err := poller.AwaitReady(context.Background()); err != nil {
			t.Fatalf("AwaitReady failed: %v", err)
		}
	})

	t.Run("exhausted attempts yield ErrSessionNotReady", func(t *testing.T) {
		t.Parallel()

		api := &sessionAPIStub{statuses: []string{"STARTING", "STARTING", "STARTING"}}
		poller := NewSessionPoller(api, 3, time.Millisecond, nil)
		poller.sleep = noSleep

		err := poller.AwaitReady(context.Background())
		if !errors.Is(err, ErrSessionNotReady) {
			t.Fatalf("expected ErrSessionNotReady, got %v", err)
		}
		if api.statusIdx != 3 {
			t.Fatalf("expected exactly 3 status polls, got %d", api.statusIdx)
		}
	})

	t.Run("context cancellation interrupts the wait", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		api := &sessionAPIStub{statuses: []string{"STARTING", "STARTING"}}
		poller := NewSessionPoller(api, 5, time.Millisecond, nil)
		poller.sleep = func(ctx context.Context, d time.Duration) error {
			cancel()
			return ctx.Err()
		}

		if err := poller.AwaitReady(ctx); !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	})
}
