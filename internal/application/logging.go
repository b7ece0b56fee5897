package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/example/studysync/internal/logging"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

func serviceLogger(ctx context.Context, base *slog.Logger, serviceName, operation string, attrs ...any) *slog.Logger {
	logger := logging.Or(ctx, base)

	pairs := []any{"service", serviceName}
	if operation != "" {
		pairs = append(pairs, "operation", operation)
	}
	if len(attrs) > 0 {
		pairs = append(pairs, attrs...)
	}
	return logger.With(pairs...)
}

// ErrorKind maps sentinel errors to a stable logging label.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrCredentialNotFound):
		return "credential_not_found"
	case errors.Is(err, ErrSessionNotReady):
		return "session_not_ready"
	case errors.Is(err, ErrNoMessages):
		return "no_messages"
	case errors.Is(err, ErrNoScheduleInfo):
		return "no_schedule_info"
	case errors.Is(err, ErrNoInferenceOutput):
		return "no_inference_output"
	case errors.Is(err, ErrMalformedSchedule):
		return "malformed_schedule"
	case errors.Is(err, ErrPublishFailed):
		return "publish_failed"
	case errors.Is(err, ErrReconcileLocked):
		return "reconcile_locked"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	}
	return "unexpected"
}
