package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/example/studysync/internal/application"
)

// StatusChecker answers whether the nearest upcoming calendar event calls for
// a trigger.
type StatusChecker interface {
	Check(ctx context.Context) (application.StatusResult, error)
}

// StatusHandler serves the trigger verdict endpoint.
type StatusHandler struct {
	checker   StatusChecker
	responder responder
	logger    *slog.Logger
}

// NewStatusHandler builds a StatusHandler around the given checker.
func NewStatusHandler(checker StatusChecker, logger *slog.Logger) *StatusHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &StatusHandler{
		checker:   checker,
		responder: newResponder(logger),
		logger:    logger,
	}
}

type statusDTO struct {
	Trigger bool   `json:"trigger"`
	Reason  string `json:"reason,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Check answers the trigger verdict. Downstream failures are reported as a
// non-triggering 200 so the caller's physical action stays gated shut.
func (h *StatusHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := handlerLogger(ctx, h.logger, "status")

	result, err := h.checker.Check(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "status check failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.writeJSON(ctx, w, http.StatusOK, statusDTO{Trigger: false, Error: err.Error()})
		return
	}

	logger.InfoContext(ctx, "status check completed", "trigger", result.Trigger, "reason", result.Reason)
	h.responder.writeJSON(ctx, w, http.StatusOK, statusDTO{Trigger: result.Trigger, Reason: result.Reason})
}
