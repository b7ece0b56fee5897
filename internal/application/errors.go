package application

import "errors"

var (
	// ErrCredentialNotFound is returned when no structurally valid service
	// account record can be located inside a secret blob.
	ErrCredentialNotFound = errors.New("application: credential not found")
	// ErrSessionNotReady is returned when the messaging session did not reach
	// the working state within the retry budget.
	ErrSessionNotReady = errors.New("application: session not ready")
	// ErrNoMessages signals that the conversation window was empty. It marks a
	// run with nothing to do, distinct from an empty schedule.
	ErrNoMessages = errors.New("application: no messages in window")
	// ErrNoScheduleInfo signals that the model explicitly reported no
	// extractable schedule information.
	ErrNoScheduleInfo = errors.New("application: no schedule info")
	// ErrNoInferenceOutput is returned when the inference reply envelope holds
	// no recognizable answer field.
	ErrNoInferenceOutput = errors.New("application: inference reply missing output")
	// ErrMalformedSchedule is returned when the model reply cannot be accepted
	// as a whole; no partial schedule is ever kept.
	ErrMalformedSchedule = errors.New("application: malformed schedule")
	// ErrPublishFailed is returned when the artifact could not be written to
	// object storage. The publish is single-attempt.
	ErrPublishFailed = errors.New("application: publish failed")
	// ErrReconcileLocked is returned when another reconciliation run holds the
	// ledger lease.
	ErrReconcileLocked = errors.New("application: reconciliation already in progress")
	// ErrUnauthorized is returned on a shared-secret mismatch.
	ErrUnauthorized = errors.New("application: unauthorized")
)
