package outbox

import (
	"errors"
	"time"
)

// Entry statuses
const (
	StatusPending  = "pending"
	StatusRetrying = "retrying"
	StatusDone     = "done"
	StatusFailed   = "failed"
)

// ActionTypeLeadNotification emails the team about a captured lead.
const ActionTypeLeadNotification = "lead_notification"

// DefaultMaxAttempts applies when an entry is saved without a limit.
const DefaultMaxAttempts = 5

// Domain errors
var (
	ErrEmptyActionType = errors.New("action type is required")
	ErrEmptyPayload    = errors.New("payload is required")
	ErrMissingCreated  = errors.New("created_at must be set")
)

// Entry is a side effect recorded in the same request that caused it and
// delivered later by the outbox worker.
type Entry struct {
	ID              string
	ActionType      string
	Payload         string // JSON
	Status          string
	Attempts        int
	MaxAttempts     int
	LastAttemptedAt time.Time
	CreatedAt       time.Time
	ExternalID      string // provider message id once delivered
	ErrorMessage    string
}

// Validate checks required fields and applies DefaultMaxAttempts.
// PRE: Entry struct is populated
// POST: Returns nil if valid, error otherwise
func (e *Entry) Validate() error {
	if e.ActionType == "" {
		return ErrEmptyActionType
	}
	if e.Payload == "" {
		return ErrEmptyPayload
	}
	if e.CreatedAt.IsZero() {
		return ErrMissingCreated
	}
	if e.MaxAttempts <= 0 {
		e.MaxAttempts = DefaultMaxAttempts
	}
	if e.Status == "" {
		e.Status = StatusPending
	}
	return nil
}

// Due reports whether the entry should be attempted at now, honouring the
// backoff since the last attempt.
func (e *Entry) Due(now time.Time, base, maxDelay time.Duration) bool {
	if e.Status != StatusPending && e.Status != StatusRetrying {
		return false
	}
	if e.Attempts >= e.MaxAttempts {
		return false
	}
	if e.LastAttemptedAt.IsZero() {
		return true
	}
	return !now.Before(e.LastAttemptedAt.Add(e.NextRetryDelay(base, maxDelay)))
}

// MarkAttempt records that delivery is being tried.
// POST: Attempts incremented, status retrying
func (e *Entry) MarkAttempt(now time.Time) {
	e.Attempts++
	e.LastAttemptedAt = now
	e.Status = StatusRetrying
}

// MarkSuccess finishes the entry.
func (e *Entry) MarkSuccess(externalID string) {
	e.Status = StatusDone
	e.ExternalID = externalID
	e.ErrorMessage = ""
}

// MarkFailed stores the error; the entry becomes failed once attempts run out.
func (e *Entry) MarkFailed(err error) {
	e.ErrorMessage = err.Error()
	if e.Attempts >= e.MaxAttempts {
		e.Status = StatusFailed
	}
}

// NextRetryDelay is 2^(attempts-1) * base, capped at maxDelay.
func (e *Entry) NextRetryDelay(base, maxDelay time.Duration) time.Duration {
	if e.Attempts <= 1 {
		return base
	}
	delay := base << (e.Attempts - 1)
	if delay > maxDelay || delay <= 0 {
		return maxDelay
	}
	return delay
}
