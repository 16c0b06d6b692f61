package domain

import "errors"

var (
	// ErrInvalidAmount rejects non-positive principals and payment amounts
	// before anything is written.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrNotFound covers absent tenants, debtors, cases and judgments.
	ErrNotFound = errors.New("not found")

	// ErrDispatchFailed marks a mail/PDF collaborator failure. A failed
	// dispatch must not persist a notice; the stage stays eligible for the
	// next sweep.
	ErrDispatchFailed = errors.New("notice dispatch failed")

	// ErrDuplicateNotice is raised by the (case_id, stage) uniqueness
	// constraint. Callers treat it as a successful no-op, never as an
	// application error.
	ErrDuplicateNotice = errors.New("notice already sent for stage")
)

// ValidationError carries the offending field for interactive flows.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
