package domain

import "errors"

var (
	// ErrValidation marks malformed input rejected before any side effect.
	ErrValidation = errors.New("validation error")

	// ErrNotFound marks a lookup for a row that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict marks a state transition that lost a race with another owner.
	ErrConflict = errors.New("conflict")

	// ErrInvalidPayload marks an event whose payload is missing required fields
	// for its mapped notification. Never retried: a replay cannot fix the data.
	ErrInvalidPayload = errors.New("invalid event payload")

	// ErrTotalOutage marks a delivery attempt where every recipient failed due
	// to infrastructure unavailability. Escalated as a single job-level failure.
	ErrTotalOutage = errors.New("total delivery outage")
)
