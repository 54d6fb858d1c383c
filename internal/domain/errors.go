package domain

import "errors"

// Sentinel errors shared across repositories, services, and controllers.
// Services wrap underlying failures with %w so callers dispatch on these
// via errors.Is.
var (
	// ErrNotFound is returned when the requested record does not exist or
	// is no longer active.
	ErrNotFound = errors.New("not found")
	// ErrCapacityExceeded is returned when a join or acceptance would push
	// a counter past its capacity.
	ErrCapacityExceeded = errors.New("capacity exceeded")
	// ErrInvalidTransition is returned when an entry or invitation is
	// asked to move to a state its current state does not allow.
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrConflict is returned when concurrent writes exhausted the
	// transaction retry budget; the caller may retry.
	ErrConflict = errors.New("transient conflict")
	// ErrForbidden is returned when the caller is not the owner of the
	// record they are operating on.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidInput is returned when the request is invalid.
	ErrInvalidInput = errors.New("invalid input")
)
