package repository

import "errors"

// Error taxonomy for the whole service. Callers match with errors.Is; the
// concrete message wraps one of these sentinels with operation context.
var (
	// ErrNotFound is returned when a referenced event, user, or swap request
	// does not exist.
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned when the actor lacks authority over the
	// resource (not the owner, not the counterpart).
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidOperation is returned for structurally nonsensical requests
	// (self-swap, identical ids, disallowed status value).
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrInvalidState is returned when the entity is not in a state that
	// permits the operation (event not SWAPPABLE, request not PENDING).
	ErrInvalidState = errors.New("invalid state")

	// ErrConflict is returned when a concurrent mutation raced the caller.
	// Retrying may succeed.
	ErrConflict = errors.New("conflict")

	// ErrUnavailable is returned when the store exceeded its lock wait bound.
	// Retrying may succeed.
	ErrUnavailable = errors.New("store unavailable")
)
