package habit

import "errors"

var (
	// ErrNotFound is returned when a habit does not exist or belongs to
	// another user.
	ErrNotFound = errors.New("habit not found")

	// ErrInvalidOperation is returned for writes the recurrence rule does not
	// allow and for malformed habit definitions.
	ErrInvalidOperation = errors.New("invalid operation")
)
