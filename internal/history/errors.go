package history

import "errors"

// Domain-specific errors for history operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrJobNotFound is returned when no job exists with the given ID.
	ErrJobNotFound = errors.New("history: job not found")
)
