package pathsafe

import "errors"

// Domain-specific errors for path validation.
// Use errors.Is() to check for these errors in calling code.
//
// All of these are fatal input errors: callers must never retry a
// rejected path, only surface the message to the user.
var (
	// ErrEmptyPath is returned for empty or whitespace-only input.
	ErrEmptyPath = errors.New("pathsafe: empty path")

	// ErrPathTraversal is returned when the input contains a parent
	// directory traversal sequence.
	ErrPathTraversal = errors.New("pathsafe: path traversal detected")

	// ErrBlockedDirectory is returned when the path resolves into one of
	// the device's reserved system directories.
	ErrBlockedDirectory = errors.New("pathsafe: access to system directory denied")

	// ErrPathTooLong is returned when the normalized path exceeds the
	// device's path length limit.
	ErrPathTooLong = errors.New("pathsafe: path exceeds length limit")

	// ErrInvalidCharacters is returned when the path contains control
	// characters or characters the device's storage cannot represent.
	ErrInvalidCharacters = errors.New("pathsafe: path contains invalid characters")

	// ErrHiddenFile is returned when the path names a dot-prefixed file
	// that is not an allowed media type.
	ErrHiddenFile = errors.New("pathsafe: hidden files are not permitted")
)
