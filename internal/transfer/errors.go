package transfer

import "errors"

// Domain-specific errors for transfer operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrConnectionFailed is returned when the control connection or the
	// login handshake fails.
	ErrConnectionFailed = errors.New("transfer: connection failed")

	// ErrNotConnected is returned when an operation runs on a client
	// that has not connected.
	ErrNotConnected = errors.New("transfer: not connected")

	// ErrAlreadyConnected is returned by Connect on a connected client.
	ErrAlreadyConnected = errors.New("transfer: already connected")

	// ErrTransferFailed is returned when the device rejects or aborts a
	// file operation.
	ErrTransferFailed = errors.New("transfer: operation failed")
)
