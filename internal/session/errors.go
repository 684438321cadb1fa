package session

import "errors"

// Domain-specific errors for session operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrConnectionTimeout is returned when the broker handshake or the
	// report-topic subscription does not complete within the bound.
	ErrConnectionTimeout = errors.New("session: connection timed out")

	// ErrConnectionFailed is returned for transient connection failures
	// (refused, network unreachable). Retryable.
	ErrConnectionFailed = errors.New("session: connection failed")

	// ErrAuthenticationFailed is returned when the device rejects the
	// access code. Terminal: never retried.
	ErrAuthenticationFailed = errors.New("session: authentication rejected (check access code)")

	// ErrAlreadyConnected is returned by Connect on a session that is not
	// in the unconnected state.
	ErrAlreadyConnected = errors.New("session: already connected")

	// ErrNotConnected is returned when publishing on a session that is
	// not connected.
	ErrNotConnected = errors.New("session: not connected")

	// ErrPublishFailed is returned when the transport rejects a publish.
	ErrPublishFailed = errors.New("session: publish failed")

	// ErrCommandResponseTimeout is returned when a correlated wait
	// expires and nothing at all arrived on the report topic.
	ErrCommandResponseTimeout = errors.New("session: no response from device")

	// ErrWaitInProgress is returned when a correlated wait is started
	// while another is still outstanding. One session supports one
	// in-flight correlated wait at a time.
	ErrWaitInProgress = errors.New("session: another correlated wait is in progress")
)
