package report

import "errors"

// Sentinel errors for telemetry parsing.
var (
	// ErrMalformedPayload indicates an inbound payload that is not a JSON
	// object. The session swallows these (with bounded history) rather
	// than letting one corrupt push kill a long-lived connection.
	ErrMalformedPayload = errors.New("report: malformed telemetry payload")
)
