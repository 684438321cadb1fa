// Package report parses inbound device telemetry.
//
// Everything the device publishes on its report topic lands here: command
// echoes tagged with one of the four outbound variant keys (print,
// pushing, system, gcode_line) and untagged full-state snapshots. Parse
// classifies each payload into a tagged Message so the session layer can
// correlate echoes by sequence ID and callers can read state without
// caring which shape carried it.
//
// Print echoes frequently piggyback full state (the device pushes status
// updates under the print key), so Parse decodes state fields from both
// tagged and untagged payloads when they are present.
package report
