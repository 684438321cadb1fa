// Package filament reconciles a sliced file's material requirements
// against the trays a live device reports as loaded.
//
// Matching is strict: a profile matches a tray only when both the
// normalized material type and the normalized colour are equal. There is
// no fuzzy or partial matching — a print must never silently run with
// the wrong colour or material. Either every profile finds a tray and a
// complete mapping is returned, or the whole operation fails with a
// diagnostic listing of everything currently loaded.
//
// Devices without a material bay (single-spool manual feed) are
// accommodated: every profile maps to tray 0 and the result is flagged
// accordingly.
package filament
