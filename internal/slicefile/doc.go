// Package slicefile extracts filament requirements from sliced-file archives.
//
// A sliced file is a zip container produced by slicing software. The
// generated instruction stream for the first plate lives at a fixed
// internal path and opens with comment directives describing which
// material slots the print consumes and what is expected in each. Only
// the first 500 lines are scanned; everything after the header is raw
// motion instructions and irrelevant here, which bounds parse cost on
// multi-hundred-megabyte files.
//
// Recognised directives, each a positionally aligned list:
//
//	; filament: 1,2
//	; filament_type = PLA;PETG
//	; filament_colour = #FF0000;#00FF00
//	; filament_settings_id = "Red PLA";"Green PETG"
//
// The slot-usage and type lists are mandatory. Colors default to white
// and display names to "Unknown Profile" when missing — a sliced file
// without those is still printable.
package slicefile
