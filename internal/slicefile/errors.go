package slicefile

import "errors"

// Sentinel errors for sliced-file extraction.
var (
	// ErrInvalidArchive indicates the bytes are not a valid zip container.
	ErrInvalidArchive = errors.New("slicefile: not a valid sliced-file archive")

	// ErrMissingSliceData indicates the fixed instruction entry is absent.
	// The file was never sliced, or the archive is corrupted.
	ErrMissingSliceData = errors.New("slicefile: no generated instruction data found (file not sliced?)")

	// ErrInvalidSlotNumber indicates a slot-usage value outside [1,4] or
	// one that is not an integer.
	ErrInvalidSlotNumber = errors.New("slicefile: invalid filament slot number")

	// ErrMissingDirective indicates the slot-usage or type-list directive
	// is absent. There is no valid sliced file without them.
	ErrMissingDirective = errors.New("slicefile: required slicing directive missing")

	// ErrProfileIndexOutOfRange indicates a used slot refers past the end
	// of the embedded material list.
	ErrProfileIndexOutOfRange = errors.New("slicefile: slot refers beyond embedded material list")
)
