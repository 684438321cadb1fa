package filament

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nerrad567/printlink/internal/report"
)

// ErrFilamentNotFound is the sentinel for a required material that no
// loaded tray satisfies. Returned wrapped inside a *NotFoundError.
var ErrFilamentNotFound = errors.New("filament: required material not loaded")

// NotFoundError reports a profile with no matching tray. It carries the
// full available inventory so the operator can see at a glance what to
// load or remap.
type NotFoundError struct {
	// RequiredType and RequiredColor are the profile's declared values.
	RequiredType  string
	RequiredColor string

	// Available is the device's reported tray inventory at match time.
	Available []report.Tray
}

// Error formats the requirement and every available slot's type/colour.
func (e *NotFoundError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%v: need %s #%s", ErrFilamentNotFound, e.RequiredType, e.RequiredColor)

	if len(e.Available) == 0 {
		sb.WriteString("; no trays loaded")
		return sb.String()
	}

	sb.WriteString("; loaded trays:")
	for _, tray := range e.Available {
		fmt.Fprintf(&sb, " [slot %s: %s #%s]", tray.ID, tray.Type, tray.Color)
	}
	return sb.String()
}

// Unwrap lets errors.Is(err, ErrFilamentNotFound) succeed.
func (e *NotFoundError) Unwrap() error {
	return ErrFilamentNotFound
}
