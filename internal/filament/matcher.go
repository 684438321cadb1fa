package filament

import (
	"strconv"
	"strings"

	"github.com/nerrad567/printlink/internal/report"
	"github.com/nerrad567/printlink/internal/slicefile"
)

// Colour values with an alpha channel are truncated to the RGB part
// before comparison; sliced files declare 6 hex characters, devices
// report 8.
const rgbHexLength = 6

// Match pairs one required profile with the tray that satisfies it.
type Match struct {
	// Profile is the requirement from the sliced file.
	Profile slicefile.Profile

	// MatchedSlot is the 1-based slot of the chosen tray.
	MatchedSlot int

	// MatchedTrayID is the 0-based tray identifier of the chosen tray.
	MatchedTrayID int
}

// Result is a complete reconciliation. It is constructed atomically:
// either every profile matched or no Result exists at all.
type Result struct {
	// Mapping is the 0-based tray ID per input profile, in input order.
	// Its length always equals the input profile count.
	Mapping []int

	// Matches details each pairing, in input order.
	Matches []Match

	// AMSDetected is false when the device has no material bay and the
	// single-spool accommodation was applied.
	AMSDetected bool

	// TotalSlots is the number of trays considered (1 for manual feed).
	TotalSlots int
}

// MatchProfiles reconciles required profiles against reported trays.
//
// A device reporting no trays is treated as a single-spool manual-feed
// machine: every profile maps to tray 0. Otherwise each profile, in
// input order, takes the first tray whose normalized type and colour
// both match. First match wins even when duplicates exist later.
//
// Parameters:
//   - profiles: Material requirements from slicefile.Extract
//   - trays: Loaded trays from one telemetry snapshot, in reported order
//
// Returns:
//   - *Result: Complete mapping, never partial
//   - error: *NotFoundError (wrapping ErrFilamentNotFound) on the first
//     profile with no matching tray
func MatchProfiles(profiles []slicefile.Profile, trays []report.Tray) (*Result, error) {
	if len(trays) == 0 {
		return manualFeedResult(profiles), nil
	}

	result := &Result{
		AMSDetected: true,
		TotalSlots:  len(trays),
		Mapping:     make([]int, 0, len(profiles)),
		Matches:     make([]Match, 0, len(profiles)),
	}

	for _, profile := range profiles {
		trayID, found := findTray(profile, trays)
		if !found {
			return nil, &NotFoundError{
				RequiredType:  profile.Type,
				RequiredColor: profile.ColorHex,
				Available:     trays,
			}
		}

		result.Mapping = append(result.Mapping, trayID)
		result.Matches = append(result.Matches, Match{
			Profile:       profile,
			MatchedSlot:   trayID + 1,
			MatchedTrayID: trayID,
		})
	}

	return result, nil
}

// findTray scans trays in reported order for the first strict match.
func findTray(profile slicefile.Profile, trays []report.Tray) (int, bool) {
	wantType := NormalizeType(profile.Type)
	wantColor := NormalizeColor(profile.ColorHex)

	for i, tray := range trays {
		if NormalizeType(tray.Type) == wantType && NormalizeColor(tray.Color) == wantColor {
			return trayIDOf(tray, i), true
		}
	}
	return 0, false
}

// trayIDOf parses the device's 0-based tray identifier, falling back to
// the tray's position when the ID is not numeric.
func trayIDOf(tray report.Tray, position int) int {
	id, err := strconv.Atoi(tray.ID)
	if err != nil {
		return position
	}
	return id
}

// manualFeedResult maps every profile to tray 0 for bay-less devices.
func manualFeedResult(profiles []slicefile.Profile) *Result {
	result := &Result{
		AMSDetected: false,
		TotalSlots:  1,
		Mapping:     make([]int, len(profiles)),
		Matches:     make([]Match, 0, len(profiles)),
	}
	for _, profile := range profiles {
		result.Matches = append(result.Matches, Match{
			Profile:       profile,
			MatchedSlot:   1,
			MatchedTrayID: 0,
		})
	}
	return result
}

// NormalizeType canonicalizes a material type for comparison.
func NormalizeType(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// NormalizeColor canonicalizes a hex colour for comparison: trimmed,
// uppercased, '#' prefix stripped, internal whitespace removed, and
// truncated to 6 characters when an alpha channel is present.
// Idempotent: NormalizeColor(NormalizeColor(x)) == NormalizeColor(x).
func NormalizeColor(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "#")
	s = strings.Join(strings.Fields(s), "")
	if len(s) >= rgbHexLength+2 { // alpha channel appended
		s = s[:rgbHexLength]
	}
	return s
}
