package slicefile

import (
	"archive/zip"
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// Extraction constants.
const (
	// plateInstructionEntry is the archive entry holding the first plate's
	// generated instructions. Fixed by the slicing software.
	plateInstructionEntry = "Metadata/plate_1.gcode"

	// maxHeaderLines bounds the directive scan. Directives sit at the top
	// of the entry; the trailing bulk is motion instructions.
	maxHeaderLines = 500

	// Slot numbers declared in sliced files are 1-based with four bays.
	minSlotNumber = 1
	maxSlotNumber = 4

	// defaultColorHex is used when the colour list omits an entry.
	defaultColorHex = "FFFFFF"

	// defaultDisplayName is used when the settings-id list omits an entry.
	defaultDisplayName = "Unknown Profile"
)

// Profile describes one material the print actually consumes.
type Profile struct {
	// Index is the profile's position in extraction order.
	Index int

	// Type is the material type as declared (e.g. "PLA").
	Type string

	// ColorHex is the declared colour, leading '#' stripped. Defaults to
	// white when the source file declares none.
	ColorHex string

	// DisplayName is the declared profile name, or "Unknown Profile".
	DisplayName string

	// SlotNumber is the 1-based slot as declared in the source file.
	SlotNumber int

	// TrayID is the 0-based tray derived from SlotNumber.
	TrayID int
}

// Result is the outcome of a successful extraction.
type Result struct {
	// Profiles lists the materials the print consumes, in declared order.
	// Embedded-but-unused materials are dropped.
	Profiles []Profile

	// DetectedMapping is the 0-based tray ID per profile, in order.
	DetectedMapping []int

	// TotalEmbedded is how many materials the file embeds, used or not.
	TotalEmbedded int
}

// header holds the raw directive lists found in the instruction entry.
type header struct {
	usage    []string
	types    []string
	colors   []string
	names    []string
	hasUsage bool
	hasTypes bool
}

// Extract recovers the filament profiles a sliced file consumes.
//
// Parameters:
//   - data: Raw bytes of the sliced-file archive
//
// Returns:
//   - *Result: Profiles, detected mapping, and embedded material count
//   - error: ErrInvalidArchive, ErrMissingSliceData, ErrMissingDirective,
//     ErrInvalidSlotNumber, or ErrProfileIndexOutOfRange
func Extract(data []byte) (*Result, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArchive, err)
	}

	entry := findEntry(reader, plateInstructionEntry)
	if entry == nil {
		return nil, fmt.Errorf("%w: archive has no %s", ErrMissingSliceData, plateInstructionEntry)
	}

	hdr, err := scanHeader(entry)
	if err != nil {
		return nil, err
	}

	return buildResult(hdr)
}

// findEntry locates an archive entry by exact path.
func findEntry(reader *zip.Reader, path string) *zip.File {
	for _, f := range reader.File {
		if f.Name == path {
			return f
		}
	}
	return nil
}

// scanHeader reads the first maxHeaderLines lines of the instruction
// entry and collects the recognised comment directives.
func scanHeader(entry *zip.File) (*header, error) {
	rc, err := entry.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %w", ErrMissingSliceData, entry.Name, err)
	}
	defer rc.Close()

	hdr := &header{}
	scanner := bufio.NewScanner(rc)
	for lines := 0; lines < maxHeaderLines && scanner.Scan(); lines++ {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, ";") {
			continue
		}
		directive := strings.TrimSpace(strings.TrimPrefix(line, ";"))

		switch {
		case strings.HasPrefix(directive, "filament:"):
			hdr.usage = splitList(strings.TrimPrefix(directive, "filament:"), ",")
			hdr.hasUsage = true
		case strings.HasPrefix(directive, "filament_type"):
			hdr.types = splitList(directiveValue(directive), ";")
			hdr.hasTypes = true
		case strings.HasPrefix(directive, "filament_colour"),
			strings.HasPrefix(directive, "filament_color"):
			hdr.colors = splitList(directiveValue(directive), ";")
		case strings.HasPrefix(directive, "filament_settings_id"):
			hdr.names = splitList(directiveValue(directive), ";")
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", ErrMissingSliceData, entry.Name, err)
	}

	return hdr, nil
}

// directiveValue returns the text after the first '=' in a directive.
func directiveValue(directive string) string {
	_, value, ok := strings.Cut(directive, "=")
	if !ok {
		return ""
	}
	return value
}

// splitList splits a delimited directive value into trimmed elements.
func splitList(value, sep string) []string {
	parts := strings.Split(value, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}

// buildResult turns the scanned header into profiles, validating slot
// numbers and list alignment.
func buildResult(hdr *header) (*Result, error) {
	if !hdr.hasUsage {
		return nil, fmt.Errorf("%w: no slot-usage directive (\"; filament:\")", ErrMissingDirective)
	}
	if !hdr.hasTypes {
		return nil, fmt.Errorf("%w: no material type directive (\"; filament_type\")", ErrMissingDirective)
	}

	result := &Result{
		TotalEmbedded: len(hdr.types),
	}

	for i, raw := range hdr.usage {
		slot, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not an integer", ErrInvalidSlotNumber, raw)
		}
		if slot < minSlotNumber || slot > maxSlotNumber {
			return nil, fmt.Errorf("%w: slot %d outside [%d,%d]", ErrInvalidSlotNumber, slot, minSlotNumber, maxSlotNumber)
		}

		idx := slot - 1
		if idx >= len(hdr.types) {
			return nil, fmt.Errorf("%w: slot %d declared but only %d materials embedded", ErrProfileIndexOutOfRange, slot, len(hdr.types))
		}

		color := defaultColorHex
		if idx < len(hdr.colors) && hdr.colors[idx] != "" {
			color = strings.TrimPrefix(hdr.colors[idx], "#")
		}

		name := defaultDisplayName
		if idx < len(hdr.names) && hdr.names[idx] != "" {
			name = strings.Trim(hdr.names[idx], `"`)
		}

		result.Profiles = append(result.Profiles, Profile{
			Index:       i,
			Type:        hdr.types[idx],
			ColorHex:    color,
			DisplayName: name,
			SlotNumber:  slot,
			TrayID:      idx,
		})
		result.DetectedMapping = append(result.DetectedMapping, idx)
	}

	return result, nil
}
