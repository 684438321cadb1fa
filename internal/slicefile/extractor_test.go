package slicefile

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
)

// buildArchive creates an in-memory sliced-file archive with the given
// content at the plate instruction entry.
func buildArchive(t *testing.T, entryName, content string) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	f, err := w.Create(entryName)
	if err != nil {
		t.Fatalf("creating zip entry: %v", err)
	}
	if _, err := f.Write([]byte(content)); err != nil {
		t.Fatalf("writing zip entry: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("closing zip: %v", err)
	}
	return buf.Bytes()
}

const fiveMaterialHeader = `; HEADER_BLOCK_START
; filament: 1,2
; filament_type = PLA;PETG;ABS;TPU;PLA-CF
; filament_colour = #FF0000;#00FF00;#0000FF;#FFFF00;#FF00FF
; filament_settings_id = "Red PLA";"Green PETG";"Blue ABS";"Yellow TPU";"Magenta PLA-CF"
; HEADER_BLOCK_END
G28
`

// =============================================================================
// Happy Path Tests
// =============================================================================

func TestExtractUsedSlots(t *testing.T) {
	data := buildArchive(t, plateInstructionEntry, fiveMaterialHeader)

	result, err := Extract(data)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if len(result.Profiles) != 2 {
		t.Fatalf("Profiles len = %d, want 2 (only used slots)", len(result.Profiles))
	}
	if result.TotalEmbedded != 5 {
		t.Errorf("TotalEmbedded = %d, want 5", result.TotalEmbedded)
	}
	if len(result.DetectedMapping) != 2 || result.DetectedMapping[0] != 0 || result.DetectedMapping[1] != 1 {
		t.Errorf("DetectedMapping = %v, want [0 1]", result.DetectedMapping)
	}

	first := result.Profiles[0]
	if first.Type != "PLA" || first.ColorHex != "FF0000" || first.DisplayName != "Red PLA" {
		t.Errorf("Profiles[0] = %+v", first)
	}
	if first.SlotNumber != 1 || first.TrayID != 0 {
		t.Errorf("Profiles[0] slot/tray = %d/%d, want 1/0", first.SlotNumber, first.TrayID)
	}

	second := result.Profiles[1]
	if second.Type != "PETG" || second.SlotNumber != 2 || second.TrayID != 1 {
		t.Errorf("Profiles[1] = %+v", second)
	}
}

func TestExtractDefaultsForMissingLists(t *testing.T) {
	data := buildArchive(t, plateInstructionEntry, `; filament: 2
; filament_type = PLA;PETG
`)

	result, err := Extract(data)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	p := result.Profiles[0]
	if p.ColorHex != "FFFFFF" {
		t.Errorf("ColorHex = %q, want default FFFFFF", p.ColorHex)
	}
	if p.DisplayName != "Unknown Profile" {
		t.Errorf("DisplayName = %q, want default", p.DisplayName)
	}
}

func TestExtractShortColourList(t *testing.T) {
	// Colour list shorter than the slot index is non-fatal.
	data := buildArchive(t, plateInstructionEntry, `; filament: 3
; filament_type = PLA;PETG;ABS
; filament_colour = #FF0000
`)

	result, err := Extract(data)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if result.Profiles[0].ColorHex != "FFFFFF" {
		t.Errorf("ColorHex = %q, want default for out-of-range colour index", result.Profiles[0].ColorHex)
	}
}

func TestExtractDirectivesBeyondScanWindowIgnored(t *testing.T) {
	// Directives after the first 500 lines must not be seen.
	var sb strings.Builder
	sb.WriteString("; filament: 1\n")
	sb.WriteString("; filament_type = PLA\n")
	for i := 0; i < maxHeaderLines; i++ {
		sb.WriteString(fmt.Sprintf("G1 X%d\n", i))
	}
	sb.WriteString("; filament_colour = #123456\n")

	data := buildArchive(t, plateInstructionEntry, sb.String())

	result, err := Extract(data)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if result.Profiles[0].ColorHex != "FFFFFF" {
		t.Errorf("ColorHex = %q; colour directive past line %d must be ignored", result.Profiles[0].ColorHex, maxHeaderLines)
	}
}

// =============================================================================
// Failure Tests
// =============================================================================

func TestExtractInvalidArchive(t *testing.T) {
	_, err := Extract([]byte("this is not a zip file"))
	if !errors.Is(err, ErrInvalidArchive) {
		t.Errorf("Extract() error = %v, want ErrInvalidArchive", err)
	}
}

func TestExtractMissingSliceData(t *testing.T) {
	data := buildArchive(t, "Metadata/model_settings.config", "<config/>")

	_, err := Extract(data)
	if !errors.Is(err, ErrMissingSliceData) {
		t.Errorf("Extract() error = %v, want ErrMissingSliceData", err)
	}
}

func TestExtractInvalidSlotNumbers(t *testing.T) {
	tests := []struct {
		name  string
		usage string
	}{
		{"zero", "0"},
		{"five", "5"},
		{"negative", "-1"},
		{"non-integer", "two"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := buildArchive(t, plateInstructionEntry,
				"; filament: "+tt.usage+"\n; filament_type = PLA;PETG;ABS;TPU;PC\n")

			_, err := Extract(data)
			if !errors.Is(err, ErrInvalidSlotNumber) {
				t.Errorf("Extract() error = %v, want ErrInvalidSlotNumber", err)
			}
		})
	}
}

func TestExtractProfileIndexOutOfRange(t *testing.T) {
	data := buildArchive(t, plateInstructionEntry, `; filament: 4
; filament_type = PLA;PETG
`)

	_, err := Extract(data)
	if !errors.Is(err, ErrProfileIndexOutOfRange) {
		t.Errorf("Extract() error = %v, want ErrProfileIndexOutOfRange", err)
	}
}

func TestExtractMissingDirectives(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"no usage", "; filament_type = PLA\n"},
		{"no types", "; filament: 1\n"},
		{"empty file", "G28\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := buildArchive(t, plateInstructionEntry, tt.content)

			_, err := Extract(data)
			if !errors.Is(err, ErrMissingDirective) {
				t.Errorf("Extract() error = %v, want ErrMissingDirective", err)
			}
		})
	}
}
