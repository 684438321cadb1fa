package report

import (
	"errors"
	"testing"
)

// =============================================================================
// Classification Tests
// =============================================================================

func TestParseTaggedVariants(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		kind    Kind
		seq     string
	}{
		{"print echo", `{"print":{"sequence_id":"3","command":"pause","result":"success"}}`, KindPrint, "3"},
		{"pushing echo", `{"pushing":{"sequence_id":"1756402800000","command":"pushall"}}`, KindPushing, "1756402800000"},
		{"system echo", `{"system":{"sequence_id":"7","command":"ledctrl"}}`, KindSystem, "7"},
		{"gcode echo", `{"gcode_line":{"sequence_id":"9","command":"gcode_line"}}`, KindGCodeLine, "9"},
		{"echo without sequence", `{"print":{"command":"pause"}}`, KindPrint, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := Parse([]byte(tt.payload))
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if msg.Kind != tt.kind {
				t.Errorf("Kind = %q, want %q", msg.Kind, tt.kind)
			}
			if msg.SequenceID != tt.seq {
				t.Errorf("SequenceID = %q, want %q", msg.SequenceID, tt.seq)
			}
		})
	}
}

func TestParseUntaggedSnapshot(t *testing.T) {
	payload := `{"gcode_state":"RUNNING","nozzle_temper":219.5,"bed_temper":60.0,"mc_percent":42,"layer_num":17,"total_layer_num":143}`

	msg, err := Parse([]byte(payload))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if msg.Kind != KindStatus {
		t.Errorf("Kind = %q, want %q", msg.Kind, KindStatus)
	}
	if msg.Status == nil {
		t.Fatal("Status = nil for snapshot")
	}
	if msg.Status.GCodeState != "RUNNING" {
		t.Errorf("GCodeState = %q", msg.Status.GCodeState)
	}
	if msg.Status.Percent != 42 {
		t.Errorf("Percent = %d, want 42", msg.Status.Percent)
	}
	if msg.Status.NozzleTemp != 219.5 {
		t.Errorf("NozzleTemp = %v, want 219.5", msg.Status.NozzleTemp)
	}
}

func TestParseMalformed(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"not json", `{"print": nope}`},
		{"top-level array", `[1,2,3]`},
		{"top-level scalar", `42`},
		{"truncated", `{"print":{"sequence_id":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.payload))
			if !errors.Is(err, ErrMalformedPayload) {
				t.Errorf("Parse() error = %v, want ErrMalformedPayload", err)
			}
		})
	}
}

// =============================================================================
// State-on-Echo Tests
// =============================================================================

func TestPrintEchoCarriesState(t *testing.T) {
	payload := `{"print":{"sequence_id":"12","command":"push_status","gcode_state":"PAUSE","mc_percent":80}}`

	msg, err := Parse([]byte(payload))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if msg.Kind != KindPrint {
		t.Errorf("Kind = %q, want print", msg.Kind)
	}
	if msg.Status == nil {
		t.Fatal("Status = nil, want decoded state from print echo")
	}
	if msg.Status.GCodeState != "PAUSE" || msg.Status.Percent != 80 {
		t.Errorf("Status = %+v", msg.Status)
	}
}

func TestPlainEchoHasNoState(t *testing.T) {
	msg, err := Parse([]byte(`{"system":{"sequence_id":"2","command":"ledctrl","result":"success"}}`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if msg.Status != nil {
		t.Errorf("Status = %+v, want nil for system echo", msg.Status)
	}
}

// =============================================================================
// Material Bay Tests
// =============================================================================

const bayPayload = `{"print":{"sequence_id":"5","command":"push_status","gcode_state":"IDLE","ams":{"ams":[{"id":"0","tray":[{"id":"0","tray_type":"PLA","tray_color":"FF0000FF"},{"id":"1","tray_type":"PETG","tray_color":"00FF00FF"}]},{"id":"1","tray":[{"id":"0","tray_type":"TPU","tray_color":"0000FFFF"}]}]}}}`

func TestHasBayData(t *testing.T) {
	msg, err := Parse([]byte(bayPayload))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !msg.HasBayData() {
		t.Fatal("HasBayData() = false, want true")
	}

	plain, _ := Parse([]byte(`{"print":{"sequence_id":"6","gcode_state":"IDLE"}}`))
	if plain.HasBayData() {
		t.Error("HasBayData() = true for payload without bay data")
	}
}

func TestTraysFlattened(t *testing.T) {
	msg, err := Parse([]byte(bayPayload))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	trays := msg.Trays()
	if len(trays) != 3 {
		t.Fatalf("Trays() len = %d, want 3", len(trays))
	}
	if trays[0].Type != "PLA" || trays[0].Color != "FF0000FF" {
		t.Errorf("trays[0] = %+v", trays[0])
	}
	if trays[2].Type != "TPU" {
		t.Errorf("trays[2] = %+v, want TPU from second unit", trays[2])
	}
}

func TestTraysNilWithoutBay(t *testing.T) {
	msg, _ := Parse([]byte(`{"gcode_state":"IDLE"}`))
	if msg.Trays() != nil {
		t.Error("Trays() != nil for message without bay data")
	}
}
