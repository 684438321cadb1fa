package report

import (
	"encoding/json"
	"fmt"
)

// Kind classifies an inbound telemetry message by its top-level variant tag.
type Kind string

const (
	// KindPrint is a print-control echo (and the usual carrier of pushed state).
	KindPrint Kind = "print"

	// KindPushing is a pushed-telemetry-control echo.
	KindPushing Kind = "pushing"

	// KindSystem is a system-control echo.
	KindSystem Kind = "system"

	// KindGCodeLine is a raw-motion-instruction echo.
	KindGCodeLine Kind = "gcode_line"

	// KindStatus is an untagged full-state snapshot.
	KindStatus Kind = "status"
)

// taggedKinds are the variant keys matched against the top level of an
// inbound payload, in lookup order.
var taggedKinds = []Kind{KindPrint, KindPushing, KindSystem, KindGCodeLine}

// Message is one parsed inbound telemetry message.
//
// Fields holds the raw key-value payload of the tagged variant (or the
// whole object for snapshots) so callers can reach values the typed
// Status shape does not model.
type Message struct {
	// Kind is the variant tag, or KindStatus for untagged snapshots.
	Kind Kind

	// SequenceID is the echoed correlation identifier, empty when the
	// payload carries none.
	SequenceID string

	// Status holds decoded printer state when the payload carries any,
	// regardless of which variant carried it. Nil otherwise.
	Status *Status

	// Fields is the loosely typed payload for keys outside Status.
	Fields map[string]any
}

// Status is the decoded printer state shape.
type Status struct {
	GCodeState       string  `json:"gcode_state"`
	NozzleTemp       float64 `json:"nozzle_temper"`
	NozzleTargetTemp float64 `json:"nozzle_target_temper"`
	BedTemp          float64 `json:"bed_temper"`
	BedTargetTemp    float64 `json:"bed_target_temper"`
	ChamberTemp      float64 `json:"chamber_temper"`
	Percent          int     `json:"mc_percent"`
	RemainingMinutes int     `json:"mc_remaining_time"`
	LayerNum         int     `json:"layer_num"`
	TotalLayerNum    int     `json:"total_layer_num"`
	CoolingFanSpeed  string  `json:"cooling_fan_speed"`
	AMS              *AMS    `json:"ams"`
}

// AMS is the automatic material bay subsystem as reported by the device.
type AMS struct {
	Units []AMSUnit `json:"ams"`
}

// AMSUnit is one material bay unit holding up to four trays.
type AMSUnit struct {
	ID    string `json:"id"`
	Trays []Tray `json:"tray"`
}

// Tray is one loadable material position. IDs are 0-based strings;
// colors arrive as 6 or 8 hex characters (8 when alpha is appended).
type Tray struct {
	ID    string `json:"id"`
	Type  string `json:"tray_type"`
	Color string `json:"tray_color"`
}

// Parse decodes one inbound telemetry payload.
//
// Classification: if the top level contains exactly one of the known
// variant keys, the message is that variant and the sequence ID is read
// from inside it. Anything else that is still a JSON object is treated
// as an untagged full-state snapshot. Non-object payloads fail with
// ErrMalformedPayload.
func Parse(data []byte) (*Message, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}

	for _, kind := range taggedKinds {
		raw, ok := top[string(kind)]
		if !ok {
			continue
		}
		return parseTagged(kind, raw)
	}

	return parseSnapshot(data)
}

// parseTagged decodes a variant-tagged payload.
func parseTagged(kind Kind, raw json.RawMessage) (*Message, error) {
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("%w: %s payload: %w", ErrMalformedPayload, kind, err)
	}

	msg := &Message{
		Kind:   kind,
		Fields: fields,
	}
	if seq, ok := fields["sequence_id"].(string); ok {
		msg.SequenceID = seq
	}

	// Pushed state rides on print echoes; decode it when present.
	if kind == KindPrint {
		var status Status
		if err := json.Unmarshal(raw, &status); err == nil && hasState(&status) {
			msg.Status = &status
		}
	}

	return msg, nil
}

// parseSnapshot decodes an untagged full-state snapshot.
func parseSnapshot(data []byte) (*Message, error) {
	var status Status
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("%w: snapshot: %w", ErrMalformedPayload, err)
	}

	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("%w: snapshot: %w", ErrMalformedPayload, err)
	}

	msg := &Message{
		Kind:   KindStatus,
		Status: &status,
		Fields: fields,
	}
	if seq, ok := fields["sequence_id"].(string); ok {
		msg.SequenceID = seq
	}

	return msg, nil
}

// hasState reports whether a decoded Status carries anything meaningful.
func hasState(s *Status) bool {
	return s.GCodeState != "" || s.AMS != nil || s.NozzleTemp != 0 ||
		s.BedTemp != 0 || s.TotalLayerNum != 0
}

// HasBayData reports whether the message carries material-bay contents.
// Used by the status exchange to prefer full snapshots over plain echoes.
func (m *Message) HasBayData() bool {
	return m.Status != nil && m.Status.AMS != nil && len(m.Status.AMS.Units) > 0
}

// Trays returns every reported tray across all bay units, flattened in
// reported order. Nil when the message carries no bay data.
func (m *Message) Trays() []Tray {
	if !m.HasBayData() {
		return nil
	}
	var trays []Tray
	for _, unit := range m.Status.AMS.Units {
		trays = append(trays, unit.Trays...)
	}
	return trays
}
