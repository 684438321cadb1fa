package commands

import "encoding/json"

// Kind names the top-level JSON key of an outbound command variant.
// The device echoes responses under the same key, so correlation lookups
// are keyed by Kind on both sides of the wire.
type Kind string

const (
	// KindPrint is print control: start, pause, resume, stop, speed.
	KindPrint Kind = "print"

	// KindPushing is pushed-telemetry control: full state push requests.
	KindPushing Kind = "pushing"

	// KindSystem is system control: LED nodes.
	KindSystem Kind = "system"

	// KindGCodeLine is the raw motion instruction escape hatch.
	KindGCodeLine Kind = "gcode_line"
)

// LEDNode identifies a controllable light on the device.
type LEDNode string

const (
	LEDNodeChamber = LEDNode("chamber_light")
	LEDNodeWork    = LEDNode("work_light")
	LEDNodeLogo    = LEDNode("logo_led")
)

// LEDMode is the requested light behaviour.
type LEDMode string

const (
	LEDModeOn       = LEDMode("on")
	LEDModeOff      = LEDMode("off")
	LEDModeFlashing = LEDMode("flashing")
)

// Command is one immutable outbound request payload.
//
// It is created by an Encoder builder, serialized once by the session
// layer, and discarded after send. Only the sequence ID survives for
// response correlation.
type Command struct {
	kind       Kind
	sequenceID string
	envelope   any
}

// Kind returns the wire variant of the command.
func (c Command) Kind() Kind { return c.kind }

// SequenceID returns the correlation identifier embedded in the payload.
func (c Command) SequenceID() string { return c.sequenceID }

// Marshal serializes the command to its on-wire JSON form: a single
// top-level key naming the variant. The output contains no newlines.
func (c Command) Marshal() ([]byte, error) {
	return json.Marshal(c.envelope)
}

// Wire envelopes. One struct per variant so the top-level key is fixed
// at compile time.

type printEnvelope struct {
	Print any `json:"print"`
}

type pushingEnvelope struct {
	Pushing any `json:"pushing"`
}

type systemEnvelope struct {
	System any `json:"system"`
}

type gcodeEnvelope struct {
	GCodeLine any `json:"gcode_line"`
}

// startPrintPayload is the print-start wire shape. The device requires
// Param to name the first plate's generated instruction stream inside
// the uploaded archive; this is fixed for the supported device family.
type startPrintPayload struct {
	SequenceID    string `json:"sequence_id"`
	Command       string `json:"command"`
	Param         string `json:"param"`
	URL           string `json:"url"`
	SubtaskName   string `json:"subtask_name"`
	BedLeveling   bool   `json:"bed_leveling"`
	FlowCali      bool   `json:"flow_cali"`
	VibrationCali bool   `json:"vibration_cali"`
	LayerInspect  bool   `json:"layer_inspect"`
	Timelapse     bool   `json:"timelapse"`
	UseAMS        bool   `json:"use_ams"`
	AMSMapping    []int  `json:"ams_mapping"`
}

// simplePayload covers zero-argument state transitions and the push
// request: a command name and a sequence ID.
type simplePayload struct {
	SequenceID string `json:"sequence_id"`
	Command    string `json:"command"`
}

// paramPayload carries a command with a single string parameter
// (print_speed levels, gcode_line instructions).
type paramPayload struct {
	SequenceID string `json:"sequence_id"`
	Command    string `json:"command"`
	Param      string `json:"param"`
}

// pushAllPayload requests a full state snapshot push.
type pushAllPayload struct {
	SequenceID string `json:"sequence_id"`
	Command    string `json:"command"`
	Version    int    `json:"version"`
	PushTarget int    `json:"push_target"`
}

// ledControlPayload is the system LED control wire shape. The flashing
// timing fields are always sent; the device ignores them for on/off.
type ledControlPayload struct {
	SequenceID   string  `json:"sequence_id"`
	Command      string  `json:"command"`
	LEDNode      LEDNode `json:"led_node"`
	LEDMode      LEDMode `json:"led_mode"`
	LEDOnTime    int     `json:"led_on_time"`
	LEDOffTime   int     `json:"led_off_time"`
	LoopTimes    int     `json:"loop_times"`
	IntervalTime int     `json:"interval_time"`
}
