package commands

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Encoding constants.
const (
	// plateInstructionEntry is the archive entry the device streams print
	// instructions from. Protocol requirement, not configurable.
	plateInstructionEntry = "Metadata/plate_1.gcode"

	// deviceStorageURL is the on-device storage prefix for uploaded files.
	deviceStorageURL = "file:///sdcard/"

	// Speed override bounds accepted by the device (percent of profile speed).
	minSpeedPercent = 50
	maxSpeedPercent = 166

	// Fan duty is scaled from percent to the device's 0-255 range.
	maxFanDuty = 255

	// defaultLEDPeriodMs is the default flash on/off time in milliseconds.
	defaultLEDPeriodMs = 500
)

// Encoder produces well-formed outbound commands with monotonically
// increasing sequence IDs. Stateless apart from the counter; each
// session should own its own Encoder so correlation IDs stay unique
// within that session's in-flight window.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Encoder struct {
	mu   sync.Mutex
	next uint64
}

// NewEncoder creates an Encoder whose sequence counter starts at 0.
func NewEncoder() *Encoder {
	return &Encoder{}
}

// Reset restarts the sequence counter at 0.
//
// Safe only when no command built by this encoder is still awaiting a
// response, since a reused ID could match a stale echo.
func (e *Encoder) Reset() {
	e.mu.Lock()
	e.next = 0
	e.mu.Unlock()
}

// nextSequence returns the next counter value as a string.
func (e *Encoder) nextSequence() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	seq := e.next
	e.next++
	return strconv.FormatUint(seq, 10)
}

// timestampSequence returns a millisecond-timestamp sequence ID.
// Used for status polls so they never consume counter values.
func timestampSequence() string {
	return strconv.FormatInt(time.Now().UnixMilli(), 10)
}

// PrintOptions control the optional behaviour of a print start.
// Start from DefaultPrintOptions and override individual fields.
type PrintOptions struct {
	// BedLeveling runs automatic bed leveling before the print.
	BedLeveling bool

	// FlowCalibration runs dynamic flow calibration before the print.
	FlowCalibration bool

	// VibrationCalibration runs resonance compensation before the print.
	VibrationCalibration bool

	// LayerInspection enables first-layer inspection (camera models only).
	LayerInspection bool

	// Timelapse records a timelapse of the print.
	Timelapse bool

	// UseAMS feeds filament from the material bay instead of the spool holder.
	UseAMS bool

	// SlotMapping maps each filament profile in the sliced file to a
	// 0-based tray ID. Defaults to [0] when nil.
	SlotMapping []int
}

// DefaultPrintOptions returns the option set used when the caller does
// not specify otherwise: leveling and vibration calibration on, flow
// calibration, inspection and timelapse off, material bay enabled.
func DefaultPrintOptions() PrintOptions {
	return PrintOptions{
		BedLeveling:          true,
		FlowCalibration:      false,
		VibrationCalibration: true,
		LayerInspection:      false,
		Timelapse:            false,
		UseAMS:               true,
		SlotMapping:          []int{0},
	}
}

// StartPrint builds a print-start command for an uploaded sliced file.
//
// fileName is rewritten into a fully qualified on-device file reference
// unless it is already a file:// URL.
//
// Parameters:
//   - fileName: Name of the uploaded archive (e.g. "benchy.3mf") or a
//     fully qualified file:// URL
//   - opts: Print options, normally built from DefaultPrintOptions
//
// Returns:
//   - Command: The encoded print-start command
func (e *Encoder) StartPrint(fileName string, opts PrintOptions) Command {
	url := fileName
	if !strings.HasPrefix(fileName, "file://") {
		url = deviceStorageURL + fileName
	}

	mapping := opts.SlotMapping
	if mapping == nil {
		mapping = []int{0}
	}

	seq := e.nextSequence()
	return Command{
		kind:       KindPrint,
		sequenceID: seq,
		envelope: printEnvelope{Print: startPrintPayload{
			SequenceID:    seq,
			Command:       "project_file",
			Param:         plateInstructionEntry,
			URL:           url,
			SubtaskName:   strings.TrimSuffix(fileName, ".3mf"),
			BedLeveling:   opts.BedLeveling,
			FlowCali:      opts.FlowCalibration,
			VibrationCali: opts.VibrationCalibration,
			LayerInspect:  opts.LayerInspection,
			Timelapse:     opts.Timelapse,
			UseAMS:        opts.UseAMS,
			AMSMapping:    mapping,
		}},
	}
}

// PausePrint builds a pause command for the running print.
func (e *Encoder) PausePrint() Command {
	return e.simplePrint("pause")
}

// ResumePrint builds a resume command for a paused print.
func (e *Encoder) ResumePrint() Command {
	return e.simplePrint("resume")
}

// StopPrint builds a stop command, aborting the running print.
func (e *Encoder) StopPrint() Command {
	return e.simplePrint("stop")
}

// simplePrint builds a zero-argument print-control state transition.
func (e *Encoder) simplePrint(command string) Command {
	seq := e.nextSequence()
	return Command{
		kind:       KindPrint,
		sequenceID: seq,
		envelope: printEnvelope{Print: simplePayload{
			SequenceID: seq,
			Command:    command,
		}},
	}
}

// SetSpeed builds a speed-override command.
//
// percent is clamped to the device's accepted range [50, 166]; out of
// range input is silently clamped, not rejected.
func (e *Encoder) SetSpeed(percent int) Command {
	if percent < minSpeedPercent {
		percent = minSpeedPercent
	}
	if percent > maxSpeedPercent {
		percent = maxSpeedPercent
	}
	return e.SendGCode(fmt.Sprintf("M220 S%d", percent))
}

// SetLED builds a system command controlling one of the device lights.
//
// Parameters:
//   - node: The light to control (chamber, work, or logo)
//   - mode: on, off, or flashing
//   - onTimeMs, offTimeMs: Flash period in milliseconds; values <= 0
//     default to 500
func (e *Encoder) SetLED(node LEDNode, mode LEDMode, onTimeMs, offTimeMs int) Command {
	if onTimeMs <= 0 {
		onTimeMs = defaultLEDPeriodMs
	}
	if offTimeMs <= 0 {
		offTimeMs = defaultLEDPeriodMs
	}

	seq := e.nextSequence()
	return Command{
		kind:       KindSystem,
		sequenceID: seq,
		envelope: systemEnvelope{System: ledControlPayload{
			SequenceID: seq,
			Command:    "ledctrl",
			LEDNode:    node,
			LEDMode:    mode,
			LEDOnTime:  onTimeMs,
			LEDOffTime: offTimeMs,
		}},
	}
}

// SendGCode builds a raw motion instruction command.
//
// This is the escape hatch for direct low-level control. Each line is
// sent exactly as given; a trailing newline is appended per line.
func (e *Encoder) SendGCode(lines ...string) Command {
	seq := e.nextSequence()
	return Command{
		kind:       KindGCodeLine,
		sequenceID: seq,
		envelope: gcodeEnvelope{GCodeLine: paramPayload{
			SequenceID: seq,
			Command:    "gcode_line",
			Param:      strings.Join(lines, "\n") + "\n",
		}},
	}
}

// Home builds a home-all-axes instruction.
func (e *Encoder) Home() Command {
	return e.SendGCode("G28")
}

// SetFanSpeed builds a part-cooling fan instruction.
//
// percent is clamped to [0, 100] and scaled to the device's 0-255 duty range.
func (e *Encoder) SetFanSpeed(percent int) Command {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	duty := percent * maxFanDuty / 100
	return e.SendGCode(fmt.Sprintf("M106 P1 S%d", duty))
}

// SetNozzleTemp builds a nozzle heater target instruction (non-blocking).
func (e *Encoder) SetNozzleTemp(celsius int) Command {
	return e.SendGCode(fmt.Sprintf("M104 S%d", celsius))
}

// SetBedTemp builds a bed heater target instruction (non-blocking).
func (e *Encoder) SetBedTemp(celsius int) Command {
	return e.SendGCode(fmt.Sprintf("M140 S%d", celsius))
}

// RequestFullStatus builds a pushed-telemetry request asking the device
// to publish a complete state snapshot. The sequence ID is a millisecond
// timestamp rather than a counter value.
func (e *Encoder) RequestFullStatus() Command {
	seq := timestampSequence()
	return Command{
		kind:       KindPushing,
		sequenceID: seq,
		envelope: pushingEnvelope{Pushing: pushAllPayload{
			SequenceID: seq,
			Command:    "pushall",
			Version:    1,
			PushTarget: 1,
		}},
	}
}
