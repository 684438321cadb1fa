package report_test

import (
	"testing"

	"github.com/nerrad567/printlink/internal/commands"
	"github.com/nerrad567/printlink/internal/report"
)

// The device echoes every command under the same top-level key it was
// sent with. These tests pin the encode/decode agreement: the sequence
// ID set at encode time is always recoverable from the parsed echo.
func TestCommandEchoRoundTrip(t *testing.T) {
	enc := commands.NewEncoder()

	cmds := []commands.Command{
		enc.StartPrint("part.3mf", commands.DefaultPrintOptions()),
		enc.PausePrint(),
		enc.ResumePrint(),
		enc.StopPrint(),
		enc.SetSpeed(120),
		enc.SetLED(commands.LEDNodeChamber, commands.LEDModeOn, 0, 0),
		enc.Home(),
		enc.SetFanSpeed(75),
		enc.RequestFullStatus(),
	}

	for _, cmd := range cmds {
		data, err := cmd.Marshal()
		if err != nil {
			t.Fatalf("Marshal() error = %v", err)
		}

		msg, err := report.Parse(data)
		if err != nil {
			t.Fatalf("Parse(%s) error = %v", data, err)
		}

		if string(msg.Kind) != string(cmd.Kind()) {
			t.Errorf("parsed kind = %q, want %q", msg.Kind, cmd.Kind())
		}
		if msg.SequenceID != cmd.SequenceID() {
			t.Errorf("parsed SequenceID = %q, want %q", msg.SequenceID, cmd.SequenceID())
		}
	}
}
