// Package commands builds outbound device command payloads.
//
// Every controllable printer action maps to one of four wire variants,
// named by the single top-level JSON key the device expects:
//
//   - print: print control (start, pause, resume, stop, speed)
//   - pushing: pushed-telemetry control (request a full state push)
//   - system: system control (LED nodes)
//   - gcode_line: raw motion instructions (homing, fans, heaters)
//
// Each payload carries a sequence ID the device echoes back under the
// same top-level key, which is what the session layer correlates on.
// Print-control IDs come from a per-encoder monotonic counter; status
// poll requests use a millisecond timestamp instead so they remain
// unique without touching the counter.
//
// # Usage
//
//	enc := commands.NewEncoder()
//	cmd := enc.StartPrint("benchy.3mf", commands.DefaultPrintOptions())
//	payload, _ := cmd.Marshal()
package commands
