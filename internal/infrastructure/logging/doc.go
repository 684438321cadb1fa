// Package logging provides structured logging for printlink.
//
// It wraps Go's standard log/slog package so every log entry carries the
// service name and version, with level-based filtering and a choice of
// text output (terminal use) or JSON output (when printlink runs under a
// supervisor).
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "text"     # text, json
//	  output: "stderr"   # stderr, stdout
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("print started", "file", "benchy.3mf")
//
// Never log the device access code or the InfluxDB token.
package logging
