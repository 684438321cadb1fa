// printlink - local network control for material-bay 3D printers
//
// printlink talks directly to a printer on the LAN over its messaging
// and file-transfer channels: no cloud account, no vendor relay. It
// uploads sliced files, reconciles their material requirements against
// what the printer's bay actually holds, starts and supervises prints,
// and records job history locally.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nerrad567/printlink/internal/infrastructure/config"
	"github.com/nerrad567/printlink/internal/infrastructure/logging"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: printlink <command> [arguments]

Commands:
  status                     show printer state and loaded materials
  print <file.3mf>           upload a sliced file and start printing
  pause | resume | stop      control the running print
  speed <percent>            set print speed (50-166)
  fan <percent>              set part cooling fan (0-100)
  nozzle-temp <celsius>      set nozzle temperature
  bed-temp <celsius>         set bed temperature
  home                       home all axes
  led <node> <mode>          control a light (chamber|work|logo, on|off|flashing)
  send-gcode <line> [...]    send raw motion instructions
  files list [dir]           list device storage
  files delete <path>        delete a file from device storage
  files get <remote> <local> download a file from device storage
  history [n]                show the n most recent print jobs (default 20)
  watch                      stream live printer state until interrupted

Configuration is read from %s (override with PRINTLINK_CONFIG).
`, defaultConfigPath)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run dispatches one subcommand. Separated from main so failures
// return through a single exit path.
func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		usage()
		return fmt.Errorf("no command given")
	}
	command, rest := args[0], args[1:]

	cfg, err := config.Load(configPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log := logging.New(cfg.Logging, version)
	log.Debug("starting printlink", "version", version, "commit", commit, "command", command)

	app := &app{cfg: cfg, log: log}

	switch command {
	case "status":
		return app.status(ctx)
	case "print":
		return app.print(ctx, rest)
	case "pause", "resume", "stop":
		return app.control(ctx, command)
	case "speed":
		return app.speed(ctx, rest)
	case "fan":
		return app.fan(ctx, rest)
	case "nozzle-temp":
		return app.nozzleTemp(ctx, rest)
	case "bed-temp":
		return app.bedTemp(ctx, rest)
	case "home":
		return app.home(ctx)
	case "led":
		return app.led(ctx, rest)
	case "send-gcode":
		return app.sendGCode(ctx, rest)
	case "files":
		return app.files(rest)
	case "history":
		return app.history(ctx, rest)
	case "watch":
		return app.watch(ctx)
	case "help", "-h", "--help":
		usage()
		return nil
	default:
		usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

// configPath resolves the configuration file location.
func configPath() string {
	if path := os.Getenv("PRINTLINK_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
