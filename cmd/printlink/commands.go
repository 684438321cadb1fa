package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nerrad567/printlink/internal/commands"
	"github.com/nerrad567/printlink/internal/filament"
	"github.com/nerrad567/printlink/internal/history"
	"github.com/nerrad567/printlink/internal/infrastructure/config"
	"github.com/nerrad567/printlink/internal/infrastructure/database"
	"github.com/nerrad567/printlink/internal/infrastructure/logging"
	"github.com/nerrad567/printlink/internal/report"
	"github.com/nerrad567/printlink/internal/retry"
	"github.com/nerrad567/printlink/internal/session"
	"github.com/nerrad567/printlink/internal/slicefile"
	"github.com/nerrad567/printlink/internal/telemetry"
	"github.com/nerrad567/printlink/internal/transfer"
	"github.com/nerrad567/printlink/migrations"
)

// historyDefaultLimit is how many jobs `history` shows without an
// explicit count.
const historyDefaultLimit = 20

// app holds the loaded configuration and logger shared by all
// subcommand handlers.
type app struct {
	cfg *config.Config
	log *logging.Logger
}

// connectSession dials the printer's messaging channel with the
// configured retry policy. Callers own the returned session and must
// disconnect it.
func (a *app) connectSession(ctx context.Context) (*session.Session, error) {
	sess := session.New(a.cfg.Printer, a.cfg.MQTT)
	sess.SetLogger(a.log)

	policy := retry.FromConfig(a.cfg.MQTT.Reconnect)
	if err := sess.ConnectWithRetry(ctx, policy); err != nil {
		return nil, fmt.Errorf("connecting to printer %s: %w", a.cfg.Printer.Host, err)
	}
	return sess, nil
}

// connectTransfer dials the printer's file-transfer channel.
func (a *app) connectTransfer() (*transfer.Client, error) {
	client := transfer.New(a.cfg.Printer, a.cfg.Transfer)
	if err := client.Connect(); err != nil {
		return nil, fmt.Errorf("connecting to printer storage: %w", err)
	}
	return client, nil
}

// openHistory opens (and migrates) the local job database.
func (a *app) openHistory(ctx context.Context) (*history.Repository, func(), error) {
	db, err := database.Open(a.cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("opening history database: %w", err)
	}
	if err := db.Migrate(ctx, migrations.Files); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("migrating history database: %w", err)
	}
	return history.NewRepository(db), func() { _ = db.Close() }, nil
}

// === Status ===

func (a *app) status(ctx context.Context) error {
	sess, err := a.connectSession(ctx)
	if err != nil {
		return err
	}
	defer sess.Disconnect() //nolint:errcheck // Disconnect never fails

	msg, err := sess.GetStatus(ctx)
	if err != nil {
		return fmt.Errorf("querying status: %w", err)
	}

	printStatus(msg)
	return nil
}

// printStatus renders one status message for a human.
func printStatus(msg *report.Message) {
	if msg.Status == nil {
		fmt.Println("printer responded without state; try again while it is awake")
		return
	}
	s := msg.Status

	fmt.Printf("State:    %s\n", orUnknown(s.GCodeState))
	fmt.Printf("Nozzle:   %.1f°C / %.1f°C\n", s.NozzleTemp, s.NozzleTargetTemp)
	fmt.Printf("Bed:      %.1f°C / %.1f°C\n", s.BedTemp, s.BedTargetTemp)
	if s.ChamberTemp != 0 {
		fmt.Printf("Chamber:  %.1f°C\n", s.ChamberTemp)
	}
	if s.TotalLayerNum > 0 {
		fmt.Printf("Progress: %d%% (layer %d/%d, %d min remaining)\n",
			s.Percent, s.LayerNum, s.TotalLayerNum, s.RemainingMinutes)
	}

	trays := msg.Trays()
	if len(trays) == 0 {
		fmt.Println("Material: no bay detected (manual feed)")
		return
	}
	fmt.Println("Material bay:")
	for _, tray := range trays {
		if tray.Type == "" {
			fmt.Printf("  slot %s: empty\n", tray.ID)
			continue
		}
		fmt.Printf("  slot %s: %s #%s\n", tray.ID, tray.Type, tray.Color)
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

// === Print ===

func (a *app) print(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: printlink print <file.3mf>")
	}
	localPath := args[0]
	fileName := filepath.Base(localPath)

	data, err := os.ReadFile(localPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", localPath, err)
	}

	// Extract material requirements before touching the printer; a bad
	// file should fail without any network traffic.
	extracted, err := slicefile.Extract(data)
	if err != nil {
		return fmt.Errorf("inspecting %s: %w", fileName, err)
	}
	a.log.Info("sliced file inspected",
		"file", fileName,
		"profiles", len(extracted.Profiles),
		"embedded", extracted.TotalEmbedded,
	)

	// Upload first: transfers are the slow part and the printer can
	// receive files while printing.
	ftp, err := a.connectTransfer()
	if err != nil {
		return err
	}
	defer ftp.Close() //nolint:errcheck // Best effort close

	var lastPercent int64 = -1
	total := int64(len(data))
	err = ftp.UploadBytes(fileName, data, func(sent int64) {
		percent := sent * 100 / total
		if percent != lastPercent {
			lastPercent = percent
			fmt.Printf("\rUploading %s: %d%%", fileName, percent)
		}
	})
	fmt.Println()
	if err != nil {
		return fmt.Errorf("uploading %s: %w", fileName, err)
	}

	sess, err := a.connectSession(ctx)
	if err != nil {
		return err
	}
	defer sess.Disconnect() //nolint:errcheck // Disconnect never fails

	statusMsg, err := sess.GetStatus(ctx)
	if err != nil {
		return fmt.Errorf("querying material bay: %w", err)
	}

	matched, err := filament.MatchProfiles(extracted.Profiles, statusMsg.Trays())
	if err != nil {
		var notFound *filament.NotFoundError
		if errors.As(err, &notFound) {
			return fmt.Errorf("cannot start %s: %w", fileName, notFound)
		}
		return err
	}

	opts := commands.DefaultPrintOptions()
	opts.SlotMapping = matched.Mapping
	opts.UseAMS = matched.AMSDetected

	if _, err := sess.PublishAndWait(ctx, sess.Encoder().StartPrint(fileName, opts)); err != nil {
		return fmt.Errorf("starting print: %w", err)
	}

	job := &history.Job{
		FileName:    fileName,
		RemotePath:  fileName,
		SlotMapping: matched.Mapping,
		UseAMS:      matched.AMSDetected,
	}
	repo, closeDB, err := a.openHistory(ctx)
	if err != nil {
		// The print is already running; a broken local database must not
		// report the start as failed.
		a.log.Warn("print started but history unavailable", "error", err)
	} else {
		defer closeDB()
		if err := repo.Create(ctx, job); err != nil {
			a.log.Warn("print started but history write failed", "error", err)
		}
	}

	if job.ID != "" {
		fmt.Printf("Print started: %s (job %s)\n", fileName, job.ID)
	} else {
		fmt.Printf("Print started: %s\n", fileName)
	}
	for _, m := range matched.Matches {
		fmt.Printf("  %s #%s -> slot %d\n", m.Profile.Type, m.Profile.ColorHex, m.MatchedSlot)
	}
	if !matched.AMSDetected {
		fmt.Println("  no material bay detected; printing from external spool")
	}
	return nil
}

// === Print control ===

func (a *app) control(ctx context.Context, command string) error {
	sess, err := a.connectSession(ctx)
	if err != nil {
		return err
	}
	defer sess.Disconnect() //nolint:errcheck // Disconnect never fails

	var cmd commands.Command
	switch command {
	case "pause":
		cmd = sess.Encoder().PausePrint()
	case "resume":
		cmd = sess.Encoder().ResumePrint()
	case "stop":
		cmd = sess.Encoder().StopPrint()
	}

	if _, err := sess.PublishAndWait(ctx, cmd); err != nil {
		return fmt.Errorf("%s: %w", command, err)
	}
	fmt.Printf("%s acknowledged\n", command)
	return nil
}

func (a *app) speed(ctx context.Context, args []string) error {
	percent, err := intArg(args, "speed", "percent")
	if err != nil {
		return err
	}
	return a.fireAndForget(ctx, func(e *commands.Encoder) commands.Command {
		return e.SetSpeed(percent)
	}, fmt.Sprintf("speed set to %d%%", percent))
}

func (a *app) fan(ctx context.Context, args []string) error {
	percent, err := intArg(args, "fan", "percent")
	if err != nil {
		return err
	}
	return a.fireAndForget(ctx, func(e *commands.Encoder) commands.Command {
		return e.SetFanSpeed(percent)
	}, fmt.Sprintf("fan set to %d%%", percent))
}

func (a *app) nozzleTemp(ctx context.Context, args []string) error {
	celsius, err := intArg(args, "nozzle-temp", "celsius")
	if err != nil {
		return err
	}
	return a.fireAndForget(ctx, func(e *commands.Encoder) commands.Command {
		return e.SetNozzleTemp(celsius)
	}, fmt.Sprintf("nozzle target set to %d°C", celsius))
}

func (a *app) bedTemp(ctx context.Context, args []string) error {
	celsius, err := intArg(args, "bed-temp", "celsius")
	if err != nil {
		return err
	}
	return a.fireAndForget(ctx, func(e *commands.Encoder) commands.Command {
		return e.SetBedTemp(celsius)
	}, fmt.Sprintf("bed target set to %d°C", celsius))
}

func (a *app) home(ctx context.Context) error {
	return a.fireAndForget(ctx, func(e *commands.Encoder) commands.Command {
		return e.Home()
	}, "homing")
}

func (a *app) led(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: printlink led <chamber|work|logo> <on|off|flashing>")
	}

	var node commands.LEDNode
	switch args[0] {
	case "chamber":
		node = commands.LEDNodeChamber
	case "work":
		node = commands.LEDNodeWork
	case "logo":
		node = commands.LEDNodeLogo
	default:
		return fmt.Errorf("unknown light %q", args[0])
	}

	var mode commands.LEDMode
	switch args[1] {
	case "on":
		mode = commands.LEDModeOn
	case "off":
		mode = commands.LEDModeOff
	case "flashing":
		mode = commands.LEDModeFlashing
	default:
		return fmt.Errorf("unknown mode %q", args[1])
	}

	return a.fireAndForget(ctx, func(e *commands.Encoder) commands.Command {
		return e.SetLED(node, mode, 0, 0)
	}, fmt.Sprintf("%s light %s", args[0], args[1]))
}

func (a *app) sendGCode(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: printlink send-gcode <line> [line...]")
	}
	return a.fireAndForget(ctx, func(e *commands.Encoder) commands.Command {
		return e.SendGCode(args...)
	}, fmt.Sprintf("sent %d instruction(s)", len(args)))
}

// fireAndForget connects, publishes one command without waiting for a
// device response, and reports what was sent.
func (a *app) fireAndForget(ctx context.Context, build func(*commands.Encoder) commands.Command, done string) error {
	sess, err := a.connectSession(ctx)
	if err != nil {
		return err
	}
	defer sess.Disconnect() //nolint:errcheck // Disconnect never fails

	if err := sess.Publish(ctx, build(sess.Encoder())); err != nil {
		return err
	}
	fmt.Println(done)
	return nil
}

// intArg parses the single integer argument of a subcommand.
func intArg(args []string, command, name string) (int, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("usage: printlink %s <%s>", command, name)
	}
	v, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("%s must be a number, got %q", name, args[0])
	}
	return v, nil
}

// === Files ===

func (a *app) files(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: printlink files <list|delete|get> ...")
	}

	ftp, err := a.connectTransfer()
	if err != nil {
		return err
	}
	defer ftp.Close() //nolint:errcheck // Best effort close

	switch args[0] {
	case "list":
		dir := "/"
		if len(args) > 1 {
			dir = args[1]
		}
		entries, err := ftp.List(dir)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if e.IsDir {
				fmt.Printf("%-40s <dir>\n", e.Name+"/")
				continue
			}
			fmt.Printf("%-40s %10d  %s\n", e.Name, e.Size, e.Modified.Format("2006-01-02 15:04"))
		}
		return nil

	case "delete":
		if len(args) != 2 {
			return fmt.Errorf("usage: printlink files delete <path>")
		}
		if err := ftp.Delete(args[1]); err != nil {
			return err
		}
		fmt.Printf("deleted %s\n", args[1])
		return nil

	case "get":
		if len(args) != 3 {
			return fmt.Errorf("usage: printlink files get <remote> <local>")
		}
		data, err := ftp.Download(args[1])
		if err != nil {
			return err
		}
		if err := os.WriteFile(args[2], data, 0o600); err != nil {
			return fmt.Errorf("writing %s: %w", args[2], err)
		}
		fmt.Printf("downloaded %s (%d bytes)\n", args[2], len(data))
		return nil

	default:
		return fmt.Errorf("unknown files action %q", args[0])
	}
}

// === History ===

func (a *app) history(ctx context.Context, args []string) error {
	limit := historyDefaultLimit
	if len(args) > 0 {
		v, err := strconv.Atoi(args[0])
		if err != nil || v < 1 {
			return fmt.Errorf("count must be a positive number, got %q", args[0])
		}
		limit = v
	}

	repo, closeDB, err := a.openHistory(ctx)
	if err != nil {
		return err
	}
	defer closeDB()

	jobs, err := repo.ListRecent(ctx, limit)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		fmt.Println("no recorded print jobs")
		return nil
	}
	for _, job := range jobs {
		line := fmt.Sprintf("%s  %-9s %s  %s",
			job.StartedAt.Local().Format("2006-01-02 15:04"),
			job.Status,
			job.ID,
			job.FileName,
		)
		if job.Error != "" {
			line += "  (" + job.Error + ")"
		}
		fmt.Println(line)
	}
	return nil
}

// === Watch ===

func (a *app) watch(ctx context.Context) error {
	sess, err := a.connectSession(ctx)
	if err != nil {
		return err
	}
	defer sess.Disconnect() //nolint:errcheck // Disconnect never fails

	// Telemetry recording is wired only for watch: it is the one mode
	// that keeps the connection open long enough to be worth batching.
	if a.cfg.InfluxDB.Enabled {
		recorder, err := telemetry.Connect(a.cfg.InfluxDB, a.cfg.Printer.Serial)
		if err != nil {
			return fmt.Errorf("connecting telemetry sink: %w", err)
		}
		defer recorder.Close() //nolint:errcheck // Close never fails
		recorder.SetOnError(func(err error) {
			a.log.Warn("telemetry write failed", "error", err)
		})
		sess.SubscribeToUpdates(func(msg *report.Message) {
			recorder.Record(msg)
			printUpdate(msg)
		})
	} else {
		sess.SubscribeToUpdates(printUpdate)
	}

	// Kick the printer into pushing a full snapshot first.
	if err := sess.Publish(ctx, sess.Encoder().RequestFullStatus()); err != nil {
		return err
	}

	fmt.Println("watching; Ctrl+C to stop")
	<-ctx.Done()
	return nil
}

// printUpdate renders one live update line.
func printUpdate(msg *report.Message) {
	if msg.Status == nil {
		return
	}
	s := msg.Status
	line := fmt.Sprintf("%s  nozzle %.1f°C  bed %.1f°C",
		orUnknown(strings.ToLower(s.GCodeState)), s.NozzleTemp, s.BedTemp)
	if s.TotalLayerNum > 0 {
		line += fmt.Sprintf("  %d%% layer %d/%d", s.Percent, s.LayerNum, s.TotalLayerNum)
	}
	fmt.Println(line)
}
