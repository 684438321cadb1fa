package telemetry

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/printlink/internal/infrastructure/config"
	"github.com/nerrad567/printlink/internal/report"
)

const (
	connectTimeout = 10 * time.Second

	// millisecondsPerSecond converts the configured flush interval for
	// the client API.
	millisecondsPerSecond = 1000

	defaultBatchSize     = 100
	defaultFlushInterval = 10
)

// pointWriter is the slice of the client write API the recorder drives.
type pointWriter interface {
	WritePoint(point *write.Point)
	Flush()
}

// Recorder writes printer state measurements to InfluxDB.
//
// Thread Safety:
//   - All methods are safe for concurrent use. Record is non-blocking;
//     points are batched and written asynchronously.
type Recorder struct {
	client influxdb2.Client
	writer pointWriter
	serial string

	mu      sync.RWMutex
	onError func(error)
}

// Connect creates a recorder against the configured InfluxDB server.
//
// Connectivity is verified with a ping before the recorder is returned;
// a server that is down at startup fails fast rather than silently
// dropping every point.
//
// Parameters:
//   - cfg: Telemetry section of the application configuration
//   - serial: Device serial used to tag every point
//
// Returns:
//   - *Recorder: Ready to consume session updates
//   - error: ErrDisabled or ErrConnectionFailed
func Connect(cfg config.InfluxDBConfig, serial string) (*Recorder, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	flushInterval := cfg.FlushInterval
	if flushInterval <= 0 {
		flushInterval = defaultFlushInterval
	}

	// #nosec G115 -- values clamped positive above
	client := influxdb2.NewClientWithOptions(
		cfg.URL,
		cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(uint(batchSize)).
			SetFlushInterval(uint(flushInterval)*millisecondsPerSecond),
	)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	healthy, err := client.Ping(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: ping failed: %w", ErrConnectionFailed, err)
	}
	if !healthy {
		client.Close()
		return nil, fmt.Errorf("%w: server not healthy", ErrConnectionFailed)
	}

	writeAPI := client.WriteAPI(cfg.Org, cfg.Bucket)
	r := &Recorder{
		client: client,
		writer: writeAPI,
		serial: serial,
	}

	go r.forwardWriteErrors(writeAPI.Errors())
	return r, nil
}

// SetOnError registers a callback for asynchronous write failures.
func (r *Recorder) SetOnError(fn func(error)) {
	r.mu.Lock()
	r.onError = fn
	r.mu.Unlock()
}

// forwardWriteErrors drains the client's async error channel into the
// callback. The channel closes when the client closes.
func (r *Recorder) forwardWriteErrors(errs <-chan error) {
	for err := range errs {
		r.mu.RLock()
		callback := r.onError
		r.mu.RUnlock()
		if callback != nil {
			callback(err)
		}
	}
}

// Record consumes one session update. Messages without printer state
// are ignored; everything else becomes a printer_status point.
//
// Matches the session.UpdateFunc signature so it can be registered
// directly:
//
//	sess.SubscribeToUpdates(recorder.Record)
func (r *Recorder) Record(msg *report.Message) {
	if msg == nil || msg.Status == nil {
		return
	}
	status := msg.Status

	fields := map[string]interface{}{
		"nozzle_temp":        status.NozzleTemp,
		"nozzle_target_temp": status.NozzleTargetTemp,
		"bed_temp":           status.BedTemp,
		"bed_target_temp":    status.BedTargetTemp,
		"chamber_temp":       status.ChamberTemp,
		"percent":            status.Percent,
		"remaining_minutes":  status.RemainingMinutes,
		"layer_num":          status.LayerNum,
		"total_layer_num":    status.TotalLayerNum,
	}
	if fan, err := strconv.ParseFloat(status.CoolingFanSpeed, 64); err == nil {
		fields["cooling_fan_speed"] = fan
	}

	tags := map[string]string{"serial": r.serial}
	if status.GCodeState != "" {
		tags["gcode_state"] = status.GCodeState
	}

	r.writer.WritePoint(write.NewPoint("printer_status", tags, fields, time.Now()))
}

// Close flushes pending points and shuts the client down.
func (r *Recorder) Close() error {
	if r.writer != nil {
		r.writer.Flush()
	}
	if r.client != nil {
		r.client.Close()
	}
	return nil
}
