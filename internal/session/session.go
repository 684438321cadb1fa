package session

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/eclipse/paho.mqtt.golang/packets"
	"github.com/google/uuid"

	"github.com/nerrad567/printlink/internal/commands"
	"github.com/nerrad567/printlink/internal/infrastructure/config"
	"github.com/nerrad567/printlink/internal/report"
	"github.com/nerrad567/printlink/internal/retry"
)

// Session timing constants.
const (
	// connectTimeout bounds the broker handshake and the report-topic
	// subscription acknowledgment.
	connectTimeout = 10 * time.Second

	// responseTimeout bounds every correlated wait.
	responseTimeout = 30 * time.Second

	// publishTimeout bounds the transport-level publish acknowledgment.
	publishTimeout = 5 * time.Second

	// disconnectQuiesce is how long a graceful close may take before the
	// connection is forced shut (milliseconds, per the paho API).
	disconnectQuiesce = 3000

	// keepAlive is the MQTT keepalive interval.
	keepAlive = 60 * time.Second

	// parseErrorHistory bounds the swallowed-parse-error side channel.
	parseErrorHistory = 10

	tlsMinVersion = tls.VersionTLS12
)

// State is the session lifecycle state.
//
// Transitions are strictly sequential:
// unconnected → connecting → connected → disconnecting → unconnected.
type State int

const (
	StateUnconnected State = iota
	StateConnecting
	StateConnected
	StateDisconnecting
)

// String returns the state name for logging.
func (s State) String() string {
	switch s {
	case StateUnconnected:
		return "unconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnecting:
		return "disconnecting"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Logger is the minimal logging interface the session needs.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Warn(msg string, args ...any)
	Debug(msg string, args ...any)
}

// UpdateFunc is invoked synchronously for every inbound report-topic
// message, in addition to buffering. At most one is registered at a
// time; re-registering replaces it.
type UpdateFunc func(*report.Message)

// waiter is one outstanding correlated wait. The inbound handler
// delivers matching messages into ch without blocking.
type waiter struct {
	match func(*report.Message) bool
	ch    chan *report.Message
}

// Session owns one long-lived messaging connection to a single device.
//
// Thread Safety:
//   - All methods are safe for concurrent use, but only one correlated
//     wait may be outstanding at a time (ErrWaitInProgress otherwise).
type Session struct {
	printer config.PrinterConfig
	mqtt    config.MQTTConfig
	topics  Topics
	encoder *commands.Encoder

	client pahomqtt.Client

	mu          sync.Mutex
	state       State
	buffer      *ringBuffer
	parseErrors []error
	onUpdate    UpdateFunc
	pending     *waiter

	// Wait bounds, fixed at construction. Overridden only by tests.
	responseTimeout time.Duration
	settleDelay     time.Duration

	// logger is optional; nil disables logging.
	logger Logger
}

// New creates an unconnected session for one device. Each session owns
// its own command encoder so sequence IDs stay unique within the
// session's in-flight window.
func New(printer config.PrinterConfig, mqtt config.MQTTConfig) *Session {
	return &Session{
		printer:         printer,
		mqtt:            mqtt,
		topics:          Topics{Serial: printer.Serial},
		encoder:         commands.NewEncoder(),
		buffer:          newRingBuffer(bufferCapacity),
		responseTimeout: responseTimeout,
		settleDelay:     statusSettleDelay,
	}
}

// SetLogger sets an optional logger for swallowed-error reporting.
func (s *Session) SetLogger(logger Logger) {
	s.mu.Lock()
	s.logger = logger
	s.mu.Unlock()
}

// Encoder returns the session's command encoder.
func (s *Session) Encoder() *commands.Encoder {
	return s.encoder
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Connect establishes the messaging connection.
//
// It dials the device's broker, then subscribes to the report topic;
// the session is not considered connected until the subscription is
// acknowledged. Calling Connect on a session that is not unconnected
// fails with ErrAlreadyConnected.
//
// Returns:
//   - error: ErrConnectionTimeout, ErrAuthenticationFailed,
//     ErrConnectionFailed, or ErrAlreadyConnected
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateUnconnected {
		s.mu.Unlock()
		return fmt.Errorf("%w: state is %s", ErrAlreadyConnected, s.state)
	}
	s.state = StateConnecting
	s.mu.Unlock()

	if err := s.connect(ctx); err != nil {
		s.mu.Lock()
		s.state = StateUnconnected
		s.client = nil
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	s.state = StateConnected
	s.mu.Unlock()
	return nil
}

// ConnectWithRetry wraps Connect in the retry policy. Transient
// connection failures are retried; authentication rejection is terminal.
func (s *Session) ConnectWithRetry(ctx context.Context, policy retry.Policy) error {
	return retry.Do(ctx, policy, func(ctx context.Context) error {
		err := s.Connect(ctx)
		if errors.Is(err, ErrAuthenticationFailed) {
			return retry.Permanent(err)
		}
		return err
	})
}

// connect performs the handshake and report subscription.
func (s *Session) connect(ctx context.Context) error {
	if s.client == nil {
		s.client = pahomqtt.NewClient(s.clientOptions())
	}

	token := s.client.Connect()
	if err := waitToken(ctx, token, connectTimeout); err != nil {
		return classifyConnectError(err)
	}

	sub := s.client.Subscribe(s.topics.Report(), byte(s.mqtt.QoS), func(_ pahomqtt.Client, msg pahomqtt.Message) {
		s.handleMessage(msg.Payload())
	})
	if err := waitToken(ctx, sub, connectTimeout); err != nil {
		s.client.Disconnect(0)
		return fmt.Errorf("subscribing to report topic: %w", err)
	}

	return nil
}

// clientOptions builds paho options for the device broker.
//
// Username is fixed; the password is the device access code. Devices
// present self-signed certificates, so chain verification is disabled
// when TLS is on.
func (s *Session) clientOptions() *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()

	scheme := "tcp"
	if s.mqtt.TLS {
		scheme = "ssl"
	}
	opts.AddBroker(fmt.Sprintf("%s://%s:%d", scheme, s.printer.Host, s.mqtt.Port))

	opts.SetClientID("printlink-" + uuid.NewString()[:8])
	opts.SetUsername(deviceUsername)
	opts.SetPassword(s.printer.AccessCode)
	opts.SetCleanSession(true)
	opts.SetKeepAlive(keepAlive)
	opts.SetConnectTimeout(connectTimeout)
	opts.SetAutoReconnect(false)
	opts.SetConnectRetry(false)

	if s.mqtt.TLS {
		opts.SetTLSConfig(&tls.Config{
			MinVersion:         tlsMinVersion,
			InsecureSkipVerify: true, // #nosec G402 -- devices use self-signed certificates
		})
	}

	return opts
}

// Disconnect closes the connection.
//
// The close is graceful with a bounded quiesce; after the bound the
// transport is forced shut. Disconnect never fails and always clears
// session state; calling it on an unconnected session is a no-op.
func (s *Session) Disconnect() error {
	s.mu.Lock()
	if s.state == StateUnconnected {
		s.mu.Unlock()
		return nil
	}
	s.state = StateDisconnecting
	client := s.client
	s.mu.Unlock()

	if client != nil {
		client.Disconnect(disconnectQuiesce)
	}

	s.mu.Lock()
	s.state = StateUnconnected
	s.client = nil
	s.buffer.Clear()
	s.pending = nil
	s.mu.Unlock()
	return nil
}

// SubscribeToUpdates registers the update callback. Exactly one may be
// registered; re-registering replaces the previous one. Pass nil to
// unregister.
func (s *Session) SubscribeToUpdates(fn UpdateFunc) {
	s.mu.Lock()
	s.onUpdate = fn
	s.mu.Unlock()
}

// ParseErrors returns the bounded history of swallowed inbound parse
// errors, oldest first.
func (s *Session) ParseErrors() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]error, len(s.parseErrors))
	copy(out, s.parseErrors)
	return out
}

// handleMessage processes one raw inbound report-topic payload.
//
// Malformed payloads are recorded, never propagated: one corrupt push
// must not kill the session or block correlation of later messages.
func (s *Session) handleMessage(payload []byte) {
	msg, err := report.Parse(payload)
	if err != nil {
		s.recordParseError(err)
		return
	}

	s.mu.Lock()
	s.buffer.Append(msg)
	callback := s.onUpdate
	if s.pending != nil && s.pending.match(msg) {
		select {
		case s.pending.ch <- msg:
		default:
		}
	}
	s.mu.Unlock()

	if callback != nil {
		callback(msg)
	}
}

// recordParseError appends to the bounded parse-error history.
func (s *Session) recordParseError(err error) {
	s.mu.Lock()
	if len(s.parseErrors) == parseErrorHistory {
		copy(s.parseErrors, s.parseErrors[1:])
		s.parseErrors[len(s.parseErrors)-1] = err
	} else {
		s.parseErrors = append(s.parseErrors, err)
	}
	logger := s.logger
	s.mu.Unlock()

	if logger != nil {
		logger.Warn("discarded malformed telemetry payload", "error", err)
	}
}

// registerWaiter installs the single outstanding waiter, clearing the
// inbound buffer first so a stale message can never satisfy the wait.
func (s *Session) registerWaiter(match func(*report.Message) bool, buffered int) (*waiter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateConnected {
		return nil, ErrNotConnected
	}
	if s.pending != nil {
		return nil, ErrWaitInProgress
	}

	s.buffer.Clear()
	w := &waiter{
		match: match,
		ch:    make(chan *report.Message, buffered),
	}
	s.pending = w
	return w, nil
}

// releaseWaiter removes the waiter on every exit path of a wait.
func (s *Session) releaseWaiter(w *waiter) {
	s.mu.Lock()
	if s.pending == w {
		s.pending = nil
	}
	s.mu.Unlock()
}

// lastBuffered returns the most recent buffered message, if any.
func (s *Session) lastBuffered() *report.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buffer.Last()
}

// bufferedSnapshot returns the buffered messages in arrival order.
func (s *Session) bufferedSnapshot() []*report.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buffer.Snapshot()
}

// waitToken waits for a paho token with both a timeout and context
// cancellation.
func waitToken(ctx context.Context, token pahomqtt.Token, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		return token.Error()
	case <-timer.C:
		return fmt.Errorf("%w: after %v", ErrConnectionTimeout, timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// classifyConnectError maps transport errors onto the session taxonomy.
// Authentication rejection must be distinguishable: it is terminal,
// while refused/timeout failures are retryable.
func classifyConnectError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrConnectionTimeout):
		return err
	case errors.Is(err, packets.ErrorRefusedBadUsernameOrPassword),
		errors.Is(err, packets.ErrorRefusedNotAuthorised):
		return fmt.Errorf("%w: %w", ErrAuthenticationFailed, err)
	default:
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
}
