package session

import (
	"context"
	"fmt"
	"time"

	"github.com/nerrad567/printlink/internal/commands"
	"github.com/nerrad567/printlink/internal/report"
)

// statusSettleDelay is how long a status exchange keeps listening after
// a sequence-matched echo arrives, in case the full snapshot it prefers
// is interleaved just behind it.
const statusSettleDelay = time.Second

// Publish sends a command without waiting for any device response.
//
// This is the deliberate fire-and-forget fast path: a nil return means
// the transport accepted the publish, not that the device received or
// executed the command.
func (s *Session) Publish(ctx context.Context, cmd commands.Command) error {
	payload, err := cmd.Marshal()
	if err != nil {
		return fmt.Errorf("encoding command: %w", err)
	}
	return s.publishRaw(ctx, payload)
}

// publishRaw publishes bytes to the request topic.
func (s *Session) publishRaw(ctx context.Context, payload []byte) error {
	s.mu.Lock()
	if s.state != StateConnected {
		s.mu.Unlock()
		return ErrNotConnected
	}
	client := s.client
	s.mu.Unlock()

	token := client.Publish(s.topics.Request(), byte(s.mqtt.QoS), false, payload)
	if err := waitToken(ctx, token, publishTimeout); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}

// PublishAndWait publishes a command and waits for the device's echo.
//
// The inbound buffer is cleared before publishing so a stale message
// can never satisfy the wait. The echo is matched by sequence ID under
// the command's variant key. If the wait expires without a sequence
// match but the report topic delivered something, the most recent
// message is returned instead — an explicit legacy fallback, kept
// because some firmware revisions echo without the sequence ID. Only a
// completely silent device produces ErrCommandResponseTimeout.
//
// One correlated wait may be outstanding per session; concurrent calls
// fail with ErrWaitInProgress rather than racing for the same buffer.
//
// Parameters:
//   - ctx: Cancels the wait early
//   - cmd: The command to publish
//
// Returns:
//   - *report.Message: The correlated echo, or the fallback message
//   - error: ErrNotConnected, ErrWaitInProgress, ErrPublishFailed,
//     ErrCommandResponseTimeout, or ctx.Err()
func (s *Session) PublishAndWait(ctx context.Context, cmd commands.Command) (*report.Message, error) {
	seq := cmd.SequenceID()
	w, err := s.registerWaiter(func(m *report.Message) bool {
		return m.SequenceID == seq
	}, 1)
	if err != nil {
		return nil, err
	}
	defer s.releaseWaiter(w)

	if err := s.Publish(ctx, cmd); err != nil {
		return nil, err
	}

	timer := time.NewTimer(s.responseTimeout)
	defer timer.Stop()

	select {
	case msg := <-w.ch:
		return msg, nil
	case <-timer.C:
		if last := s.lastBuffered(); last != nil {
			return last, nil
		}
		return nil, fmt.Errorf("%w: sequence %s after %v", ErrCommandResponseTimeout, seq, s.responseTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// GetStatus requests a full state push and returns the reply.
//
// Full snapshots may arrive interleaved with partial push
// acknowledgments, and the snapshot is what callers actually want, so
// the reply preference is:
//
//  1. the first message carrying material-bay data
//  2. the first sequence-matched echo (after a short settle window in
//     which a snapshot may still overtake it)
//  3. the most recent message received at all
//
// Only a completely silent device produces ErrCommandResponseTimeout.
func (s *Session) GetStatus(ctx context.Context) (*report.Message, error) {
	cmd := s.encoder.RequestFullStatus()
	seq := cmd.SequenceID()

	// Stream every inbound message; preference is applied here, not in
	// the handler.
	w, err := s.registerWaiter(func(*report.Message) bool { return true }, 16)
	if err != nil {
		return nil, err
	}
	defer s.releaseWaiter(w)

	if err := s.Publish(ctx, cmd); err != nil {
		return nil, err
	}

	deadline := time.NewTimer(s.responseTimeout)
	defer deadline.Stop()

	settle := time.NewTimer(s.responseTimeout)
	settle.Stop()
	defer settle.Stop()

	var seqMatch *report.Message
	for {
		select {
		case msg := <-w.ch:
			if msg.HasBayData() {
				return msg, nil
			}
			if seqMatch == nil && msg.SequenceID == seq {
				seqMatch = msg
				settle.Reset(s.settleDelay)
			}
		case <-settle.C:
			return seqMatch, nil
		case <-deadline.C:
			if seqMatch != nil {
				return seqMatch, nil
			}
			if last := s.lastBuffered(); last != nil {
				return last, nil
			}
			return nil, fmt.Errorf("%w: no status after %v", ErrCommandResponseTimeout, s.responseTimeout)
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
