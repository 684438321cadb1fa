package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/nerrad567/printlink/internal/report"
)

// shortenWaits drops the session's wait bounds so timeout paths run fast.
func shortenWaits(s *Session, response, settle time.Duration) {
	s.responseTimeout = response
	s.settleDelay = settle
}

// waitForPublishedSequence polls until the client has published
// something, then extracts the sequence_id from the latest payload.
// Returns "" when nothing publishes within the poll window.
func waitForPublishedSequence(client *MockClient) string {
	var data []byte
	for i := 0; i < 100; i++ {
		if data = client.lastPublished(); data != nil {
			break
		}
		time.Sleep(time.Millisecond)
	}
	var top map[string]map[string]any
	if err := json.Unmarshal(data, &top); err != nil {
		return ""
	}
	for _, inner := range top {
		if seq, ok := inner["sequence_id"].(string); ok {
			return seq
		}
	}
	return ""
}

// === Publish ===

func TestPublishNotConnected(t *testing.T) {
	s := newTestSession(t, &MockClient{}, false)

	err := s.Publish(context.Background(), s.encoder.PausePrint())
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("Publish() = %v, want ErrNotConnected", err)
	}
}

func TestPublishSendsToRequestTopic(t *testing.T) {
	client := &MockClient{}
	s := newTestSession(t, client, true)

	if err := s.Publish(context.Background(), s.encoder.PausePrint()); err != nil {
		t.Fatalf("Publish() failed: %v", err)
	}
	if client.publishedTopic != "device/01S00C123400001/request" {
		t.Errorf("published to %q, want request topic", client.publishedTopic)
	}
	if client.publishCount() != 1 {
		t.Errorf("publish count = %d, want 1", client.publishCount())
	}
}

func TestPublishTransportFailure(t *testing.T) {
	client := &MockClient{publishErr: errors.New("broker gone")}
	s := newTestSession(t, client, true)

	err := s.Publish(context.Background(), s.encoder.PausePrint())
	if !errors.Is(err, ErrPublishFailed) {
		t.Errorf("Publish() = %v, want ErrPublishFailed", err)
	}
}

// === Correlated waits ===

func TestPublishAndWaitCorrelates(t *testing.T) {
	client := &MockClient{}
	s := newTestSession(t, client, true)

	cmd := s.encoder.PausePrint()
	seq := cmd.SequenceID()

	go func() {
		time.Sleep(10 * time.Millisecond)
		// An unrelated push first, then the real echo.
		s.handleMessage([]byte(`{"print":{"sequence_id":"9999","command":"push_status"}}`))
		s.handleMessage([]byte(fmt.Sprintf(
			`{"print":{"sequence_id":%q,"command":"pause","result":"success"}}`, seq)))
	}()

	msg, err := s.PublishAndWait(context.Background(), cmd)
	if err != nil {
		t.Fatalf("PublishAndWait() failed: %v", err)
	}
	if msg.SequenceID != seq {
		t.Errorf("correlated SequenceID = %q, want %q", msg.SequenceID, seq)
	}
}

func TestPublishAndWaitFallsBackToLastMessage(t *testing.T) {
	client := &MockClient{}
	s := newTestSession(t, client, true)
	shortenWaits(s, 30*time.Millisecond, time.Millisecond)

	cmd := s.encoder.StopPrint()

	go func() {
		time.Sleep(5 * time.Millisecond)
		s.handleMessage([]byte(`{"print":{"sequence_id":"9999","command":"push_status"}}`))
	}()

	msg, err := s.PublishAndWait(context.Background(), cmd)
	if err != nil {
		t.Fatalf("PublishAndWait() should fall back, got error: %v", err)
	}
	if msg.SequenceID != "9999" {
		t.Errorf("fallback SequenceID = %q, want \"9999\"", msg.SequenceID)
	}
}

func TestPublishAndWaitTimesOutWhenSilent(t *testing.T) {
	client := &MockClient{}
	s := newTestSession(t, client, true)
	shortenWaits(s, 20*time.Millisecond, time.Millisecond)

	_, err := s.PublishAndWait(context.Background(), s.encoder.ResumePrint())
	if !errors.Is(err, ErrCommandResponseTimeout) {
		t.Errorf("PublishAndWait() = %v, want ErrCommandResponseTimeout", err)
	}
}

func TestPublishAndWaitIgnoresStaleMessages(t *testing.T) {
	client := &MockClient{}
	s := newTestSession(t, client, true)
	shortenWaits(s, 20*time.Millisecond, time.Millisecond)

	// Buffered before the wait starts; must not satisfy it or serve as
	// the fallback.
	s.handleMessage([]byte(`{"print":{"sequence_id":"1","command":"pause"}}`))

	_, err := s.PublishAndWait(context.Background(), s.encoder.PausePrint())
	if !errors.Is(err, ErrCommandResponseTimeout) {
		t.Errorf("PublishAndWait() = %v, want ErrCommandResponseTimeout (stale cleared)", err)
	}
}

func TestPublishAndWaitRejectsConcurrentWaits(t *testing.T) {
	client := &MockClient{}
	s := newTestSession(t, client, true)

	w, err := s.registerWaiter(func(*report.Message) bool { return false }, 1)
	if err != nil {
		t.Fatalf("registerWaiter() failed: %v", err)
	}
	defer s.releaseWaiter(w)

	_, err = s.PublishAndWait(context.Background(), s.encoder.PausePrint())
	if !errors.Is(err, ErrWaitInProgress) {
		t.Errorf("PublishAndWait() = %v, want ErrWaitInProgress", err)
	}
}

func TestPublishAndWaitHonorsContext(t *testing.T) {
	client := &MockClient{}
	s := newTestSession(t, client, true)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()

	_, err := s.PublishAndWait(ctx, s.encoder.PausePrint())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("PublishAndWait() = %v, want context.Canceled", err)
	}
}

// === Status exchange ===

const bayDataSnapshot = `{
	"gcode_state": "RUNNING",
	"nozzle_temper": 220.5,
	"bed_temper": 60.0,
	"mc_percent": 42,
	"ams": {
		"ams": [
			{"id": "0", "tray": [
				{"id": "0", "tray_type": "PLA", "tray_color": "FF0000FF"},
				{"id": "1", "tray_type": "PETG", "tray_color": "00FF00FF"}
			]}
		]
	}
}`

func TestGetStatusPrefersBayData(t *testing.T) {
	client := &MockClient{}
	s := newTestSession(t, client, true)
	shortenWaits(s, 200*time.Millisecond, 80*time.Millisecond)

	go func() {
		time.Sleep(5 * time.Millisecond)
		seq := waitForPublishedSequence(client)
		// The plain echo lands first; the snapshot arrives inside the
		// settle window and must win.
		s.handleMessage([]byte(fmt.Sprintf(
			`{"pushing":{"sequence_id":%q,"command":"pushall"}}`, seq)))
		time.Sleep(10 * time.Millisecond)
		s.handleMessage([]byte(bayDataSnapshot))
	}()

	msg, err := s.GetStatus(context.Background())
	if err != nil {
		t.Fatalf("GetStatus() failed: %v", err)
	}
	if !msg.HasBayData() {
		t.Fatal("GetStatus() should prefer the message carrying bay data")
	}
	if trays := msg.Trays(); len(trays) != 2 {
		t.Errorf("Trays() length = %d, want 2", len(trays))
	}
}

func TestGetStatusSettlesOnEcho(t *testing.T) {
	client := &MockClient{}
	s := newTestSession(t, client, true)
	shortenWaits(s, 200*time.Millisecond, 20*time.Millisecond)

	go func() {
		time.Sleep(5 * time.Millisecond)
		seq := waitForPublishedSequence(client)
		s.handleMessage([]byte(fmt.Sprintf(
			`{"pushing":{"sequence_id":%q,"command":"pushall"}}`, seq)))
	}()

	start := time.Now()
	msg, err := s.GetStatus(context.Background())
	if err != nil {
		t.Fatalf("GetStatus() failed: %v", err)
	}
	if msg.Kind != "pushing" {
		t.Errorf("Kind = %q, want the echoed pushing variant", msg.Kind)
	}
	if elapsed := time.Since(start); elapsed >= 150*time.Millisecond {
		t.Errorf("GetStatus() took %v; should resolve after the settle window, not the deadline", elapsed)
	}
}

func TestGetStatusFallsBackToLastMessage(t *testing.T) {
	client := &MockClient{}
	s := newTestSession(t, client, true)
	shortenWaits(s, 40*time.Millisecond, 5*time.Millisecond)

	go func() {
		time.Sleep(5 * time.Millisecond)
		s.handleMessage([]byte(`{"print":{"sequence_id":"9999","command":"push_status"}}`))
	}()

	msg, err := s.GetStatus(context.Background())
	if err != nil {
		t.Fatalf("GetStatus() should fall back, got error: %v", err)
	}
	if msg.SequenceID != "9999" {
		t.Errorf("fallback SequenceID = %q, want \"9999\"", msg.SequenceID)
	}
}

func TestGetStatusTimesOutWhenSilent(t *testing.T) {
	client := &MockClient{}
	s := newTestSession(t, client, true)
	shortenWaits(s, 20*time.Millisecond, 5*time.Millisecond)

	_, err := s.GetStatus(context.Background())
	if !errors.Is(err, ErrCommandResponseTimeout) {
		t.Errorf("GetStatus() = %v, want ErrCommandResponseTimeout", err)
	}
}
