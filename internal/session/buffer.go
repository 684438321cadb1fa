package session

import "github.com/nerrad567/printlink/internal/report"

// bufferCapacity is the fixed inbound telemetry buffer size. Insertion
// under a full buffer evicts the oldest entry, so the newest telemetry
// is never dropped in favour of stale entries.
const bufferCapacity = 100

// ringBuffer is a bounded FIFO of inbound messages. Not safe for
// concurrent use; the session guards it with its own mutex.
type ringBuffer struct {
	entries  []*report.Message
	capacity int
}

func newRingBuffer(capacity int) *ringBuffer {
	return &ringBuffer{capacity: capacity}
}

// Append adds a message, evicting the oldest entry when full.
func (b *ringBuffer) Append(msg *report.Message) {
	if len(b.entries) == b.capacity {
		copy(b.entries, b.entries[1:])
		b.entries[len(b.entries)-1] = msg
		return
	}
	b.entries = append(b.entries, msg)
}

// Last returns the most recently appended message, or nil when empty.
func (b *ringBuffer) Last() *report.Message {
	if len(b.entries) == 0 {
		return nil
	}
	return b.entries[len(b.entries)-1]
}

// Snapshot returns the buffered messages in arrival order. The returned
// slice is a copy; the messages are shared.
func (b *ringBuffer) Snapshot() []*report.Message {
	out := make([]*report.Message, len(b.entries))
	copy(out, b.entries)
	return out
}

// Len returns the number of buffered messages.
func (b *ringBuffer) Len() int {
	return len(b.entries)
}

// Clear drops every buffered message.
func (b *ringBuffer) Clear() {
	b.entries = b.entries[:0]
}
