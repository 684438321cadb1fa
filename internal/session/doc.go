// Package session owns the long-lived messaging connection to one printer.
//
// The device speaks fire-and-forget MQTT: commands go to its request
// topic, telemetry and command echoes come back on its report topic.
// This package layers request/response semantics on top of that. Every
// outbound command embeds a sequence ID the device echoes back; the
// session registers a pending waiter for that ID and the inbound handler
// resolves it directly when the echo arrives; no polling is involved.
//
// Inbound messages are also appended to a bounded ring buffer (capacity
// 100, oldest evicted first). The buffer backs an explicit legacy
// policy: when a correlated wait times out without a sequence match but
// something did arrive, the most recent message is returned rather than
// an error. Callers that need strictness should treat a reply with a
// mismatched sequence ID accordingly.
//
// Only one correlated wait may be outstanding per session; a second one
// fails fast with ErrWaitInProgress. Malformed inbound payloads never
// kill the session — they are swallowed into a bounded, queryable
// history (last 10).
//
// # State machine
//
//	unconnected → connecting → connected → disconnecting → unconnected
//
// Connecting includes subscribing to the report topic; the session is
// not connected until the subscription is acknowledged.
//
// # Usage
//
//	s := session.New(cfg.Printer, cfg.MQTT)
//	if err := s.Connect(ctx); err != nil { ... }
//	defer s.Disconnect()
//
//	reply, err := s.PublishAndWait(ctx, s.Encoder().PausePrint())
package session
