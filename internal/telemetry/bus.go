// Package telemetry implements the Event/Telemetry Bus (C16): a bounded,
// non-blocking publish point for structured events, with a fan-out
// subscriber layer adapted from the teacher's Hook/Hooks observer pattern.
package telemetry

import (
	"sync"
)

// EventKind enumerates the structured event types of spec §4.16.
type EventKind string

const (
	EventIterationStarted EventKind = "iteration_started"
	EventTokenReceived     EventKind = "token_received"
	EventToolInvoked       EventKind = "tool_invoked"
	EventToolCompleted     EventKind = "tool_completed"
	EventStateChanged      EventKind = "state_changed"
	EventProgressUpdated   EventKind = "progress_updated"
	EventPlanningDecision  EventKind = "planning_decision"
	EventRecoveryAction    EventKind = "recovery_action"
	EventTaskFinished      EventKind = "task_finished"
)

// terminal events are never dropped under backpressure, regardless of how
// full the bus is.
var terminalKinds = map[EventKind]bool{
	EventTaskFinished: true,
}

// Event is one structured telemetry record.
type Event struct {
	Kind    EventKind
	TaskID  string
	Payload any
}

func (e Event) isTerminal() bool { return terminalKinds[e.Kind] }

// Bus is a non-blocking bounded channel of Events (capacity 100 per spec).
// Publish never blocks the producer: when the buffer is full, the oldest
// non-terminal buffered event is evicted to make room; a terminal event
// that would otherwise be dropped is instead exchanged for the oldest
// non-terminal one so terminal events are never lost.
type Bus struct {
	mu   sync.Mutex
	buf  []Event
	cap  int
	subs []Subscriber
}

// Subscriber receives a copy of every event published past it, dispatched
// synchronously by Publish. Adapted from the teacher's Hook interface:
// one method per event family rather than per individual call site, since
// the bus carries typed payloads instead of distinct method signatures.
type Subscriber interface {
	Notify(Event)
}

// NewBus returns a Bus at the spec's default capacity of 100.
func NewBus() *Bus {
	return &Bus{cap: 100}
}

// Subscribe registers sub to receive every event published from this point
// on. Not safe to call concurrently with Publish on the same Bus in a way
// that requires ordering guarantees beyond mutex serialization.
func (b *Bus) Subscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, sub)
}

// Publish enqueues evt, evicting the oldest non-terminal buffered event if
// the bus is at capacity. Subscribers are notified synchronously after the
// buffer update, under the bus lock, mirroring the teacher's Hooks fanout
// (each subscriber's Notify runs in turn; a slow subscriber delays the
// others, matching the teacher's in-process call pattern rather than
// spawning one goroutine per subscriber).
func (b *Bus) Publish(evt Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.buf) >= b.cap {
		b.evictOldestNonTerminal(evt)
	} else {
		b.buf = append(b.buf, evt)
	}

	for _, sub := range b.subs {
		sub.Notify(evt)
	}
}

// evictOldestNonTerminal drops the oldest non-terminal buffered event to
// make room for incoming, or, if every buffered event is terminal (which
// should not happen given bounded task lifetimes), drops the oldest
// outright rather than growing unbounded.
func (b *Bus) evictOldestNonTerminal(incoming Event) {
	for i, e := range b.buf {
		if !e.isTerminal() {
			b.buf = append(b.buf[:i], b.buf[i+1:]...)
			b.buf = append(b.buf, incoming)
			return
		}
	}
	b.buf = append(b.buf[1:], incoming)
}

// Snapshot returns a copy of the currently buffered events, oldest first.
func (b *Bus) Snapshot() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Event, len(b.buf))
	copy(out, b.buf)
	return out
}

// Len reports how many events are currently buffered.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buf)
}
