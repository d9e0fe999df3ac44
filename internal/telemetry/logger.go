package telemetry

import "log"

// LoggerSubscriber writes one line per event to an *log.Logger. Adapted
// from the teacher's LoggerHook, trading its per-call-site methods for a
// single Notify switch over EventKind.
type LoggerSubscriber struct {
	L *log.Logger
}

// Notify implements Subscriber.
func (s LoggerSubscriber) Notify(evt Event) {
	switch evt.Kind {
	case EventStateChanged:
		s.L.Printf("task=%s state_changed payload=%v", evt.TaskID, evt.Payload)
	case EventToolInvoked, EventToolCompleted:
		s.L.Printf("task=%s %s payload=%v", evt.TaskID, evt.Kind, evt.Payload)
	case EventTaskFinished:
		s.L.Printf("task=%s finished payload=%v", evt.TaskID, evt.Payload)
	default:
		s.L.Printf("task=%s %s", evt.TaskID, evt.Kind)
	}
}

// MultiSubscriber fans one event out to several subscribers in sequence,
// mirroring the teacher's Hooks slice type.
type MultiSubscriber []Subscriber

// Notify implements Subscriber.
func (m MultiSubscriber) Notify(evt Event) {
	for _, sub := range m {
		sub.Notify(evt)
	}
}
