package progress

import "sync"

// Recorder is the in-memory Publisher the test suite substitutes for Bus,
// per the design note that the Executor depends on a publisher interface
// rather than any particular transport.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// NewRecorder constructs an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Publish appends the event, preserving call order.
func (r *Recorder) Publish(room string, name EventName, data map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Room: room, Name: name, Data: data})
}

// Events returns a snapshot of every event recorded so far, in order.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// EventsForRoom filters Events to a single room, preserving order.
func (r *Recorder) EventsForRoom(room string) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Room == room {
			out = append(out, e)
		}
	}
	return out
}
