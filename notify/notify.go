// Package notify delivers schema change events to interested parties.
//
// A Notifier is handed exactly one Event per successful mutation, after the
// mutation has been applied. Sinks range from in-memory recording for tests
// to NATS subjects and websocket clients; Async decouples slow sinks from
// the mutation path.
package notify

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/c360/semmodel/pkg/timestamp"
)

// Event is one schema change notification.
type Event struct {
	ID   string         `json:"id"`
	Type string         `json:"type"`
	Seq  uint64         `json:"seq,omitempty"` // mutation order, set by the producer
	Time int64          `json:"time"`
	User string         `json:"user,omitempty"`
	Info map[string]any `json:"info"`
}

// NewEvent stamps a fresh event of type typ.
func NewEvent(typ, user string, info map[string]any) Event {
	return Event{
		ID:   uuid.NewString(),
		Type: typ,
		Time: timestamp.Now(),
		User: user,
		Info: info,
	}
}

// Notifier receives events.
type Notifier interface {
	Notify(ctx context.Context, evt Event) error
}

// Func adapts a function to Notifier.
type Func func(ctx context.Context, evt Event) error

// Notify calls f.
func (f Func) Notify(ctx context.Context, evt Event) error { return f(ctx, evt) }

// Nop discards events.
var Nop Notifier = Func(func(context.Context, Event) error { return nil })

// Recorder keeps every event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder { return &Recorder{} }

// Notify implements Notifier.
func (r *Recorder) Notify(_ context.Context, evt Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return nil
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Last returns the most recent event.
func (r *Recorder) Last() (Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return Event{}, false
	}
	return r.events[len(r.events)-1], true
}

// Len is the number of recorded events.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// Reset forgets all events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// Fanout delivers to each notifier in order. Every notifier is tried; the
// first error is returned.
type Fanout []Notifier

// Notify implements Notifier.
func (f Fanout) Notify(ctx context.Context, evt Event) error {
	var first error
	for _, n := range f {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, evt); err != nil && first == nil {
			first = err
		}
	}
	return first
}
