package orchestrator

import (
	"fmt"
	"sync"
)

// Event records one state transition of the orchestrator.
type Event struct {
	From   State
	To     State
	Reason string
}

// Reporter emits transition events through a buffered channel.
type Reporter struct {
	mu     sync.Mutex
	ch     chan Event
	closed bool
}

// NewReporter creates a Reporter with a buffered channel of size 64.
func NewReporter() *Reporter {
	return &Reporter{
		ch: make(chan Event, 64),
	}
}

// Emit sends a transition event in a non-blocking fashion.
// If the channel is full, the event is silently dropped.
// Emitting on a closed Reporter is a no-op.
func (r *Reporter) Emit(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	select {
	case r.ch <- event:
	default:
		// Drop the event if the channel is full.
	}
}

// Subscribe returns a read-only channel for consuming transition events.
func (r *Reporter) Subscribe() <-chan Event {
	return r.ch
}

// Close closes the event channel. Safe to call more than once.
func (r *Reporter) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	close(r.ch)
}

// FormatEvent formats an Event as a human-readable status line.
func FormatEvent(event Event) string {
	if event.Reason == "" {
		return fmt.Sprintf("  %s -> %s", event.From, event.To)
	}
	return fmt.Sprintf("  %s -> %s (%s)", event.From, event.To, event.Reason)
}
