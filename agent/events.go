package agent

import (
	"sync"
	"time"
)

// EventKind identifies the type of session event.
type EventKind string

const (
	EventTaskStart        EventKind = "task_start"
	EventAssistantMessage EventKind = "assistant_message"
	EventPlan             EventKind = "plan"
	EventMemoryUpdate     EventKind = "memory_update"
	EventActionStart      EventKind = "action_start"
	EventActionResult     EventKind = "action_result"
	EventDiffPreview      EventKind = "diff_preview"
	EventVerifyResult     EventKind = "verify_result"
	EventRepairPrompt     EventKind = "repair_prompt"
	EventUserQuestion     EventKind = "user_question"
	EventWriteSummary     EventKind = "write_summary"
	EventRollback         EventKind = "rollback"
	EventTaskEnd          EventKind = "task_end"
	EventError            EventKind = "error"
)

// Event is a typed progress notification emitted by a running session.
type Event struct {
	Kind      EventKind              `json:"kind"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// EventEmitter delivers events to the host application via a buffered
// channel. Emit never blocks the loop: when the buffer is full the event
// is dropped.
type EventEmitter struct {
	ch     chan Event
	closed bool
	mu     sync.Mutex
}

// NewEventEmitter creates an emitter with a buffered channel.
func NewEventEmitter(bufferSize int) *EventEmitter {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	return &EventEmitter{ch: make(chan Event, bufferSize)}
}

// Emit sends an event. Events sent after Close are silently dropped.
func (e *EventEmitter) Emit(kind EventKind, data map[string]interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	event := Event{Kind: kind, Timestamp: time.Now(), Data: data}
	select {
	case e.ch <- event:
	default:
		// Buffer full; drop rather than stall the loop.
	}
}

// Events returns the read-only event channel.
func (e *EventEmitter) Events() <-chan Event {
	return e.ch
}

// Close closes the event channel. Safe to call multiple times.
func (e *EventEmitter) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.closed {
		e.closed = true
		close(e.ch)
	}
}
