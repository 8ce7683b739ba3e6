package agentloop

import (
	"sync"
	"time"
)

// EventKind identifies the type of run event.
type EventKind string

const (
	EventRunStart       EventKind = "run_start"
	EventRunEnd         EventKind = "run_end"
	EventUserInput      EventKind = "user_input"
	EventBackendCall    EventKind = "backend_call"
	EventBackendUsage   EventKind = "backend_usage"
	EventToolCallStart  EventKind = "tool_call_start"
	EventToolCallEnd    EventKind = "tool_call_end"
	EventIterationLimit EventKind = "iteration_limit"
	EventRepeatWarning  EventKind = "repeat_warning"
	EventError          EventKind = "error"
)

// RunEvent is a typed diagnostic event emitted by the agent loop. Events
// carry token counts and raw tool-call arguments for verbose hosts; dropping
// them never affects loop behavior.
type RunEvent struct {
	Kind      EventKind              `json:"kind"`
	Timestamp time.Time              `json:"timestamp"`
	SessionID string                 `json:"session_id"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// EventEmitter delivers typed events to the host application via a channel.
type EventEmitter struct {
	sessionID string
	ch        chan RunEvent
	closed    bool
	mu        sync.Mutex
}

// NewEventEmitter creates a new EventEmitter with a buffered channel.
func NewEventEmitter(sessionID string, bufferSize int) *EventEmitter {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	return &EventEmitter{
		sessionID: sessionID,
		ch:        make(chan RunEvent, bufferSize),
	}
}

// Emit sends an event to the channel. If the emitter is closed or the channel
// is full, the event is silently dropped.
func (e *EventEmitter) Emit(kind EventKind, data map[string]interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	event := RunEvent{
		Kind:      kind,
		Timestamp: time.Now(),
		SessionID: e.sessionID,
		Data:      data,
	}
	select {
	case e.ch <- event:
	default:
		// Channel full; drop event to avoid blocking the loop.
	}
}

// Events returns the read-only event channel.
func (e *EventEmitter) Events() <-chan RunEvent {
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
