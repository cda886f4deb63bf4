package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventTransition      EventType = "transition"
	EventCompletionStart EventType = "completion_start"
	EventCompletionDone  EventType = "completion_done"
	EventStaleResponse   EventType = "stale_response"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
}

// TransitionEvent is emitted whenever the session status changes.
type TransitionEvent struct {
	EventBase
	From  Status `json:"from"`
	To    Status `json:"to"`
	Event string `json:"event"`
	Mode  Mode   `json:"mode,omitempty"`
}

// CompletionEvent describes an interpreter call.
type CompletionEvent struct {
	EventBase
	Spread   string        `json:"spread"`
	Runes    int           `json:"runes"`
	Duration time.Duration `json:"duration,omitempty"`
	Degraded bool          `json:"degraded,omitempty"`
	Err      error         `json:"-"`
}

// LifecycleHooks defines callbacks for session observability.
// Hooks run synchronously and must not call back into the machine.
type LifecycleHooks struct {
	OnTransition      func(context.Context, *TransitionEvent)
	OnCompletionStart func(context.Context, *CompletionEvent)
	OnCompletionDone  func(context.Context, *CompletionEvent)
	OnStaleResponse   func(context.Context, *CompletionEvent)
}
