package event

import "time"

// Event is the interface that all events must implement.
type Event interface {
	// EventType returns a string identifier for this event type.
	// Convention: "category.action" (e.g., "stream.started", "state.changed")
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// baseEvent provides common fields for all events.
// Embed this in concrete event types to satisfy the Event interface.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

// newBaseEvent creates a baseEvent with the current time.
func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// -----------------------------------------------------------------------------
// Stream Lifecycle Events
// -----------------------------------------------------------------------------

// StreamStartedEvent is emitted when a stream consumption attempt begins.
type StreamStartedEvent struct {
	baseEvent
	ConversationID string // Conversation being streamed
	Attempt        int    // 1-based consumption attempt number
}

// NewStreamStartedEvent creates a StreamStartedEvent.
func NewStreamStartedEvent(conversationID string, attempt int) StreamStartedEvent {
	return StreamStartedEvent{
		baseEvent:      newBaseEvent("stream.started"),
		ConversationID: conversationID,
		Attempt:        attempt,
	}
}

// StreamEventReceived is emitted for every decoded frame the consumer
// processes.
type StreamEventReceived struct {
	baseEvent
	ConversationID string // Conversation being streamed
	Kind           string // Stream event kind (stage1_start, complete, ...)
}

// NewStreamEventReceived creates a StreamEventReceived.
func NewStreamEventReceived(conversationID, kind string) StreamEventReceived {
	return StreamEventReceived{
		baseEvent:      newBaseEvent("stream.event"),
		ConversationID: conversationID,
		Kind:           kind,
	}
}

// StreamFinishedEvent is emitted when a stream consumption settles.
type StreamFinishedEvent struct {
	baseEvent
	ConversationID string // Conversation that was streamed
	Outcome        string // "complete", "cancelled", or "error"
	Err            string // Failure message when Outcome is "error"
}

// NewStreamFinishedEvent creates a StreamFinishedEvent.
func NewStreamFinishedEvent(conversationID, outcome, errMsg string) StreamFinishedEvent {
	return StreamFinishedEvent{
		baseEvent:      newBaseEvent("stream.finished"),
		ConversationID: conversationID,
		Outcome:        outcome,
		Err:            errMsg,
	}
}

// -----------------------------------------------------------------------------
// State Events
// -----------------------------------------------------------------------------

// StateChangedEvent is emitted after every client state mutation. Observers
// re-read the state store rather than carrying payloads on the event.
type StateChangedEvent struct {
	baseEvent
}

// NewStateChangedEvent creates a StateChangedEvent.
func NewStateChangedEvent() StateChangedEvent {
	return StateChangedEvent{baseEvent: newBaseEvent("state.changed")}
}

// -----------------------------------------------------------------------------
// Pipeline Events
// -----------------------------------------------------------------------------

// StageCompletedEvent is emitted by the server when a pipeline stage settles.
type StageCompletedEvent struct {
	baseEvent
	ConversationID string        // Conversation the pipeline runs for
	Stage          string        // "stage1", "stage2", or "stage3"
	Elapsed        time.Duration // Wall time spent in the stage
	Results        int           // Number of surviving results (candidates or rankings)
}

// NewStageCompletedEvent creates a StageCompletedEvent.
func NewStageCompletedEvent(conversationID, stage string, elapsed time.Duration, results int) StageCompletedEvent {
	return StageCompletedEvent{
		baseEvent:      newBaseEvent("pipeline.stage_completed"),
		ConversationID: conversationID,
		Stage:          stage,
		Elapsed:        elapsed,
		Results:        results,
	}
}
