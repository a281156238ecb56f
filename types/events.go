package types

import (
	"encoding/json"
	"time"
)

type EventType string

const (
	EventRunStarted  EventType = "RUN_STARTED"
	EventRunFinished EventType = "RUN_FINISHED"
	EventRunError    EventType = "RUN_ERROR"

	EventStepStarted  EventType = "STEP_STARTED"
	EventStepFinished EventType = "STEP_FINISHED"

	EventTextMessageStart   EventType = "TEXT_MESSAGE_START"
	EventTextMessageContent EventType = "TEXT_MESSAGE_CONTENT"
	EventTextMessageEnd     EventType = "TEXT_MESSAGE_END"

	EventToolCallStart  EventType = "TOOL_CALL_START"
	EventToolCallArgs   EventType = "TOOL_CALL_ARGS"
	EventToolCallEnd    EventType = "TOOL_CALL_END"
	EventToolCallResult EventType = "TOOL_CALL_RESULT"

	EventStateDelta       EventType = "STATE_DELTA"
	EventStateSnapshot    EventType = "STATE_SNAPSHOT"
	EventMessagesSnapshot EventType = "MESSAGES_SNAPSHOT"
	EventActivitySnapshot EventType = "ACTIVITY_SNAPSHOT"

	EventRaw    EventType = "RAW"
	EventCustom EventType = "CUSTOM"
)

// Event is the protocol event the gateway emits to its clients. All variants
// share the envelope fields (threadId, runId, timestamp, messageId, author);
// the remaining fields are populated per Type.
type Event struct {
	Type      EventType `json:"type"`
	ThreadID  string    `json:"threadId,omitempty"`
	RunID     string    `json:"runId,omitempty"`
	Timestamp float64   `json:"timestamp,omitempty"`
	MessageID string    `json:"messageId,omitempty"`
	Author    string    `json:"author,omitempty"`

	// Text message events. Delta doubles as the argument fragment on
	// TOOL_CALL_ARGS events.
	Role  Role   `json:"role,omitempty"`
	Delta string `json:"delta,omitempty"`

	// Tool call events.
	ToolCallID   string `json:"toolCallId,omitempty"`
	ToolCallName string `json:"toolCallName,omitempty"`
	Result       string `json:"result,omitempty"`

	// State and activity events.
	StateDelta   map[string]any `json:"stateDelta,omitempty"`
	Snapshot     map[string]any `json:"snapshot,omitempty"`
	ActivityKind string         `json:"activityKind,omitempty"`

	// Messages snapshot events.
	Messages []Message `json:"messages,omitempty"`

	// Step events.
	StepName string `json:"stepName,omitempty"`

	// Raw and custom escape hatches.
	RawEvent json.RawMessage `json:"rawEvent,omitempty"`
	Name     string          `json:"name,omitempty"`
	Value    json.RawMessage `json:"value,omitempty"`

	// Run error events.
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// Seconds converts a wall-clock time to the protocol timestamp unit.
func Seconds(t time.Time) float64 {
	if t.IsZero() {
		return 0
	}
	return float64(t.UnixNano()) / float64(time.Second)
}
