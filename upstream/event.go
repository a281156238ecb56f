// Package upstream models the event stream emitted by the agent service.
//
// Events are semi-structured: Gemini-style payloads attach text and function
// parts to Content, OpenAI-style payloads use the Message shape. A single
// event may carry several of these at once.
package upstream

import (
	"encoding/json"
	"strings"

	"google.golang.org/genai"
)

type Event struct {
	ID        string         `json:"id,omitempty"`
	Author    string         `json:"author,omitempty"`
	Timestamp float64        `json:"timestamp,omitempty"`
	Content   *genai.Content `json:"content,omitempty"`
	Message   *Message       `json:"message,omitempty"`
	Actions   *Actions       `json:"actions,omitempty"`

	StateSnapshot    map[string]any    `json:"stateSnapshot,omitempty"`
	MessagesSnapshot []SnapshotMessage `json:"messagesSnapshot,omitempty"`

	StepStarted  *Step `json:"stepStarted,omitempty"`
	StepFinished *Step `json:"stepFinished,omitempty"`

	Raw    json.RawMessage `json:"raw,omitempty"`
	Custom *Custom         `json:"custom,omitempty"`
}

type Actions struct {
	StateDelta    map[string]any `json:"stateDelta,omitempty"`
	ArtifactDelta map[string]any `json:"artifactDelta,omitempty"`
}

// Message is the OpenAI-style message shape. Content is either a plain
// string or a list of text parts.
type Message struct {
	Role       string          `json:"role,omitempty"`
	Content    json.RawMessage `json:"content,omitempty"`
	Delta      string          `json:"delta,omitempty"`
	ToolCalls  []ToolCall      `json:"tool_calls,omitempty"`
	ToolCallID string          `json:"tool_call_id,omitempty"`
}

type ToolCall struct {
	ID       string   `json:"id,omitempty"`
	Type     string   `json:"type,omitempty"`
	Function Function `json:"function"`
}

type Function struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments,omitempty"`
}

type SnapshotMessage struct {
	ID      string `json:"id,omitempty"`
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

type Step struct {
	Name string `json:"name,omitempty"`
}

type Custom struct {
	Type    string          `json:"type,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Text extracts the textual content of an OpenAI-style message, accepting
// both the plain-string and list-of-parts content encodings.
func (m *Message) Text() string {
	if m == nil || len(m.Content) == 0 {
		return ""
	}
	var plain string
	if err := json.Unmarshal(m.Content, &plain); err == nil {
		return plain
	}
	var parts []contentPart
	if err := json.Unmarshal(m.Content, &parts); err != nil {
		return ""
	}
	var b strings.Builder
	for _, p := range parts {
		b.WriteString(p.text())
	}
	return b.String()
}

type contentPart struct {
	Type    string `json:"type,omitempty"`
	Text    string `json:"text,omitempty"`
	Content string `json:"content,omitempty"`
}

func (p contentPart) text() string {
	if p.Text != "" {
		return p.Text
	}
	return p.Content
}
