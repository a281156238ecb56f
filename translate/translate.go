// Package translate maps upstream agent events onto the normalized protocol
// emitted by the gateway. The mapping is a pure function: one upstream event
// yields zero or more protocol events, with every supported shape family
// evaluated independently so a single upstream event can contribute text,
// tool calls, and state changes at once.
package translate

import (
	"encoding/json"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/consolehq/agui-gateway/types"
	"github.com/consolehq/agui-gateway/upstream"
)

// Events translates one upstream event into its ordered protocol events.
func Events(src upstream.Event) []types.Event {
	env := envelope(src)

	var out []types.Event
	out = append(out, textEvents(src, env)...)
	out = append(out, openAIToolCalls(src, env)...)
	out = append(out, geminiToolCalls(src, env)...)
	out = append(out, openAIToolResults(src, env)...)
	out = append(out, geminiToolResults(src, env)...)
	out = append(out, artifactEvents(src, env)...)
	out = append(out, stateDeltaEvents(src, env)...)
	out = append(out, snapshotEvents(src, env)...)
	out = append(out, stepEvents(src, env)...)
	out = append(out, escapeHatchEvents(src, env)...)
	return out
}

// envelope builds the shared fields every emitted event carries. Thread and
// run ids are stamped later by the streaming session, not here.
func envelope(src upstream.Event) types.Event {
	ts := src.Timestamp
	if ts == 0 {
		ts = types.Seconds(time.Now().UTC())
	}
	return types.Event{
		Timestamp: ts,
		MessageID: src.ID,
		Author:    src.Author,
	}
}

func textEvents(src upstream.Event, env types.Event) []types.Event {
	text := contentText(src.Content)
	if text == "" {
		text = src.Message.Text()
	}
	if text == "" || isToolResponse(src) {
		return nil
	}

	start := env
	start.Type = types.EventTextMessageStart
	start.Role = resolveRole(src)

	content := env
	content.Type = types.EventTextMessageContent
	content.Delta = text

	end := env
	end.Type = types.EventTextMessageEnd

	return []types.Event{start, content, end}
}

// contentText joins the plain-text parts of a Gemini-style content block.
// Function call and response parts are skipped so they are not rendered
// twice: the tool-call branches own them.
func contentText(content *genai.Content) string {
	if content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range content.Parts {
		if part == nil || part.FunctionCall != nil || part.FunctionResponse != nil {
			continue
		}
		b.WriteString(part.Text)
	}
	return b.String()
}

func isToolResponse(src upstream.Event) bool {
	if src.Message != nil {
		if src.Message.Role == string(types.RoleTool) || src.Message.ToolCallID != "" {
			return true
		}
	}
	return false
}

func resolveRole(src upstream.Event) types.Role {
	if src.Message != nil && src.Message.Role != "" {
		return types.Role(src.Message.Role)
	}
	if src.Author != "" {
		return types.Role(src.Author)
	}
	return types.RoleAssistant
}

func openAIToolCalls(src upstream.Event, env types.Event) []types.Event {
	if src.Message == nil || len(src.Message.ToolCalls) == 0 {
		return nil
	}
	out := make([]types.Event, 0, 3*len(src.Message.ToolCalls))
	for _, call := range src.Message.ToolCalls {
		out = append(out, toolCallTriple(env, call.ID, call.Function.Name, call.Function.Arguments)...)
	}
	return out
}

func geminiToolCalls(src upstream.Event, env types.Event) []types.Event {
	if src.Content == nil {
		return nil
	}
	var out []types.Event
	for _, part := range src.Content.Parts {
		if part == nil || part.FunctionCall == nil {
			continue
		}
		args := part.FunctionCall.Args
		if args == nil {
			args = map[string]any{}
		}
		raw, _ := json.Marshal(args)
		out = append(out, toolCallTriple(env, part.FunctionCall.ID, part.FunctionCall.Name, string(raw))...)
	}
	return out
}

func toolCallTriple(env types.Event, id, name, args string) []types.Event {
	start := env
	start.Type = types.EventToolCallStart
	start.ToolCallID = id
	start.ToolCallName = name

	argsEv := env
	argsEv.Type = types.EventToolCallArgs
	argsEv.ToolCallID = id
	argsEv.Delta = args

	end := env
	end.Type = types.EventToolCallEnd
	end.ToolCallID = id

	return []types.Event{start, argsEv, end}
}

func openAIToolResults(src upstream.Event, env types.Event) []types.Event {
	msg := src.Message
	if msg == nil || msg.ToolCallID == "" {
		return nil
	}
	result := msg.Text()
	if result == "" {
		result = msg.Delta
	}
	ev := env
	ev.Type = types.EventToolCallResult
	ev.ToolCallID = msg.ToolCallID
	ev.Result = result
	return []types.Event{ev}
}

func geminiToolResults(src upstream.Event, env types.Event) []types.Event {
	if src.Content == nil {
		return nil
	}
	var out []types.Event
	for _, part := range src.Content.Parts {
		if part == nil || part.FunctionResponse == nil {
			continue
		}
		ev := env
		ev.Type = types.EventToolCallResult
		ev.ToolCallID = part.FunctionResponse.ID
		ev.ToolCallName = part.FunctionResponse.Name
		ev.Result = functionResponseResult(part.FunctionResponse)
		out = append(out, ev)
	}
	return out
}

// functionResponseResult extracts the result payload of a function response,
// preferring response.result, falling back to the whole response map, then
// to JSON null. Non-string values are serialized.
func functionResponseResult(fr *genai.FunctionResponse) string {
	var value any
	switch {
	case fr.Response == nil:
		value = nil
	default:
		if result, ok := fr.Response["result"]; ok {
			value = result
		} else {
			value = fr.Response
		}
	}
	if s, ok := value.(string); ok {
		return s
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return ""
	}
	return string(raw)
}

func artifactEvents(src upstream.Event, env types.Event) []types.Event {
	if src.Actions == nil || len(src.Actions.ArtifactDelta) == 0 {
		return nil
	}
	ev := env
	ev.Type = types.EventActivitySnapshot
	ev.ActivityKind = "artifact"
	ev.Snapshot = src.Actions.ArtifactDelta
	return []types.Event{ev}
}

func stateDeltaEvents(src upstream.Event, env types.Event) []types.Event {
	if src.Actions == nil || len(src.Actions.StateDelta) == 0 {
		return nil
	}
	ev := env
	ev.Type = types.EventStateDelta
	ev.StateDelta = src.Actions.StateDelta
	return []types.Event{ev}
}

func snapshotEvents(src upstream.Event, env types.Event) []types.Event {
	var out []types.Event
	if src.StateSnapshot != nil {
		ev := env
		ev.Type = types.EventStateSnapshot
		ev.Snapshot = src.StateSnapshot
		out = append(out, ev)
	}
	if src.MessagesSnapshot != nil {
		ev := env
		ev.Type = types.EventMessagesSnapshot
		ev.Messages = snapshotMessages(src.MessagesSnapshot)
		out = append(out, ev)
	}
	return out
}

func snapshotMessages(in []upstream.SnapshotMessage) []types.Message {
	out := make([]types.Message, 0, len(in))
	for _, m := range in {
		out = append(out, types.Message{
			ID:      m.ID,
			Role:    types.Role(m.Role),
			Content: m.Content,
		})
	}
	return out
}

func stepEvents(src upstream.Event, env types.Event) []types.Event {
	var out []types.Event
	if src.StepStarted != nil {
		ev := env
		ev.Type = types.EventStepStarted
		ev.StepName = src.StepStarted.Name
		out = append(out, ev)
	}
	if src.StepFinished != nil {
		ev := env
		ev.Type = types.EventStepFinished
		ev.StepName = src.StepFinished.Name
		out = append(out, ev)
	}
	return out
}

func escapeHatchEvents(src upstream.Event, env types.Event) []types.Event {
	var out []types.Event
	if len(src.Raw) > 0 {
		ev := env
		ev.Type = types.EventRaw
		ev.RawEvent = src.Raw
		out = append(out, ev)
	}
	if src.Custom != nil {
		ev := env
		ev.Type = types.EventCustom
		ev.Name = src.Custom.Type
		ev.Value = src.Custom.Payload
		out = append(out, ev)
	}
	return out
}
