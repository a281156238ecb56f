package translate

import (
	"encoding/json"
	"testing"

	"google.golang.org/genai"

	"github.com/consolehq/agui-gateway/types"
	"github.com/consolehq/agui-gateway/upstream"
)

func TestTextFromContentParts(t *testing.T) {
	src := upstream.Event{
		ID:        "m1",
		Author:    "assistant",
		Timestamp: 42,
		Content: &genai.Content{
			Parts: []*genai.Part{
				{Text: "hel"},
				{FunctionCall: &genai.FunctionCall{ID: "c1", Name: "lookup"}},
				{Text: "lo"},
			},
		},
	}
	events := Events(src)
	if len(events) != 6 {
		t.Fatalf("expected 6 events (text triple + tool call triple), got %d", len(events))
	}
	if events[0].Type != types.EventTextMessageStart || events[0].Role != types.RoleAssistant {
		t.Fatalf("unexpected start event: %+v", events[0])
	}
	if events[0].MessageID != "m1" || events[0].Author != "assistant" || events[0].Timestamp != 42 {
		t.Fatalf("envelope not carried: %+v", events[0])
	}
	if events[1].Type != types.EventTextMessageContent || events[1].Delta != "hello" {
		t.Fatalf("function parts must not leak into text: %+v", events[1])
	}
	if events[2].Type != types.EventTextMessageEnd {
		t.Fatalf("expected end event, got %+v", events[2])
	}
}

func TestTextFromSimpleMessage(t *testing.T) {
	src := upstream.Event{
		Message: &upstream.Message{
			Role:    "user",
			Content: json.RawMessage(`"hi there"`),
		},
	}
	events := Events(src)
	if len(events) != 3 {
		t.Fatalf("expected text triple, got %d events", len(events))
	}
	if events[0].Role != types.RoleUser {
		t.Fatalf("expected explicit message role, got %q", events[0].Role)
	}
	if events[1].Delta != "hi there" {
		t.Fatalf("unexpected content: %q", events[1].Delta)
	}
}

func TestTextFromMessagePartsList(t *testing.T) {
	src := upstream.Event{
		Message: &upstream.Message{
			Content: json.RawMessage(`[{"type":"text","text":"a"},{"content":"b"}]`),
		},
	}
	events := Events(src)
	if len(events) != 3 {
		t.Fatalf("expected text triple, got %d events", len(events))
	}
	if events[1].Delta != "ab" {
		t.Fatalf("unexpected joined content: %q", events[1].Delta)
	}
}

func TestRoleFallsBackToAuthor(t *testing.T) {
	src := upstream.Event{
		Author:  "researcher",
		Message: &upstream.Message{Content: json.RawMessage(`"report"`)},
	}
	events := Events(src)
	if events[0].Role != types.Role("researcher") {
		t.Fatalf("expected author as role fallback, got %q", events[0].Role)
	}
}

func TestToolResponseSuppressesText(t *testing.T) {
	src := upstream.Event{
		Message: &upstream.Message{
			Role:       "tool",
			ToolCallID: "c1",
			Content:    json.RawMessage(`"result text"`),
		},
	}
	events := Events(src)
	if len(events) != 1 {
		t.Fatalf("expected only the result event, got %d", len(events))
	}
	if events[0].Type != types.EventToolCallResult || events[0].ToolCallID != "c1" || events[0].Result != "result text" {
		t.Fatalf("unexpected result event: %+v", events[0])
	}
}

func TestToolResultFallsBackToDelta(t *testing.T) {
	src := upstream.Event{
		Message: &upstream.Message{
			Role:       "tool",
			ToolCallID: "c2",
			Delta:      "partial output",
		},
	}
	events := Events(src)
	if len(events) != 1 || events[0].Result != "partial output" {
		t.Fatalf("expected delta fallback, got %+v", events)
	}
}

func TestOpenAIToolCalls(t *testing.T) {
	src := upstream.Event{
		Message: &upstream.Message{
			ToolCalls: []upstream.ToolCall{
				{ID: "c1", Function: upstream.Function{Name: "search", Arguments: `{"q":"go"}`}},
				{ID: "c2", Function: upstream.Function{Name: "fetch", Arguments: `{}`}},
			},
		},
	}
	events := Events(src)
	if len(events) != 6 {
		t.Fatalf("expected 2 tool call triples, got %d events", len(events))
	}
	want := []types.EventType{
		types.EventToolCallStart, types.EventToolCallArgs, types.EventToolCallEnd,
		types.EventToolCallStart, types.EventToolCallArgs, types.EventToolCallEnd,
	}
	for i, ev := range events {
		if ev.Type != want[i] {
			t.Fatalf("event %d: expected %s, got %s", i, want[i], ev.Type)
		}
	}
	if events[0].ToolCallID != "c1" || events[0].ToolCallName != "search" {
		t.Fatalf("unexpected start event: %+v", events[0])
	}
	if events[1].Delta != `{"q":"go"}` {
		t.Fatalf("unexpected args: %q", events[1].Delta)
	}
}

func TestGeminiFunctionCallSerializesArgs(t *testing.T) {
	src := upstream.Event{
		Content: &genai.Content{
			Parts: []*genai.Part{
				{FunctionCall: &genai.FunctionCall{ID: "c1", Name: "lookup", Args: map[string]any{"key": "value"}}},
			},
		},
	}
	events := Events(src)
	if len(events) != 3 {
		t.Fatalf("expected tool call triple, got %d events", len(events))
	}
	if events[1].Delta != `{"key":"value"}` {
		t.Fatalf("unexpected serialized args: %q", events[1].Delta)
	}
}

func TestGeminiFunctionResponseResultExtraction(t *testing.T) {
	tests := []struct {
		name     string
		response map[string]any
		want     string
	}{
		{"result field", map[string]any{"result": "ok"}, "ok"},
		{"result field non-string", map[string]any{"result": float64(7)}, "7"},
		{"whole response", map[string]any{"status": "done"}, `{"status":"done"}`},
		{"nil response", nil, "null"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := upstream.Event{
				Content: &genai.Content{
					Parts: []*genai.Part{
						{FunctionResponse: &genai.FunctionResponse{ID: "c1", Name: "lookup", Response: tt.response}},
					},
				},
			}
			events := Events(src)
			if len(events) != 1 {
				t.Fatalf("expected 1 result event, got %d", len(events))
			}
			if events[0].Result != tt.want {
				t.Fatalf("expected result %q, got %q", tt.want, events[0].Result)
			}
		})
	}
}

func TestStateAndArtifactDeltas(t *testing.T) {
	src := upstream.Event{
		Actions: &upstream.Actions{
			StateDelta:    map[string]any{"step": "plan"},
			ArtifactDelta: map[string]any{"report.md": float64(2)},
		},
	}
	events := Events(src)
	if len(events) != 2 {
		t.Fatalf("expected artifact + state delta events, got %d", len(events))
	}
	if events[0].Type != types.EventActivitySnapshot || events[0].ActivityKind != "artifact" {
		t.Fatalf("unexpected artifact event: %+v", events[0])
	}
	if events[1].Type != types.EventStateDelta || events[1].StateDelta["step"] != "plan" {
		t.Fatalf("unexpected state delta event: %+v", events[1])
	}
}

func TestSnapshotsStepsAndEscapeHatches(t *testing.T) {
	src := upstream.Event{
		StateSnapshot: map[string]any{"a": float64(1)},
		MessagesSnapshot: []upstream.SnapshotMessage{
			{ID: "m1", Role: "user", Content: "hi"},
		},
		StepStarted:  &upstream.Step{Name: "research"},
		StepFinished: &upstream.Step{Name: "research"},
		Raw:          json.RawMessage(`{"vendor":"x"}`),
		Custom:       &upstream.Custom{Type: "progress", Payload: json.RawMessage(`{"pct":50}`)},
	}
	events := Events(src)
	want := []types.EventType{
		types.EventStateSnapshot,
		types.EventMessagesSnapshot,
		types.EventStepStarted,
		types.EventStepFinished,
		types.EventRaw,
		types.EventCustom,
	}
	if len(events) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(events))
	}
	for i, ev := range events {
		if ev.Type != want[i] {
			t.Fatalf("event %d: expected %s, got %s", i, want[i], ev.Type)
		}
	}
	if events[1].Messages[0].ID != "m1" || events[1].Messages[0].Role != types.RoleUser {
		t.Fatalf("unexpected snapshot messages: %+v", events[1].Messages)
	}
	if events[2].StepName != "research" {
		t.Fatalf("unexpected step name: %q", events[2].StepName)
	}
	if events[5].Name != "progress" {
		t.Fatalf("unexpected custom sub-type: %q", events[5].Name)
	}
}

func TestTimestampDefaultsToNow(t *testing.T) {
	src := upstream.Event{
		Message: &upstream.Message{Content: json.RawMessage(`"hi"`)},
	}
	events := Events(src)
	if events[0].Timestamp == 0 {
		t.Fatal("expected timestamp to default to now")
	}
}

func TestEmptyEventYieldsNothing(t *testing.T) {
	if events := Events(upstream.Event{}); len(events) != 0 {
		t.Fatalf("expected no events for an empty upstream event, got %d", len(events))
	}
}
