package reconstruct

import (
	"encoding/json"

	"github.com/consolehq/agui-gateway/types"
)

type ItemKind string

const (
	ItemToolCall      ItemKind = "tool_call"
	ItemStateDelta    ItemKind = "state_delta"
	ItemStateSnapshot ItemKind = "state_snapshot"
	ItemActivity      ItemKind = "activity"
	ItemError         ItemKind = "error"
	ItemStepStarted   ItemKind = "step_started"
	ItemStepFinished  ItemKind = "step_finished"
	ItemRaw           ItemKind = "raw"
	ItemCustom        ItemKind = "custom"
)

// Item is one entry of the reconstructed activity timeline.
type Item struct {
	Kind      ItemKind        `json:"kind"`
	Timestamp float64         `json:"timestamp,omitempty"`
	ToolCall  *types.ToolCall `json:"toolCall,omitempty"`

	StateDelta   map[string]any `json:"stateDelta,omitempty"`
	Snapshot     map[string]any `json:"snapshot,omitempty"`
	ActivityKind string         `json:"activityKind,omitempty"`

	StepName string `json:"stepName,omitempty"`

	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`

	Raw   json.RawMessage `json:"raw,omitempty"`
	Name  string          `json:"name,omitempty"`
	Value json.RawMessage `json:"value,omitempty"`
}

// Timeline accumulates an ordered item list plus a side index from
// toolCallId to the item holding that call.
type Timeline struct {
	items []Item
	index map[string]int
}

func NewTimeline() *Timeline {
	return &Timeline{index: map[string]int{}}
}

func (t *Timeline) Apply(ev types.Event) {
	if t == nil {
		return
	}
	switch ev.Type {
	case types.EventToolCallStart:
		t.toolCallStart(ev)
	case types.EventToolCallArgs:
		t.toolCallArgs(ev)
	case types.EventToolCallResult:
		t.toolCallResult(ev)
	case types.EventToolCallEnd:
		t.toolCallEnd(ev)
	case types.EventStateDelta:
		t.append(Item{Kind: ItemStateDelta, Timestamp: ev.Timestamp, StateDelta: ev.StateDelta})
	case types.EventStateSnapshot:
		t.append(Item{Kind: ItemStateSnapshot, Timestamp: ev.Timestamp, Snapshot: ev.Snapshot})
	case types.EventActivitySnapshot:
		t.append(Item{Kind: ItemActivity, Timestamp: ev.Timestamp, ActivityKind: ev.ActivityKind, Snapshot: ev.Snapshot})
	case types.EventRunError:
		t.append(Item{Kind: ItemError, Timestamp: ev.Timestamp, Code: ev.Code, Message: ev.Message})
	case types.EventStepStarted:
		t.append(Item{Kind: ItemStepStarted, Timestamp: ev.Timestamp, StepName: ev.StepName})
	case types.EventStepFinished:
		t.append(Item{Kind: ItemStepFinished, Timestamp: ev.Timestamp, StepName: ev.StepName})
	case types.EventRaw:
		t.append(Item{Kind: ItemRaw, Timestamp: ev.Timestamp, Raw: ev.RawEvent})
	case types.EventCustom:
		t.append(Item{Kind: ItemCustom, Timestamp: ev.Timestamp, Name: ev.Name, Value: ev.Value})
	case types.EventMessagesSnapshot:
		// Consumed by session restore, never rendered as an item.
	}
}

func (t *Timeline) toolCallStart(ev types.Event) {
	if pos, ok := t.index[ev.ToolCallID]; ok {
		call := t.items[pos].ToolCall
		if call.Name == "" {
			call.Name = ev.ToolCallName
		}
		return
	}
	t.appendToolCall(ev.Timestamp, &types.ToolCall{
		ID:     ev.ToolCallID,
		Name:   ev.ToolCallName,
		Status: types.ToolCallRunning,
	})
}

func (t *Timeline) toolCallArgs(ev types.Event) {
	pos, ok := t.index[ev.ToolCallID]
	if !ok {
		t.appendToolCall(ev.Timestamp, &types.ToolCall{
			ID:     ev.ToolCallID,
			Args:   ev.Delta,
			Status: types.ToolCallRunning,
		})
		return
	}
	t.items[pos].ToolCall.Args += ev.Delta
}

func (t *Timeline) toolCallResult(ev types.Event) {
	pos, ok := t.index[ev.ToolCallID]
	if !ok {
		// The start was never observed, e.g. the stream was truncated.
		// Record the call as already completed rather than dropping it.
		t.appendToolCall(ev.Timestamp, &types.ToolCall{
			ID:     ev.ToolCallID,
			Name:   ev.ToolCallName,
			Result: ev.Result,
			Status: types.ToolCallCompleted,
		})
		return
	}
	call := t.items[pos].ToolCall
	if call.Result == "" {
		call.Result = ev.Result
	}
	call.Status = types.ToolCallCompleted
}

func (t *Timeline) toolCallEnd(ev types.Event) {
	pos, ok := t.index[ev.ToolCallID]
	if !ok {
		return
	}
	call := t.items[pos].ToolCall
	if call.Status == types.ToolCallRunning {
		call.Status = types.ToolCallDone
	}
}

func (t *Timeline) appendToolCall(ts float64, call *types.ToolCall) {
	t.index[call.ID] = len(t.items)
	t.items = append(t.items, Item{Kind: ItemToolCall, Timestamp: ts, ToolCall: call})
}

func (t *Timeline) append(item Item) {
	t.items = append(t.items, item)
}

// Items returns a copy of the accumulated timeline.
func (t *Timeline) Items() []Item {
	if t == nil {
		return nil
	}
	out := make([]Item, len(t.items))
	for i, item := range t.items {
		if item.ToolCall != nil {
			call := *item.ToolCall
			item.ToolCall = &call
		}
		item.StateDelta = copyMap(item.StateDelta)
		item.Snapshot = copyMap(item.Snapshot)
		out[i] = item
	}
	return out
}

func copyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// FoldTimeline replays a full event log through a fresh fold.
func FoldTimeline(events []types.Event) []Item {
	fold := NewTimeline()
	for _, ev := range events {
		fold.Apply(ev)
	}
	return fold.Items()
}
