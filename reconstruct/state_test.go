package reconstruct

import (
	"reflect"
	"testing"

	"github.com/consolehq/agui-gateway/types"
)

func TestStateShallowMerge(t *testing.T) {
	events := []types.Event{
		{Type: types.EventStateDelta, StateDelta: map[string]any{"a": float64(1)}},
		{Type: types.EventStateDelta, StateDelta: map[string]any{"a": float64(2), "b": float64(3)}},
	}
	got := FoldState(events)
	want := map[string]any{"a": float64(2), "b": float64(3)}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestStateNilBeforeFirstDelta(t *testing.T) {
	fold := NewState()
	if fold.Snapshot() != nil {
		t.Fatal("expected nil snapshot before any delta")
	}
	fold.Apply(types.Event{Type: types.EventStateDelta, StateDelta: map[string]any{}})
	if fold.Snapshot() == nil {
		t.Fatal("an empty delta still initializes the state")
	}
}

func TestStateSnapshotEventsNeverSeed(t *testing.T) {
	events := []types.Event{
		{Type: types.EventStateSnapshot, Snapshot: map[string]any{"seed": true}},
		{Type: types.EventStateDelta, StateDelta: map[string]any{"a": float64(1)}},
	}
	got := FoldState(events)
	if _, ok := got["seed"]; ok {
		t.Fatalf("snapshot payload leaked into the fold: %v", got)
	}
	if got["a"] != float64(1) {
		t.Fatalf("delta lost: %v", got)
	}
}

func TestStateSnapshotReturnsCopy(t *testing.T) {
	fold := NewState()
	fold.Apply(types.Event{Type: types.EventStateDelta, StateDelta: map[string]any{"a": float64(1)}})
	snap := fold.Snapshot()
	snap["a"] = float64(99)
	if fold.Snapshot()["a"] != float64(1) {
		t.Fatal("mutating a snapshot leaked into the fold")
	}
}

func TestStateReplayEquivalence(t *testing.T) {
	events := []types.Event{
		{Type: types.EventStateDelta, StateDelta: map[string]any{"a": float64(1)}},
		{Type: types.EventStateDelta, StateDelta: map[string]any{"b": "x"}},
		{Type: types.EventStateDelta, StateDelta: map[string]any{"a": float64(7)}},
	}
	incremental := NewState()
	for _, ev := range events {
		incremental.Apply(ev)
	}
	if !reflect.DeepEqual(incremental.Snapshot(), FoldState(events)) {
		t.Fatal("incremental and batch folds disagree")
	}
}
