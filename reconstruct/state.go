package reconstruct

import "github.com/consolehq/agui-gateway/types"

// State rebuilds the key-value state by shallow-merging every STATE_DELTA
// payload in arrival order. STATE_SNAPSHOT events are deliberately not used
// as a seed: replaying deltas from the start of the log keeps the fold
// idempotent regardless of where a snapshot happened to land.
type State struct {
	merged map[string]any
}

func NewState() *State {
	return &State{}
}

func (s *State) Apply(ev types.Event) {
	if s == nil || ev.Type != types.EventStateDelta {
		return
	}
	if s.merged == nil {
		s.merged = map[string]any{}
	}
	for k, v := range ev.StateDelta {
		s.merged[k] = v
	}
}

// Snapshot returns a copy of the merged state, or nil when no delta event
// has been observed yet.
func (s *State) Snapshot() map[string]any {
	if s == nil || s.merged == nil {
		return nil
	}
	out := make(map[string]any, len(s.merged))
	for k, v := range s.merged {
		out[k] = v
	}
	return out
}

// FoldState replays a full event log through a fresh fold.
func FoldState(events []types.Event) map[string]any {
	fold := NewState()
	for _, ev := range events {
		fold.Apply(ev)
	}
	return fold.Snapshot()
}
