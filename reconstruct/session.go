package reconstruct

import "github.com/consolehq/agui-gateway/types"

// Session bundles the three derived views of one event log.
type Session struct {
	Messages []types.Message `json:"messages"`
	Timeline []Item          `json:"timeline"`
	State    map[string]any  `json:"state,omitempty"`
}

// RestoreSession rebuilds all three views from a persisted event log, e.g.
// after a page reload. MESSAGES_SNAPSHOT events in the log act as fallback
// messages for the message fold; explicitly supplied fallbacks win over
// snapshot entries with the same id.
func RestoreSession(events []types.Event, fallbacks ...types.Message) Session {
	merged := snapshotFallbacks(events)
	merged = append(merged, fallbacks...)
	return Session{
		Messages: FoldMessages(events, merged...),
		Timeline: FoldTimeline(events),
		State:    FoldState(events),
	}
}

func snapshotFallbacks(events []types.Event) []types.Message {
	var latest []types.Message
	for _, ev := range events {
		if ev.Type == types.EventMessagesSnapshot && len(ev.Messages) > 0 {
			latest = ev.Messages
		}
	}
	return append([]types.Message(nil), latest...)
}
