// Package reconstruct folds an ordered protocol event stream into the three
// derived views clients render: a chat message list, a tool-call timeline,
// and a key-value state snapshot. Every fold is pure and replayable --
// applying events one at a time and replaying the full log from scratch
// produce identical results.
package reconstruct

import (
	"sort"
	"strings"

	"github.com/consolehq/agui-gateway/types"
)

type messageRecord struct {
	id        string
	role      types.Role
	author    string
	runID     string
	content   strings.Builder
	timestamp float64
}

// Messages accumulates chat messages keyed by messageId.
type Messages struct {
	fallbacks  map[string]types.Message
	records    map[string]*messageRecord
	order      []string
	currentRun string
}

func NewMessages(fallbacks ...types.Message) *Messages {
	fb := make(map[string]types.Message, len(fallbacks))
	for _, m := range fallbacks {
		if m.ID != "" {
			fb[m.ID] = m
		}
	}
	return &Messages{
		fallbacks: fb,
		records:   map[string]*messageRecord{},
	}
}

func (m *Messages) Apply(ev types.Event) {
	if m == nil {
		return
	}
	switch ev.Type {
	case types.EventRunStarted:
		m.currentRun = ev.RunID
	case types.EventTextMessageStart:
		rec := m.record(ev)
		if rec.role == "" {
			rec.role = m.resolveRole(ev)
		}
		if rec.author == "" {
			rec.author = ev.Author
		}
		rec.observe(ev.Timestamp)
	case types.EventTextMessageContent:
		rec := m.record(ev)
		rec.content.WriteString(ev.Delta)
		rec.observe(ev.Timestamp)
	case types.EventTextMessageEnd:
		rec := m.record(ev)
		rec.observe(ev.Timestamp)
	}
}

func (m *Messages) record(ev types.Event) *messageRecord {
	rec, ok := m.records[ev.MessageID]
	if !ok {
		rec = &messageRecord{id: ev.MessageID, runID: m.currentRun}
		m.records[ev.MessageID] = rec
		m.order = append(m.order, ev.MessageID)
	}
	return rec
}

func (m *Messages) resolveRole(ev types.Event) types.Role {
	if ev.Role != "" {
		return ev.Role
	}
	if fb, ok := m.fallbacks[ev.MessageID]; ok && fb.Role != "" {
		return fb.Role
	}
	return types.RoleAssistant
}

// observe keeps the minimum non-zero timestamp seen across a message's
// events, so a start frame without a timestamp is still ordered by the
// earliest true time its content frames carry.
func (r *messageRecord) observe(ts float64) {
	if ts == 0 {
		return
	}
	if r.timestamp == 0 || ts < r.timestamp {
		r.timestamp = ts
	}
}

// List finalizes the fold into a render-ready message list. It never
// mutates the fold state, so it can be called after every event.
func (m *Messages) List() []types.Message {
	if m == nil {
		return nil
	}
	entries := make([]types.Message, 0, len(m.records))
	for _, id := range m.order {
		rec := m.records[id]
		content := rec.content.String()
		role := rec.role
		if content == "" {
			fb, ok := m.fallbacks[id]
			if !ok || fb.Content == "" {
				continue
			}
			content = fb.Content
			if fb.Role != "" {
				role = fb.Role
			}
		}
		entries = append(entries, types.Message{
			ID:        id,
			Role:      role,
			Content:   content,
			Author:    rec.author,
			RunID:     rec.runID,
			Timestamp: rec.timestamp,
		})
	}
	sortMessages(entries)
	return mergeAdjacentAssistant(entries)
}

// sortMessages orders by timestamp ascending with lexicographic messageId
// as the tiebreak. Entries without a timestamp sort after all timestamped
// entries, internally still ordered by id.
func sortMessages(entries []types.Message) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if (a.Timestamp == 0) != (b.Timestamp == 0) {
			return b.Timestamp == 0
		}
		if a.Timestamp != b.Timestamp {
			return a.Timestamp < b.Timestamp
		}
		return a.ID < b.ID
	})
}

// mergeAdjacentAssistant joins neighboring assistant entries: fragments of
// one run concatenate directly, entries from different runs are separated
// by a blank line, and byte-identical neighbors collapse to one.
func mergeAdjacentAssistant(entries []types.Message) []types.Message {
	if len(entries) == 0 {
		return []types.Message{}
	}
	out := make([]types.Message, 0, len(entries))
	for _, cur := range entries {
		if len(out) == 0 {
			out = append(out, cur)
			continue
		}
		prev := &out[len(out)-1]
		if prev.Role != types.RoleAssistant || cur.Role != types.RoleAssistant {
			out = append(out, cur)
			continue
		}
		if prev.Content == cur.Content {
			continue
		}
		if prev.RunID != "" && prev.RunID == cur.RunID {
			prev.Content += cur.Content
		} else {
			prev.Content += "\n\n" + cur.Content
		}
	}
	return out
}

// FoldMessages replays a full event log through a fresh fold.
func FoldMessages(events []types.Event, fallbacks ...types.Message) []types.Message {
	fold := NewMessages(fallbacks...)
	for _, ev := range events {
		fold.Apply(ev)
	}
	return fold.List()
}
