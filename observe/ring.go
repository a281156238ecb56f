package observe

import (
	"context"
	"sync"
)

const defaultRingCapacity = 256

// RingSink retains the most recent events in a fixed-capacity ring. The
// capacity is set at construction and the oldest entry is evicted first.
// One RingSink is owned by the gateway and injected where needed; there is
// no ambient global buffer.
type RingSink struct {
	mu    sync.Mutex
	buf   []Event
	next  int
	count int
}

func NewRingSink(capacity int) *RingSink {
	if capacity <= 0 {
		capacity = defaultRingCapacity
	}
	return &RingSink{buf: make([]Event, capacity)}
}

func (r *RingSink) Emit(_ context.Context, event Event) error {
	if r == nil {
		return nil
	}
	event.Normalize()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf[r.next] = event
	r.next = (r.next + 1) % len(r.buf)
	if r.count < len(r.buf) {
		r.count++
	}
	return nil
}

// Snapshot returns the retained events oldest-first.
func (r *RingSink) Snapshot() []Event {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, 0, r.count)
	start := r.next - r.count
	if start < 0 {
		start += len(r.buf)
	}
	for i := 0; i < r.count; i++ {
		out = append(out, r.buf[(start+i)%len(r.buf)])
	}
	return out
}

// Len reports how many events are currently retained.
func (r *RingSink) Len() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}
