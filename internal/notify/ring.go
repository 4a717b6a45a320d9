package notify

import "sync"

// Ring keeps the most recent notifications up to a fixed size, for
// long-lived servers where a Recorder would grow without bound.
type Ring struct {
	mu    sync.Mutex
	items []Notification
	next  int
	full  bool
}

// NewRing creates a ring holding up to size notifications.
func NewRing(size int) *Ring {
	if size < 1 {
		size = 1
	}
	return &Ring{items: make([]Notification, size)}
}

// Notify stores n, evicting the oldest entry when full.
func (r *Ring) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[r.next] = n
	r.next = (r.next + 1) % len(r.items)
	if r.next == 0 {
		r.full = true
	}
}

// Recent returns up to limit notifications, oldest first. An empty codeID
// matches every code; limit <= 0 means all retained.
func (r *Ring) Recent(codeID string, limit int) []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()

	var ordered []Notification
	if r.full {
		ordered = append(ordered, r.items[r.next:]...)
	}
	ordered = append(ordered, r.items[:r.next]...)

	var out []Notification
	for _, n := range ordered {
		if codeID == "" || n.CodeID == codeID {
			out = append(out, n)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}
