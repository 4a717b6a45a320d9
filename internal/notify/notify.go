// Package notify carries user-facing notifications from the run controller
// to whatever presents them (LSP client, terminal UI, MCP result).
package notify

import (
	"sync"
)

// Level is the severity of a notification.
type Level int

const (
	LevelInfo Level = iota
	LevelWarning
	LevelError
)

// String returns the level name.
func (l Level) String() string {
	switch l {
	case LevelInfo:
		return "info"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

// Notification is one transient message.
type Notification struct {
	Level   Level
	CodeID  string
	Message string
}

// Notifier receives notifications. Implementations must be safe for
// concurrent use: process output arrives on its own goroutines.
type Notifier interface {
	Notify(n Notification)
}

// Func adapts a function to Notifier.
type Func func(n Notification)

// Notify calls f(n).
func (f Func) Notify(n Notification) { f(n) }

// Discard drops everything.
var Discard Notifier = Func(func(Notification) {})

// Fanout delivers to every non-nil notifier in order.
func Fanout(ns ...Notifier) Notifier {
	var live []Notifier
	for _, n := range ns {
		if n != nil {
			live = append(live, n)
		}
	}
	return Func(func(n Notification) {
		for _, t := range live {
			t.Notify(n)
		}
	})
}

// Recorder keeps every notification it receives.
type Recorder struct {
	mu    sync.Mutex
	items []Notification
	ch    chan Notification
}

// NewRecorder creates a recorder. Received notifications are also sent on
// C() while its buffer has room.
func NewRecorder() *Recorder {
	return &Recorder{ch: make(chan Notification, 256)}
}

// Notify records n.
func (r *Recorder) Notify(n Notification) {
	r.mu.Lock()
	r.items = append(r.items, n)
	r.mu.Unlock()

	select {
	case r.ch <- n:
	default:
	}
}

// C streams notifications as they arrive.
func (r *Recorder) C() <-chan Notification { return r.ch }

// All returns a copy of everything recorded so far.
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.items...)
}

// Count returns how many recorded notifications satisfy match.
func (r *Recorder) Count(match func(Notification) bool) int {
	n := 0
	for _, item := range r.All() {
		if match(item) {
			n++
		}
	}
	return n
}
