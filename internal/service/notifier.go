package service

import "sync"

// Notification is one recorded notification.
type Notification struct {
	Level   string
	Message string
}

// RecordingNotifier keeps every notification in memory.
type RecordingNotifier struct {
	mu    sync.Mutex
	items []Notification
}

func (n *RecordingNotifier) Info(msg string)    { n.add("info", msg) }
func (n *RecordingNotifier) Success(msg string) { n.add("success", msg) }
func (n *RecordingNotifier) Error(msg string)   { n.add("error", msg) }

func (n *RecordingNotifier) add(level, msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.items = append(n.items, Notification{Level: level, Message: msg})
}

// All returns the notifications in order.
func (n *RecordingNotifier) All() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Notification(nil), n.items...)
}

// Errors returns only error messages.
func (n *RecordingNotifier) Errors() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for _, it := range n.items {
		if it.Level == "error" {
			out = append(out, it.Message)
		}
	}
	return out
}
