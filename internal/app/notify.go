package app

import (
	"io"
	"sync"
	"time"

	"github.com/mrz1836/testament/internal/output"
)

// Notification is a user-facing toast.
type Notification struct {
	Level   output.Level `json:"level"`
	Title   string       `json:"title"`
	Message string       `json:"message,omitempty"`
	Time    time.Time    `json:"time"`
}

// Notifier delivers notifications to the user.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(n Notification)

// Notify calls f(n).
func (f NotifierFunc) Notify(n Notification) { f(n) }

// WriterNotifier prints notifications as prefixed lines.
type WriterNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterNotifier returns a notifier that writes to w.
func NewWriterNotifier(w io.Writer) *WriterNotifier {
	return &WriterNotifier{w: w}
}

// Notify writes n.
func (wn *WriterNotifier) Notify(n Notification) {
	wn.mu.Lock()
	defer wn.mu.Unlock()
	output.Notice(wn.w, n.Level, n.Title, n.Message)
}

// Recorder keeps the most recent notifications until drained.
type Recorder struct {
	mu    sync.Mutex
	limit int
	items []Notification
}

// NewRecorder keeps at most limit pending notifications.
func NewRecorder(limit int) *Recorder {
	if limit <= 0 {
		limit = 20
	}
	return &Recorder{limit: limit}
}

// Notify records n, dropping the oldest entry when full.
func (r *Recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
	if over := len(r.items) - r.limit; over > 0 {
		r.items = append([]Notification(nil), r.items[over:]...)
	}
}

// Drain returns and clears the pending notifications.
func (r *Recorder) Drain() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := r.items
	r.items = nil
	return items
}

// Multi fans notifications out to several notifiers.
type Multi []Notifier

// Notify delivers n to every notifier.
func (m Multi) Notify(n Notification) {
	for _, nt := range m {
		nt.Notify(n)
	}
}
