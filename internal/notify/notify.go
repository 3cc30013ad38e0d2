// Package notify delivers short-lived user-facing messages from the tracker to the UI.
package notify

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultDuration is how long a notification stays visible when no duration is given.
const DefaultDuration = 2 * time.Second

// Severity of a notification.
type Severity int

// Severities.
const (
	Info Severity = iota
	Error
)

func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// Notification is one message shown to the user.
type Notification struct {
	Severity Severity      `json:"severity"`
	Message  string        `json:"message"`
	Duration time.Duration `json:"duration"`
}

// Sink displays notifications. Show is fire-and-forget and must not block.
type Sink interface {
	Show(severity Severity, message string, duration time.Duration)
}

func normalize(severity Severity, message string, duration time.Duration) Notification {
	if duration <= 0 {
		duration = DefaultDuration
	}
	return Notification{Severity: severity, Message: message, Duration: duration}
}

// Nop discards every notification.
type Nop struct{}

// Show implements Sink.
func (Nop) Show(Severity, string, time.Duration) {}

// MultiSink forwards each notification to every sink in order.
type MultiSink []Sink

// Show implements Sink.
func (m MultiSink) Show(severity Severity, message string, duration time.Duration) {
	for _, s := range m {
		if s != nil {
			s.Show(severity, message, duration)
		}
	}
}

// ChannelSink publishes notifications on a buffered channel for a UI loop to consume.
// When the buffer is full the notification is dropped rather than blocking the tracker.
type ChannelSink struct {
	ch      chan Notification
	dropped atomic.Int64
}

// NewChannelSink creates a sink with the given buffer size (minimum 1).
func NewChannelSink(buffer int) *ChannelSink {
	if buffer < 1 {
		buffer = 1
	}
	return &ChannelSink{ch: make(chan Notification, buffer)}
}

// C returns the channel notifications are delivered on.
func (c *ChannelSink) C() <-chan Notification {
	return c.ch
}

// Show implements Sink.
func (c *ChannelSink) Show(severity Severity, message string, duration time.Duration) {
	select {
	case c.ch <- normalize(severity, message, duration):
	default:
		c.dropped.Add(1)
	}
}

// Dropped returns how many notifications were discarded because the buffer was full.
func (c *ChannelSink) Dropped() int64 {
	return c.dropped.Load()
}

// WriterSink prints notifications to a terminal.
type WriterSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterSink creates a sink that writes to w.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

// Show implements Sink.
func (s *WriterSink) Show(severity Severity, message string, _ time.Duration) {
	prefix := "ℹ️  "
	if severity == Error {
		prefix = "⚠️  "
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = fmt.Fprintln(s.w, prefix+message)
}

// Recorder keeps every notification. Useful in tests.
type Recorder struct {
	mu    sync.Mutex
	items []Notification
}

// Show implements Sink.
func (r *Recorder) Show(severity Severity, message string, duration time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, normalize(severity, message, duration))
}

// Notifications returns a copy of everything recorded so far.
func (r *Recorder) Notifications() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.items))
	copy(out, r.items)
	return out
}

// Len returns the number of recorded notifications.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// Messages returns the recorded message texts in order.
func (r *Recorder) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.items))
	for i, n := range r.items {
		out[i] = n.Message
	}
	return out
}
