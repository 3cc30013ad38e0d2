package notify

import (
	"sync"
	"time"
)

// Display holds the single notification currently on screen. A new Show replaces
// it and restarts the auto-dismiss timer.
type Display struct {
	mu       sync.Mutex
	current  *Notification
	gen      uint64
	timer    *time.Timer
	onChange func(n *Notification)
	closed   bool
}

// NewDisplay creates a display. onChange, if set, is called with the new
// notification on Show and with nil when it is dismissed. It runs without the
// display lock held, possibly on a timer goroutine.
func NewDisplay(onChange func(n *Notification)) *Display {
	return &Display{onChange: onChange}
}

// Show implements Sink.
func (d *Display) Show(severity Severity, message string, duration time.Duration) {
	n := normalize(severity, message, duration)

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.current = &n
	d.timer = time.AfterFunc(n.Duration, func() { d.expire(gen) })
	d.mu.Unlock()

	d.notify(&n)
}

// expire dismisses the notification shown at generation gen, unless it was replaced.
func (d *Display) expire(gen uint64) {
	d.mu.Lock()
	if d.gen != gen || d.current == nil {
		d.mu.Unlock()
		return
	}
	d.current = nil
	d.timer = nil
	d.mu.Unlock()

	d.notify(nil)
}

// Current returns the notification on screen, if any.
func (d *Display) Current() (Notification, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.current == nil {
		return Notification{}, false
	}
	return *d.current, true
}

// Dismiss removes the current notification immediately.
func (d *Display) Dismiss() {
	d.mu.Lock()
	had := d.current != nil
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.current = nil
	d.gen++
	d.mu.Unlock()

	if had {
		d.notify(nil)
	}
}

// Close stops the dismiss timer. Later calls to Show are ignored.
func (d *Display) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.closed = true
}

func (d *Display) notify(n *Notification) {
	if d.onChange != nil {
		d.onChange(n)
	}
}
