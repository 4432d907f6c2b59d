package view

import (
	"sync"
	"time"

	"titanroof/pkg/geometry"
)

// ResizeDebounce is the default delay before a viewport resize is applied.
const ResizeDebounce = 100 * time.Millisecond

// Resize records a new viewport rectangle and shifts the translation by half
// the size change so content stays where it was on screen. The first
// measurement only records the rectangle.
func (t *Transform) Resize(r geometry.Rect) {
	if r.Empty() {
		return
	}
	if t.measured {
		dw := r.Width - t.viewport.Width
		dh := r.Height - t.viewport.Height
		if dw != 0 || dh != 0 {
			t.state.TX -= dw / 2
			t.state.TY -= dh / 2
		}
	}
	t.SetViewport(r)
}

// Debouncer collapses bursts of calls into a single call after a quiet
// period. The callback runs on the timer goroutine.
type Debouncer struct {
	mu    sync.Mutex
	delay time.Duration
	timer *time.Timer
}

// NewDebouncer creates a debouncer with the given quiet period.
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

// Trigger schedules fn, replacing any call still pending.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, fn)
}

// Stop cancels a pending call.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
