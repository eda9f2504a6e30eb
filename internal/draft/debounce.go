package draft

import (
	"sync"
	"time"

	"land-portal/parcel-portal/parcel-portal-backend/pkg/clock"
)

const (
	// MinDebounceWindow is the shortest window accepted for draft writes
	MinDebounceWindow = 500 * time.Millisecond
	// DefaultDebounceWindow collapses bursts of edits into one write
	DefaultDebounceWindow = time.Second
)

// Debouncer runs the most recently triggered function once the window has
// passed without another trigger.
type Debouncer struct {
	clock  clock.Clock
	window time.Duration

	mu    sync.Mutex
	timer clock.Timer
	seq   uint64
}

// NewDebouncer creates a trailing-edge debouncer. Windows below
// MinDebounceWindow are raised to it.
func NewDebouncer(c clock.Clock, window time.Duration) *Debouncer {
	if window < MinDebounceWindow {
		window = MinDebounceWindow
	}
	return &Debouncer{clock: c, window: window}
}

// Window returns the effective debounce window
func (d *Debouncer) Window() time.Duration {
	return d.window
}

// Trigger cancels any pending run and schedules fn after the window
func (d *Debouncer) Trigger(fn func()) {
	d.TriggerAfter(d.window, fn)
}

// TriggerAfter cancels any pending run and schedules fn after delay
func (d *Debouncer) TriggerAfter(delay time.Duration, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.seq++
	seq := d.seq
	d.timer = d.clock.AfterFunc(delay, func() {
		d.mu.Lock()
		if d.seq != seq {
			d.mu.Unlock()
			return
		}
		d.timer = nil
		d.mu.Unlock()

		fn()
	})
}

// Cancel drops the pending run, reporting whether one existed
func (d *Debouncer) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.seq++
	if d.timer == nil {
		return false
	}
	d.timer.Stop()
	d.timer = nil
	return true
}

// Pending reports whether a run is scheduled
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}
