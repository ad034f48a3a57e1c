// Package debounce delays an action until input has been quiet for a
// fixed interval.
package debounce

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Debouncer runs only the most recently triggered function, once the
// delay has passed without another Trigger.
type Debouncer struct {
	delay time.Duration
	clock clockwork.Clock

	mu    sync.Mutex
	timer clockwork.Timer
}

// New creates a Debouncer. A nil clock uses the real clock.
func New(delay time.Duration, clock clockwork.Clock) *Debouncer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Debouncer{delay: delay, clock: clock}
}

// Trigger cancels any pending call and schedules fn.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = d.clock.AfterFunc(d.delay, fn)
}

// Stop cancels the pending call, if any.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
