package sync

import (
	gosync "sync"
	"time"
)

// debouncer runs fn once after a quiet period following the last Notify.
type debouncer struct {
	delay time.Duration
	fn    func()

	mu      gosync.Mutex
	timer   *time.Timer
	stopped bool
}

func newDebouncer(delay time.Duration, fn func()) *debouncer {
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}
	return &debouncer{delay: delay, fn: fn}
}

// Notify restarts the quiet period.
func (d *debouncer) Notify() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if d.timer == nil {
		d.timer = time.AfterFunc(d.delay, d.fn)
		return
	}
	d.timer.Reset(d.delay)
}

// Stop cancels a pending run. Later Notify calls are ignored.
func (d *debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
}
