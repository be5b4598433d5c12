package wizard

import (
	"sync"
	"time"
)

// Timer is the part of *time.Timer the debouncer needs.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f to run once after d. time.AfterFunc is the default.
type AfterFunc func(d time.Duration, f func()) Timer

func systemAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Headless never fires. Wizards driven without a screen use it; Next and
// Regenerate still derive the code.
func Headless(time.Duration, func()) Timer { return idleTimer{} }

type idleTimer struct{}

func (idleTimer) Stop() bool { return true }

// debouncer holds at most one pending task. Scheduling a new task drops the
// pending one; a task that was superseded after its timer fired does not run.
type debouncer struct {
	mu      sync.Mutex
	delay   time.Duration
	after   AfterFunc
	pending Timer
	gen     uint64
}

func newDebouncer(delay time.Duration, after AfterFunc) *debouncer {
	if after == nil {
		after = systemAfterFunc
	}
	return &debouncer{delay: delay, after: after}
}

func (d *debouncer) Schedule(f func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopLocked()
	d.gen++
	gen := d.gen
	d.pending = d.after(d.delay, func() {
		d.mu.Lock()
		if gen != d.gen {
			d.mu.Unlock()
			return
		}
		d.pending = nil
		d.mu.Unlock()
		f()
	})
}

func (d *debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopLocked()
	d.gen++
}

func (d *debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil
}

func (d *debouncer) stopLocked() {
	if d.pending != nil {
		d.pending.Stop()
		d.pending = nil
	}
}
