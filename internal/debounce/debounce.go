// Package debounce coalesces bursts of calls sharing a key into one delayed call.
package debounce

import (
	"sync"
	"time"
)

type entry struct {
	timer *time.Timer
	fn    func()
	gen   uint64
}

// Keyed runs the last function triggered for a key once the key has been quiet for
// the configured window. Triggering a key again restarts its window and replaces
// the pending function; other keys are unaffected.
type Keyed struct {
	mu      sync.Mutex
	wait    time.Duration
	pending map[string]*entry
	gen     uint64
	stopped bool
}

// New creates a keyed debouncer with the given quiescence window
func New(wait time.Duration) *Keyed {
	return &Keyed{
		wait:    wait,
		pending: make(map[string]*entry),
	}
}

// Wait returns the quiescence window
func (d *Keyed) Wait() time.Duration {
	return d.wait
}

// Trigger schedules fn for key, superseding any call still pending for that key.
// After Stop, Trigger runs fn immediately so no write is lost.
func (d *Keyed) Trigger(key string, fn func()) {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		fn()
		return
	}

	if e, ok := d.pending[key]; ok {
		e.timer.Stop()
	}
	d.gen++
	gen := d.gen
	e := &entry{fn: fn, gen: gen}
	e.timer = time.AfterFunc(d.wait, func() { d.fire(key, gen) })
	d.pending[key] = e
	d.mu.Unlock()
}

func (d *Keyed) fire(key string, gen uint64) {
	d.mu.Lock()
	e, ok := d.pending[key]
	if !ok || e.gen != gen {
		d.mu.Unlock()
		return
	}
	delete(d.pending, key)
	d.mu.Unlock()

	e.fn()
}

// Pending returns the number of keys with a scheduled call
func (d *Keyed) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Flush runs every pending call now, in no particular order
func (d *Keyed) Flush() {
	d.mu.Lock()
	var due []func()
	for key, e := range d.pending {
		// a timer that already fired is blocked in fire and will find its entry gone
		e.timer.Stop()
		due = append(due, e.fn)
		delete(d.pending, key)
	}
	d.mu.Unlock()

	for _, fn := range due {
		fn()
	}
}

// Stop flushes pending calls and makes later triggers run synchronously
func (d *Keyed) Stop() {
	d.Flush()
	d.mu.Lock()
	d.stopped = true
	d.mu.Unlock()
}
