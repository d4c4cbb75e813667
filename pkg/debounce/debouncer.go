// Package debounce provides keyed debouncing for rapid events such as
// keystrokes and transient UI cues.
package debounce

import (
	"sync"
	"time"

	"github.com/oksasatya/go-form-playground/pkg/clock"
)

// Debouncer keeps at most one pending action per key. Scheduling a key again
// before its timer fires replaces the pending action.
type Debouncer struct {
	mu      sync.Mutex
	clock   clock.Clock
	pending map[string]*entry
	gen     uint64
}

type entry struct {
	timer clock.Timer
	gen   uint64
}

// New creates a Debouncer driven by c. A nil clock means real time.
func New(c clock.Clock) *Debouncer {
	if c == nil {
		c = clock.New()
	}
	return &Debouncer{clock: c, pending: make(map[string]*entry)}
}

// Schedule cancels any pending action under key and runs action after delay
// of inactivity.
func (d *Debouncer) Schedule(key string, delay time.Duration, action func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.cancelLocked(key)

	d.gen++
	gen := d.gen
	e := &entry{gen: gen}
	e.timer = d.clock.AfterFunc(delay, func() { d.fire(key, gen, action) })
	d.pending[key] = e
}

func (d *Debouncer) fire(key string, gen uint64, action func()) {
	d.mu.Lock()
	e, ok := d.pending[key]
	if !ok || e.gen != gen {
		// superseded after the timer had already started firing
		d.mu.Unlock()
		return
	}
	delete(d.pending, key)
	d.mu.Unlock()

	action()
}

// Cancel drops the pending action for key, if any.
func (d *Debouncer) Cancel(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelLocked(key)
}

func (d *Debouncer) cancelLocked(key string) {
	if e, ok := d.pending[key]; ok {
		e.timer.Stop()
		delete(d.pending, key)
	}
}

// Pending reports whether an action is waiting under key.
func (d *Debouncer) Pending(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.pending[key]
	return ok
}

// Len returns the number of keys with a pending action.
func (d *Debouncer) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Stop cancels every pending action.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for key := range d.pending {
		d.cancelLocked(key)
	}
}
