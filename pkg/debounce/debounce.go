// Package debounce delays work until a key has been quiet for a window.
package debounce

import (
	"sync"
	"time"
)

type pending struct {
	timer *time.Timer
	gen   uint64
}

// Debouncer runs at most one pending callback per key. Scheduling a key again
// cancels the callback already waiting under that key.
type Debouncer struct {
	window time.Duration

	mu      sync.Mutex
	gen     uint64
	pending map[string]*pending
	stopped bool
}

// New returns a Debouncer with the given quiet window.
func New(window time.Duration) *Debouncer {
	if window < 0 {
		window = 0
	}
	return &Debouncer{
		window:  window,
		pending: make(map[string]*pending),
	}
}

// Window reports the configured quiet window.
func (d *Debouncer) Window() time.Duration {
	return d.window
}

// Schedule arranges for fn to run after the window unless key is scheduled
// again or cancelled first. It returns false once the debouncer is stopped.
func (d *Debouncer) Schedule(key string, fn func()) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return false
	}

	if p, ok := d.pending[key]; ok {
		p.timer.Stop()
	}
	d.gen++
	gen := d.gen
	p := &pending{gen: gen}
	p.timer = time.AfterFunc(d.window, func() { d.fire(key, gen, fn) })
	d.pending[key] = p
	return true
}

func (d *Debouncer) fire(key string, gen uint64, fn func()) {
	d.mu.Lock()
	p, ok := d.pending[key]
	if !ok || p.gen != gen {
		// superseded between the timer firing and acquiring the lock
		d.mu.Unlock()
		return
	}
	delete(d.pending, key)
	d.mu.Unlock()
	fn()
}

// Cancel drops the pending callback for key. It reports whether one existed.
func (d *Debouncer) Cancel(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.pending[key]
	if !ok {
		return false
	}
	p.timer.Stop()
	delete(d.pending, key)
	return true
}

// Pending reports whether key has a callback waiting.
func (d *Debouncer) Pending(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.pending[key]
	return ok
}

// Len reports the number of keys with a callback waiting.
func (d *Debouncer) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Stop cancels every pending callback and rejects further scheduling.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	for key, p := range d.pending {
		p.timer.Stop()
		delete(d.pending, key)
	}
}
