package results

import (
	"sync"
	"time"
)

// Debouncer delays evaluation until input pauses for the configured
// interval. Every Schedule supersedes the pending one and advances a
// generation counter; callbacks receive their generation so a slow
// evaluation that finishes after a newer keystroke can be discarded
// instead of clobbering fresher state.
type Debouncer struct {
	mu    sync.Mutex
	delay time.Duration
	timer *time.Timer
	gen   uint64
}

// NewDebouncer builds a debouncer; delay <= 0 uses the 300ms search default.
func NewDebouncer(delay time.Duration) *Debouncer {
	if delay <= 0 {
		delay = 300 * time.Millisecond
	}
	return &Debouncer{delay: delay}
}

// Schedule cancels any pending evaluation and arms a new one. fn runs once
// after the delay with the generation it was armed under.
func (d *Debouncer) Schedule(fn func(gen uint64)) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = time.AfterFunc(d.delay, func() { fn(gen) })
	return gen
}

// Cancel stops any pending evaluation and invalidates outstanding
// generations.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
}

// Stale reports whether gen has been superseded; results carrying a stale
// generation must be dropped before touching state.
func (d *Debouncer) Stale(gen uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return gen != d.gen
}
