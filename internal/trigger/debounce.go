package trigger

import (
	"sync"
	"time"
)

// Debouncer is a restartable per-key delay. Scheduling for a key that
// already has a pending timer discards the old timer and restarts the
// window; the callback fires only when a full window passes without a
// superseding call.
type Debouncer struct {
	mu      sync.Mutex
	gen     uint64
	pending map[string]*pendingTimer
}

type pendingTimer struct {
	timer *time.Timer
	gen   uint64
}

// NewDebouncer creates an empty debouncer.
func NewDebouncer() *Debouncer {
	return &Debouncer{pending: make(map[string]*pendingTimer)}
}

// Schedule arms (or re-arms) the timer for key. fn runs on the timer
// goroutine after delay unless a later Schedule or Cancel supersedes
// it first.
func (d *Debouncer) Schedule(key string, delay time.Duration, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if prev, ok := d.pending[key]; ok {
		prev.timer.Stop()
	}

	d.gen++
	gen := d.gen

	timer := time.AfterFunc(delay, func() {
		d.mu.Lock()
		cur, ok := d.pending[key]
		if !ok || cur.gen != gen {
			// Superseded after the timer already fired; drop.
			d.mu.Unlock()

			return
		}

		delete(d.pending, key)
		d.mu.Unlock()

		fn()
	})

	d.pending[key] = &pendingTimer{timer: timer, gen: gen}
}

// Cancel discards the pending timer for key, if any.
func (d *Debouncer) Cancel(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if prev, ok := d.pending[key]; ok {
		prev.timer.Stop()
		delete(d.pending, key)
	}
}

// Pending reports whether a timer is armed for key.
func (d *Debouncer) Pending(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	_, ok := d.pending[key]

	return ok
}
