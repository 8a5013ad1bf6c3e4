package trigger

import (
	"sync"
	"time"
)

// SingleFlightExecutor guarantees at most one estimate in flight at a
// time. A run requested while another is in progress is dropped, not
// queued; no event is buffered for later replay. The running flag is
// released on every exit path of the wrapped function, panics
// included.
type SingleFlightExecutor struct {
	mu      sync.Mutex
	running bool
	lastRun time.Time
	lastErr string
	now     func() time.Time
}

// NewSingleFlightExecutor creates an executor using the given clock.
// A nil clock means time.Now.
func NewSingleFlightExecutor(now func() time.Time) *SingleFlightExecutor {
	if now == nil {
		now = time.Now
	}

	return &SingleFlightExecutor{now: now}
}

// TryRun starts fn on its own goroutine unless a run is already in
// flight, in which case it reports false and fn is never invoked.
// A nil error from fn marks a successful run and advances the
// last-run time the rate gate reads; a non-nil error records the
// failure text instead.
func (e *SingleFlightExecutor) TryRun(fn func() error) bool {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()

		return false
	}

	e.running = true
	e.mu.Unlock()

	go func() {
		defer func() {
			e.mu.Lock()
			e.running = false
			e.mu.Unlock()
		}()

		err := fn()

		e.mu.Lock()
		if err != nil {
			e.lastErr = err.Error()
		} else {
			e.lastErr = ""
			e.lastRun = e.now()
		}
		e.mu.Unlock()
	}()

	return true
}

// Running reports whether a run is currently in flight.
func (e *SingleFlightExecutor) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.running
}

// LastRun returns the completion time of the last successful run, or
// the zero time when none has succeeded yet.
func (e *SingleFlightExecutor) LastRun() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.lastRun
}

// LastError returns the failure text of the most recent run, empty
// when it succeeded.
func (e *SingleFlightExecutor) LastError() string {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.lastErr
}
