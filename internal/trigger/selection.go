package trigger

import (
	"sync"
	"time"

	"github.com/queryscope/queryscope/internal/docstore"
)

// Selection identifies a text selection inside one document.
type Selection struct {
	URI   string
	Range docstore.Range
}

// Empty reports whether the selection covers no text.
func (s Selection) Empty() bool {
	return s.Range.Empty()
}

// SelectionOutcome describes how a selection event was handled.
type SelectionOutcome int

const (
	// SelectionArmed means a stabilization timer was (re)armed.
	SelectionArmed SelectionOutcome = iota
	// SelectionCleared means an empty selection cancelled any pending timer.
	SelectionCleared
	// SelectionSuppressed means the storm cap refused a new timer.
	SelectionSuppressed
)

// selectionTimerKey is the debounce key for the single selection
// stabilization timer class.
const selectionTimerKey = "selection"

// SelectionStabilizer debounces selection-changed events and caps how
// many may arm a timer inside a rolling window, so drag-select storms
// cannot schedule work at event rate. When the timer fires it
// re-validates the armed selection against the currently active one
// and discards stale fires.
type SelectionStabilizer struct {
	mu          sync.Mutex
	deb         *Debouncer
	delay       time.Duration
	cap         int
	window      time.Duration
	windowStart time.Time
	count       int
	armed       *Selection
	now         func() time.Time
	active      func() *Selection
	fire        func(Selection)
}

// NewSelectionStabilizer creates a stabilizer. active returns the
// selection the editor currently holds (nil when none); fire receives
// the stabilized selection. A nil clock means time.Now.
func NewSelectionStabilizer(
	delay time.Duration,
	stormCap int,
	window time.Duration,
	now func() time.Time,
	active func() *Selection,
	fire func(Selection),
) *SelectionStabilizer {
	if now == nil {
		now = time.Now
	}

	return &SelectionStabilizer{
		deb:    NewDebouncer(),
		delay:  delay,
		cap:    stormCap,
		window: window,
		now:    now,
		active: active,
		fire:   fire,
	}
}

// Observe processes one selection-changed event. A nil or empty
// selection cancels any pending timer and clears the armed record; a
// non-empty one arms the timer unless the storm cap for the current
// window is exhausted.
func (s *SelectionStabilizer) Observe(sel *Selection) SelectionOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sel == nil || sel.Empty() {
		s.armed = nil
		s.deb.Cancel(selectionTimerKey)

		return SelectionCleared
	}

	now := s.now()
	if s.windowStart.IsZero() || now.Sub(s.windowStart) >= s.window {
		s.windowStart = now
		s.count = 0
	}

	s.count++
	if s.count > s.cap {
		return SelectionSuppressed
	}

	armed := *sel
	s.armed = &armed
	s.deb.Schedule(selectionTimerKey, s.delay, func() {
		s.fireIfCurrent(armed)
	})

	return SelectionArmed
}

// fireIfCurrent delivers the armed selection unless the active
// selection moved on while the timer was pending.
func (s *SelectionStabilizer) fireIfCurrent(armed Selection) {
	s.mu.Lock()
	stillArmed := s.armed != nil && *s.armed == armed
	s.mu.Unlock()

	if !stillArmed {
		return
	}

	current := s.active()
	if current == nil || *current != armed {
		// Stale fire: the editor selection changed under the timer.
		return
	}

	s.fire(armed)
}

// PendingTimer reports whether a stabilization timer is armed.
func (s *SelectionStabilizer) PendingTimer() bool {
	return s.deb.Pending(selectionTimerKey)
}
