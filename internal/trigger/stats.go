package trigger

import (
	"sync"
	"time"
)

// DryRunStats counts the dry runs issued in this session. The count is
// monotonically increasing and reset only explicitly (deactivation or
// tracking toggled off then on). Whether a run is recorded at all is
// the caller's decision: the tracking-enabled flag is checked before
// calling Record, never inside it, so toggling the flag never alters
// already-recorded counts.
type DryRunStats struct {
	mu      sync.Mutex
	count   int64
	lastRun time.Time
	now     func() time.Time
}

// StatsSnapshot is a point-in-time view of the counters. SinceLast is
// computed at snapshot time, not cached, so repeated snapshots reflect
// elapsed wall-clock time without a new run.
type StatsSnapshot struct {
	Count       int64
	LastRunTime time.Time
	SinceLast   time.Duration
	Now         time.Time
}

// NewDryRunStats creates a zeroed counter. A nil clock means time.Now.
func NewDryRunStats(now func() time.Time) *DryRunStats {
	if now == nil {
		now = time.Now
	}

	return &DryRunStats{now: now}
}

// Record counts one issued dry run.
func (s *DryRunStats) Record() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.count++
	s.lastRun = s.now()
}

// Snapshot returns the current counters.
func (s *DryRunStats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	snap := StatsSnapshot{Count: s.count, LastRunTime: s.lastRun, Now: now}

	if !s.lastRun.IsZero() {
		snap.SinceLast = now.Sub(s.lastRun)
	}

	return snap
}

// Reset zeroes the count and clears the last-run time.
func (s *DryRunStats) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.count = 0
	s.lastRun = time.Time{}
}
