// Package trigger converts the noisy stream of editor events into a
// gated, debounced, mutually exclusive stream of dry-run estimates. It
// owns the change tracking, rate gating, debounce and selection
// stabilization timers, the save-versus-close heuristic, the single
// in-flight run lock, and the result state the presentation layer
// consumes.
package trigger

import "sync"

// ChangeTracker remembers the last observed version per document key
// and answers "has this document changed since I last looked". A
// document never seen before counts as changed. Entries must be
// forgotten on document close; keys are never reused predictably, so
// a leaked entry is a correctness bug, not just growth.
type ChangeTracker struct {
	mu   sync.Mutex
	seen map[string]int32
}

// NewChangeTracker creates an empty tracker.
func NewChangeTracker() *ChangeTracker {
	return &ChangeTracker{seen: make(map[string]int32)}
}

// HasChanged reports whether the document moved past the version seen
// on the previous call, recording the new version when it did.
func (t *ChangeTracker) HasChanged(key string, version int32) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	last, ok := t.seen[key]
	if ok && last == version {
		return false
	}

	t.seen[key] = version

	return true
}

// Forget drops the entry for a closed document.
func (t *ChangeTracker) Forget(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.seen, key)
}

// Tracked returns the number of tracked documents.
func (t *ChangeTracker) Tracked() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.seen)
}
