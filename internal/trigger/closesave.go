package trigger

import (
	"sync"
	"time"
)

// CloseSaveDisambiguator suppresses estimates for documents being
// saved as part of being closed. A will-save followed shortly by a
// did-close is the signature of save-on-close; firing an expensive
// estimate on content about to disappear is wasted work.
//
// This is a timing heuristic, not a guarantee: it can suppress a
// legitimate save and it can miss a close that lands outside the
// grace window. Both collections are empty in steady state.
type CloseSaveDisambiguator struct {
	mu        sync.Mutex
	saveGrace time.Duration
	closeHold time.Duration
	pending   map[string]*time.Timer
	closing   map[string]*time.Timer
}

// NewCloseSaveDisambiguator creates a disambiguator. saveGrace is how
// long after a will-save a close still counts as save-on-close;
// closeHold is how long a confirmed closing mark suppresses the save
// path before self-clearing.
func NewCloseSaveDisambiguator(saveGrace, closeHold time.Duration) *CloseSaveDisambiguator {
	return &CloseSaveDisambiguator{
		saveGrace: saveGrace,
		closeHold: closeHold,
		pending:   make(map[string]*time.Timer),
		closing:   make(map[string]*time.Timer),
	}
}

// WillSave records a suspected save for key. If no close follows
// within the grace window the suspicion expires on its own.
func (c *CloseSaveDisambiguator) WillSave(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if prev, ok := c.pending[key]; ok {
		prev.Stop()
	}

	c.pending[key] = time.AfterFunc(c.saveGrace, func() {
		c.mu.Lock()
		delete(c.pending, key)
		c.mu.Unlock()
	})
}

// DidClose reacts to a document close. When a will-save is still
// pending for key the close is classified as save-on-close: the key is
// marked closing for the hold window and the mark self-clears after.
// It reports whether save-on-close was detected.
func (c *CloseSaveDisambiguator) DidClose(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	pending, ok := c.pending[key]
	if !ok {
		return false
	}

	pending.Stop()
	delete(c.pending, key)

	if prev, held := c.closing[key]; held {
		prev.Stop()
	}

	c.closing[key] = time.AfterFunc(c.closeHold, func() {
		c.mu.Lock()
		delete(c.closing, key)
		c.mu.Unlock()
	})

	return true
}

// SuppressSave reports whether the save-triggered path must skip key:
// either the key is marked closing or a will-save is still pending.
func (c *CloseSaveDisambiguator) SuppressSave(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.closing[key]; ok {
		return true
	}

	_, ok := c.pending[key]

	return ok
}
