package trigger

import (
	"strings"
	"sync"
)

// State is the analysis result state the presentation layer consumes.
type State int

const (
	// StateIdle means no estimate has run yet.
	StateIdle State = iota
	// StateAnalyzing means an estimate is in flight.
	StateAnalyzing
	// StateSuccess means the last estimate completed under the warning threshold.
	StateSuccess
	// StateWarning means the last estimate completed over the warning threshold.
	StateWarning
	// StateFailed means the last estimate was rejected or could not complete.
	StateFailed
)

// String returns the lower-case state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAnalyzing:
		return "analyzing"
	case StateSuccess:
		return "success"
	case StateWarning:
		return "warning"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is one observed outcome of the estimate pipeline.
type Result struct {
	State          State
	ScannedBytes   int64
	ThresholdBytes int64
	Messages       []string
}

// errorSeparator joins individual remote error messages into the full
// error text.
const errorSeparator = "\n"

// truncationMark terminates the short error form.
const truncationMark = "…"

// ResultState holds the last result of the single process-wide
// estimate pipeline. It is not a strict automaton: a new Analyzing
// transition may occur directly from any terminal state, and each new
// run overwrites the previous result.
type ResultState struct {
	mu            sync.Mutex
	current       Result
	lastErrorFull string
}

// NewResultState creates a state machine in StateIdle.
func NewResultState() *ResultState {
	return &ResultState{}
}

// BeginAnalyzing records that a run acquired the in-flight lock.
func (r *ResultState) BeginAnalyzing() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.current = Result{State: StateAnalyzing}
}

// SetSuccess records a completed estimate under the warning threshold.
func (r *ResultState) SetSuccess(scannedBytes int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.current = Result{State: StateSuccess, ScannedBytes: scannedBytes}
}

// SetWarning records a completed estimate over the warning threshold.
func (r *ResultState) SetWarning(scannedBytes, thresholdBytes int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.current = Result{State: StateWarning, ScannedBytes: scannedBytes, ThresholdBytes: thresholdBytes}
}

// SetFailed records a failed estimate. The full joined error text is
// kept separately from the result and survives until the next failure.
func (r *ResultState) SetFailed(messages []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.current = Result{State: StateFailed, Messages: messages}
	r.lastErrorFull = strings.Join(messages, errorSeparator)
}

// Current returns the last recorded result.
func (r *ResultState) Current() Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.current
}

// LastErrorFull returns the full joined error text of the last failed
// run, empty when none has failed.
func (r *ResultState) LastErrorFull() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.lastErrorFull
}

// ShortError returns the error text truncated to at most maxRunes
// runes for compact display surfaces. The full form stays addressable
// through LastErrorFull.
func (r *ResultState) ShortError(maxRunes int) string {
	full := r.LastErrorFull()

	runes := []rune(full)
	if len(runes) <= maxRunes {
		return full
	}

	if maxRunes <= 0 {
		return ""
	}

	return string(runes[:maxRunes-1]) + truncationMark
}

// Reset returns the machine to StateIdle and clears the stored error.
func (r *ResultState) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.current = Result{}
	r.lastErrorFull = ""
}
