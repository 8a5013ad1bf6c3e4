package trigger

import "time"

// ShouldRun decides whether an estimate may be issued now. A changed
// document always passes; an unchanged one passes only once the
// cool-down since the last successful run has elapsed. A zero lastRun
// means the estimate has never run and always passes.
//
// minInterval is a per-trigger-class parameter, not a constant:
// continuous-edit triggers carry a longer cool-down than explicit
// manual requests.
func ShouldRun(now, lastRun time.Time, changed bool, minInterval time.Duration) bool {
	if lastRun.IsZero() {
		return true
	}

	if changed {
		return true
	}

	return now.Sub(lastRun) > minInterval
}
