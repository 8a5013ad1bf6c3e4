package estimate

import (
	"context"
	"sync"
)

// Fixed is an Estimator returning canned results, used by tests and as
// a stand-in backend when no project is reachable. When Fn is set it
// decides the outcome per call; otherwise Result and Err are returned
// verbatim.
type Fixed struct {
	Result Result
	Err    error
	Fn     func(ctx context.Context, query string) (Result, error)

	mu      sync.Mutex
	calls   int
	queries []string
}

// Estimate returns the canned outcome and records the call.
func (f *Fixed) Estimate(ctx context.Context, query string) (Result, error) {
	f.mu.Lock()
	f.calls++
	f.queries = append(f.queries, query)
	f.mu.Unlock()

	if f.Fn != nil {
		return f.Fn(ctx, query)
	}

	return f.Result, f.Err
}

// Calls returns how many times Estimate was invoked.
func (f *Fixed) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.calls
}

// Queries returns the query texts seen so far, in order.
func (f *Fixed) Queries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]string, len(f.queries))
	copy(out, f.queries)

	return out
}
