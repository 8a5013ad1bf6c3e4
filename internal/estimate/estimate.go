// Package estimate issues "estimate cost without executing" calls for
// SQL queries. The only production backend is a BigQuery dry-run query
// job; the query itself is never executed.
package estimate

import "context"

// Result is the outcome of one cost estimate. A rejected query (bad
// syntax, unknown table) is not a transport error: it arrives as a
// non-empty Errors list with ScannedBytes zero.
type Result struct {
	ScannedBytes int64
	Errors       []string
}

// Failed reports whether the remote service rejected the query.
func (r Result) Failed() bool {
	return len(r.Errors) > 0
}

// Estimator estimates the cost of a query without executing it. The
// returned error covers transport and credential failures only;
// query-level rejection is reported through Result.Errors.
type Estimator interface {
	Estimate(ctx context.Context, query string) (Result, error)
}
