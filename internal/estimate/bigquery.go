package estimate

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// BigQuery estimates query cost via a dry-run query job. Dry-run jobs
// complete synchronously and bill nothing; the interesting output is
// the total bytes the query would process.
type BigQuery struct {
	client   *bigquery.Client
	location string
}

// NewBigQuery creates a BigQuery estimator. projectID may be
// bigquery.DetectProjectID to resolve the project from the
// environment; location may be empty to let the service decide.
func NewBigQuery(ctx context.Context, projectID, location string, opts ...option.ClientOption) (*BigQuery, error) {
	if projectID == "" {
		projectID = bigquery.DetectProjectID
	}

	client, err := bigquery.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create bigquery client: %w", err)
	}

	return &BigQuery{client: client, location: location}, nil
}

// Estimate runs the query as a dry run and reports the bytes it would
// scan. Query-level rejections from the service are flattened into
// Result.Errors; only transport and credential failures surface as an
// error.
func (b *BigQuery) Estimate(ctx context.Context, query string) (Result, error) {
	q := b.client.Query(query)
	q.DryRun = true

	if b.location != "" {
		q.Location = b.location
	}

	job, err := q.Run(ctx)
	if err != nil {
		if msgs, ok := queryErrors(err); ok {
			return Result{Errors: msgs}, nil
		}

		return Result{}, fmt.Errorf("dry run: %w", err)
	}

	status := job.LastStatus()
	if status == nil || status.Statistics == nil {
		return Result{}, errors.New("dry run: job status carries no statistics")
	}

	return Result{ScannedBytes: status.Statistics.TotalBytesProcessed}, nil
}

// Close releases the underlying client.
func (b *BigQuery) Close() error {
	err := b.client.Close()
	if err != nil {
		return fmt.Errorf("close bigquery client: %w", err)
	}

	return nil
}

// queryErrors extracts per-query error messages from a service-side
// rejection. Transport-level failures report false.
func queryErrors(err error) ([]string, bool) {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return nil, false
	}

	// 4xx responses describe problems with the query itself; anything
	// else is an infrastructure failure the caller should see as-is.
	if apiErr.Code < 400 || apiErr.Code >= 500 {
		return nil, false
	}

	if len(apiErr.Errors) == 0 {
		return []string{apiErr.Message}, true
	}

	msgs := make([]string, 0, len(apiErr.Errors))
	for _, item := range apiErr.Errors {
		msgs = append(msgs, item.Message)
	}

	return msgs, true
}
