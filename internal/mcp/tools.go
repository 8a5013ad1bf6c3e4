package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Tool name constants.
const (
	ToolNameEstimate = "queryscope_estimate"
	ToolNameStats    = "queryscope_stats"
)

// MaxQueryBytes is the maximum allowed size for the query input (1 MB).
const MaxQueryBytes = 1 << 20

// Sentinel errors for tool input validation.
var (
	// ErrEmptyQuery indicates the query parameter is empty.
	ErrEmptyQuery = errors.New("query parameter is required and must not be empty")
	// ErrQueryTooLarge indicates the query input exceeds the size limit.
	ErrQueryTooLarge = errors.New("query input exceeds maximum size")
)

// EstimateInput is the input schema for the queryscope_estimate tool.
type EstimateInput struct {
	Query string `json:"query" jsonschema:"SQL query text to estimate (never executed)"`
}

// StatsInput is the input schema for the queryscope_stats tool.
type StatsInput struct{}

// ToolOutput is a generic wrapper for tool results.
type ToolOutput struct {
	Data any `json:"data"`
}

// estimateOutput is the structured result of one estimate call.
type estimateOutput struct {
	ScannedBytes int64    `json:"scanned_bytes"`
	ScannedHuman string   `json:"scanned_human"`
	Errors       []string `json:"errors,omitempty"`
}

// statsOutput is the structured result of a stats call.
type statsOutput struct {
	Count       int64  `json:"count"`
	LastRunTime string `json:"last_run_time,omitempty"`
	SinceLast   string `json:"since_last,omitempty"`
}

// Tool description constants.
const (
	estimateToolDescription = "Estimate the processing cost of a SQL query with a BigQuery dry run. " +
		"Returns the bytes the query would scan without executing it."

	statsToolDescription = "Report how many dry-run estimates this session has issued and when the last one ran."
)

func (s *Server) handleEstimate(
	ctx context.Context, _ *mcpsdk.CallToolRequest, input EstimateInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	start := time.Now()

	validateErr := validateQueryInput(input.Query)
	if validateErr != nil {
		s.recordToolRun(ctx, ToolNameEstimate, "error", start, 0)

		return errorResult(validateErr)
	}

	res, err := s.estimator.Estimate(ctx, input.Query)
	if err != nil {
		s.recordToolRun(ctx, ToolNameEstimate, "error", start, 0)

		return errorResult(fmt.Errorf("estimate: %w", err))
	}

	s.stats.Record()

	if res.Failed() {
		s.recordToolRun(ctx, ToolNameEstimate, "rejected", start, 0)

		return jsonResult(estimateOutput{Errors: res.Errors})
	}

	s.recordToolRun(ctx, ToolNameEstimate, "ok", start, res.ScannedBytes)

	return jsonResult(estimateOutput{
		ScannedBytes: res.ScannedBytes,
		ScannedHuman: humanize.IBytes(uint64(res.ScannedBytes)),
	})
}

func (s *Server) handleStats(
	ctx context.Context, _ *mcpsdk.CallToolRequest, _ StatsInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	start := time.Now()

	snap := s.stats.Snapshot()

	out := statsOutput{Count: snap.Count}
	if !snap.LastRunTime.IsZero() {
		out.LastRunTime = snap.LastRunTime.Format(time.RFC3339)
		out.SinceLast = snap.SinceLast.Round(time.Second).String()
	}

	s.recordToolRun(ctx, ToolNameStats, "ok", start, 0)

	return jsonResult(out)
}

// errorResult builds a CallToolResult with isError set.
func errorResult(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: err.Error()},
		},
		IsError: true,
	}, ToolOutput{}, nil
}

// jsonResult builds a CallToolResult with JSON-encoded content.
func jsonResult(value any) (*mcpsdk.CallToolResult, ToolOutput, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("encode result: %w", err))
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: string(data)},
		},
	}, ToolOutput{Data: value}, nil
}

// validateQueryInput checks the query input constraints.
func validateQueryInput(query string) error {
	if query == "" {
		return ErrEmptyQuery
	}

	if len(query) > MaxQueryBytes {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrQueryTooLarge, len(query), MaxQueryBytes)
	}

	return nil
}
