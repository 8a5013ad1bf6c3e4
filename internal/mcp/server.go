// Package mcp implements a Model Context Protocol server exposing the
// query cost estimator as MCP tools over stdio transport, so agents
// can check what a query would scan before running it.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/queryscope/queryscope/internal/estimate"
	"github.com/queryscope/queryscope/internal/observability"
	"github.com/queryscope/queryscope/internal/trigger"
)

const (
	// serverName is the MCP server implementation name.
	serverName = "queryscope"

	// toolCount is the expected number of registered tools.
	toolCount = 2
)

// ServerDeps holds injectable dependencies for the MCP server.
type ServerDeps struct {
	// Estimator performs the dry runs. Required.
	Estimator estimate.Estimator

	// Stats is the shared dry-run counter. Nil creates a private one.
	Stats *trigger.DryRunStats

	// Logger is an optional structured logger. Nil uses slog default.
	Logger *slog.Logger

	// Metrics is an optional trigger metrics recorder. Nil disables
	// per-tool metrics.
	Metrics *observability.TriggerMetrics

	// Tracer is an optional OTel tracer for per-tool-call spans. Nil
	// disables tracing.
	Tracer trace.Tracer

	// Version is the reported implementation version.
	Version string
}

// Server wraps the MCP SDK server with the queryscope tool
// registrations.
type Server struct {
	inner     *mcpsdk.Server
	estimator estimate.Estimator
	stats     *trigger.DryRunStats
	metrics   *observability.TriggerMetrics
	tracer    trace.Tracer

	mu    sync.RWMutex
	tools []string
}

// NewServer creates a new MCP server with all queryscope tools
// registered.
func NewServer(deps ServerDeps) *Server {
	opts := &mcpsdk.ServerOptions{}
	if deps.Logger != nil {
		opts.Logger = deps.Logger
	}

	inner := mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    serverName,
			Version: deps.Version,
		},
		opts,
	)

	stats := deps.Stats
	if stats == nil {
		stats = trigger.NewDryRunStats(nil)
	}

	srv := &Server{
		inner:     inner,
		estimator: deps.Estimator,
		stats:     stats,
		metrics:   deps.Metrics,
		tracer:    deps.Tracer,
		tools:     make([]string, 0, toolCount),
	}

	srv.registerTools()

	return srv
}

// ListToolNames returns the sorted names of all registered tools.
func (s *Server) ListToolNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, len(s.tools))
	copy(names, s.tools)
	sort.Strings(names)

	return names
}

// Run starts the MCP server on stdio transport. It blocks until the
// context is canceled or the connection closes.
func (s *Server) Run(ctx context.Context) error {
	err := s.inner.Run(ctx, &mcpsdk.StdioTransport{})
	if err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}

	return nil
}

// RunWithTransport starts the MCP server on the given transport. It
// blocks until the context is canceled or the connection closes.
func (s *Server) RunWithTransport(ctx context.Context, transport mcpsdk.Transport) error {
	err := s.inner.Run(ctx, transport)
	if err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}

	return nil
}

// registerTools adds all queryscope MCP tools to the server.
func (s *Server) registerTools() {
	s.registerEstimateTool()
	s.registerStatsTool()
}

func (s *Server) registerEstimateTool() {
	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{
		Name:        ToolNameEstimate,
		Description: estimateToolDescription,
	}, withTracing(s.tracer, ToolNameEstimate, s.handleEstimate))

	s.trackTool(ToolNameEstimate)
}

func (s *Server) registerStatsTool() {
	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{
		Name:        ToolNameStats,
		Description: statsToolDescription,
	}, withTracing(s.tracer, ToolNameStats, s.handleStats))

	s.trackTool(ToolNameStats)
}

func (s *Server) trackTool(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tools = append(s.tools, name)
}

// mcpSpanPrefix is the prefix for MCP tool span names.
const mcpSpanPrefix = "mcp."

// withTracing wraps an MCP tool handler to create an OTel span per
// invocation.
func withTracing[Input any](
	tracer trace.Tracer,
	toolName string,
	handler func(context.Context, *mcpsdk.CallToolRequest, Input) (*mcpsdk.CallToolResult, ToolOutput, error),
) func(context.Context, *mcpsdk.CallToolRequest, Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if tracer == nil {
		return handler
	}

	return func(ctx context.Context, req *mcpsdk.CallToolRequest, input Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
		ctx, span := tracer.Start(ctx, mcpSpanPrefix+toolName,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(attribute.String("mcp.tool", toolName)),
		)
		defer span.End()

		return handler(ctx, req, input)
	}
}

// recordToolRun reports one tool invocation to the metrics recorder.
func (s *Server) recordToolRun(ctx context.Context, tool, status string, start time.Time, scanned int64) {
	s.metrics.RecordRun(ctx, mcpSpanPrefix+tool, status, time.Since(start), scanned)
}
