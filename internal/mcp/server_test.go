package mcp_test

import (
	"context"
	"errors"
	"testing"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/queryscope/queryscope/internal/estimate"
	"github.com/queryscope/queryscope/internal/mcp"
	"github.com/queryscope/queryscope/internal/trigger"
)

func TestNewServer_RegistersTools(t *testing.T) {
	t.Parallel()

	srv := mcp.NewServer(mcp.ServerDeps{Estimator: &estimate.Fixed{}})

	assert.Equal(t, []string{
		mcp.ToolNameEstimate,
		mcp.ToolNameStats,
	}, srv.ListToolNames())
}

// estimateViaClient drives the estimate tool through an in-memory
// client session.
func estimateViaClient(t *testing.T, srv *mcp.Server, query string) *mcpsdk.CallToolResult {
	t.Helper()

	ctx := context.Background()
	serverTransport, clientTransport := mcpsdk.NewInMemoryTransports()

	done := make(chan error, 1)
	go func() {
		done <- srv.RunWithTransport(ctx, serverTransport)
	}()

	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "test-client", Version: "0.0.1"}, nil)

	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)

	res, err := session.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      mcp.ToolNameEstimate,
		Arguments: map[string]any{"query": query},
	})
	require.NoError(t, err)

	require.NoError(t, session.Close())
	<-done

	return res
}

func TestEstimateTool_Success(t *testing.T) {
	t.Parallel()

	estimator := &estimate.Fixed{Result: estimate.Result{ScannedBytes: 1048576}}
	stats := trigger.NewDryRunStats(nil)
	srv := mcp.NewServer(mcp.ServerDeps{Estimator: estimator, Stats: stats})

	res := estimateViaClient(t, srv, "SELECT 1")

	require.False(t, res.IsError)
	require.Len(t, res.Content, 1)

	text, ok := res.Content[0].(*mcpsdk.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, `"scanned_bytes": 1048576`)
	assert.Contains(t, text.Text, "1.0 MiB")

	assert.Equal(t, 1, estimator.Calls())
	assert.Equal(t, int64(1), stats.Snapshot().Count)
}

func TestEstimateTool_RejectedQueryListsErrors(t *testing.T) {
	t.Parallel()

	estimator := &estimate.Fixed{
		Result: estimate.Result{Errors: []string{"Syntax error at [1:8]"}},
	}
	srv := mcp.NewServer(mcp.ServerDeps{Estimator: estimator})

	res := estimateViaClient(t, srv, "SELECT FORM t")

	require.False(t, res.IsError)
	text, ok := res.Content[0].(*mcpsdk.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, "Syntax error at [1:8]")
}

func TestEstimateTool_EmptyQueryIsError(t *testing.T) {
	t.Parallel()

	estimator := &estimate.Fixed{}
	srv := mcp.NewServer(mcp.ServerDeps{Estimator: estimator})

	res := estimateViaClient(t, srv, "")

	require.True(t, res.IsError)
	assert.Zero(t, estimator.Calls())
}

func TestEstimateTool_TransportError(t *testing.T) {
	t.Parallel()

	estimator := &estimate.Fixed{Err: errors.New("connection refused")}
	stats := trigger.NewDryRunStats(nil)
	srv := mcp.NewServer(mcp.ServerDeps{Estimator: estimator, Stats: stats})

	res := estimateViaClient(t, srv, "SELECT 1")

	require.True(t, res.IsError)
	text, ok := res.Content[0].(*mcpsdk.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, "connection refused")

	// A call that never completed is not counted.
	assert.Zero(t, stats.Snapshot().Count)
}

func TestStatsTool(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	stats := trigger.NewDryRunStats(nil)
	stats.Record()

	srv := mcp.NewServer(mcp.ServerDeps{Estimator: &estimate.Fixed{}, Stats: stats})

	serverTransport, clientTransport := mcpsdk.NewInMemoryTransports()

	done := make(chan error, 1)
	go func() {
		done <- srv.RunWithTransport(ctx, serverTransport)
	}()

	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "test-client", Version: "0.0.1"}, nil)

	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)

	res, err := session.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      mcp.ToolNameStats,
		Arguments: map[string]any{},
	})
	require.NoError(t, err)
	require.False(t, res.IsError)

	text, ok := res.Content[0].(*mcpsdk.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, `"count": 1`)
	assert.Contains(t, text.Text, "last_run_time")

	require.NoError(t, session.Close())
	<-done
}
