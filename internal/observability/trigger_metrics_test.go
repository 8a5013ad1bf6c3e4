package observability_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/queryscope/queryscope/internal/observability"
)

func setupTriggerMeter(t *testing.T) (*observability.TriggerMetrics, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := mp.Meter("test")

	tm, err := observability.NewTriggerMetrics(meter)
	require.NoError(t, err)

	return tm, reader
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()

	var rm metricdata.ResourceMetrics

	err := reader.Collect(context.Background(), &rm)
	require.NoError(t, err)

	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for idx := range rm.ScopeMetrics {
		for midx := range rm.ScopeMetrics[idx].Metrics {
			if rm.ScopeMetrics[idx].Metrics[midx].Name == name {
				return &rm.ScopeMetrics[idx].Metrics[midx]
			}
		}
	}

	return nil
}

func TestNewTriggerMetrics(t *testing.T) {
	t.Parallel()

	tm, _ := setupTriggerMeter(t)
	assert.NotNil(t, tm)
}

func TestTriggerMetrics_RecordRun(t *testing.T) {
	t.Parallel()

	tm, reader := setupTriggerMeter(t)
	ctx := context.Background()

	tm.RecordRun(ctx, "save", "ok", 250*time.Millisecond, 1048576)

	rm := collectMetrics(t, reader)

	runs := findMetric(rm, "queryscope.estimate.runs.total")
	require.NotNil(t, runs, "runs counter should exist")

	duration := findMetric(rm, "queryscope.estimate.duration.seconds")
	require.NotNil(t, duration, "duration histogram should exist")

	scanned := findMetric(rm, "queryscope.estimate.scanned.bytes")
	require.NotNil(t, scanned, "scanned bytes counter should exist")

	sum, ok := scanned.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(1048576), sum.DataPoints[0].Value)
}

func TestTriggerMetrics_RecordEventAndSkip(t *testing.T) {
	t.Parallel()

	tm, reader := setupTriggerMeter(t)
	ctx := context.Background()

	tm.RecordEvent(ctx, "selection")
	tm.RecordSkip(ctx, "selection", "storm_suppressed")

	rm := collectMetrics(t, reader)

	events := findMetric(rm, "queryscope.trigger.events.total")
	require.NotNil(t, events, "events counter should exist")

	skips := findMetric(rm, "queryscope.estimate.skips.total")
	require.NotNil(t, skips, "skips counter should exist")
}

func TestTriggerMetrics_TrackInflight(t *testing.T) {
	t.Parallel()

	tm, reader := setupTriggerMeter(t)
	ctx := context.Background()

	done := tm.TrackInflight(ctx)

	rm := collectMetrics(t, reader)
	inflight := findMetric(rm, "queryscope.estimate.inflight")
	require.NotNil(t, inflight, "inflight gauge should exist")

	sum, ok := inflight.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(1), sum.DataPoints[0].Value)

	done()

	rm = collectMetrics(t, reader)
	sum, ok = findMetric(rm, "queryscope.estimate.inflight").Data.(metricdata.Sum[int64])
	require.True(t, ok)
	assert.Equal(t, int64(0), sum.DataPoints[0].Value)
}

func TestTriggerMetrics_NilReceiverIsSafe(t *testing.T) {
	t.Parallel()

	var tm *observability.TriggerMetrics

	ctx := context.Background()

	tm.RecordEvent(ctx, "open")
	tm.RecordSkip(ctx, "open", "busy")
	tm.RecordRun(ctx, "open", "ok", time.Second, 1)

	done := tm.TrackInflight(ctx)
	require.NotNil(t, done)
	done()
}
