package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricRunsTotal       = "queryscope.estimate.runs.total"
	metricSkipsTotal      = "queryscope.estimate.skips.total"
	metricRunDuration     = "queryscope.estimate.duration.seconds"
	metricScannedBytes    = "queryscope.estimate.scanned.bytes"
	metricInflightRuns    = "queryscope.estimate.inflight"
	metricTriggerEvents   = "queryscope.trigger.events.total"
	attrTriggerClassLabel = "trigger"
	attrReasonLabel       = "reason"
	attrStatusLabel       = "status"
)

// estimateDurationBoundaries covers the expected dry-run round-trip
// range, from warm sub-second calls to slow cold-start ones.
var estimateDurationBoundaries = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

// TriggerMetrics holds the OTel instruments for the trigger pipeline.
// A nil *TriggerMetrics is valid and records nothing, so callers never
// need to guard their call sites.
type TriggerMetrics struct {
	events       metric.Int64Counter
	runs         metric.Int64Counter
	skips        metric.Int64Counter
	duration     metric.Float64Histogram
	scannedBytes metric.Int64Counter
	inflight     metric.Int64UpDownCounter
}

// NewTriggerMetrics creates the trigger pipeline instruments from the
// given meter.
func NewTriggerMetrics(mt metric.Meter) (*TriggerMetrics, error) {
	b := newMetricBuilder(mt)

	tm := &TriggerMetrics{
		events:       b.counter(metricTriggerEvents, "Editor trigger events observed", "{event}"),
		runs:         b.counter(metricRunsTotal, "Dry-run estimates issued", "{run}"),
		skips:        b.counter(metricSkipsTotal, "Estimates suppressed before the remote call", "{skip}"),
		duration:     b.histogram(metricRunDuration, "Dry-run round-trip duration", "s", estimateDurationBoundaries...),
		scannedBytes: b.counter(metricScannedBytes, "Bytes the estimated queries would scan", "By"),
		inflight:     b.upDownCounter(metricInflightRuns, "Estimates currently in flight", "{run}"),
	}

	if b.err != nil {
		return nil, b.err
	}

	return tm, nil
}

// RecordEvent counts one raw editor event of the given trigger class.
func (tm *TriggerMetrics) RecordEvent(ctx context.Context, class string) {
	if tm == nil {
		return
	}

	tm.events.Add(ctx, 1, metric.WithAttributes(attribute.String(attrTriggerClassLabel, class)))
}

// RecordSkip counts one suppressed estimate with its gate reason.
func (tm *TriggerMetrics) RecordSkip(ctx context.Context, class, reason string) {
	if tm == nil {
		return
	}

	tm.skips.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrTriggerClassLabel, class),
		attribute.String(attrReasonLabel, reason),
	))
}

// RecordRun counts one completed estimate with its outcome, duration,
// and scanned byte estimate.
func (tm *TriggerMetrics) RecordRun(ctx context.Context, class, status string, dur time.Duration, scanned int64) {
	if tm == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrTriggerClassLabel, class),
		attribute.String(attrStatusLabel, status),
	)

	tm.runs.Add(ctx, 1, attrs)
	tm.duration.Record(ctx, dur.Seconds(), attrs)

	if scanned > 0 {
		tm.scannedBytes.Add(ctx, scanned, attrs)
	}
}

// TrackInflight increments the in-flight gauge and returns a function
// to decrement it.
func (tm *TriggerMetrics) TrackInflight(ctx context.Context) func() {
	if tm == nil {
		return func() {}
	}

	tm.inflight.Add(ctx, 1)

	return func() {
		tm.inflight.Add(ctx, -1)
	}
}
