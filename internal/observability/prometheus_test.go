package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

func TestNewPrometheusReader_ServesMetrics(t *testing.T) {
	t.Parallel()

	reader, handler, err := newPrometheusReader()
	require.NoError(t, err)
	require.NotNil(t, reader)

	// The reader needs a provider or the exporter has nothing to expose.
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	tm, err := NewTriggerMetrics(mp.Meter("test"))
	require.NoError(t, err)

	tm.RecordEvent(t.Context(), "open")

	req := httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	// Prometheus exposition format uses text/plain with version parameter.
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	assert.Contains(t, rec.Body.String(), "queryscope_trigger_events")
}
