package observability

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// metricsReadTimeout bounds slow scrape clients.
const metricsReadTimeout = 10 * time.Second

// newPrometheusReader creates a Prometheus exporter backed by an
// independent registry and returns it together with the /metrics
// scrape handler. The reader must be attached to the MeterProvider or
// the exporter has no metrics source.
func newPrometheusReader() (sdkmetric.Reader, http.Handler, error) {
	registry := prometheus.NewRegistry()

	exporter, err := promexporter.New(
		promexporter.WithRegisterer(registry),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	return exporter, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), nil
}

// startMetricsServer serves the scrape handler on addr and returns a
// shutdown function.
func startMetricsServer(addr string, handler http.Handler) shutdownFunc {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: metricsReadTimeout}

	go func() {
		// Server lifetime errors end up in the shutdown call; a failed
		// listen only disables scraping.
		_ = srv.ListenAndServe()
	}()

	return func(ctx context.Context) error {
		err := srv.Shutdown(ctx)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("shutdown metrics server: %w", err)
		}

		return nil
	}
}
