package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// instruments holds the call metrics.
type instruments struct {
	calls      metric.Int64Counter
	errors     metric.Int64Counter
	duration   metric.Float64Histogram
	events     metric.Int64Counter
	chunks     metric.Int64Counter
	interrupts metric.Int64Counter
}

// newMeterProvider builds a meter provider exporting into a private
// Prometheus registry. Disabled metrics yield a no-op provider and a nil
// registry.
func newMeterProvider(cfg MetricsConfig) (metric.MeterProvider, *prometheus.Registry, error) {
	if !cfg.Enabled {
		return metricnoop.NewMeterProvider(), nil, nil
	}

	registry := prometheus.NewRegistry()
	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}
	return sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter)), registry, nil
}

func newInstruments(meter metric.Meter, namespace string) (*instruments, error) {
	name := func(s string) string {
		if namespace == "" {
			return s
		}
		return namespace + "_" + s
	}

	var (
		in  instruments
		err error
	)
	if in.calls, err = meter.Int64Counter(name("remote_calls"),
		metric.WithDescription("Total remote agent calls")); err != nil {
		return nil, fmt.Errorf("failed to create calls counter: %w", err)
	}
	if in.errors, err = meter.Int64Counter(name("remote_call_errors"),
		metric.WithDescription("Total failed remote agent calls")); err != nil {
		return nil, fmt.Errorf("failed to create errors counter: %w", err)
	}
	if in.duration, err = meter.Float64Histogram(name("remote_call_duration"),
		metric.WithDescription("Remote agent call duration"),
		metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("failed to create duration histogram: %w", err)
	}
	if in.events, err = meter.Int64Counter(name("remote_events"),
		metric.WithDescription("Remote events received, by kind")); err != nil {
		return nil, fmt.Errorf("failed to create events counter: %w", err)
	}
	if in.chunks, err = meter.Int64Counter(name("remote_chunks"),
		metric.WithDescription("Intermediate chunks delivered to observers")); err != nil {
		return nil, fmt.Errorf("failed to create chunks counter: %w", err)
	}
	if in.interrupts, err = meter.Int64Counter(name("remote_interrupts"),
		metric.WithDescription("Interrupt requests, by outcome")); err != nil {
		return nil, fmt.Errorf("failed to create interrupts counter: %w", err)
	}
	return &in, nil
}

func metricsHandler(registry *prometheus.Registry) http.Handler {
	if registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
