// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package observability

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Manager owns the tracer and meter providers.
type Manager struct {
	config Config
	writer io.Writer

	mu             sync.RWMutex
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	registry       *prometheus.Registry
	recorder       Recorder
}

// NewManager creates a manager. Call Initialize before use.
func NewManager(cfg Config) *Manager {
	cfg.SetDefaults()
	return &Manager{config: cfg}
}

// WithWriter sets the destination of the stdout span exporter.
func (m *Manager) WithWriter(w io.Writer) *Manager {
	m.writer = w
	return m
}

// Initialize builds the providers and installs the tracer provider
// globally when tracing is enabled.
func (m *Manager) Initialize(ctx context.Context) error {
	if err := m.config.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	tp, err := newTracerProvider(ctx, m.config.Tracing, m.writer)
	if err != nil {
		return err
	}
	mp, registry, err := newMeterProvider(m.config.Metrics)
	if err != nil {
		return err
	}
	in, err := newInstruments(mp.Meter(instrumentationName), m.config.Metrics.Namespace)
	if err != nil {
		return err
	}

	if m.config.Tracing.Enabled {
		otel.SetTracerProvider(tp)
	}
	m.tracerProvider = tp
	m.meterProvider = mp
	m.registry = registry
	m.recorder = &otelRecorder{tracer: tp.Tracer(instrumentationName), in: in}
	return nil
}

// Recorder returns the call recorder, or a no-op before Initialize.
func (m *Manager) Recorder() Recorder {
	if m == nil {
		return Noop()
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.recorder == nil {
		return Noop()
	}
	return m.recorder
}

// Tracer returns a tracer from the managed provider.
func (m *Manager) Tracer(name string) trace.Tracer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.tracerProvider == nil {
		return otel.Tracer(name)
	}
	return m.tracerProvider.Tracer(name)
}

// MetricsEnabled reports whether a metrics endpoint should be served.
func (m *Manager) MetricsEnabled() bool {
	return m.config.Metrics.Enabled
}

// MetricsConfig returns the effective metrics settings.
func (m *Manager) MetricsConfig() MetricsConfig {
	return m.config.Metrics
}

// MetricsHandler serves the Prometheus exposition format.
func (m *Manager) MetricsHandler() http.Handler {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return metricsHandler(m.registry)
}

// Shutdown flushes and stops the providers.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	if s, ok := m.tracerProvider.(interface{ Shutdown(context.Context) error }); ok {
		errs = append(errs, s.Shutdown(ctx))
	}
	if s, ok := m.meterProvider.(interface{ Shutdown(context.Context) error }); ok {
		errs = append(errs, s.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
