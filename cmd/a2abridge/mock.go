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

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/a2aproject/a2a-go/a2a"
	"golang.org/x/sync/errgroup"

	"github.com/kadirpekel/a2abridge/pkg/agentcard"
	"github.com/kadirpekel/a2abridge/pkg/auth"
	"github.com/kadirpekel/a2abridge/pkg/config"
	"github.com/kadirpekel/a2abridge/pkg/config/provider"
	"github.com/kadirpekel/a2abridge/pkg/mockserver"
	"github.com/kadirpekel/a2abridge/pkg/observability"
)

// ServeMockCmd runs a scripted agent.
type ServeMockCmd struct {
	Addr        string        `help:"Listen address." default:":9000"`
	Name        string        `help:"Agent name advertised in the card." default:"mock"`
	Description string        `help:"Agent description advertised in the card."`
	PublicURL   string        `name:"public-url" help:"Base URL advertised in the card (default: request host)."`
	Mode        string        `help:"Answer mode." enum:"echo,message,fail,hang" default:"echo"`
	ChunkDelay  time.Duration `name:"chunk-delay" help:"Delay between streamed chunks." default:"100ms"`
	NoStreaming bool          `name:"no-streaming" help:"Advertise a card without streaming support."`

	JWTSecret string `name:"jwt-secret" help:"Require bearer tokens signed with this secret." env:"A2ABRIDGE_JWT_SECRET"`
	Issuer    string `help:"Required token issuer."`
	Audience  string `help:"Required token audience."`

	Metrics     string `help:"Serve Prometheus metrics on this address (empty = disabled)."`
	TraceStdout bool   `name:"trace-stdout" help:"Print request spans to stdout."`

	Register          string   `help:"Publish the agent card to a registry (consul, etcd or zookeeper)." enum:",consul,etcd,zookeeper" default:""`
	RegisterEndpoints []string `name:"register-endpoints" help:"Registry endpoints." sep:","`
	RegisterPrefix    string   `name:"register-prefix" help:"Registry key prefix." default:"a2abridge/agents"`
	RegisterLatest    bool     `name:"register-latest" help:"Also publish the card as the unversioned entry."`
}

func (c *ServeMockCmd) Run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	obsCfg := observability.Config{}
	if c.Metrics != "" {
		obsCfg.Metrics = observability.MetricsConfig{Enabled: true, Address: c.Metrics}
	}
	if c.TraceStdout {
		obsCfg.Tracing = observability.TracingConfig{
			Enabled:     true,
			Exporter:    observability.ExporterStdout,
			ServiceName: c.Name,
		}
	}
	obs := observability.NewManager(obsCfg).WithWriter(os.Stdout)
	if err := obs.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer func() {
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		_ = obs.Shutdown(shutdownCtx)
	}()

	cfg := mockserver.Config{
		Name:             c.Name,
		Description:      c.Description,
		Version:          version(),
		PublicURL:        c.PublicURL,
		Mode:             mockserver.Mode(c.Mode),
		ChunkDelay:       c.ChunkDelay,
		DisableStreaming: c.NoStreaming,
		Middleware:       []func(http.Handler) http.Handler{obs.HTTPMiddleware},
	}
	if c.JWTSecret != "" {
		v, err := auth.NewValidator(c.JWTSecret, c.Issuer, c.Audience)
		if err != nil {
			return err
		}
		cfg.Validator = v
	}

	srv := mockserver.New(cfg)
	if c.Register != "" {
		base, err := c.advertisedURL()
		if err != nil {
			return err
		}
		open := agentcard.ServiceOpener(provider.Type(c.Register), c.RegisterEndpoints)
		if err := c.register(ctx, srv.Card(base), open); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.ListenAndServe(gctx, c.Addr)
	})
	if obs.MetricsEnabled() {
		g.Go(func() error {
			return serveMetrics(gctx, obs)
		})
	}
	return g.Wait()
}

// advertisedURL is the base URL published to the registry. Without
// --public-url it is derived from the listen address.
func (c *ServeMockCmd) advertisedURL() (string, error) {
	if c.PublicURL != "" {
		return strings.TrimRight(c.PublicURL, "/"), nil
	}
	host, port, err := net.SplitHostPort(c.Addr)
	if err != nil {
		return "", fmt.Errorf("invalid listen address %q: %w", c.Addr, err)
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port), nil
}

func (c *ServeMockCmd) register(ctx context.Context, card *a2a.AgentCard, open agentcard.OpenFunc) error {
	prefix := c.RegisterPrefix
	if prefix == "" {
		prefix = config.DefaultRegistryPrefix
	}
	if err := agentcard.Publish(ctx, open, prefix, card, c.RegisterLatest); err != nil {
		return fmt.Errorf("failed to register agent card: %w", err)
	}
	return nil
}

func serveMetrics(ctx context.Context, obs *observability.Manager) error {
	mc := obs.MetricsConfig()
	mux := http.NewServeMux()
	mux.Handle(mc.Endpoint, obs.MetricsHandler())
	srv := &http.Server{Addr: mc.Address, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("Metrics listening", "address", mc.Address, "path", mc.Endpoint)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server failed: %w", err)
	}
	return nil
}
