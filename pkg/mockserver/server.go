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

package mockserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/a2aproject/a2a-go/a2asrv"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kadirpekel/a2abridge/pkg/auth"
)

// RPCPath is the path of the JSON-RPC endpoint.
const RPCPath = "/a2a"

// Config configures the mock server.
type Config struct {
	Name        string
	Description string
	Version     string

	// PublicURL is advertised in the card. When empty the URL is derived
	// from the request host.
	PublicURL string

	Mode       Mode
	ChunkDelay time.Duration

	// DisableStreaming advertises a card without streaming support.
	DisableStreaming bool

	// Validator, when set, requires bearer tokens on the RPC endpoint.
	Validator *auth.Validator

	// Middleware wraps every request, outermost first.
	Middleware []func(http.Handler) http.Handler
}

// Server serves a scripted agent over JSON-RPC.
type Server struct {
	cfg      Config
	executor *Executor
	router   chi.Router
	server   *http.Server
}

// New creates a server.
func New(cfg Config) *Server {
	if cfg.Name == "" {
		cfg.Name = "mock"
	}
	if cfg.Version == "" {
		cfg.Version = "0.1.0"
	}
	s := &Server{
		cfg:      cfg,
		executor: NewExecutor(cfg.Mode, cfg.ChunkDelay),
	}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.cfg.Middleware...)
	r.Use(loggingMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	r.Get(a2asrv.WellKnownAgentCardPath, s.handleCard)

	rpc := a2asrv.NewJSONRPCHandler(a2asrv.NewHandler(s.executor))
	r.Group(func(r chi.Router) {
		if s.cfg.Validator != nil {
			r.Use(s.cfg.Validator.HTTPMiddleware)
		}
		r.Handle(RPCPath, rpc)
	})
	return r
}

func (s *Server) handleCard(w http.ResponseWriter, r *http.Request) {
	base := s.cfg.PublicURL
	if base == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		base = scheme + "://" + r.Host
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.Card(base)); err != nil {
		slog.Warn("Failed to write agent card", "error", err)
	}
}

// Card returns the agent card advertised for baseURL.
func (s *Server) Card(baseURL string) *a2a.AgentCard {
	card := &a2a.AgentCard{
		Name:               s.cfg.Name,
		Description:        s.cfg.Description,
		URL:                baseURL + RPCPath,
		Version:            s.cfg.Version,
		ProtocolVersion:    "0.3.0",
		DefaultInputModes:  []string{"text/plain"},
		DefaultOutputModes: []string{"text/plain"},
		Skills: []a2a.AgentSkill{{
			ID:          "echo",
			Name:        "Echo",
			Description: "Repeats the input as a streamed artifact",
			Tags:        []string{"test"},
		}},
		Capabilities:       a2a.AgentCapabilities{Streaming: !s.cfg.DisableStreaming},
		PreferredTransport: a2a.TransportProtocolJSONRPC,
	}
	if s.cfg.Validator != nil {
		card.SecuritySchemes = a2a.NamedSecuritySchemes{
			"BearerAuth": a2a.HTTPAuthSecurityScheme{
				Scheme:       "bearer",
				BearerFormat: "JWT",
				Description:  "JWT Bearer token authentication",
			},
		}
	}
	return card
}

// ListenAndServe serves on addr until ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	slog.Info("Mock agent listening", "address", addr, "agent", s.cfg.Name, "mode", s.cfg.Mode)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("mock server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	}
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Debug("Mock request", "method", r.Method, "path", r.URL.Path,
			"status", ww.Status(), "duration", time.Since(start))
	})
}
