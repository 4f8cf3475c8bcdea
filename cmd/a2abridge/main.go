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

// Command a2abridge calls remote A2A agents declared in a configuration
// file.
//
// Usage:
//
//	a2abridge call --config a2abridge.yaml weather "Forecast for Berlin?"
//	a2abridge card --config a2abridge.yaml weather
//	a2abridge serve-mock --addr :9000 --mode echo
//	a2abridge serve-mock --register etcd --register-endpoints localhost:2379
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"

	"github.com/alecthomas/kong"

	"github.com/kadirpekel/a2abridge/pkg/builder"
	"github.com/kadirpekel/a2abridge/pkg/config"
	"github.com/kadirpekel/a2abridge/pkg/hook"
	"github.com/kadirpekel/a2abridge/pkg/observability"
)

// CLI defines the command-line interface.
type CLI struct {
	Call      CallCmd      `cmd:"" help:"Send a message to a remote agent and print the reply."`
	Card      CardCmd      `cmd:"" help:"Print the agent card of a remote agent."`
	List      ListCmd      `cmd:"" help:"List configured agents."`
	Validate  ValidateCmd  `cmd:"" help:"Validate configuration file."`
	ServeMock ServeMockCmd `cmd:"" name:"serve-mock" help:"Run a scripted A2A agent for local testing."`
	Schema    SchemaCmd    `cmd:"" help:"Print the JSON Schema of the configuration file."`
	Version   VersionCmd   `cmd:"" help:"Show version information."`

	Config    string `short:"c" help:"Path to config file." type:"path" env:"A2ABRIDGE_CONFIG"`
	LogLevel  string `help:"Log level (debug, info, warn, error)."`
	LogFile   string `help:"Log file path (empty = stderr)."`
	LogFormat string `help:"Log format (simple or verbose)."`
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Printf("a2abridge version %s\n", version())
	return nil
}

func version() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "(devel)" && info.Main.Version != "" {
			return info.Main.Version
		}
	}
	return "dev"
}

// session holds what a command needs to talk to configured agents.
type session struct {
	cfg    *config.Config
	loader *config.Loader
	obs    *observability.Manager
	agents *builder.Set
}

// open loads the configuration, applies its logger settings unless flags
// or environment override them, and builds every agent.
func (cli *CLI) open(ctx context.Context, hooks *hook.Registry) (*session, error) {
	cfg, loader, err := cli.loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	s := &session{cfg: cfg, loader: loader}

	if cli.LogLevel == "" && cli.LogFile == "" && cli.LogFormat == "" {
		if err := applyLoggerConfig(&cfg.Logger); err != nil {
			s.Close(ctx)
			return nil, err
		}
	}

	s.obs = observability.NewManager(cfg.Observability)
	if err := s.obs.Initialize(ctx); err != nil {
		s.Close(ctx)
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}

	s.agents, err = builder.FromConfig(cfg, builder.Options{Hooks: hooks, Recorder: s.obs.Recorder()})
	if err != nil {
		s.Close(ctx)
		return nil, err
	}
	return s, nil
}

func (s *session) Close(ctx context.Context) {
	if s.agents != nil {
		if err := s.agents.Close(); err != nil {
			slog.Warn("Failed to release agents", "error", err)
		}
	}
	if s.obs != nil {
		if err := s.obs.Shutdown(ctx); err != nil {
			slog.Warn("Failed to flush telemetry", "error", err)
		}
	}
	if s.loader != nil {
		_ = s.loader.Close()
	}
}

func (cli *CLI) loadConfig(ctx context.Context) (*config.Config, *config.Loader, error) {
	if cli.Config == "" {
		return nil, nil, fmt.Errorf("--config is required")
	}
	cfg, loader, err := config.LoadConfigFile(ctx, cli.Config)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	slog.Debug("Loaded configuration", "path", cli.Config, "agents", len(cfg.Agents))
	return cfg, loader, nil
}

func main() {
	if err := config.LoadEnvFiles(); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}

	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("a2abridge"),
		kong.Description("Call remote A2A agents as local agents"),
		kong.UsageOnError(),
	)

	cleanup, err := initLoggerFromCLI(cli.LogLevel, cli.LogFile, cli.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	if cleanup != nil {
		defer cleanup()
	}

	err = ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}
