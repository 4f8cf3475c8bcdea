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

package builder

import (
	"errors"
	"fmt"
	"io"

	"github.com/kadirpekel/a2abridge/pkg/auth"
	"github.com/kadirpekel/a2abridge/pkg/config"
	"github.com/kadirpekel/a2abridge/pkg/hook"
	"github.com/kadirpekel/a2abridge/pkg/observability"
	"github.com/kadirpekel/a2abridge/pkg/registry"
	"github.com/kadirpekel/a2abridge/pkg/remoteagent"
)

// Options are shared by every agent built from a configuration.
type Options struct {
	Hooks    *hook.Registry
	Recorder observability.Recorder
}

// FromAgentConfig prepares a builder from one agent section.
func FromAgentConfig(name string, cfg *config.AgentConfig) (*RemoteAgentBuilder, error) {
	b := NewRemoteAgent(name).
		WithDescription(cfg.Description).
		WithHeaders(cfg.Transport.Headers).
		WithTLS(cfg.Transport.TLS).
		EnableGRPC(cfg.Transport.GRPCEnabled()).
		WithPollInterval(cfg.Transport.PollInterval).
		WithTimeout(cfg.Timeout).
		BindTaskID(cfg.BindTaskID)

	if a := cfg.Transport.Auth; a != nil {
		b.WithJWT(auth.TokenSourceConfig{
			Secret:   a.JWTSecret,
			Issuer:   a.Issuer,
			Audience: a.Audience,
			Subject:  a.Subject,
			TTL:      a.TTL,
		})
	}

	card := cfg.Card
	switch card.Source {
	case config.CardSourceFixed:
		streaming := card.Streaming == nil || *card.Streaming
		b.WithEndpoint(card.URL, streaming)
	case config.CardSourceURL:
		b.FromURL(card.URL).WithCardCache(card.CacheTTL)
		for k, v := range card.Headers {
			b.WithCardHeader(k, v)
		}
		if card.Retries != nil {
			b.WithCardRetries(*card.Retries)
		}
	case config.CardSourceFile:
		b.FromFile(card.File)
	case config.CardSourceConsul, config.CardSourceEtcd, config.CardSourceZookeeper:
		typ, err := card.ProviderType()
		if err != nil {
			return nil, err
		}
		b.FromRegistry(typ, card.Endpoints, card.Prefix, card.Version)
	default:
		return nil, fmt.Errorf("agent %s: unknown card source %q", name, card.Source)
	}
	return b, nil
}

// Set holds the agents built from a configuration.
type Set struct {
	*registry.BaseRegistry[*remoteagent.Agent]
	closers []io.Closer
}

// FromConfig builds every configured agent.
func FromConfig(cfg *config.Config, opts Options) (*Set, error) {
	set := &Set{BaseRegistry: registry.NewBaseRegistry[*remoteagent.Agent]()}
	for _, name := range cfg.AgentNames() {
		agentCfg, _ := cfg.Agent(name)
		b, err := FromAgentConfig(name, agentCfg)
		if err != nil {
			_ = set.Close()
			return nil, err
		}
		agent, closer, err := b.WithHooks(opts.Hooks).WithRecorder(opts.Recorder).Build()
		if err != nil {
			_ = set.Close()
			return nil, err
		}
		set.closers = append(set.closers, closer)
		if err := set.Register(name, agent); err != nil {
			_ = set.Close()
			return nil, err
		}
	}
	return set, nil
}

// Agent returns the named agent.
func (s *Set) Agent(name string) (*remoteagent.Agent, error) {
	return s.MustGet(name)
}

// Close releases card watchers.
func (s *Set) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
