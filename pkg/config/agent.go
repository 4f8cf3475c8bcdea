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

package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/kadirpekel/a2abridge/pkg/config/provider"
	"github.com/kadirpekel/a2abridge/pkg/httpclient"
)

// Card sources.
const (
	CardSourceFixed     = "fixed"
	CardSourceURL       = "url"
	CardSourceFile      = "file"
	CardSourceConsul    = "consul"
	CardSourceEtcd      = "etcd"
	CardSourceZookeeper = "zookeeper"
)

// Transport protocols.
const (
	ProtocolJSONRPC = "JSONRPC"
	ProtocolGRPC    = "GRPC"
)

// DefaultRegistryPrefix is the key prefix for cards kept in a registry.
const DefaultRegistryPrefix = "a2abridge/agents"

// AgentConfig configures one remote agent.
type AgentConfig struct {
	Description string `yaml:"description,omitempty" json:"description,omitempty" jsonschema:"title=Description"`

	Card CardConfig `yaml:"card" json:"card" jsonschema:"title=Agent Card,description=Where the remote agent card comes from"`

	Transport TransportConfig `yaml:"transport,omitempty" json:"transport,omitempty" jsonschema:"title=Transport"`

	// Timeout bounds a call. Zero waits until the caller gives up.
	Timeout time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty" jsonschema:"title=Call Timeout,description=Maximum wait for a reply; 0 disables the limit"`

	// BindTaskID sends the request's correlation id as the task id.
	BindTaskID bool `yaml:"bind_task_id,omitempty" json:"bind_task_id,omitempty" jsonschema:"title=Bind Task ID,default=false"`
}

// CardConfig selects the agent card producer.
//
//	card:
//	  source: url
//	  url: http://localhost:9000
//
//	card:
//	  source: consul
//	  endpoints: [localhost:8500]
//	  version: v1
type CardConfig struct {
	Source string `yaml:"source,omitempty" json:"source,omitempty" jsonschema:"title=Source,enum=fixed,enum=url,enum=file,enum=consul,enum=etcd,enum=zookeeper,default=url"`

	// URL is the agent base URL for "url", or the RPC endpoint for "fixed".
	URL string `yaml:"url,omitempty" json:"url,omitempty" jsonschema:"title=URL"`

	// File is the path of a JSON card for "file".
	File string `yaml:"file,omitempty" json:"file,omitempty" jsonschema:"title=Card File"`

	// Endpoints of the registry service.
	Endpoints []string `yaml:"endpoints,omitempty" json:"endpoints,omitempty" jsonschema:"title=Registry Endpoints"`

	// Prefix and Version build the registry key prefix/name[/version].
	Prefix  string `yaml:"prefix,omitempty" json:"prefix,omitempty" jsonschema:"title=Registry Prefix,default=a2abridge/agents"`
	Version string `yaml:"version,omitempty" json:"version,omitempty" jsonschema:"title=Card Version"`

	// Streaming is advertised by a "fixed" card.
	Streaming *bool `yaml:"streaming,omitempty" json:"streaming,omitempty" jsonschema:"title=Streaming,default=true"`

	// CacheTTL keeps a fetched well-known card. Zero fetches on every call.
	CacheTTL time.Duration `yaml:"cache_ttl,omitempty" json:"cache_ttl,omitempty" jsonschema:"title=Card Cache TTL"`

	// Retries for transient failures when fetching a well-known card.
	Retries *int `yaml:"retries,omitempty" json:"retries,omitempty" jsonschema:"title=Fetch Retries,default=2"`

	// Headers are sent when fetching the card.
	Headers map[string]string `yaml:"headers,omitempty" json:"headers,omitempty" jsonschema:"title=Headers"`
}

// TransportConfig configures the per-call client.
type TransportConfig struct {
	Protocols []string `yaml:"protocols,omitempty" json:"protocols,omitempty" jsonschema:"title=Protocols,description=Enabled transports (JSONRPC; GRPC)"`

	// Headers are added to every request.
	Headers map[string]string `yaml:"headers,omitempty" json:"headers,omitempty" jsonschema:"title=Headers"`

	// PollInterval applies to agents that do not stream.
	PollInterval time.Duration `yaml:"poll_interval,omitempty" json:"poll_interval,omitempty" jsonschema:"title=Poll Interval,default=1s"`

	Auth *AuthConfig `yaml:"auth,omitempty" json:"auth,omitempty" jsonschema:"title=Auth"`

	TLS *httpclient.TLSConfig `yaml:"tls,omitempty" json:"tls,omitempty" jsonschema:"title=TLS"`
}

// AuthConfig issues bearer tokens for outbound requests.
type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret" json:"jwt_secret" jsonschema:"title=JWT Secret,description=HMAC secret; use ${ENV_VAR}"`
	Issuer    string        `yaml:"issuer,omitempty" json:"issuer,omitempty"`
	Audience  string        `yaml:"audience,omitempty" json:"audience,omitempty"`
	Subject   string        `yaml:"subject,omitempty" json:"subject,omitempty"`
	TTL       time.Duration `yaml:"ttl,omitempty" json:"ttl,omitempty" jsonschema:"default=15m"`
}

// SetDefaults applies default values to AgentConfig.
func (c *AgentConfig) SetDefaults() {
	c.Card.SetDefaults()
	c.Transport.SetDefaults()
}

// Validate checks AgentConfig for errors.
func (c *AgentConfig) Validate() error {
	if c.Timeout < 0 {
		return errors.New("timeout must not be negative")
	}
	if err := c.Card.Validate(); err != nil {
		return fmt.Errorf("card: %w", err)
	}
	if err := c.Transport.Validate(); err != nil {
		return fmt.Errorf("transport: %w", err)
	}
	return nil
}

// SetDefaults applies default values to CardConfig.
func (c *CardConfig) SetDefaults() {
	if c.Source == "" {
		c.Source = CardSourceURL
	}
	if c.IsRegistry() && c.Prefix == "" {
		c.Prefix = DefaultRegistryPrefix
	}
	if c.Streaming == nil {
		streaming := true
		c.Streaming = &streaming
	}
	if c.Retries == nil {
		retries := httpclient.DefaultMaxRetries
		c.Retries = &retries
	}
}

// IsRegistry reports whether the card is kept in a coordination service.
func (c *CardConfig) IsRegistry() bool {
	switch c.Source {
	case CardSourceConsul, CardSourceEtcd, CardSourceZookeeper:
		return true
	}
	return false
}

// ProviderType maps a registry source to its provider type.
func (c *CardConfig) ProviderType() (provider.Type, error) {
	return provider.ParseType(c.Source)
}

// Validate checks CardConfig for errors.
func (c *CardConfig) Validate() error {
	switch c.Source {
	case CardSourceFixed, CardSourceURL:
		if strings.TrimSpace(c.URL) == "" {
			return fmt.Errorf("url is required for source %q", c.Source)
		}
	case CardSourceFile:
		if c.File == "" {
			return errors.New("file is required for source \"file\"")
		}
	case CardSourceEtcd, CardSourceZookeeper:
		if len(c.Endpoints) == 0 {
			return fmt.Errorf("endpoints are required for source %q", c.Source)
		}
	case CardSourceConsul:
	default:
		return fmt.Errorf("unknown source %q", c.Source)
	}
	if c.Retries != nil && *c.Retries < 0 {
		return errors.New("retries must not be negative")
	}
	if c.CacheTTL < 0 {
		return errors.New("cache_ttl must not be negative")
	}
	return nil
}

// SetDefaults applies default values to TransportConfig.
func (c *TransportConfig) SetDefaults() {
	if len(c.Protocols) == 0 {
		c.Protocols = []string{ProtocolJSONRPC}
	}
	for i, p := range c.Protocols {
		c.Protocols[i] = strings.ToUpper(strings.TrimSpace(p))
	}
	if c.Auth != nil && c.Auth.TTL == 0 {
		c.Auth.TTL = 15 * time.Minute
	}
}

// Validate checks TransportConfig for errors.
func (c *TransportConfig) Validate() error {
	for _, p := range c.Protocols {
		if p != ProtocolJSONRPC && p != ProtocolGRPC {
			return fmt.Errorf("unknown protocol %q (valid: %s, %s)", p, ProtocolJSONRPC, ProtocolGRPC)
		}
	}
	if c.PollInterval < 0 {
		return errors.New("poll_interval must not be negative")
	}
	if c.Auth != nil && c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required when auth is set")
	}
	return nil
}

// GRPCEnabled reports whether the gRPC transport is enabled.
func (c *TransportConfig) GRPCEnabled() bool {
	return slices.Contains(c.Protocols, ProtocolGRPC)
}
