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

// Package provider defines the document source abstraction.
//
// Providers load a single document (a config file or an agent card) from a
// file or a key in a coordination service and signal when it changes.
package provider

import (
	"context"
	"fmt"
	"time"
)

// Type identifies the source type.
type Type string

const (
	TypeFile      Type = "file"
	TypeConsul    Type = "consul"
	TypeEtcd      Type = "etcd"
	TypeZookeeper Type = "zookeeper"
)

// DefaultDialTimeout bounds connection setup for remote providers.
const DefaultDialTimeout = 10 * time.Second

// debounceDelay coalesces bursts of change notifications.
const debounceDelay = 100 * time.Millisecond

// ParseType converts a string to a Type.
func ParseType(s string) (Type, error) {
	switch s {
	case "file", "":
		return TypeFile, nil
	case "consul":
		return TypeConsul, nil
	case "etcd":
		return TypeEtcd, nil
	case "zookeeper", "zk":
		return TypeZookeeper, nil
	default:
		return "", fmt.Errorf("unknown provider type: %s", s)
	}
}

// Provider abstracts document sources.
//
// Implementations must be safe for concurrent use.
type Provider interface {
	// Type returns the provider type for logging/debugging.
	Type() Type

	// Load reads the raw document bytes.
	Load(ctx context.Context) ([]byte, error)

	// Watch starts watching for changes and signals via the returned channel.
	// The channel is closed when ctx is canceled or the provider is closed.
	Watch(ctx context.Context) (<-chan struct{}, error)

	// Close releases any resources held by the provider.
	Close() error
}

// Writer is a Provider whose document can be replaced.
type Writer interface {
	Provider

	// Store replaces the document, creating it when missing.
	Store(ctx context.Context, data []byte) error
}

// Config configures provider creation.
type Config struct {
	// Type specifies the provider type.
	Type Type

	// Path is the file path or the key path.
	Path string

	// Endpoints for remote providers.
	Endpoints []string

	// DialTimeout bounds connection setup for remote providers.
	DialTimeout time.Duration
}

// New creates a Provider based on Config.
func New(cfg Config) (Provider, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("provider path is required")
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = DefaultDialTimeout
	}

	switch cfg.Type {
	case TypeFile, "":
		return NewFileProvider(cfg.Path)
	case TypeConsul:
		return NewConsulProvider(cfg.Endpoints, cfg.Path)
	case TypeEtcd:
		return NewEtcdProvider(cfg.Endpoints, cfg.Path, cfg.DialTimeout)
	case TypeZookeeper:
		return NewZookeeperProvider(cfg.Endpoints, cfg.Path, cfg.DialTimeout)
	default:
		return nil, fmt.Errorf("unknown provider type: %s", cfg.Type)
	}
}

// notify signals ch without blocking. A pending signal already covers
// the change.
func notify(ch chan<- struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
