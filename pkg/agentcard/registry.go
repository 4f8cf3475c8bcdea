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

package agentcard

import (
	"context"
	"errors"
	"sync"

	"github.com/a2aproject/a2a-go/a2a"

	"github.com/kadirpekel/a2abridge/pkg/config/provider"
)

// OpenFunc opens a provider for a registry key.
type OpenFunc func(key string) (provider.Provider, error)

// Registry serves cards published in a coordination service under
// prefix/name[/version]. Each agent name gets its own watched entry.
type Registry struct {
	prefix  string
	version string
	open    OpenFunc

	mu      sync.Mutex
	entries map[string]*Watched
}

// NewRegistry creates a registry producer.
func NewRegistry(prefix, version string, open OpenFunc) *Registry {
	return &Registry{
		prefix:  prefix,
		version: version,
		open:    open,
		entries: make(map[string]*Watched),
	}
}

// NewServiceRegistry creates a registry producer backed by a provider type.
func NewServiceRegistry(typ provider.Type, endpoints []string, prefix, version string) *Registry {
	return NewRegistry(prefix, version, ServiceOpener(typ, endpoints))
}

// ServiceOpener opens keys with providers of type typ.
func ServiceOpener(typ provider.Type, endpoints []string) OpenFunc {
	return func(key string) (provider.Provider, error) {
		return provider.New(provider.Config{Type: typ, Path: key, Endpoints: endpoints})
	}
}

func (r *Registry) Produce(ctx context.Context, name string) (*a2a.AgentCard, error) {
	entry, err := r.entry(name)
	if err != nil {
		return nil, err
	}
	return entry.Produce(ctx, name)
}

func (r *Registry) entry(name string) (*Watched, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := Key(r.prefix, name, r.version)
	if w, ok := r.entries[key]; ok {
		return w, nil
	}
	source, err := r.open(key)
	if err != nil {
		return nil, err
	}
	w := NewWatched(source)
	r.entries[key] = w
	return w, nil
}

// Close closes every entry.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for key, w := range r.entries {
		if err := w.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(r.entries, key)
	}
	return errors.Join(errs...)
}
