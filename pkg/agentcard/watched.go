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
	"fmt"
	"log/slog"
	"sync"

	"github.com/a2aproject/a2a-go/a2a"

	"github.com/kadirpekel/a2abridge/pkg/config/provider"
)

// Watched serves a card stored as a JSON document in a provider.
//
// The document is loaded on first use. After that the provider is watched
// and the card is reloaded on change; a document that fails to parse is
// logged and the previous card is kept.
type Watched struct {
	source provider.Provider

	mu      sync.RWMutex
	card    *a2a.AgentCard
	watched bool
	cancel  context.CancelFunc
}

// NewWatched creates a producer over source. The producer owns source.
func NewWatched(source provider.Provider) *Watched {
	return &Watched{source: source}
}

func (w *Watched) Produce(ctx context.Context, name string) (*a2a.AgentCard, error) {
	w.mu.RLock()
	card := w.card
	w.mu.RUnlock()
	if card != nil {
		return card, nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.card != nil {
		return w.card, nil
	}

	card, err := w.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load agent card for %s: %w", name, err)
	}
	w.card = card
	w.subscribe()
	return card, nil
}

func (w *Watched) load(ctx context.Context) (*a2a.AgentCard, error) {
	data, err := w.source.Load(ctx)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}

// subscribe starts the watch loop. Callers hold w.mu.
func (w *Watched) subscribe() {
	if w.watched {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	changes, err := w.source.Watch(ctx)
	if err != nil {
		cancel()
		slog.Warn("Agent card updates disabled", "source", w.source.Type(), "error", err)
		return
	}
	w.watched = true
	w.cancel = cancel

	go func() {
		for range changes {
			card, err := w.load(ctx)
			if err != nil {
				slog.Warn("Ignoring invalid agent card update", "source", w.source.Type(), "error", err)
				continue
			}
			w.mu.Lock()
			w.card = card
			w.mu.Unlock()
			slog.Info("Agent card reloaded", "source", w.source.Type(), "agent", card.Name, "url", card.URL)
		}
	}()
}

// Close stops watching and closes the provider.
func (w *Watched) Close() error {
	w.mu.Lock()
	if w.cancel != nil {
		w.cancel()
	}
	w.mu.Unlock()
	return w.source.Close()
}
