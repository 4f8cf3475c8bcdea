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
	"net/http"
	"sync"
	"time"

	"github.com/a2aproject/a2a-go/a2a"
	a2acard "github.com/a2aproject/a2a-go/a2aclient/agentcard"
	"golang.org/x/sync/singleflight"
)

// WellKnown fetches the card from the agent's well-known path.
//
// Concurrent fetches are collapsed into one request. With a positive TTL
// the card is reused until it expires; otherwise every call fetches.
type WellKnown struct {
	baseURL  string
	resolver *a2acard.Resolver
	ttl      time.Duration
	now      func() time.Time

	group singleflight.Group

	mu      sync.RWMutex
	card    *a2a.AgentCard
	fetched time.Time
}

// NewWellKnown creates a producer for the agent served at baseURL.
// A nil httpClient uses the SDK default.
func NewWellKnown(baseURL string, httpClient *http.Client, ttl time.Duration) *WellKnown {
	resolver := a2acard.DefaultResolver
	if httpClient != nil {
		resolver = a2acard.NewResolver(httpClient)
	}
	return &WellKnown{
		baseURL:  baseURL,
		resolver: resolver,
		ttl:      ttl,
		now:      time.Now,
	}
}

func (w *WellKnown) Produce(ctx context.Context, name string) (*a2a.AgentCard, error) {
	if card := w.cached(); card != nil {
		return card, nil
	}

	v, err, _ := w.group.Do(w.baseURL, func() (any, error) {
		card, err := w.resolver.Resolve(ctx, w.baseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve agent card for %s from %s: %w", name, w.baseURL, err)
		}
		w.mu.Lock()
		w.card = card
		w.fetched = w.now()
		w.mu.Unlock()
		return card, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*a2a.AgentCard), nil
}

func (w *WellKnown) cached() *a2a.AgentCard {
	if w.ttl <= 0 {
		return nil
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.card == nil || w.now().Sub(w.fetched) >= w.ttl {
		return nil
	}
	return w.card
}
