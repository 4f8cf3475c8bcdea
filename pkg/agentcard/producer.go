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

// Package agentcard resolves the agent card describing a remote agent.
//
// A Producer is consulted once per call. Implementations cover a fixed card,
// a card fetched from the agent's well-known URL, and cards kept in a file or
// a coordination service (Consul, etcd, ZooKeeper) that are reloaded when
// the stored document changes.
package agentcard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/a2aproject/a2a-go/a2a"
)

// ErrNoCard is returned when a producer has no card for the agent.
var ErrNoCard = errors.New("agent card not available")

// Producer returns the card for the named agent.
type Producer interface {
	Produce(ctx context.Context, name string) (*a2a.AgentCard, error)
}

// ProducerFunc adapts a function to the Producer interface.
type ProducerFunc func(ctx context.Context, name string) (*a2a.AgentCard, error)

func (f ProducerFunc) Produce(ctx context.Context, name string) (*a2a.AgentCard, error) {
	return f(ctx, name)
}

// Fixed always returns the same card.
type Fixed struct {
	card *a2a.AgentCard
}

// NewFixed creates a producer for card.
func NewFixed(card *a2a.AgentCard) *Fixed {
	return &Fixed{card: card}
}

func (f *Fixed) Produce(context.Context, string) (*a2a.AgentCard, error) {
	if f.card == nil {
		return nil, ErrNoCard
	}
	return f.card, nil
}

// Decode parses a JSON agent card and checks the fields a client needs.
func Decode(data []byte) (*a2a.AgentCard, error) {
	var card a2a.AgentCard
	if err := json.Unmarshal(data, &card); err != nil {
		return nil, fmt.Errorf("invalid agent card: %w", err)
	}
	if strings.TrimSpace(card.URL) == "" {
		return nil, fmt.Errorf("invalid agent card %q: url is required", card.Name)
	}
	return &card, nil
}

// Key builds the registry key for an agent: prefix/name or
// prefix/name/version.
func Key(prefix, name, version string) string {
	parts := make([]string, 0, 3)
	if p := strings.TrimRight(prefix, "/"); p != "" {
		parts = append(parts, p)
	}
	parts = append(parts, name)
	if version != "" {
		parts = append(parts, version)
	}
	return strings.Join(parts, "/")
}
