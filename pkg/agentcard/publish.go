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
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/a2aproject/a2a-go/a2a"

	"github.com/kadirpekel/a2abridge/pkg/config/provider"
)

// Publish writes card under prefix/name/version, or prefix/name when the card
// has no version. With latest set a versioned card is also written to
// prefix/name, the key read by registries without a version pin.
func Publish(ctx context.Context, open OpenFunc, prefix string, card *a2a.AgentCard, latest bool) error {
	if card == nil {
		return ErrNoCard
	}
	if strings.TrimSpace(card.Name) == "" {
		return errors.New("invalid agent card: name is required")
	}
	if strings.TrimSpace(card.URL) == "" {
		return fmt.Errorf("invalid agent card %q: url is required", card.Name)
	}

	data, err := json.Marshal(card)
	if err != nil {
		return fmt.Errorf("failed to encode agent card %q: %w", card.Name, err)
	}

	keys := []string{Key(prefix, card.Name, card.Version)}
	if latest && card.Version != "" {
		keys = append(keys, Key(prefix, card.Name, ""))
	}
	for _, key := range keys {
		if err := store(ctx, open, key, data); err != nil {
			return err
		}
		slog.Info("Published agent card", "agent", card.Name, "key", key)
	}
	return nil
}

func store(ctx context.Context, open OpenFunc, key string, data []byte) error {
	source, err := open(key)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", key, err)
	}
	defer source.Close()

	w, ok := source.(provider.Writer)
	if !ok {
		return fmt.Errorf("%s provider cannot store %s", source.Type(), key)
	}
	if err := w.Store(ctx, data); err != nil {
		return fmt.Errorf("failed to publish agent card: %w", err)
	}
	return nil
}
