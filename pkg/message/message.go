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

// Package message defines the internal message model exchanged with a
// remote agent: a Msg carries an ordered list of content blocks (text,
// reasoning, media) plus free-form metadata.
package message

import (
	"maps"
	"strings"

	"github.com/google/uuid"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Msg is a single message in the internal model.
type Msg struct {
	ID       string
	Name     string
	Role     Role
	Metadata map[string]any
	Content  []ContentBlock
}

// New creates a message with a fresh ID.
func New(role Role, blocks ...ContentBlock) *Msg {
	return &Msg{
		ID:       uuid.NewString(),
		Role:     role,
		Metadata: make(map[string]any),
		Content:  blocks,
	}
}

// NewText creates a message holding a single text block.
func NewText(role Role, text string) *Msg {
	return New(role, TextBlock{Text: text})
}

// HasContent reports whether the message carries at least one block.
func (m *Msg) HasContent() bool {
	return m != nil && len(m.Content) > 0
}

// TextContent joins all text blocks with newlines. Thinking and media
// blocks are skipped.
func (m *Msg) TextContent() string {
	if m == nil {
		return ""
	}
	var texts []string
	for _, block := range m.Content {
		if tb, ok := block.(TextBlock); ok {
			texts = append(texts, tb.Text)
		}
	}
	return strings.Join(texts, "\n")
}

// Clone returns a shallow copy with independent metadata and content slices.
func (m *Msg) Clone() *Msg {
	if m == nil {
		return nil
	}
	out := *m
	out.Metadata = maps.Clone(m.Metadata)
	out.Content = append([]ContentBlock(nil), m.Content...)
	return &out
}
