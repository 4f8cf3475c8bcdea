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

package convert

import (
	"maps"

	"github.com/a2aproject/a2a-go/a2a"

	"github.com/kadirpekel/a2abridge/pkg/message"
)

// ToRequest folds internal messages into one A2A user message.
//
// Messages without content are skipped. Parts keep message order, then
// block order. Metadata maps are merged with later messages winning on key
// collisions.
func ToRequest(msgs []*message.Msg) *a2a.Message {
	metadata := make(map[string]any)
	var parts []a2a.Part

	for _, msg := range msgs {
		if !msg.HasContent() {
			continue
		}
		maps.Copy(metadata, msg.Metadata)
		parts = append(parts, ToParts(msg.Content)...)
	}

	req := a2a.NewMessage(a2a.MessageRoleUser, parts...)
	if len(metadata) > 0 {
		req.Metadata = metadata
	}
	return req
}

// ToParts converts blocks to parts, dropping blocks without a mapping.
func ToParts(blocks []message.ContentBlock) []a2a.Part {
	parts := make([]a2a.Part, 0, len(blocks))
	for _, block := range blocks {
		if part, ok := ToPart(block); ok {
			parts = append(parts, part)
		}
	}
	return parts
}

// FromParts converts parts to blocks, dropping unsupported parts.
func FromParts(parts []a2a.Part) []message.ContentBlock {
	blocks := make([]message.ContentBlock, 0, len(parts))
	for _, part := range parts {
		if block, ok := FromPart(part); ok {
			blocks = append(blocks, block)
		}
	}
	return blocks
}

// FromMessage converts a single A2A message to an assistant reply.
func FromMessage(msg *a2a.Message) *message.Msg {
	return FromMessages([]*a2a.Message{msg})
}

// FromMessages folds A2A messages into one assistant reply. The reply ID is
// taken from the last message that has parts.
func FromMessages(msgs []*a2a.Message) *message.Msg {
	reply := newReply()
	for _, m := range msgs {
		if m == nil || len(m.Parts) == 0 {
			continue
		}
		reply.ID = m.ID
		maps.Copy(reply.Metadata, m.Metadata)
		reply.Content = append(reply.Content, FromParts(m.Parts)...)
	}
	return reply
}

// FromArtifact converts a single artifact to an assistant reply.
func FromArtifact(artifact *a2a.Artifact) *message.Msg {
	return FromArtifacts([]*a2a.Artifact{artifact})
}

// FromArtifacts folds artifacts into one assistant reply. ID and name are
// taken from the last artifact that has parts.
func FromArtifacts(artifacts []*a2a.Artifact) *message.Msg {
	reply := newReply()
	for _, a := range artifacts {
		if a == nil || len(a.Parts) == 0 {
			continue
		}
		reply.ID = string(a.ID)
		reply.Name = a.Name
		maps.Copy(reply.Metadata, a.Metadata)
		reply.Content = append(reply.Content, FromParts(a.Parts)...)
	}
	return reply
}

func newReply() *message.Msg {
	return &message.Msg{
		Role:     message.RoleAssistant,
		Metadata: make(map[string]any),
		Content:  []message.ContentBlock{},
	}
}
