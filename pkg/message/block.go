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

package message

// BlockType tags a content block.
type BlockType string

const (
	BlockText     BlockType = "text"
	BlockThinking BlockType = "thinking"
	BlockImage    BlockType = "image"
	BlockAudio    BlockType = "audio"
	BlockVideo    BlockType = "video"
	BlockToolUse  BlockType = "tool_use"
)

// ContentBlock is the smallest unit of message content.
type ContentBlock interface {
	BlockType() BlockType
}

// TextBlock is plain text.
type TextBlock struct {
	Text string
}

func (TextBlock) BlockType() BlockType { return BlockText }

// ThinkingBlock is reasoning text produced by a model.
type ThinkingBlock struct {
	Thinking string
}

func (ThinkingBlock) BlockType() BlockType { return BlockThinking }

// MediaBlock is implemented by blocks whose payload is a Source.
type MediaBlock interface {
	ContentBlock
	MediaSource() Source
}

// ImageBlock carries an image.
type ImageBlock struct {
	Source Source
}

func (ImageBlock) BlockType() BlockType  { return BlockImage }
func (b ImageBlock) MediaSource() Source { return b.Source }

// AudioBlock carries an audio clip.
type AudioBlock struct {
	Source Source
}

func (AudioBlock) BlockType() BlockType  { return BlockAudio }
func (b AudioBlock) MediaSource() Source { return b.Source }

// VideoBlock carries a video clip.
type VideoBlock struct {
	Source Source
}

func (VideoBlock) BlockType() BlockType  { return BlockVideo }
func (b VideoBlock) MediaSource() Source { return b.Source }

// ToolUseBlock records a tool invocation requested by a model. It only
// exists in the internal model and has no A2A representation.
type ToolUseBlock struct {
	ID    string
	Name  string
	Input map[string]any
}

func (ToolUseBlock) BlockType() BlockType { return BlockToolUse }

// Source locates media content.
type Source interface {
	isSource()
}

// Base64Source holds inline base64 data.
type Base64Source struct {
	MediaType string
	Data      string
}

func (Base64Source) isSource() {}

// URLSource references media by URL.
type URLSource struct {
	URL string
}

func (URLSource) isSource() {}
