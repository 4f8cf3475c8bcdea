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
	"encoding/json"
	"log/slog"
	"mime"
	"net/url"
	"path"
	"strings"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/google/uuid"

	"github.com/kadirpekel/a2abridge/pkg/message"
)

// MetaBlockType is the part metadata key that tags text parts carrying
// reasoning rather than answer text.
const MetaBlockType = "a2abridge_block_type"

// Fallback media types used when a URL does not reveal a usable type.
const (
	DefaultImageType = "image/*"
	DefaultAudioType = "audio/*"
	DefaultVideoType = "video/*"
)

// ToPart converts one content block to an A2A part. The second return
// value is false for blocks that have no wire representation; callers
// drop those.
func ToPart(block message.ContentBlock) (a2a.Part, bool) {
	switch b := block.(type) {
	case nil:
		return nil, false
	case message.TextBlock:
		return a2a.TextPart{Text: b.Text}, true
	case message.ThinkingBlock:
		return a2a.TextPart{
			Text:     b.Thinking,
			Metadata: map[string]any{MetaBlockType: string(message.BlockThinking)},
		}, true
	case message.MediaBlock:
		return mediaToPart(b)
	default:
		slog.Debug("Dropping content block without A2A mapping", "type", block.BlockType())
		return nil, false
	}
}

func mediaToPart(block message.MediaBlock) (a2a.Part, bool) {
	var file a2a.FilePartContent
	switch src := block.MediaSource().(type) {
	case message.Base64Source:
		file = a2a.FileBytes{
			FileMeta: a2a.FileMeta{MimeType: src.MediaType, Name: newFileName()},
			Bytes:    src.Data,
		}
	case message.URLSource:
		file = a2a.FileURI{
			FileMeta: a2a.FileMeta{
				MimeType: SniffMediaType(src.URL, defaultMediaType(block.BlockType())),
				Name:     newFileName(),
			},
			URI: src.URL,
		}
	default:
		slog.Warn("Unsupported media source", "type", block.BlockType(), "source", src)
		return nil, false
	}
	return a2a.FilePart{File: file}, true
}

// SniffMediaType guesses a media type from the extension of a URL path.
// The fallback is returned when the URL cannot be parsed, the extension is
// unknown, or the detected type belongs to a different family than the
// fallback (image, audio, video).
func SniffMediaType(rawURL, fallback string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fallback
	}
	detected := typeByPath(u.Path)
	if detected == "" {
		return fallback
	}
	if family := mediaFamily(fallback); family != "" && mediaFamily(detected) != family {
		return fallback
	}
	return detected
}

func typeByPath(p string) string {
	ext := strings.ToLower(path.Ext(p))
	if ext == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(mime.TypeByExtension(ext))
	if err != nil {
		return ""
	}
	return mt
}

func mediaFamily(mediaType string) string {
	family, _, _ := strings.Cut(mediaType, "/")
	return strings.ToLower(family)
}

func defaultMediaType(t message.BlockType) string {
	switch t {
	case message.BlockAudio:
		return DefaultAudioType
	case message.BlockVideo:
		return DefaultVideoType
	default:
		return DefaultImageType
	}
}

func newFileName() string {
	return uuid.NewString()
}

// FromPart converts one A2A part to a content block. The second return
// value is false for parts that cannot be represented; callers drop those.
func FromPart(part a2a.Part) (message.ContentBlock, bool) {
	switch p := part.(type) {
	case a2a.TextPart:
		return textToBlock(p.Text, p.Metadata), true
	case *a2a.TextPart:
		return textToBlock(p.Text, p.Metadata), true
	case a2a.FilePart:
		return fileToBlock(p.File)
	case *a2a.FilePart:
		return fileToBlock(p.File)
	case a2a.DataPart:
		return dataToBlock(p.Data)
	case *a2a.DataPart:
		return dataToBlock(p.Data)
	default:
		slog.Debug("Dropping unsupported A2A part", "type", part)
		return nil, false
	}
}

func textToBlock(text string, meta map[string]any) message.ContentBlock {
	if kind, _ := meta[MetaBlockType].(string); kind == string(message.BlockThinking) {
		return message.ThinkingBlock{Thinking: text}
	}
	return message.TextBlock{Text: text}
}

func fileToBlock(file a2a.FilePartContent) (message.ContentBlock, bool) {
	var (
		src       message.Source
		mediaType string
	)
	switch f := file.(type) {
	case a2a.FileBytes:
		src = message.Base64Source{MediaType: f.MimeType, Data: f.Bytes}
		mediaType = f.MimeType
	case a2a.FileURI:
		src = message.URLSource{URL: f.URI}
		mediaType = f.MimeType
		if mediaType == "" {
			if u, err := url.Parse(f.URI); err == nil {
				mediaType = typeByPath(u.Path)
			}
		}
	default:
		slog.Debug("Dropping file part with unknown content", "type", file)
		return nil, false
	}

	switch mediaFamily(mediaType) {
	case "image":
		return message.ImageBlock{Source: src}, true
	case "audio":
		return message.AudioBlock{Source: src}, true
	case "video":
		return message.VideoBlock{Source: src}, true
	default:
		slog.Debug("Dropping file part with unsupported media type", "mime_type", mediaType)
		return nil, false
	}
}

func dataToBlock(data map[string]any) (message.ContentBlock, bool) {
	if data == nil {
		return nil, false
	}
	encoded, err := json.Marshal(data)
	if err != nil {
		slog.Debug("Dropping data part that cannot be encoded", "error", err)
		return nil, false
	}
	return message.TextBlock{Text: string(encoded)}, true
}
