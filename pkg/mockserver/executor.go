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

// Package mockserver runs a scripted A2A agent for tests and local
// experiments.
//
// The executor answers every message according to a Mode: streaming an
// echo of the input as artifact chunks, replying with a direct message,
// failing, or hanging until canceled.
package mockserver

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/a2aproject/a2a-go/a2asrv"
	"github.com/a2aproject/a2a-go/a2asrv/eventqueue"

	"github.com/kadirpekel/a2abridge/pkg/convert"
)

// Mode selects how the executor answers.
type Mode string

const (
	ModeEcho    Mode = "echo"
	ModeMessage Mode = "message"
	ModeFail    Mode = "fail"
	ModeHang    Mode = "hang"
)

// MetaMode is the request metadata key that overrides the configured mode.
const MetaMode = "mock_mode"

// Executor implements a2asrv.AgentExecutor with scripted behavior.
type Executor struct {
	mode       Mode
	chunkDelay time.Duration

	mu      sync.Mutex
	running map[a2a.TaskID]context.CancelFunc
}

// NewExecutor creates an executor answering in mode.
func NewExecutor(mode Mode, chunkDelay time.Duration) *Executor {
	if mode == "" {
		mode = ModeEcho
	}
	return &Executor{
		mode:       mode,
		chunkDelay: chunkDelay,
		running:    make(map[a2a.TaskID]context.CancelFunc),
	}
}

// Execute implements a2asrv.AgentExecutor.
func (e *Executor) Execute(ctx context.Context, reqCtx *a2asrv.RequestContext, queue eventqueue.Queue) error {
	msg := reqCtx.Message
	if msg == nil {
		return fmt.Errorf("message not provided")
	}

	ctx, cancel := context.WithCancel(ctx)
	e.track(reqCtx.TaskID, cancel)
	defer e.untrack(reqCtx.TaskID)

	input := convert.FromMessage(msg).TextContent()
	mode := e.modeFor(msg)
	slog.Debug("Mock executor handling message", "task_id", reqCtx.TaskID, "mode", mode)

	if mode == ModeMessage {
		reply := a2a.NewMessage(a2a.MessageRoleAgent, a2a.TextPart{Text: input})
		reply.ContextID = reqCtx.ContextID
		return queue.Write(ctx, reply)
	}

	if reqCtx.StoredTask == nil {
		if err := queue.Write(ctx, a2a.NewStatusUpdateEvent(reqCtx, a2a.TaskStateSubmitted, nil)); err != nil {
			return fmt.Errorf("failed to write submitted event: %w", err)
		}
	}

	progress := a2a.NewMessageForTask(a2a.MessageRoleAgent, reqCtx, a2a.TextPart{Text: "working"})
	if err := queue.Write(ctx, a2a.NewStatusUpdateEvent(reqCtx, a2a.TaskStateWorking, progress)); err != nil {
		return fmt.Errorf("failed to write working event: %w", err)
	}

	switch mode {
	case ModeFail:
		failure := a2a.NewMessageForTask(a2a.MessageRoleAgent, reqCtx, a2a.TextPart{Text: "scripted failure"})
		ev := a2a.NewStatusUpdateEvent(reqCtx, a2a.TaskStateFailed, failure)
		ev.Final = true
		return queue.Write(ctx, ev)
	case ModeHang:
		<-ctx.Done()
		return nil
	default:
		return e.echo(ctx, reqCtx, queue, input)
	}
}

func (e *Executor) echo(ctx context.Context, reqCtx *a2asrv.RequestContext, queue eventqueue.Queue, input string) error {
	words := strings.Fields(input)
	var artifactID a2a.ArtifactID

	for i, word := range words {
		if i > 0 {
			word = " " + word
		}
		var ev *a2a.TaskArtifactUpdateEvent
		if artifactID == "" {
			ev = a2a.NewArtifactEvent(reqCtx, a2a.TextPart{Text: word})
			artifactID = ev.Artifact.ID
		} else {
			ev = a2a.NewArtifactUpdateEvent(reqCtx, artifactID, a2a.TextPart{Text: word})
		}
		ev.LastChunk = i == len(words)-1
		if err := queue.Write(ctx, ev); err != nil {
			return fmt.Errorf("failed to write artifact: %w", err)
		}
		if err := sleep(ctx, e.chunkDelay); err != nil {
			return nil
		}
	}

	done := a2a.NewStatusUpdateEvent(reqCtx, a2a.TaskStateCompleted, nil)
	done.Final = true
	return queue.Write(ctx, done)
}

// Cancel implements a2asrv.AgentExecutor.
func (e *Executor) Cancel(ctx context.Context, reqCtx *a2asrv.RequestContext, queue eventqueue.Queue) error {
	e.mu.Lock()
	if cancel, ok := e.running[reqCtx.TaskID]; ok {
		cancel()
	}
	e.mu.Unlock()

	ev := a2a.NewStatusUpdateEvent(reqCtx, a2a.TaskStateCanceled, nil)
	ev.Final = true
	return queue.Write(ctx, ev)
}

func (e *Executor) modeFor(msg *a2a.Message) Mode {
	if m, ok := msg.Metadata[MetaMode].(string); ok && m != "" {
		return Mode(m)
	}
	return e.mode
}

func (e *Executor) track(id a2a.TaskID, cancel context.CancelFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.running[id] = cancel
}

func (e *Executor) untrack(id a2a.TaskID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if cancel, ok := e.running[id]; ok {
		cancel()
		delete(e.running, id)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var _ a2asrv.AgentExecutor = (*Executor)(nil)
