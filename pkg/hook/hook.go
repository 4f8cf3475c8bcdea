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

// Package hook delivers call lifecycle and progress notifications to
// registered observers.
//
// Hooks run synchronously on the goroutine that raised the event, ordered by
// ascending priority and then by registration order. A hook error is logged
// and never aborts the call.
package hook

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/kadirpekel/a2abridge/pkg/message"
)

// Event is a notification raised during a remote call.
type Event interface {
	// EventName returns a short name used in logs.
	EventName() string
}

// PreCallEvent is raised before the request is sent.
type PreCallEvent struct {
	Agent     string
	RequestID string
	Input     []*message.Msg
}

// PostCallEvent is raised after the call produced its reply.
type PostCallEvent struct {
	Agent     string
	RequestID string
	Reply     *message.Msg
}

// ErrorEvent is raised when the call fails.
type ErrorEvent struct {
	Agent     string
	RequestID string
	Err       error
}

// ChunkEvent carries an intermediate message produced while the remote
// task is still running.
type ChunkEvent struct {
	Agent     string
	RequestID string
	TaskID    string
	Chunk     *message.Msg
	// Last is true for the final chunk of an artifact stream.
	Last bool
}

func (PreCallEvent) EventName() string  { return "pre_call" }
func (PostCallEvent) EventName() string { return "post_call" }
func (ErrorEvent) EventName() string    { return "error" }
func (ChunkEvent) EventName() string    { return "chunk" }

// Hook observes call events.
type Hook interface {
	Priority() int
	OnEvent(ctx context.Context, ev Event) error
}

// Func adapts a function to the Hook interface with priority zero.
type Func func(ctx context.Context, ev Event) error

func (f Func) Priority() int { return 0 }

func (f Func) OnEvent(ctx context.Context, ev Event) error { return f(ctx, ev) }

// WithPriority wraps a hook function with an explicit priority.
func WithPriority(priority int, fn func(ctx context.Context, ev Event) error) Hook {
	return &prioritized{priority: priority, fn: fn}
}

type prioritized struct {
	priority int
	fn       func(ctx context.Context, ev Event) error
}

func (p *prioritized) Priority() int { return p.priority }

func (p *prioritized) OnEvent(ctx context.Context, ev Event) error { return p.fn(ctx, ev) }

// Registry holds hooks in dispatch order.
type Registry struct {
	mu    sync.RWMutex
	hooks []Hook
}

// NewRegistry creates a registry holding the given hooks.
func NewRegistry(hooks ...Hook) *Registry {
	r := &Registry{}
	for _, h := range hooks {
		r.Register(h)
	}
	return r
}

// Register adds a hook. Nil hooks are ignored.
func (r *Registry) Register(h Hook) {
	if h == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks = append(r.hooks, h)
	slices.SortStableFunc(r.hooks, func(a, b Hook) int {
		return a.Priority() - b.Priority()
	})
}

// Hooks returns a snapshot of the registered hooks in dispatch order.
func (r *Registry) Hooks() []Hook {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.hooks)
}

// Len returns the number of registered hooks.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.hooks)
}

// Dispatch delivers ev to every hook in order.
func Dispatch(ctx context.Context, hooks []Hook, ev Event) {
	for _, h := range hooks {
		if err := h.OnEvent(ctx, ev); err != nil {
			slog.Warn("Hook failed", "event", ev.EventName(), "error", err)
		}
	}
}
