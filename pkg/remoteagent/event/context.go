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

package event

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/a2aproject/a2a-go/a2a"

	"github.com/kadirpekel/a2abridge/pkg/hook"
	"github.com/kadirpekel/a2abridge/pkg/message"
)

// Context is the state of one in-flight call. It is created before the
// request is sent and dropped when the call is torn down.
type Context struct {
	agent     string
	requestID string
	sink      *Sink
	observers []hook.Hook

	mu        sync.RWMutex
	task      *a2a.Task
	contextID string
}

// NewContext creates the session state for a call identified by requestID.
func NewContext(agent, requestID string, observers []hook.Hook) *Context {
	return &Context{
		agent:     agent,
		requestID: requestID,
		sink:      NewSink(),
		observers: observers,
	}
}

func (c *Context) Agent() string     { return c.agent }
func (c *Context) RequestID() string { return c.requestID }
func (c *Context) Sink() *Sink       { return c.sink }

// Task returns the latest task snapshot, or nil before any task event.
func (c *Context) Task() *a2a.Task {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.task
}

// TaskID returns the id of the observed remote task, or "".
func (c *Context) TaskID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.task == nil {
		return ""
	}
	return string(c.task.ID)
}

// ContextID returns the remote conversation id, or "" if none was seen.
func (c *Context) ContextID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.contextID
}

// SetTask replaces the snapshot.
func (c *Context) SetTask(task *a2a.Task) {
	if task == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.task = task
	if task.ContextID != "" {
		c.contextID = task.ContextID
	}
}

func (c *Context) setContextID(id string) {
	if id == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.contextID = id
}

// Notify delivers an intermediate chunk to every observer in order.
func (c *Context) Notify(ctx context.Context, chunk *message.Msg, last bool) {
	if len(c.observers) == 0 {
		return
	}
	hook.Dispatch(ctx, c.observers, hook.ChunkEvent{
		Agent:     c.agent,
		RequestID: c.requestID,
		TaskID:    c.TaskID(),
		Chunk:     chunk,
		Last:      last,
	})
}

// Complete fulfils the sink with reply. A second fulfilment is rejected
// and logged; the first result stays.
func (c *Context) Complete(reply *message.Msg) {
	if err := c.sink.Success(reply); err != nil {
		c.logRejected(err)
	}
}

// Fail fulfils the sink with err unless it already holds an outcome.
func (c *Context) Fail(err error) {
	if serr := c.sink.Error(err); serr != nil {
		c.logRejected(serr)
	}
}

func (c *Context) logRejected(err error) {
	if errors.Is(err, ErrAlreadyFulfilled) {
		slog.Error("Dropping result for already completed call",
			"agent", c.agent, "request_id", c.requestID, "task_id", c.TaskID())
		return
	}
	slog.Error("Failed to store call result", "request_id", c.requestID, "error", err)
}
