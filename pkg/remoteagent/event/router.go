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
	"log/slog"

	"github.com/a2aproject/a2a-go/a2a"

	"github.com/kadirpekel/a2abridge/pkg/convert"
	"github.com/kadirpekel/a2abridge/pkg/message"
)

// Metadata keys attached to replies assembled from a finished task.
const (
	MetaTaskID    = "a2a_task_id"
	MetaContextID = "a2a_context_id"
	MetaTaskState = "a2a_task_state"
)

// Handler processes one client event of a given Kind.
type Handler func(ctx context.Context, ev ClientEvent, c *Context)

// UpdateHandler processes one task update of a given UpdateKind.
type UpdateHandler func(ctx context.Context, ev TaskUpdateEvent, c *Context)

// Router dispatches client events to handlers.
//
// A Router holds no per-call state and may be shared by all calls of an
// agent. Route must be called sequentially for a given Context.
type Router struct {
	handlers map[Kind]Handler
	updates  map[UpdateKind]UpdateHandler
}

// NewRouter creates a router with the standard handlers installed.
func NewRouter() *Router {
	r := &Router{
		handlers: make(map[Kind]Handler),
		updates:  make(map[UpdateKind]UpdateHandler),
	}
	r.handlers[KindMessage] = handleMessage
	r.handlers[KindTask] = handleTask
	r.handlers[KindTaskUpdate] = r.handleTaskUpdate
	r.updates[UpdateStatus] = handleStatusUpdate
	r.updates[UpdateArtifact] = handleArtifactUpdate
	return r
}

// Handle replaces the handler for kind.
func (r *Router) Handle(kind Kind, h Handler) {
	r.handlers[kind] = h
}

// HandleUpdate replaces the handler for a task update subtype.
func (r *Router) HandleUpdate(kind UpdateKind, h UpdateHandler) {
	r.updates[kind] = h
}

// Route dispatches ev. Events without a handler are logged and ignored.
func (r *Router) Route(ctx context.Context, ev ClientEvent, c *Context) {
	if ev == nil {
		return
	}
	h, ok := r.handlers[ev.Kind()]
	if !ok {
		slog.Debug("Ignoring unhandled client event", "kind", ev.Kind(), "request_id", c.RequestID())
		return
	}
	h(ctx, ev, c)
}

func (r *Router) handleTaskUpdate(ctx context.Context, ev ClientEvent, c *Context) {
	update, ok := ev.(TaskUpdateEvent)
	if !ok {
		return
	}
	c.SetTask(update.Task)

	h, ok := r.updates[update.UpdateKind()]
	if !ok {
		slog.Debug("Ignoring unhandled task update", "kind", update.UpdateKind(), "request_id", c.RequestID())
		return
	}
	h(ctx, update, c)
}

func handleMessage(_ context.Context, ev ClientEvent, c *Context) {
	msg, ok := ev.(MessageEvent)
	if !ok || msg.Message == nil {
		return
	}
	c.setContextID(msg.Message.ContextID)
	reply := convert.FromMessage(msg.Message)
	if msg.Message.TaskID != "" {
		reply.Metadata[MetaTaskID] = string(msg.Message.TaskID)
	}
	if msg.Message.ContextID != "" {
		reply.Metadata[MetaContextID] = msg.Message.ContextID
	}
	c.Complete(reply)
}

func handleTask(_ context.Context, ev ClientEvent, c *Context) {
	te, ok := ev.(TaskEvent)
	if !ok || te.Task == nil {
		return
	}
	c.SetTask(te.Task)
	if !endsCall(te.Task.Status.State) {
		return
	}
	c.Complete(taskReply(te.Task))
}

func handleStatusUpdate(ctx context.Context, ev TaskUpdateEvent, c *Context) {
	status, ok := ev.Update.(*a2a.TaskStatusUpdateEvent)
	if !ok || status == nil {
		return
	}
	if status.Final {
		task := c.Task()
		if task == nil {
			task = &a2a.Task{ID: status.TaskID, ContextID: status.ContextID, Status: status.Status}
		}
		c.Complete(taskReply(task))
		return
	}
	if status.Status.Message == nil {
		return
	}
	c.Notify(ctx, convert.FromMessage(status.Status.Message), false)
}

func handleArtifactUpdate(ctx context.Context, ev TaskUpdateEvent, c *Context) {
	update, ok := ev.Update.(*a2a.TaskArtifactUpdateEvent)
	if !ok || update == nil || update.Artifact == nil {
		return
	}
	c.Notify(ctx, convert.FromArtifact(update.Artifact), update.LastChunk)
}

// endsCall reports whether a task in state s will receive no further
// updates without new input from the caller.
func endsCall(s a2a.TaskState) bool {
	return s.Terminal() || s == a2a.TaskStateInputRequired
}

// taskReply assembles the reply for a finished task from its artifacts.
// When the artifacts carry no content the status message is used instead,
// so failures and input requests still reach the caller.
func taskReply(task *a2a.Task) *message.Msg {
	reply := convert.FromArtifacts(task.Artifacts)
	if len(reply.Content) == 0 && task.Status.Message != nil {
		fallback := convert.FromMessage(task.Status.Message)
		reply.Content = fallback.Content
		if reply.ID == "" {
			reply.ID = fallback.ID
		}
	}
	reply.Metadata[MetaTaskID] = string(task.ID)
	if task.ContextID != "" {
		reply.Metadata[MetaContextID] = task.ContextID
	}
	reply.Metadata[MetaTaskState] = string(task.Status.State)
	return reply
}
