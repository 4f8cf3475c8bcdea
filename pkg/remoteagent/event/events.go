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

// Package event routes remote task events into a per-call session context.
//
// The transport turns every item of the remote stream into a ClientEvent.
// The Router dispatches it first by Kind and then, for task updates, by
// UpdateKind. Handlers update the task snapshot held by the Context, forward
// intermediate output to observers, and fulfil the Context's Sink once a
// terminal event arrives.
package event

import (
	"github.com/a2aproject/a2a-go/a2a"
)

// Kind identifies the outer category of a client event.
type Kind int

const (
	KindUnknown Kind = iota
	KindMessage
	KindTaskUpdate
	KindTask
)

func (k Kind) String() string {
	switch k {
	case KindMessage:
		return "message"
	case KindTaskUpdate:
		return "task_update"
	case KindTask:
		return "task"
	default:
		return "unknown"
	}
}

// UpdateKind identifies the subtype of a task update.
type UpdateKind int

const (
	UpdateUnknown UpdateKind = iota
	UpdateStatus
	UpdateArtifact
)

func (k UpdateKind) String() string {
	switch k {
	case UpdateStatus:
		return "status"
	case UpdateArtifact:
		return "artifact"
	default:
		return "unknown"
	}
}

// ClientEvent is one event received from the remote agent.
type ClientEvent interface {
	Kind() Kind
}

// MessageEvent carries a direct reply message. It always ends the call.
type MessageEvent struct {
	Message *a2a.Message
}

func (MessageEvent) Kind() Kind { return KindMessage }

// TaskEvent carries a full task object, as returned by servers that answer
// without streaming incremental updates.
type TaskEvent struct {
	Task *a2a.Task
}

func (TaskEvent) Kind() Kind { return KindTask }

// TaskUpdateEvent carries an incremental update together with the task
// snapshot that results from applying it.
type TaskUpdateEvent struct {
	Task *a2a.Task
	// Update is a *a2a.TaskStatusUpdateEvent or *a2a.TaskArtifactUpdateEvent.
	Update a2a.Event
}

func (TaskUpdateEvent) Kind() Kind { return KindTaskUpdate }

// UpdateKind reports the subtype of the carried update.
func (e TaskUpdateEvent) UpdateKind() UpdateKind {
	switch e.Update.(type) {
	case *a2a.TaskStatusUpdateEvent:
		return UpdateStatus
	case *a2a.TaskArtifactUpdateEvent:
		return UpdateArtifact
	default:
		return UpdateUnknown
	}
}
