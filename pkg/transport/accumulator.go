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

package transport

import (
	"log/slog"
	"slices"

	"github.com/a2aproject/a2a-go/a2a"

	"github.com/kadirpekel/a2abridge/pkg/remoteagent/event"
)

// TaskAccumulator folds raw A2A stream events into task snapshots.
//
// Every snapshot it hands out is a fresh value; earlier snapshots are never
// modified by later updates.
type TaskAccumulator struct {
	task *a2a.Task
}

// Task returns the current snapshot, or nil before any task event.
func (a *TaskAccumulator) Task() *a2a.Task {
	return a.task
}

// Apply folds ev into the snapshot and returns the client event to route.
// Unknown events yield nil.
func (a *TaskAccumulator) Apply(ev a2a.Event) event.ClientEvent {
	switch e := ev.(type) {
	case *a2a.Message:
		return event.MessageEvent{Message: e}
	case *a2a.Task:
		a.task = cloneTask(e)
		return event.TaskEvent{Task: a.task}
	case *a2a.TaskStatusUpdateEvent:
		next := a.next(e.TaskID, e.ContextID)
		next.Status = e.Status
		a.task = next
		return event.TaskUpdateEvent{Task: next, Update: e}
	case *a2a.TaskArtifactUpdateEvent:
		next := a.next(e.TaskID, e.ContextID)
		if e.Artifact != nil {
			next.Artifacts = mergeArtifact(next.Artifacts, e.Artifact, e.Append)
		}
		a.task = next
		return event.TaskUpdateEvent{Task: next, Update: e}
	default:
		slog.Debug("Ignoring unknown stream event", "type", ev)
		return nil
	}
}

func (a *TaskAccumulator) next(id a2a.TaskID, contextID string) *a2a.Task {
	if a.task == nil || (id != "" && a.task.ID != id) {
		return &a2a.Task{ID: id, ContextID: contextID}
	}
	return cloneTask(a.task)
}

func cloneTask(t *a2a.Task) *a2a.Task {
	cp := *t
	cp.Artifacts = slices.Clone(t.Artifacts)
	return &cp
}

// mergeArtifact adds a to the list. With appendParts, parts are added to
// an existing artifact of the same id; otherwise that artifact is replaced.
func mergeArtifact(list []*a2a.Artifact, a *a2a.Artifact, appendParts bool) []*a2a.Artifact {
	idx := slices.IndexFunc(list, func(x *a2a.Artifact) bool { return x != nil && x.ID == a.ID })
	if idx < 0 {
		return append(list, a)
	}
	if !appendParts {
		list[idx] = a
		return list
	}
	merged := *list[idx]
	merged.Parts = append(slices.Clone(merged.Parts), a.Parts...)
	if a.Name != "" {
		merged.Name = a.Name
	}
	list[idx] = &merged
	return list
}
