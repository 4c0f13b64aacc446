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

package client

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/a2aproject/a2a-go/a2a"
)

// Event kinds reported by Event.Kind.
const (
	KindMessage  = "message"
	KindTask     = "task"
	KindStatus   = "status"
	KindArtifact = "artifact"
	KindUnknown  = "unknown"
)

// Event is one item of an agent response. Exactly one of Message or Task is
// set. For task events Update carries the status or artifact update that
// produced the snapshot, nil when the agent sent the full task. Events of a
// type the client does not recognize carry only Update.
type Event struct {
	Message *a2a.Message
	Task    *a2a.Task
	Update  a2a.Event
}

// Kind names the event shape.
func (e Event) Kind() string {
	switch {
	case e.Message != nil:
		return KindMessage
	case e.Task == nil && e.Update != nil:
		return KindUnknown
	case e.Update == nil:
		return KindTask
	}
	switch e.Update.(type) {
	case *a2a.TaskStatusUpdateEvent:
		return KindStatus
	case *a2a.TaskArtifactUpdateEvent:
		return KindArtifact
	default:
		return KindTask
	}
}

// TaskTracker folds a stream of events into task snapshots.
type TaskTracker struct {
	mu    sync.Mutex
	tasks map[a2a.TaskID]*a2a.Task
	last  a2a.TaskID
}

// NewTaskTracker returns an empty tracker.
func NewTaskTracker() *TaskTracker {
	return &TaskTracker{tasks: make(map[a2a.TaskID]*a2a.Task)}
}

// Apply folds ev and returns the resulting Event. Unrecognized event types
// are passed through as a KindUnknown event. ok is false only for a nil
// event.
func (t *TaskTracker) Apply(ev a2a.Event) (out Event, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch e := ev.(type) {
	case *a2a.Message:
		return Event{Message: e}, true

	case *a2a.Task:
		task := cloneTask(e)
		t.tasks[task.ID] = task
		t.last = task.ID
		return Event{Task: cloneTask(task)}, true

	case *a2a.TaskStatusUpdateEvent:
		task := t.ensure(e.TaskID, e.ContextID)
		if prev := task.Status.Message; prev != nil {
			task.History = append(task.History, prev)
		}
		task.Status = e.Status
		if len(e.Metadata) > 0 {
			if task.Metadata == nil {
				task.Metadata = make(map[string]any, len(e.Metadata))
			}
			maps.Copy(task.Metadata, e.Metadata)
		}
		return Event{Task: cloneTask(task), Update: e}, true

	case *a2a.TaskArtifactUpdateEvent:
		task := t.ensure(e.TaskID, e.ContextID)
		applyArtifact(task, e)
		return Event{Task: cloneTask(task), Update: e}, true

	case nil:
		return Event{}, false

	default:
		slog.Debug("Unrecognized event type", "type", fmt.Sprintf("%T", ev))
		return Event{Update: ev}, true
	}
}

// Task returns the current snapshot of id.
func (t *TaskTracker) Task(id a2a.TaskID) (*a2a.Task, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	task, ok := t.tasks[id]
	if !ok {
		return nil, false
	}
	return cloneTask(task), true
}

// Current returns the most recently touched task.
func (t *TaskTracker) Current() *a2a.Task {
	t.mu.Lock()
	defer t.mu.Unlock()
	if task, ok := t.tasks[t.last]; ok {
		return cloneTask(task)
	}
	return nil
}

func (t *TaskTracker) ensure(id a2a.TaskID, contextID string) *a2a.Task {
	t.last = id
	if task, ok := t.tasks[id]; ok {
		return task
	}
	task := &a2a.Task{
		ID:        id,
		ContextID: contextID,
		Status:    a2a.TaskStatus{State: a2a.TaskStateSubmitted},
	}
	t.tasks[id] = task
	return task
}

func applyArtifact(task *a2a.Task, e *a2a.TaskArtifactUpdateEvent) {
	if e.Artifact == nil {
		return
	}
	for i, existing := range task.Artifacts {
		if existing.ID != e.Artifact.ID {
			continue
		}
		if e.Append {
			merged := *existing
			merged.Parts = append(slices.Clone(existing.Parts), e.Artifact.Parts...)
			task.Artifacts[i] = &merged
		} else {
			replaced := *e.Artifact
			task.Artifacts[i] = &replaced
		}
		return
	}
	added := *e.Artifact
	task.Artifacts = append(task.Artifacts, &added)
}

func cloneTask(task *a2a.Task) *a2a.Task {
	cp := *task
	cp.Artifacts = slices.Clone(task.Artifacts)
	cp.History = slices.Clone(task.History)
	cp.Metadata = maps.Clone(task.Metadata)
	return &cp
}

// isSettled reports whether a polled task needs no further polling.
func isSettled(state a2a.TaskState) bool {
	return state.Terminal() || state == a2a.TaskStateInputRequired || state == a2a.TaskStateAuthRequired
}
