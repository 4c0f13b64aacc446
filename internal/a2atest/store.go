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

package a2atest

import (
	"context"
	"fmt"
	"sync"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/a2aproject/a2a-go/a2asrv"
)

// TaskStore is an in-memory a2asrv.TaskStore that can be seeded.
type TaskStore struct {
	mu    sync.RWMutex
	tasks map[a2a.TaskID]a2a.Task
}

// NewTaskStore returns a store holding seed.
func NewTaskStore(seed ...*a2a.Task) *TaskStore {
	s := &TaskStore{tasks: make(map[a2a.TaskID]a2a.Task, len(seed))}
	for _, t := range seed {
		s.tasks[t.ID] = *t
	}
	return s
}

// Save implements a2asrv.TaskStore.
func (s *TaskStore) Save(ctx context.Context, task *a2a.Task) error {
	if task == nil {
		return fmt.Errorf("task is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[task.ID] = *task
	return nil
}

// Get implements a2asrv.TaskStore.
func (s *TaskStore) Get(ctx context.Context, taskID a2a.TaskID) (*a2a.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[taskID]
	if !ok {
		return nil, a2a.ErrTaskNotFound
	}
	return &t, nil
}

// Adopt stores a submitted task for msg when msg names a task the store
// does not hold, and reports whether it did. The task takes the message's
// context id, or a fresh one.
func (s *TaskStore) Adopt(msg *a2a.Message) bool {
	if msg == nil || msg.TaskID == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[msg.TaskID]; ok {
		return false
	}
	contextID := msg.ContextID
	if contextID == "" {
		contextID = a2a.NewContextID()
	}
	s.tasks[msg.TaskID] = a2a.Task{
		ID:        msg.TaskID,
		ContextID: contextID,
		Status:    a2a.TaskStatus{State: a2a.TaskStateSubmitted},
	}
	return true
}

// Len reports how many tasks are stored.
func (s *TaskStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}

// PendingTask returns a task in input-required state, which accepts
// follow-up messages.
func PendingTask(id, contextID string) *a2a.Task {
	return &a2a.Task{
		ID:        a2a.TaskID(id),
		ContextID: contextID,
		Status:    a2a.TaskStatus{State: a2a.TaskStateInputRequired},
	}
}

var _ a2asrv.TaskStore = (*TaskStore)(nil)
