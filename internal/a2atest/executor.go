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
	"sync/atomic"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/a2aproject/a2a-go/a2asrv"
	"github.com/a2aproject/a2a-go/a2asrv/eventqueue"
)

// Mode selects the executor's reply shape.
type Mode int

const (
	// ModeTask: submitted (new tasks), working, artifact echo, completed.
	ModeTask Mode = iota
	// ModeMessage replies with a single agent message echoing the parts.
	ModeMessage
	// ModeFlood emits FloodCount working updates before completing.
	ModeFlood
	// ModeFail moves the task to failed.
	ModeFail
)

// FailureText is the status message of ModeFail tasks.
const FailureText = "echo failure requested"

// EchoExecutor implements a2asrv.AgentExecutor.
type EchoExecutor struct {
	Mode       Mode
	FloodCount int

	executions atomic.Int64
}

// Executions reports how many times Execute ran.
func (e *EchoExecutor) Executions() int {
	return int(e.executions.Load())
}

// Execute implements a2asrv.AgentExecutor.
func (e *EchoExecutor) Execute(ctx context.Context, reqCtx *a2asrv.RequestContext, queue eventqueue.Queue) error {
	e.executions.Add(1)

	msg := reqCtx.Message
	if msg == nil {
		return fmt.Errorf("message not provided")
	}

	if e.Mode == ModeMessage {
		reply := a2a.NewMessage(a2a.MessageRoleAgent, msg.Parts...)
		reply.ContextID = reqCtx.ContextID
		return queue.Write(ctx, reply)
	}

	if reqCtx.StoredTask == nil {
		if err := queue.Write(ctx, a2a.NewStatusUpdateEvent(reqCtx, a2a.TaskStateSubmitted, nil)); err != nil {
			return fmt.Errorf("failed to write submitted event: %w", err)
		}
	}

	switch e.Mode {
	case ModeFail:
		status := a2a.NewStatusUpdateEvent(reqCtx, a2a.TaskStateFailed,
			a2a.NewMessageForTask(a2a.MessageRoleAgent, reqCtx, a2a.TextPart{Text: FailureText}))
		status.Final = true
		return queue.Write(ctx, status)

	case ModeFlood:
		for i := range e.FloodCount {
			working := a2a.NewStatusUpdateEvent(reqCtx, a2a.TaskStateWorking,
				a2a.NewMessageForTask(a2a.MessageRoleAgent, reqCtx, a2a.TextPart{Text: fmt.Sprintf("tick %d", i+1)}))
			if err := queue.Write(ctx, working); err != nil {
				return err
			}
		}

	default:
		if err := queue.Write(ctx, a2a.NewStatusUpdateEvent(reqCtx, a2a.TaskStateWorking, nil)); err != nil {
			return err
		}
		artifact := a2a.NewArtifactEvent(reqCtx, msg.Parts...)
		artifact.Artifact.Name = "echo"
		artifact.LastChunk = true
		if err := queue.Write(ctx, artifact); err != nil {
			return err
		}
	}

	completed := a2a.NewStatusUpdateEvent(reqCtx, a2a.TaskStateCompleted, nil)
	completed.Final = true
	return queue.Write(ctx, completed)
}

// Cancel implements a2asrv.AgentExecutor.
func (e *EchoExecutor) Cancel(ctx context.Context, reqCtx *a2asrv.RequestContext, queue eventqueue.Queue) error {
	event := a2a.NewStatusUpdateEvent(reqCtx, a2a.TaskStateCanceled, nil)
	event.Final = true
	return queue.Write(ctx, event)
}

var _ a2asrv.AgentExecutor = (*EchoExecutor)(nil)
