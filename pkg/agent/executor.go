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

package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/a2aproject/a2a-go/a2asrv"
	"github.com/a2aproject/a2a-go/a2asrv/eventqueue"
)

// Executor bridges an Agent to a2asrv.AgentExecutor.
//
// Event translation:
//   - New task: TaskStatusUpdateEvent with TaskStateSubmitted
//   - Before the model call: TaskStatusUpdateEvent with TaskStateWorking
//   - Reply: TaskArtifactUpdateEvent carrying the agent's text
//   - On success: TaskStatusUpdateEvent with TaskStateCompleted (final)
//   - On error: TaskStatusUpdateEvent with TaskStateFailed (final)
type Executor struct {
	agent *Agent
}

// NewExecutor creates an A2A executor for the agent.
func NewExecutor(agent *Agent) *Executor {
	return &Executor{agent: agent}
}

// Execute implements a2asrv.AgentExecutor.
func (e *Executor) Execute(ctx context.Context, reqCtx *a2asrv.RequestContext, queue eventqueue.Queue) error {
	msg := reqCtx.Message
	if msg == nil {
		return fmt.Errorf("message not provided")
	}

	text := messagePartsText(msg)
	if text == "" {
		return e.fail(ctx, reqCtx, queue, fmt.Errorf("message contains no text parts"))
	}

	if reqCtx.StoredTask == nil {
		if err := queue.Write(ctx, a2a.NewStatusUpdateEvent(reqCtx, a2a.TaskStateSubmitted, nil)); err != nil {
			return fmt.Errorf("failed to write submitted event: %w", err)
		}
	}

	if err := queue.Write(ctx, a2a.NewStatusUpdateEvent(reqCtx, a2a.TaskStateWorking, nil)); err != nil {
		return fmt.Errorf("failed to write working event: %w", err)
	}

	slog.Debug("executing agent", "agent", e.agent.Name, "task", string(reqCtx.TaskID))

	reply, err := e.agent.Respond(ctx, text)
	if err != nil {
		return e.fail(ctx, reqCtx, queue, err)
	}

	artifact := a2a.NewArtifactEvent(reqCtx, a2a.TextPart{Text: reply})
	artifact.LastChunk = true
	if err := queue.Write(ctx, artifact); err != nil {
		return fmt.Errorf("failed to write artifact event: %w", err)
	}

	completed := a2a.NewStatusUpdateEvent(reqCtx, a2a.TaskStateCompleted, nil)
	completed.Final = true
	if err := queue.Write(ctx, completed); err != nil {
		return fmt.Errorf("failed to write completed event: %w", err)
	}

	return nil
}

// Cancel implements a2asrv.AgentExecutor.
func (e *Executor) Cancel(ctx context.Context, reqCtx *a2asrv.RequestContext, queue eventqueue.Queue) error {
	event := a2a.NewStatusUpdateEvent(reqCtx, a2a.TaskStateCanceled, nil)
	event.Final = true
	return queue.Write(ctx, event)
}

func (e *Executor) fail(ctx context.Context, reqCtx *a2asrv.RequestContext, queue eventqueue.Queue, cause error) error {
	slog.Error("agent execution failed", "agent", e.agent.Name, "error", cause)

	msg := a2a.NewMessageForTask(a2a.MessageRoleAgent, reqCtx, a2a.TextPart{Text: cause.Error()})
	event := a2a.NewStatusUpdateEvent(reqCtx, a2a.TaskStateFailed, msg)
	event.Final = true
	if err := queue.Write(ctx, event); err != nil {
		return fmt.Errorf("failed to write failure event: %w (original: %w)", err, cause)
	}
	return nil
}

func messagePartsText(msg *a2a.Message) string {
	var b strings.Builder
	for _, part := range msg.Parts {
		if tp, ok := part.(a2a.TextPart); ok {
			b.WriteString(tp.Text)
		}
	}
	return b.String()
}

var _ a2asrv.AgentExecutor = (*Executor)(nil)
