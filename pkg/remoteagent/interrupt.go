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

package remoteagent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kadirpekel/a2abridge/pkg/message"
	"github.com/kadirpekel/a2abridge/pkg/transport"
)

// Interrupt cancels the remote task of the running call. See InterruptWith.
func (a *Agent) Interrupt(ctx context.Context) *message.Msg {
	return a.InterruptWith(ctx, nil)
}

// InterruptWith cancels the remote task of the running call and returns an
// acknowledgement. A failed cancellation yields a reply carrying the error
// text. It never fails and does not resolve the pending call, which ends
// when the remote reports the task canceled.
//
// The text of input, when given, is kept on the reply's metadata.
func (a *Agent) InterruptWith(ctx context.Context, input *message.Msg) *message.Msg {
	a.mu.Lock()
	c := a.current
	var client transport.Client
	if c != nil {
		client = c.client
	}
	a.mu.Unlock()

	if client == nil {
		return a.interruptReply(input, fmt.Sprintf("Agent %s has no running task to interrupt.", a.name))
	}

	session := c.session
	target := session.TaskID()
	if target == "" {
		target = session.RequestID()
	}

	if err := client.Cancel(ctx, target); err != nil {
		slog.Warn("Failed to interrupt remote task", "agent", a.name,
			"request_id", session.RequestID(), "task_id", target, "error", err)
		a.recorder.RecordInterrupt(c.ctx, a.name, target, "error")
		return a.interruptReply(input, err.Error())
	}

	slog.Info("Interrupted remote task", "agent", a.name, "request_id", session.RequestID(), "task_id", target)
	a.recorder.RecordInterrupt(c.ctx, a.name, target, "ok")
	return a.interruptReply(input, fmt.Sprintf("Task %s interrupt successfully.", session.RequestID()))
}

func (a *Agent) interruptReply(input *message.Msg, text string) *message.Msg {
	reply := message.NewText(message.RoleAssistant, text)
	reply.Name = a.name
	if input != nil {
		if reply.Metadata == nil {
			reply.Metadata = make(map[string]any)
		}
		reply.Metadata[MetaInterruptInput] = input.TextContent()
	}
	return reply
}
