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

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/kadirpekel/a2abridge/pkg/hook"
	"github.com/kadirpekel/a2abridge/pkg/message"
	"github.com/kadirpekel/a2abridge/pkg/remoteagent/event"
)

// CallCmd sends one message to a configured agent.
//
// The first interrupt signal cancels the remote task; a second one aborts
// the wait.
type CallCmd struct {
	Agent string   `arg:"" help:"Configured agent name."`
	Text  []string `arg:"" help:"Message text."`
	Quiet bool     `short:"q" help:"Do not print progress updates."`
}

func (c *CallCmd) Run(cli *CLI) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hooks := hook.NewRegistry()
	if !c.Quiet {
		hooks.Register(progressHook(os.Stderr))
	}

	s, err := cli.open(ctx, hooks)
	if err != nil {
		return err
	}
	defer s.Close(context.Background())

	agent, err := s.agents.Agent(c.Agent)
	if err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go watchSignals(ctx, sigCh, agent.Interrupt, func() {
		slog.Info("Aborting call", "agent", c.Agent)
		cancel()
	}, os.Stderr)

	reply, err := agent.Call(ctx, message.NewText(message.RoleUser, strings.Join(c.Text, " ")))
	if err != nil {
		return err
	}

	fmt.Println(reply.TextContent())
	if state, ok := reply.Metadata[event.MetaTaskState].(string); ok && state != "completed" {
		fmt.Fprintf(os.Stderr, "task state: %s\n", state)
	}
	return nil
}

// watchSignals interrupts the remote task on the first signal and aborts
// on the second. It returns when ctx ends or after aborting.
func watchSignals(ctx context.Context, sig <-chan os.Signal, interrupt func(context.Context) *message.Msg, abort func(), w io.Writer) {
	select {
	case <-sig:
	case <-ctx.Done():
		return
	}
	ack := interrupt(context.WithoutCancel(ctx))
	fmt.Fprintln(w, ack.TextContent())

	select {
	case <-sig:
		abort()
	case <-ctx.Done():
	}
}

// progressHook prints intermediate chunks as they arrive.
func progressHook(w io.Writer) hook.Func {
	return func(_ context.Context, ev hook.Event) error {
		chunk, ok := ev.(hook.ChunkEvent)
		if !ok || chunk.Chunk == nil {
			return nil
		}
		text := chunk.Chunk.TextContent()
		if text == "" {
			return nil
		}
		_, err := fmt.Fprintf(w, "[%s] %s\n", chunk.Agent, text)
		return err
	}
}
