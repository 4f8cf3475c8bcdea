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

// Package remoteagent exposes a remote A2A agent as a local agent.
//
// Each Call resolves the agent card, builds a transport client, sends the
// folded input as one A2A message and waits until the remote task reaches
// a terminal state. Intermediate progress is forwarded to the agent's hooks
// as chunk events. Interrupt cancels the remote task.
package remoteagent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/google/uuid"

	"github.com/kadirpekel/a2abridge/pkg/agentcard"
	"github.com/kadirpekel/a2abridge/pkg/convert"
	"github.com/kadirpekel/a2abridge/pkg/hook"
	"github.com/kadirpekel/a2abridge/pkg/message"
	"github.com/kadirpekel/a2abridge/pkg/observability"
	"github.com/kadirpekel/a2abridge/pkg/remoteagent/event"
	"github.com/kadirpekel/a2abridge/pkg/transport"
)

// ErrCallInProgress is returned when Call is invoked while another call on
// the same agent is still running.
var ErrCallInProgress = errors.New("a call to this agent is already in progress")

// MetaInterruptInput carries the text of the message passed to
// InterruptWith on the acknowledgement reply.
const MetaInterruptInput = "interrupt_input"

// Config configures an Agent.
type Config struct {
	Name        string
	Description string

	// CardProducer resolves the remote agent card. Required.
	CardProducer agentcard.Producer

	// ClientFactory builds the per-call transport client. Defaults to an
	// A2A factory with no extra headers.
	ClientFactory transport.Factory

	// Hooks observe calls and receive progress chunks.
	Hooks *hook.Registry

	// Timeout bounds how long a call waits for the remote task to finish.
	// Zero waits until the caller's context ends.
	Timeout time.Duration

	// BindTaskID sends the correlation id as the request's task id.
	BindTaskID bool

	Recorder observability.Recorder

	// Router overrides the event router.
	Router *event.Router
}

// Agent is a local handle on a remote A2A agent. Calls on one Agent are
// serialized; Interrupt may run concurrently with a Call.
type Agent struct {
	name        string
	description string
	producer    agentcard.Producer
	factory     transport.Factory
	hooks       *hook.Registry
	timeout     time.Duration
	bindTaskID  bool
	recorder    observability.Recorder
	router      *event.Router

	mu        sync.Mutex
	state     State
	current   *call
	contextID string
}

// call is the state of one in-flight call.
type call struct {
	session *event.Context
	client  transport.Client
	ctx     context.Context
}

// New creates an agent.
func New(cfg Config) (*Agent, error) {
	if cfg.Name == "" {
		return nil, errors.New("remote agent name is required")
	}
	if cfg.CardProducer == nil {
		return nil, fmt.Errorf("remote agent %s: card producer is required", cfg.Name)
	}
	if cfg.ClientFactory == nil {
		cfg.ClientFactory = transport.NewA2AFactory(transport.Options{Agent: cfg.Name})
	}
	if cfg.Hooks == nil {
		cfg.Hooks = hook.NewRegistry()
	}
	if cfg.Recorder == nil {
		cfg.Recorder = observability.Noop()
	}
	if cfg.Router == nil {
		cfg.Router = event.NewRouter()
	}
	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("remote agent %s: timeout must not be negative", cfg.Name)
	}

	return &Agent{
		name:        cfg.Name,
		description: cfg.Description,
		producer:    cfg.CardProducer,
		factory:     cfg.ClientFactory,
		hooks:       cfg.Hooks,
		timeout:     cfg.Timeout,
		bindTaskID:  cfg.BindTaskID,
		recorder:    cfg.Recorder,
		router:      cfg.Router,
	}, nil
}

func (a *Agent) Name() string        { return a.name }
func (a *Agent) Description() string { return a.description }

// State returns the phase of the running call, or the outcome of the last
// one when idle.
func (a *Agent) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// ContextID returns the remote conversation id carried into the next call.
func (a *Agent) ContextID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.contextID
}

// Card resolves the remote agent card.
func (a *Agent) Card(ctx context.Context) (*a2a.AgentCard, error) {
	card, err := a.producer.Produce(ctx, a.name)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve agent card for %s: %w", a.name, err)
	}
	return card, nil
}

// Call sends msgs to the remote agent and waits for its reply.
func (a *Agent) Call(ctx context.Context, msgs ...*message.Msg) (*message.Msg, error) {
	requestID := uuid.NewString()
	c := &call{}

	a.mu.Lock()
	if a.current != nil {
		a.mu.Unlock()
		return nil, ErrCallInProgress
	}
	a.current = c
	a.state = StateIdle
	contextID := a.contextID
	a.mu.Unlock()

	start := time.Now()
	ctx = a.recorder.StartCall(ctx, a.name, requestID)
	c.ctx = ctx
	c.session = event.NewContext(a.name, requestID, a.observers())

	hook.Dispatch(ctx, a.hooks.Hooks(), hook.PreCallEvent{Agent: a.name, RequestID: requestID, Input: msgs})
	slog.Debug("Calling remote agent", "agent", a.name, "request_id", requestID)

	reply, err := a.run(ctx, c, msgs, contextID)
	a.finish(c, err)

	a.recorder.EndCall(ctx, a.name, time.Since(start), err)
	if err != nil {
		slog.Warn("Remote agent call failed", "agent", a.name, "request_id", requestID, "error", err)
		hook.Dispatch(ctx, a.hooks.Hooks(), hook.ErrorEvent{Agent: a.name, RequestID: requestID, Err: err})
		return nil, err
	}
	if reply.Name == "" {
		reply.Name = a.name
	}
	hook.Dispatch(ctx, a.hooks.Hooks(), hook.PostCallEvent{Agent: a.name, RequestID: requestID, Reply: reply})
	return reply, nil
}

func (a *Agent) run(ctx context.Context, c *call, msgs []*message.Msg, contextID string) (*message.Msg, error) {
	card, err := a.Card(ctx)
	if err != nil {
		return nil, err
	}

	client, err := a.factory.New(ctx, card)
	if err != nil {
		return nil, fmt.Errorf("failed to create client for %s: %w", a.name, err)
	}
	a.mu.Lock()
	c.client = client
	a.state = StateClientBuilt
	a.mu.Unlock()

	session := c.session
	req := convert.ToRequest(msgs)
	req.ID = session.RequestID()
	req.ContextID = contextID
	if a.bindTaskID {
		req.TaskID = a2a.TaskID(session.RequestID())
	}

	waitCtx := ctx
	if a.timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	a.setState(StateSending)
	client.Send(waitCtx, req,
		func(ctx context.Context, ev event.ClientEvent) {
			a.recorder.RecordEvent(ctx, a.name, ev.Kind().String())
			a.router.Route(ctx, ev, session)
		},
		func(_ context.Context, err error) {
			if session.Sink().Fulfilled() {
				slog.Debug("Remote stream ended after reply", "agent", a.name,
					"request_id", session.RequestID(), "reason", err)
				return
			}
			if errors.Is(err, transport.ErrStreamClosed) {
				session.Fail(fmt.Errorf("%w before the task finished", err))
				return
			}
			session.Fail(fmt.Errorf("remote agent %s: %w", a.name, err))
		},
	)

	reply, err := session.Sink().Wait(waitCtx)
	if err != nil {
		return nil, fmt.Errorf("waiting for %s: %w", a.name, err)
	}
	return reply, nil
}

// finish tears the call down and records its outcome.
func (a *Agent) finish(c *call, err error) {
	if c.client != nil {
		if cerr := c.client.Close(); cerr != nil {
			slog.Debug("Failed to close transport client", "agent", a.name, "error", cerr)
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if id := c.session.ContextID(); id != "" {
		a.contextID = id
	}
	a.current = nil
	if err != nil {
		a.state = StateFailed
	} else {
		a.state = StateCompleted
	}
}

func (a *Agent) setState(s State) {
	a.mu.Lock()
	a.state = s
	a.mu.Unlock()
}

// observers returns the hooks that receive progress chunks, with the
// recorder in front.
func (a *Agent) observers() []hook.Hook {
	record := hook.Func(func(ctx context.Context, ev hook.Event) error {
		if _, ok := ev.(hook.ChunkEvent); ok {
			a.recorder.RecordChunk(ctx, a.name)
		}
		return nil
	})
	hooks := a.hooks.Hooks()
	out := make([]hook.Hook, 0, len(hooks)+1)
	out = append(out, record)
	return append(out, hooks...)
}
