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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/a2aproject/a2a-go/a2aclient"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/kadirpekel/a2abridge/pkg/auth"
)

const (
	// DefaultPollInterval is used to poll non-streaming agents for task state.
	DefaultPollInterval = time.Second

	// DefaultCloseTimeout bounds how long Close waits for a running event
	// handler.
	DefaultCloseTimeout = 5 * time.Second
)

// ErrClientClosed is reported by Send on a closed client.
var ErrClientClosed = errors.New("transport client closed")

// Options configures an A2AFactory.
type Options struct {
	// Agent is the local name of the remote agent, used in logs and tokens.
	Agent string

	// Headers are added to every outbound request.
	Headers map[string]string

	// Tokens, when set, adds a bearer token to every outbound request.
	Tokens *auth.TokenSource

	// HTTPClient is the base client; its Transport is wrapped.
	HTTPClient *http.Client

	// EnableGRPC registers the gRPC transport for cards that prefer it.
	EnableGRPC bool

	// PollInterval applies to agents whose card disables streaming.
	PollInterval time.Duration

	// CloseTimeout bounds how long Close waits for an event handler that is
	// still running, such as a slow hook.
	CloseTimeout time.Duration
}

// A2AFactory creates clients backed by the a2a-go SDK.
type A2AFactory struct {
	opts Options
}

// NewA2AFactory creates a factory.
func NewA2AFactory(opts Options) *A2AFactory {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.CloseTimeout <= 0 {
		opts.CloseTimeout = DefaultCloseTimeout
	}
	return &A2AFactory{opts: opts}
}

// HTTPClient returns an HTTP client carrying the configured headers and
// credentials. It is shared with agent card resolution.
func (f *A2AFactory) HTTPClient() *http.Client {
	return NewHTTPClient(f.opts.HTTPClient, f.opts.Agent, f.opts.Headers, f.opts.Tokens)
}

// NewHTTPClient wraps base so that requests carry headers and tokens.
func NewHTTPClient(base *http.Client, agent string, headers map[string]string, tokens *auth.TokenSource) *http.Client {
	var client http.Client
	if base != nil {
		client = *base
	}
	client.Transport = &auth.RoundTripper{
		Base:    client.Transport,
		Headers: headers,
		Tokens:  tokens,
		Agent:   agent,
	}
	return &client
}

// New implements Factory.
func (f *A2AFactory) New(ctx context.Context, card *a2a.AgentCard) (Client, error) {
	if card == nil {
		return nil, fmt.Errorf("agent card is required")
	}

	jsonrpc := a2aclient.WithJSONRPCTransport(f.HTTPClient())

	var (
		client *a2aclient.Client
		err    error
	)
	if f.opts.EnableGRPC {
		interceptor := auth.NewClientAuthInterceptor(f.opts.Agent, f.opts.Headers, f.opts.Tokens)
		grpcTransport := a2aclient.WithGRPCTransport(
			grpc.WithTransportCredentials(insecure.NewCredentials()),
			grpc.WithUnaryInterceptor(interceptor.UnaryClientInterceptor()),
			grpc.WithStreamInterceptor(interceptor.StreamClientInterceptor()),
		)
		client, err = a2aclient.NewFromCard(ctx, card, jsonrpc, grpcTransport)
	} else {
		client, err = a2aclient.NewFromCard(ctx, card, jsonrpc)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create a2a client for %s: %w", card.URL, err)
	}

	return &A2AClient{
		client:       client,
		agent:        f.opts.Agent,
		streaming:    card.Capabilities.Streaming,
		pollInterval: f.opts.PollInterval,
		closeTimeout: f.opts.CloseTimeout,
	}, nil
}

// A2AClient adapts an a2aclient.Client to the Client interface.
type A2AClient struct {
	client       *a2aclient.Client
	agent        string
	streaming    bool
	pollInterval time.Duration
	closeTimeout time.Duration

	mu     sync.Mutex
	closed bool
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Send implements Client. Streaming agents are read through
// SendStreamingMessage; others are sent a single message and polled until
// the task stops.
func (c *A2AClient) Send(ctx context.Context, req *a2a.Message, onEvent EventHandler, onError ErrorHandler) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		onError(ctx, ErrClientClosed)
		return
	}
	streamCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.wg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.wg.Done()
		defer cancel()

		var err error
		if c.streaming {
			err = c.stream(streamCtx, req, onEvent)
		} else {
			err = c.sendAndPoll(streamCtx, req, onEvent)
		}
		if c.isClosed() {
			return
		}
		if err == nil {
			err = ErrStreamClosed
		}
		onError(ctx, err)
	}()
}

func (c *A2AClient) stream(ctx context.Context, req *a2a.Message, onEvent EventHandler) error {
	params := &a2a.MessageSendParams{Message: req}
	acc := &TaskAccumulator{}

	for ev, err := range c.client.SendStreamingMessage(ctx, params) {
		if err != nil {
			return fmt.Errorf("stream from %s failed: %w", c.agent, err)
		}
		if c.isClosed() {
			return nil
		}
		if ce := acc.Apply(ev); ce != nil {
			onEvent(ctx, ce)
		}
	}
	return nil
}

func (c *A2AClient) sendAndPoll(ctx context.Context, req *a2a.Message, onEvent EventHandler) error {
	// A blocking send only returns once the task stops, leaving nothing to
	// poll and no task id to cancel.
	blocking := false
	params := &a2a.MessageSendParams{
		Message: req,
		Config:  &a2a.MessageSendConfig{Blocking: &blocking},
	}
	acc := &TaskAccumulator{}

	res, err := c.client.SendMessage(ctx, params)
	if err != nil {
		return fmt.Errorf("send to %s failed: %w", c.agent, err)
	}

	var task *a2a.Task
	switch r := res.(type) {
	case *a2a.Message:
		onEvent(ctx, acc.Apply(r))
		return nil
	case *a2a.Task:
		onEvent(ctx, acc.Apply(r))
		task = acc.Task()
	default:
		return fmt.Errorf("unexpected send result %T", res)
	}

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for !stopped(task.Status.State) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		if c.isClosed() {
			return nil
		}
		latest, err := c.client.GetTask(ctx, &a2a.TaskQueryParams{ID: task.ID})
		if err != nil {
			return fmt.Errorf("poll task %s failed: %w", task.ID, err)
		}
		onEvent(ctx, acc.Apply(latest))
		task = acc.Task()
	}
	return nil
}

func stopped(s a2a.TaskState) bool {
	return s.Terminal() || s == a2a.TaskStateInputRequired
}

// Cancel implements Client. The SDK error is returned as is so callers can
// show the remote's own message.
func (c *A2AClient) Cancel(ctx context.Context, taskID string) error {
	_, err := c.client.CancelTask(ctx, &a2a.TaskIDParams{ID: a2a.TaskID(taskID)})
	if err != nil {
		slog.Debug("Cancel task failed", "agent", c.agent, "task_id", taskID, "error", err)
		return err
	}
	return nil
}

// Close implements Client. It must not be called from an event handler.
// An event handler still running after CloseTimeout is left to finish on
// its own; it receives no further events.
func (c *A2AClient) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	if c.cancel != nil {
		c.cancel()
	}
	c.mu.Unlock()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	timer := time.NewTimer(c.closeTimeout)
	select {
	case <-done:
		timer.Stop()
	case <-timer.C:
		slog.Warn("Closing a2a client with an event handler still running", "agent", c.agent, "waited", c.closeTimeout)
	}

	if err := c.client.Destroy(); err != nil {
		slog.Debug("Failed to destroy a2a client", "agent", c.agent, "error", err)
		return err
	}
	return nil
}

func (c *A2AClient) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

var (
	_ Factory = (*A2AFactory)(nil)
	_ Client  = (*A2AClient)(nil)
)
