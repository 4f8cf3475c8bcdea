package remoteagent

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/a2abridge/pkg/agentcard"
	"github.com/kadirpekel/a2abridge/pkg/hook"
	"github.com/kadirpekel/a2abridge/pkg/message"
	"github.com/kadirpekel/a2abridge/pkg/remoteagent/event"
	"github.com/kadirpekel/a2abridge/pkg/transport"
)

// mockClient runs SendFunc on its own goroutine like a real transport.
type mockClient struct {
	SendFunc   func(ctx context.Context, req *a2a.Message, onEvent transport.EventHandler, onError transport.ErrorHandler)
	CancelFunc func(ctx context.Context, taskID string) error

	closed atomic.Bool
	req    chan *a2a.Message
}

func newMockClient() *mockClient {
	return &mockClient{req: make(chan *a2a.Message, 1)}
}

func (m *mockClient) Send(ctx context.Context, req *a2a.Message, onEvent transport.EventHandler, onError transport.ErrorHandler) {
	m.req <- req
	if m.SendFunc != nil {
		go m.SendFunc(ctx, req, onEvent, onError)
	}
}

func (m *mockClient) Cancel(ctx context.Context, taskID string) error {
	if m.CancelFunc != nil {
		return m.CancelFunc(ctx, taskID)
	}
	return nil
}

func (m *mockClient) Close() error {
	m.closed.Store(true)
	return nil
}

func testCard() *a2a.AgentCard {
	return &a2a.AgentCard{Name: "remote", URL: "http://remote.test/a2a"}
}

func newTestAgent(t *testing.T, client *mockClient, opts ...func(*Config)) *Agent {
	t.Helper()
	cfg := Config{
		Name:         "remote",
		CardProducer: agentcard.NewFixed(testCard()),
		ClientFactory: transport.FactoryFunc(func(context.Context, *a2a.AgentCard) (transport.Client, error) {
			return client, nil
		}),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	agent, err := New(cfg)
	require.NoError(t, err)
	return agent
}

func completedTask(req *a2a.Message, text string) *a2a.Task {
	return &a2a.Task{
		ID:        "task-1",
		ContextID: "ctx-1",
		Status:    a2a.TaskStatus{State: a2a.TaskStateCompleted},
		Artifacts: []*a2a.Artifact{{ID: "a1", Parts: []a2a.Part{a2a.TextPart{Text: text}}}},
	}
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{CardProducer: agentcard.NewFixed(testCard())})
	assert.Error(t, err)

	_, err = New(Config{Name: "a"})
	assert.ErrorContains(t, err, "card producer is required")

	_, err = New(Config{Name: "a", CardProducer: agentcard.NewFixed(testCard()), Timeout: -time.Second})
	assert.Error(t, err)

	agent, err := New(Config{Name: "a", CardProducer: agentcard.NewFixed(testCard())})
	require.NoError(t, err)
	assert.Equal(t, StateIdle, agent.State())
	assert.Equal(t, "a", agent.Name())
}

func TestCall_Reply(t *testing.T) {
	client := newMockClient()
	client.SendFunc = func(ctx context.Context, req *a2a.Message, onEvent transport.EventHandler, onError transport.ErrorHandler) {
		onEvent(ctx, event.TaskEvent{Task: completedTask(req, "hello")})
		onError(ctx, transport.ErrStreamClosed)
	}
	agent := newTestAgent(t, client)

	reply, err := agent.Call(context.Background(), message.NewText(message.RoleUser, "hi"))
	require.NoError(t, err)

	assert.Equal(t, "hello", reply.TextContent())
	assert.Equal(t, message.RoleAssistant, reply.Role)
	assert.Equal(t, "task-1", reply.Metadata[event.MetaTaskID])
	assert.Equal(t, StateCompleted, agent.State())
	assert.Equal(t, "ctx-1", agent.ContextID())
	assert.True(t, client.closed.Load())

	req := <-client.req
	assert.NotEmpty(t, req.ID)
	assert.Equal(t, a2a.MessageRoleUser, req.Role)
	assert.Equal(t, a2a.ContentParts{a2a.TextPart{Text: "hi"}}, req.Parts)
	assert.Empty(t, req.ContextID)
}

func TestCall_DirectMessage(t *testing.T) {
	client := newMockClient()
	client.SendFunc = func(ctx context.Context, req *a2a.Message, onEvent transport.EventHandler, onError transport.ErrorHandler) {
		onEvent(ctx, event.MessageEvent{Message: &a2a.Message{
			ID:    "m1",
			Role:  a2a.MessageRoleAgent,
			Parts: []a2a.Part{a2a.TextPart{Text: "direct"}},
		}})
	}
	agent := newTestAgent(t, client)

	reply, err := agent.Call(context.Background(), message.NewText(message.RoleUser, "hi"))
	require.NoError(t, err)
	assert.Equal(t, "direct", reply.TextContent())
	assert.Equal(t, "remote", reply.Name)
}

func TestCall_ContextContinuity(t *testing.T) {
	client := newMockClient()
	client.SendFunc = func(ctx context.Context, req *a2a.Message, onEvent transport.EventHandler, onError transport.ErrorHandler) {
		onEvent(ctx, event.TaskEvent{Task: completedTask(req, "ok")})
	}
	agent := newTestAgent(t, client, func(c *Config) { c.BindTaskID = true })

	_, err := agent.Call(context.Background(), message.NewText(message.RoleUser, "one"))
	require.NoError(t, err)
	first := <-client.req
	assert.Equal(t, a2a.TaskID(first.ID), first.TaskID)

	_, err = agent.Call(context.Background(), message.NewText(message.RoleUser, "two"))
	require.NoError(t, err)
	second := <-client.req
	assert.Equal(t, "ctx-1", second.ContextID)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestCall_StreamError(t *testing.T) {
	client := newMockClient()
	client.SendFunc = func(ctx context.Context, req *a2a.Message, onEvent transport.EventHandler, onError transport.ErrorHandler) {
		onError(ctx, errors.New("connection reset"))
	}
	var failed atomic.Bool
	hooks := hook.NewRegistry(hook.Func(func(_ context.Context, ev hook.Event) error {
		if _, ok := ev.(hook.ErrorEvent); ok {
			failed.Store(true)
		}
		return nil
	}))
	agent := newTestAgent(t, client, func(c *Config) { c.Hooks = hooks })

	_, err := agent.Call(context.Background(), message.NewText(message.RoleUser, "hi"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Equal(t, StateFailed, agent.State())
	assert.True(t, failed.Load())
	assert.True(t, client.closed.Load())
}

func TestCall_StreamClosedWithoutReply(t *testing.T) {
	client := newMockClient()
	client.SendFunc = func(ctx context.Context, req *a2a.Message, onEvent transport.EventHandler, onError transport.ErrorHandler) {
		onError(ctx, transport.ErrStreamClosed)
	}
	agent := newTestAgent(t, client)

	_, err := agent.Call(context.Background(), message.NewText(message.RoleUser, "hi"))
	assert.ErrorIs(t, err, transport.ErrStreamClosed)
}

func TestCall_CardError(t *testing.T) {
	agent, err := New(Config{
		Name: "remote",
		CardProducer: agentcard.ProducerFunc(func(context.Context, string) (*a2a.AgentCard, error) {
			return nil, errors.New("registry down")
		}),
	})
	require.NoError(t, err)

	_, err = agent.Call(context.Background(), message.NewText(message.RoleUser, "hi"))
	assert.ErrorContains(t, err, "registry down")
	assert.Equal(t, StateFailed, agent.State())
}

func TestCall_Timeout(t *testing.T) {
	client := newMockClient()
	agent := newTestAgent(t, client, func(c *Config) { c.Timeout = 20 * time.Millisecond })

	_, err := agent.Call(context.Background(), message.NewText(message.RoleUser, "hi"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, StateFailed, agent.State())
}

func TestCall_Progress(t *testing.T) {
	client := newMockClient()
	client.SendFunc = func(ctx context.Context, req *a2a.Message, onEvent transport.EventHandler, onError transport.ErrorHandler) {
		task := &a2a.Task{ID: "task-1", ContextID: "ctx-1", Status: a2a.TaskStatus{State: a2a.TaskStateWorking}}
		onEvent(ctx, event.TaskEvent{Task: task})
		working := &a2a.TaskStatusUpdateEvent{
			TaskID: "task-1",
			Status: a2a.TaskStatus{
				State:   a2a.TaskStateWorking,
				Message: a2a.NewMessage(a2a.MessageRoleAgent, a2a.TextPart{Text: "thinking"}),
			},
		}
		onEvent(ctx, event.TaskUpdateEvent{Task: task, Update: working})

		done := completedTask(req, "answer")
		final := &a2a.TaskStatusUpdateEvent{TaskID: "task-1", Status: done.Status, Final: true}
		onEvent(ctx, event.TaskUpdateEvent{Task: done, Update: final})
	}

	var (
		mu     sync.Mutex
		chunks []string
		order  []string
	)
	hooks := hook.NewRegistry(hook.Func(func(_ context.Context, ev hook.Event) error {
		mu.Lock()
		defer mu.Unlock()
		order = append(order, ev.EventName())
		if c, ok := ev.(hook.ChunkEvent); ok {
			chunks = append(chunks, c.Chunk.TextContent())
		}
		return nil
	}))
	agent := newTestAgent(t, client, func(c *Config) { c.Hooks = hooks })

	reply, err := agent.Call(context.Background(), message.NewText(message.RoleUser, "hi"))
	require.NoError(t, err)
	assert.Equal(t, "answer", reply.TextContent())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"thinking"}, chunks)
	assert.Equal(t, []string{"pre_call", "chunk", "post_call"}, order)
}

func TestCall_InProgress(t *testing.T) {
	client := newMockClient()
	release := make(chan struct{})
	client.SendFunc = func(ctx context.Context, req *a2a.Message, onEvent transport.EventHandler, onError transport.ErrorHandler) {
		<-release
		onEvent(ctx, event.TaskEvent{Task: completedTask(req, "done")})
	}
	agent := newTestAgent(t, client)

	errCh := make(chan error, 1)
	go func() {
		_, err := agent.Call(context.Background(), message.NewText(message.RoleUser, "first"))
		errCh <- err
	}()

	require.Eventually(t, func() bool { return agent.State() == StateSending }, time.Second, 5*time.Millisecond)

	_, err := agent.Call(context.Background(), message.NewText(message.RoleUser, "second"))
	assert.ErrorIs(t, err, ErrCallInProgress)

	close(release)
	require.NoError(t, <-errCh)
}

func TestInterrupt_Success(t *testing.T) {
	client := newMockClient()
	var cancelled atomic.Value
	client.CancelFunc = func(_ context.Context, taskID string) error {
		cancelled.Store(taskID)
		return nil
	}
	agent := newTestAgent(t, client, func(c *Config) { c.Timeout = 200 * time.Millisecond })

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = agent.Call(context.Background(), message.NewText(message.RoleUser, "hi"))
	}()
	req := <-client.req
	require.Eventually(t, func() bool { return agent.State() == StateSending }, time.Second, 5*time.Millisecond)

	reply := agent.Interrupt(context.Background())

	assert.Equal(t, "Task "+req.ID+" interrupt successfully.", reply.TextContent())
	assert.Equal(t, req.ID, cancelled.Load())
	<-done
}

func TestInterrupt_CancelError(t *testing.T) {
	client := newMockClient()
	client.CancelFunc = func(context.Context, string) error {
		return errors.New("timeout")
	}
	agent := newTestAgent(t, client, func(c *Config) { c.Timeout = 200 * time.Millisecond })

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = agent.Call(context.Background(), message.NewText(message.RoleUser, "hi"))
	}()
	<-client.req
	require.Eventually(t, func() bool { return agent.State() == StateSending }, time.Second, 5*time.Millisecond)

	reply := agent.InterruptWith(context.Background(), message.NewText(message.RoleUser, "stop"))

	assert.Equal(t, "timeout", reply.TextContent())
	assert.Equal(t, "stop", reply.Metadata[MetaInterruptInput])
	<-done
}

func TestInterrupt_UsesObservedTaskID(t *testing.T) {
	client := newMockClient()
	cancelled := make(chan string, 1)
	client.CancelFunc = func(_ context.Context, taskID string) error {
		cancelled <- taskID
		return nil
	}
	seen := make(chan struct{})
	client.SendFunc = func(ctx context.Context, req *a2a.Message, onEvent transport.EventHandler, onError transport.ErrorHandler) {
		onEvent(ctx, event.TaskEvent{Task: &a2a.Task{ID: "remote-task", Status: a2a.TaskStatus{State: a2a.TaskStateWorking}}})
		close(seen)
	}
	agent := newTestAgent(t, client, func(c *Config) { c.Timeout = 200 * time.Millisecond })

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = agent.Call(context.Background(), message.NewText(message.RoleUser, "hi"))
	}()
	<-seen

	agent.Interrupt(context.Background())
	assert.Equal(t, "remote-task", <-cancelled)
	<-done
}

func TestInterrupt_NoActiveCall(t *testing.T) {
	agent := newTestAgent(t, newMockClient())

	reply := agent.Interrupt(context.Background())
	assert.Contains(t, reply.TextContent(), "no running task")
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "sending", StateSending.String())
	assert.True(t, StateClientBuilt.Active())
	assert.False(t, StateCompleted.Active())
}
