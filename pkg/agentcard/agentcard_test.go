package agentcard

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/a2abridge/pkg/config/provider"
	"github.com/kadirpekel/a2abridge/pkg/mockserver"
)

type fakeProvider struct {
	mu      sync.Mutex
	data    []byte
	loadErr error
	loads   int
	changes chan struct{}
	closed  bool
}

func newFakeProvider(data string) *fakeProvider {
	return &fakeProvider{data: []byte(data), changes: make(chan struct{}, 1)}
}

func (p *fakeProvider) Type() provider.Type { return provider.TypeFile }

func (p *fakeProvider) Load(context.Context) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loads++
	if p.loadErr != nil {
		return nil, p.loadErr
	}
	return p.data, nil
}

func (p *fakeProvider) Watch(context.Context) (<-chan struct{}, error) {
	return p.changes, nil
}

func (p *fakeProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *fakeProvider) set(data string) {
	p.mu.Lock()
	p.data = []byte(data)
	p.mu.Unlock()
	p.changes <- struct{}{}
}

func (p *fakeProvider) loadCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loads
}

func TestFixed(t *testing.T) {
	card := &a2a.AgentCard{Name: "a", URL: "http://a"}

	got, err := NewFixed(card).Produce(context.Background(), "a")
	require.NoError(t, err)
	assert.Same(t, card, got)

	_, err = NewFixed(nil).Produce(context.Background(), "a")
	assert.ErrorIs(t, err, ErrNoCard)
}

func TestProducerFunc(t *testing.T) {
	p := ProducerFunc(func(_ context.Context, name string) (*a2a.AgentCard, error) {
		return &a2a.AgentCard{Name: name}, nil
	})

	card, err := p.Produce(context.Background(), "weather")
	require.NoError(t, err)
	assert.Equal(t, "weather", card.Name)
}

func TestDecode(t *testing.T) {
	card, err := Decode([]byte(`{"name":"a","url":"http://a/rpc","version":"1"}`))
	require.NoError(t, err)
	assert.Equal(t, "http://a/rpc", card.URL)

	_, err = Decode([]byte(`{"name":"a"}`))
	assert.ErrorContains(t, err, "url is required")

	_, err = Decode([]byte(`not json`))
	assert.Error(t, err)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "agents/weather", Key("agents/", "weather", ""))
	assert.Equal(t, "agents/weather/v2", Key("agents", "weather", "v2"))
	assert.Equal(t, "weather", Key("", "weather", ""))
}

func TestWellKnown(t *testing.T) {
	var hits atomic.Int32
	mock := mockserver.New(mockserver.Config{Name: "echo"})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		mock.Handler().ServeHTTP(w, r)
	}))
	defer srv.Close()

	wk := NewWellKnown(srv.URL, srv.Client(), time.Minute)
	now := time.Now()
	wk.now = func() time.Time { return now }

	card, err := wk.Produce(context.Background(), "echo")
	require.NoError(t, err)
	assert.Equal(t, "echo", card.Name)
	assert.Equal(t, srv.URL+mockserver.RPCPath, card.URL)

	_, err = wk.Produce(context.Background(), "echo")
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load())

	now = now.Add(2 * time.Minute)
	_, err = wk.Produce(context.Background(), "echo")
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
}

func TestWellKnown_NoCache(t *testing.T) {
	var hits atomic.Int32
	mock := mockserver.New(mockserver.Config{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		mock.Handler().ServeHTTP(w, r)
	}))
	defer srv.Close()

	wk := NewWellKnown(srv.URL, nil, 0)
	for range 2 {
		_, err := wk.Produce(context.Background(), "mock")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(2), hits.Load())
}

func TestWellKnown_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := NewWellKnown(srv.URL, nil, 0).Produce(context.Background(), "missing")
	assert.ErrorContains(t, err, "failed to resolve agent card for missing")
}

func TestWatched_Reload(t *testing.T) {
	src := newFakeProvider(`{"name":"v1","url":"http://a/1"}`)
	w := NewWatched(src)
	defer w.Close()

	card, err := w.Produce(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, "v1", card.Name)

	src.set(`{"name":"v2","url":"http://a/2"}`)
	require.Eventually(t, func() bool {
		card, err := w.Produce(context.Background(), "a")
		return err == nil && card.Name == "v2"
	}, time.Second, 10*time.Millisecond)
}

func TestWatched_InvalidUpdateKeepsCard(t *testing.T) {
	src := newFakeProvider(`{"name":"v1","url":"http://a/1"}`)
	w := NewWatched(src)
	defer w.Close()

	_, err := w.Produce(context.Background(), "a")
	require.NoError(t, err)

	src.set(`{"name":"broken"`)
	require.Eventually(t, func() bool { return src.loadCount() == 2 }, time.Second, 10*time.Millisecond)

	card, err := w.Produce(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, "v1", card.Name)
}

func TestWatched_LoadError(t *testing.T) {
	src := newFakeProvider("")
	src.loadErr = errors.New("key not found")
	w := NewWatched(src)

	_, err := w.Produce(context.Background(), "a")
	assert.ErrorContains(t, err, "key not found")

	require.NoError(t, w.Close())
	assert.True(t, src.closed)
}

func TestRegistry(t *testing.T) {
	sources := map[string]*fakeProvider{
		"agents/weather/v1": newFakeProvider(`{"name":"weather","url":"http://w"}`),
		"agents/news/v1":    newFakeProvider(`{"name":"news","url":"http://n"}`),
	}
	var opened []string
	reg := NewRegistry("agents", "v1", func(key string) (provider.Provider, error) {
		opened = append(opened, key)
		p, ok := sources[key]
		if !ok {
			return nil, errors.New("no such key")
		}
		return p, nil
	})

	card, err := reg.Produce(context.Background(), "weather")
	require.NoError(t, err)
	assert.Equal(t, "http://w", card.URL)

	_, err = reg.Produce(context.Background(), "weather")
	require.NoError(t, err)

	card, err = reg.Produce(context.Background(), "news")
	require.NoError(t, err)
	assert.Equal(t, "http://n", card.URL)

	_, err = reg.Produce(context.Background(), "sports")
	assert.Error(t, err)

	assert.Equal(t, []string{"agents/weather/v1", "agents/news/v1", "agents/sports/v1"}, opened)

	require.NoError(t, reg.Close())
	assert.True(t, sources["agents/weather/v1"].closed)
	assert.True(t, sources["agents/news/v1"].closed)
}
