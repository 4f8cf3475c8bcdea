package provider

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/go-zookeeper/zk"
	"github.com/hashicorp/consul/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// The remote provider tests need running services and are skipped unless
// the matching address variable is set.

func TestConsulProvider_Integration(t *testing.T) {
	addr := os.Getenv("A2ABRIDGE_TEST_CONSUL")
	if addr == "" {
		t.Skip("A2ABRIDGE_TEST_CONSUL not set")
	}

	cfg := api.DefaultConfig()
	cfg.Address = addr
	client, err := api.NewClient(cfg)
	require.NoError(t, err)

	key := "a2abridge/test/provider"
	_, err = client.KV().Put(&api.KVPair{Key: key, Value: []byte("v1")}, nil)
	require.NoError(t, err)
	defer func() { _, _ = client.KV().Delete(key, nil) }()

	p, err := New(Config{Type: TypeConsul, Path: key, Endpoints: []string{addr}})
	require.NoError(t, err)
	defer p.Close()

	exerciseRemote(t, p, func(v string) error {
		_, err := client.KV().Put(&api.KVPair{Key: key, Value: []byte(v)}, nil)
		return err
	})
}

func TestEtcdProvider_Integration(t *testing.T) {
	addr := os.Getenv("A2ABRIDGE_TEST_ETCD")
	if addr == "" {
		t.Skip("A2ABRIDGE_TEST_ETCD not set")
	}

	client, err := clientv3.New(clientv3.Config{Endpoints: []string{addr}, DialTimeout: 5 * time.Second})
	require.NoError(t, err)
	defer client.Close()

	key := "a2abridge/test/provider"
	_, err = client.Put(context.Background(), key, "v1")
	require.NoError(t, err)
	defer func() { _, _ = client.Delete(context.Background(), key) }()

	p, err := New(Config{Type: TypeEtcd, Path: key, Endpoints: []string{addr}})
	require.NoError(t, err)
	defer p.Close()

	exerciseRemote(t, p, func(v string) error {
		_, err := client.Put(context.Background(), key, v)
		return err
	})
}

func TestZookeeperProvider_Integration(t *testing.T) {
	addr := os.Getenv("A2ABRIDGE_TEST_ZOOKEEPER")
	if addr == "" {
		t.Skip("A2ABRIDGE_TEST_ZOOKEEPER not set")
	}

	conn, _, err := zk.Connect([]string{addr}, 5*time.Second)
	require.NoError(t, err)
	defer conn.Close()

	path := "/a2abridge-provider-test"
	_, err = conn.Create(path, []byte("v1"), 0, zk.WorldACL(zk.PermAll))
	if err != nil && err != zk.ErrNodeExists {
		require.NoError(t, err)
	}
	_, err = conn.Set(path, []byte("v1"), -1)
	require.NoError(t, err)
	defer func() { _ = conn.Delete(path, -1) }()

	p, err := New(Config{Type: TypeZookeeper, Path: path, Endpoints: []string{addr}})
	require.NoError(t, err)
	defer p.Close()

	exerciseRemote(t, p, func(v string) error {
		_, err := conn.Set(path, []byte(v), -1)
		return err
	})
}

func exerciseRemote(t *testing.T, p Provider, put func(string) error) {
	t.Helper()

	data, err := p.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "v1", string(data))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changes, err := p.Watch(ctx)
	require.NoError(t, err)

	// Give the watch time to register before writing.
	time.Sleep(200 * time.Millisecond)
	require.NoError(t, put("v2"))

	select {
	case <-changes:
	case <-time.After(10 * time.Second):
		t.Fatal("no change notification")
	}

	data, err = p.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))

	w, ok := p.(Writer)
	require.True(t, ok, "%s provider is writable", p.Type())
	require.NoError(t, w.Store(context.Background(), []byte("v3")))
	data, err = p.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "v3", string(data))
}

func TestZookeeperProvider_StoreCreatesParents(t *testing.T) {
	addr := os.Getenv("A2ABRIDGE_TEST_ZOOKEEPER")
	if addr == "" {
		t.Skip("A2ABRIDGE_TEST_ZOOKEEPER not set")
	}

	conn, _, err := zk.Connect([]string{addr}, 5*time.Second)
	require.NoError(t, err)
	defer conn.Close()
	defer func() {
		_ = conn.Delete("/a2abridge-store-test/agents/news", -1)
		_ = conn.Delete("/a2abridge-store-test/agents", -1)
		_ = conn.Delete("/a2abridge-store-test", -1)
	}()

	// Registry prefixes are relative; the provider roots them.
	p, err := NewZookeeperProvider([]string{addr}, "a2abridge-store-test/agents/news", 5*time.Second)
	require.NoError(t, err)
	defer p.Close()

	require.NoError(t, p.Store(context.Background(), []byte("card")))
	data, _, err := conn.Get("/a2abridge-store-test/agents/news")
	require.NoError(t, err)
	assert.Equal(t, "card", string(data))
}
