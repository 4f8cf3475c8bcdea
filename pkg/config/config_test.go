package config

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/a2abridge/pkg/config/provider"
)

const sampleConfig = `
logger:
  level: debug
observability:
  metrics:
    enabled: true
agents:
  weather:
    description: Weather forecasts
    card:
      source: url
      url: ${WEATHER_URL:-http://localhost:9000}
      cache_ttl: 5m
    transport:
      protocols: JSONRPC,grpc
      headers:
        X-Tenant: ${A2ABRIDGE_TEST_TENANT}
      auth:
        jwt_secret: s3cret
    timeout: 30s
    bind_task_id: true
  news:
    card:
      source: consul
      version: v2
`

func TestParse(t *testing.T) {
	t.Setenv("A2ABRIDGE_TEST_TENANT", "acme")

	cfg, err := Parse([]byte(sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "1", cfg.Version)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, "simple", cfg.Logger.Format)
	assert.True(t, cfg.Observability.Metrics.Enabled)
	assert.Equal(t, "/metrics", cfg.Observability.Metrics.Endpoint)
	assert.Equal(t, []string{"news", "weather"}, cfg.AgentNames())

	weather, ok := cfg.Agent("weather")
	require.True(t, ok)
	assert.Equal(t, "http://localhost:9000", weather.Card.URL)
	assert.Equal(t, 5*time.Minute, weather.Card.CacheTTL)
	assert.Equal(t, []string{ProtocolJSONRPC, ProtocolGRPC}, weather.Transport.Protocols)
	assert.True(t, weather.Transport.GRPCEnabled())
	assert.Equal(t, "acme", weather.Transport.Headers["X-Tenant"])
	assert.Equal(t, 15*time.Minute, weather.Transport.Auth.TTL)
	assert.Equal(t, 30*time.Second, weather.Timeout)
	assert.True(t, weather.BindTaskID)

	news, ok := cfg.Agent("news")
	require.True(t, ok)
	assert.True(t, news.Card.IsRegistry())
	assert.Equal(t, DefaultRegistryPrefix, news.Card.Prefix)
	assert.Equal(t, []string{ProtocolJSONRPC}, news.Transport.Protocols)
	assert.False(t, news.Transport.GRPCEnabled())
	assert.Zero(t, news.Timeout)
}

func TestParse_JSON(t *testing.T) {
	cfg, err := Parse([]byte(`{"agents":{"a":{"card":{"source":"fixed","url":"http://a/rpc"}}}}`))
	require.NoError(t, err)
	assert.True(t, *cfg.Agents["a"].Card.Streaming)
}

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Empty(t, cfg.Agents)
	assert.Equal(t, "info", cfg.Logger.Level)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{name: "unknown field", doc: "agents:\n  a:\n    cardd: {}\n", wantErr: "cardd"},
		{name: "missing url", doc: "agents:\n  a:\n    card: {source: url}\n", wantErr: "url is required"},
		{name: "unknown source", doc: "agents:\n  a:\n    card: {source: nacos}\n", wantErr: "unknown source"},
		{name: "etcd without endpoints", doc: "agents:\n  a:\n    card: {source: etcd}\n", wantErr: "endpoints are required"},
		{name: "bad protocol", doc: "agents:\n  a:\n    card: {url: http://a}\n    transport: {protocols: [REST]}\n", wantErr: "unknown protocol"},
		{name: "auth without secret", doc: "agents:\n  a:\n    card: {url: http://a}\n    transport: {auth: {issuer: me}}\n", wantErr: "jwt_secret"},
		{name: "negative timeout", doc: "agents:\n  a:\n    card: {url: http://a}\n    timeout: -1s\n", wantErr: "timeout"},
		{name: "bad agent name", doc: "agents:\n  1a:\n    card: {url: http://a}\n", wantErr: "invalid name"},
		{name: "bad log level", doc: "logger: {level: loud}\n", wantErr: "invalid log level"},
		{name: "not a document", doc: "[1, 2", wantErr: "failed to parse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("A2ABRIDGE_TEST_HOST", "example.com")

	in := map[string]any{
		"plain":   "no vars",
		"braced":  "https://${A2ABRIDGE_TEST_HOST}/a2a",
		"simple":  "$A2ABRIDGE_TEST_HOST",
		"default": "${A2ABRIDGE_TEST_UNSET:-fallback}",
		"list":    []any{"${A2ABRIDGE_TEST_HOST}", 3},
	}
	out := ExpandEnv(in).(map[string]any)

	assert.Equal(t, "no vars", out["plain"])
	assert.Equal(t, "https://example.com/a2a", out["braced"])
	assert.Equal(t, "example.com", out["simple"])
	assert.Equal(t, "fallback", out["default"])
	assert.Equal(t, []any{"example.com", 3}, out["list"])
}

func TestLoadEnvFiles(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("A2ABRIDGE_TEST_FROM_FILE=loaded\n"), 0o600))

	orig := EnvFiles
	EnvFiles = []string{envFile, filepath.Join(dir, "missing.env")}
	defer func() { EnvFiles = orig }()
	t.Setenv("A2ABRIDGE_TEST_FROM_FILE", "")
	require.NoError(t, os.Unsetenv("A2ABRIDGE_TEST_FROM_FILE"))

	require.NoError(t, LoadEnvFiles())
	assert.Equal(t, "loaded", os.Getenv("A2ABRIDGE_TEST_FROM_FILE"))
}

func TestLoader_LoadAndWatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a2abridge.yaml")
	write := func(url string) {
		doc := "agents:\n  a:\n    card: {source: url, url: " + url + "}\n"
		require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))
	}
	write("http://one")

	reloaded := make(chan *Config, 4)
	p, err := provider.NewFileProvider(path)
	require.NoError(t, err)
	loader := NewLoader(p, WithOnChange(func(c *Config) { reloaded <- c }))
	defer loader.Close()

	cfg, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "http://one", cfg.Agents["a"].Card.URL)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = loader.Watch(ctx) }()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	write("http://two")

	select {
	case c := <-reloaded:
		assert.Equal(t, "http://two", c.Agents["a"].Card.URL)
	case <-time.After(3 * time.Second):
		t.Fatal("config was not reloaded")
	}
}

func TestLoadConfigFile_Missing(t *testing.T) {
	_, _, err := LoadConfigFile(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSchema(t *testing.T) {
	schema := Schema()
	data, err := json.Marshal(schema)
	require.NoError(t, err)

	assert.Equal(t, SchemaID, schema.ID.String())
	assert.Contains(t, string(data), `"agents"`)
	assert.Contains(t, string(data), `"bind_task_id"`)
}
