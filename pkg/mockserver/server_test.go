package mockserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/a2aproject/a2a-go/a2asrv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/a2abridge/pkg/auth"
)

func TestServer_Card(t *testing.T) {
	srv := httptest.NewServer(New(Config{Name: "echo", Description: "echoes"}).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + a2asrv.WellKnownAgentCardPath)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var card a2a.AgentCard
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&card))
	assert.Equal(t, "echo", card.Name)
	assert.Equal(t, srv.URL+RPCPath, card.URL)
	assert.True(t, card.Capabilities.Streaming)
}

func TestServer_CardPublicURL(t *testing.T) {
	s := New(Config{PublicURL: "https://agents.example.com", DisableStreaming: true})

	card := s.Card("https://agents.example.com")
	assert.Equal(t, "https://agents.example.com/a2a", card.URL)
	assert.False(t, card.Capabilities.Streaming)
	assert.Empty(t, card.SecuritySchemes)
}

func TestServer_RequiresToken(t *testing.T) {
	v, err := auth.NewValidator("k", "", "")
	require.NoError(t, err)

	s := New(Config{Validator: v})
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+RPCPath, "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	health, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	health.Body.Close()
	assert.Equal(t, http.StatusOK, health.StatusCode)

	assert.Contains(t, s.Card(srv.URL).SecuritySchemes, a2a.SecuritySchemeName("BearerAuth"))
}

func TestServer_Middleware(t *testing.T) {
	var seen []string
	mw := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = append(seen, r.URL.Path)
			next.ServeHTTP(w, r)
		})
	}
	srv := httptest.NewServer(New(Config{Middleware: []func(http.Handler) http.Handler{mw}}).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, []string{"/health"}, seen)
}
