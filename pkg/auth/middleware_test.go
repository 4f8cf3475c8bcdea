package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/metadata"
)

func TestHTTPMiddleware(t *testing.T) {
	v, err := NewValidator("k", "", "")
	require.NoError(t, err)
	src, err := NewTokenSource(TokenSourceConfig{Secret: "k", Subject: "tester"})
	require.NoError(t, err)
	token, err := src.Token(context.Background(), "")
	require.NoError(t, err)

	handler := v.HTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := GetClaims(r.Context())
		if claims == nil {
			http.Error(w, "no claims", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(claims.Subject))
	}))

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{name: "valid token", header: "Bearer " + token, wantStatus: http.StatusOK, wantBody: "tester"},
		{name: "missing header", header: "", wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic abc", wantStatus: http.StatusUnauthorized},
		{name: "invalid token", header: "Bearer nope", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, rec.Body.String())
			}
		})
	}
}

func TestRoundTripper(t *testing.T) {
	v, err := NewValidator("k", "", "")
	require.NoError(t, err)

	var gotHeader string
	srv := httptest.NewServer(v.HTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("X-Tenant")
		_, _ = w.Write([]byte(GetClaims(r.Context()).Agent))
	})))
	defer srv.Close()

	src, err := NewTokenSource(TokenSourceConfig{Secret: "k"})
	require.NoError(t, err)

	client := &http.Client{Transport: &RoundTripper{
		Headers: map[string]string{"X-Tenant": "acme"},
		Tokens:  src,
		Agent:   "weather",
	}}

	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "acme", gotHeader)
}

func TestClientAuthInterceptor_Outgoing(t *testing.T) {
	src, err := NewTokenSource(TokenSourceConfig{Secret: "k"})
	require.NoError(t, err)

	c := NewClientAuthInterceptor("weather", map[string]string{"X-Tenant": "acme"}, src)
	ctx, err := c.outgoing(context.Background())
	require.NoError(t, err)

	md, ok := metadata.FromOutgoingContext(ctx)
	require.True(t, ok)
	assert.Equal(t, []string{"acme"}, md.Get("x-tenant"))
	require.Len(t, md.Get("authorization"), 1)
	assert.Contains(t, md.Get("authorization")[0], "Bearer ")
}
