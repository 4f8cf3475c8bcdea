// Package httpclient builds the HTTP clients used to reach remote agents.
package httpclient

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"
)

const (
	DefaultMaxRetries = 2
	DefaultBaseDelay  = 500 * time.Millisecond
	maxRetryDelay     = 30 * time.Second
)

// Config configures New.
type Config struct {
	TLS        *TLSConfig
	MaxRetries int
	BaseDelay  time.Duration
}

// New builds a client with TLS settings and retries for idempotent
// requests. No overall timeout is set so that event streams stay open.
func New(cfg Config) (*http.Client, error) {
	base, err := ConfigureTLS(cfg.TLS)
	if err != nil {
		return nil, err
	}
	return &http.Client{Transport: NewRetryTransport(base, cfg.MaxRetries, cfg.BaseDelay)}, nil
}

// RetryTransport retries GET and HEAD requests that fail with a transient
// status. Other methods pass through untouched.
type RetryTransport struct {
	Base       http.RoundTripper
	MaxRetries int
	BaseDelay  time.Duration

	wait func(ctx context.Context, d time.Duration) error
}

// NewRetryTransport wraps base. Non-positive values take the defaults.
func NewRetryTransport(base http.RoundTripper, maxRetries int, baseDelay time.Duration) *RetryTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	if maxRetries < 0 {
		maxRetries = DefaultMaxRetries
	}
	if baseDelay <= 0 {
		baseDelay = DefaultBaseDelay
	}
	return &RetryTransport{Base: base, MaxRetries: maxRetries, BaseDelay: baseDelay, wait: sleep}
}

func (t *RetryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		return t.Base.RoundTrip(req)
	}

	for attempt := 0; ; attempt++ {
		resp, err := t.Base.RoundTrip(req)
		if err != nil || !retryable(resp.StatusCode) || attempt >= t.MaxRetries {
			return resp, err
		}

		delay := retryAfter(resp.Header, time.Now())
		if delay <= 0 {
			delay = time.Duration(math.Pow(2, float64(attempt))) * t.BaseDelay
		}
		delay = min(delay, maxRetryDelay)

		slog.Debug("Retrying request", "url", req.URL.String(), "status", resp.StatusCode,
			"attempt", attempt+1, "delay", delay)
		_ = resp.Body.Close()

		if err := t.wait(req.Context(), delay); err != nil {
			return nil, err
		}
	}
}

func retryable(status int) bool {
	switch status {
	case http.StatusTooManyRequests, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// retryAfter parses a Retry-After header given in seconds or as an HTTP
// date. It returns 0 when absent or unparsable.
func retryAfter(h http.Header, now time.Time) time.Duration {
	v := h.Get("Retry-After")
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
