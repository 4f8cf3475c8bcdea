// Package auth signs and validates the bearer tokens exchanged with remote
// agents.
//
// Outbound requests carry an HS256 token minted by a TokenSource; the mock
// server checks the same tokens with a Validator.
package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// DefaultTTL is the lifetime of minted tokens when none is configured.
const DefaultTTL = 15 * time.Minute

// Claims represents extracted JWT claims
type Claims struct {
	Subject  string
	Issuer   string
	Audience []string
	Agent    string
	Expires  time.Time
}

// TokenSourceConfig configures a TokenSource.
type TokenSourceConfig struct {
	Secret   string
	Issuer   string
	Audience string
	Subject  string
	TTL      time.Duration
}

// TokenSource mints bearer tokens and reuses them until shortly before
// they expire.
type TokenSource struct {
	cfg TokenSourceConfig
	now func() time.Time

	mu      sync.Mutex
	token   string
	expires time.Time
}

// NewTokenSource creates a token source.
func NewTokenSource(cfg TokenSourceConfig) (*TokenSource, error) {
	if cfg.Secret == "" {
		return nil, ErrMissingSecret
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	return &TokenSource{cfg: cfg, now: time.Now}, nil
}

// Token returns a valid signed token for the given agent name.
func (s *TokenSource) Token(_ context.Context, agent string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	// Refresh once less than a tenth of the lifetime is left.
	if s.token != "" && now.Add(s.cfg.TTL/10).Before(s.expires) {
		return s.token, nil
	}

	token := jwt.New()
	expires := now.Add(s.cfg.TTL)
	claims := map[string]any{
		jwt.IssuedAtKey:   now,
		jwt.ExpirationKey: expires,
	}
	if s.cfg.Issuer != "" {
		claims[jwt.IssuerKey] = s.cfg.Issuer
	}
	if s.cfg.Audience != "" {
		claims[jwt.AudienceKey] = s.cfg.Audience
	}
	if s.cfg.Subject != "" {
		claims[jwt.SubjectKey] = s.cfg.Subject
	}
	if agent != "" {
		claims["agent"] = agent
	}
	for k, v := range claims {
		if err := token.Set(k, v); err != nil {
			return "", fmt.Errorf("failed to set claim %s: %w", k, err)
		}
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256, []byte(s.cfg.Secret)))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	s.token = string(signed)
	s.expires = expires
	return s.token, nil
}

// Validator checks HS256 tokens.
type Validator struct {
	secret   []byte
	issuer   string
	audience string
}

// NewValidator creates a validator. Empty issuer or audience disables
// the respective check.
func NewValidator(secret, issuer, audience string) (*Validator, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	return &Validator{secret: []byte(secret), issuer: issuer, audience: audience}, nil
}

// ValidateToken verifies signature, expiry, issuer and audience and
// returns the extracted claims.
func (v *Validator) ValidateToken(_ context.Context, tokenString string) (*Claims, error) {
	opts := []jwt.ParseOption{
		jwt.WithKey(jwa.HS256, v.secret),
		jwt.WithValidate(true),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	token, err := jwt.Parse([]byte(tokenString), opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims := &Claims{
		Subject:  token.Subject(),
		Issuer:   token.Issuer(),
		Audience: token.Audience(),
		Expires:  token.Expiration(),
	}
	if agent, ok := token.Get("agent"); ok {
		claims.Agent, _ = agent.(string)
	}
	return claims, nil
}
