package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

//go:generate moq -out tokenprovider_mock.go . TokenProvider

// TokenProvider supplies the bearer token attached to gateway requests.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// StaticTokenProvider returns a fixed token. Useful for API keys and tests.
type StaticTokenProvider string

// Token returns the fixed token.
func (p StaticTokenProvider) Token(ctx context.Context) (string, error) {
	return string(p), nil
}

// RefreshFunc obtains a fresh access token from the caller's auth layer.
type RefreshFunc func(ctx context.Context) (string, error)

// RefreshingTokenProvider caches a JWT access token and refreshes it ahead
// of its exp claim. Signature verification is the server's job; the claim
// is parsed unverified only to schedule the refresh.
type RefreshingTokenProvider struct {
	refresh RefreshFunc
	parser  *jwt.Parser

	mu        sync.Mutex
	token     string
	expiresAt time.Time

	leeway time.Duration
}

// NewRefreshingTokenProvider wraps refresh with expiry-aware caching.
func NewRefreshingTokenProvider(refresh RefreshFunc) *RefreshingTokenProvider {
	return &RefreshingTokenProvider{
		refresh: refresh,
		parser:  jwt.NewParser(),
		leeway:  30 * time.Second,
	}
}

// Token returns the cached token, refreshing when it is near expiry.
func (p *RefreshingTokenProvider) Token(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.token != "" && time.Now().Add(p.leeway).Before(p.expiresAt) {
		return p.token, nil
	}

	token, err := p.refresh(ctx)
	if err != nil {
		return "", fmt.Errorf("token refresh failed: %w", err)
	}

	p.token = token
	p.expiresAt = p.readExpiry(token)

	return token, nil
}

// readExpiry extracts the exp claim. Tokens without one are re-requested on
// every call past the default lifetime.
func (p *RefreshingTokenProvider) readExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := p.parser.ParseUnverified(token, claims); err != nil {
		return time.Now().Add(time.Minute)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Now().Add(time.Minute)
	}

	return exp.Time
}
