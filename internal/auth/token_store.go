package auth

import (
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims defines the structured data the backend stores in its access tokens.
// The agent never verifies signatures (it does not hold the backend's secret);
// claims are parsed only to track expiry and identity.
type Claims struct {
	Role      string `json:"role,omitempty"`
	IsVirtual bool   `json:"is_virtual,omitempty"`
	jwt.RegisteredClaims
}

// TokenStore holds the current backend access token and notifies listeners
// when it changes. It is the agent-side counterpart of the dashboard's auth
// store: the stream client re-evaluates connection eligibility on every
// change.
type TokenStore struct {
	mu        sync.RWMutex
	token     string
	claims    *Claims
	listeners []func()
	logger    *slog.Logger
}

// NewTokenStore creates an empty token store.
func NewTokenStore(logger *slog.Logger) *TokenStore {
	return &TokenStore{logger: logger.With("component", "token_store")}
}

// Set stores a new access token and notifies listeners. Tokens that do not
// parse as JWTs are kept as opaque credentials with no expiry tracking.
func (s *TokenStore) Set(token string) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		s.logger.Debug("token is not a parseable JWT, storing as opaque", "error", err)
		claims = nil
	}

	s.mu.Lock()
	s.token = token
	s.claims = claims
	s.mu.Unlock()

	s.notify()
}

// Clear drops the held token and notifies listeners.
func (s *TokenStore) Clear() {
	s.mu.Lock()
	s.token = ""
	s.claims = nil
	s.mu.Unlock()

	s.notify()
}

// Token returns the current access token, or "" when none is held.
func (s *TokenStore) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Authenticated reports whether a token is held and, when expiry is known,
// that it has not passed.
func (s *TokenStore) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.token == "" {
		return false
	}
	if s.claims != nil && s.claims.ExpiresAt != nil {
		return time.Now().Before(s.claims.ExpiresAt.Time)
	}
	return true
}

// Subject returns the token's subject claim, or "" when unknown.
func (s *TokenStore) Subject() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.claims == nil {
		return ""
	}
	return s.claims.Subject
}

// Role returns the token's role claim, or "" when unknown.
func (s *TokenStore) Role() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.claims == nil {
		return ""
	}
	return s.claims.Role
}

// OnChange registers a listener invoked after every Set or Clear. Listeners
// are called outside the store's lock and must not block.
func (s *TokenStore) OnChange(listener func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, listener)
}

func (s *TokenStore) notify() {
	s.mu.RLock()
	listeners := make([]func(), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.RUnlock()

	for _, listener := range listeners {
		listener()
	}
}
