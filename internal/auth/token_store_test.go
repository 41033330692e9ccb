package auth_test

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentineliq/dashboard-agent/internal/auth"
)

func newTestStore() *auth.TokenStore {
	return auth.NewTokenStore(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func signedToken(t *testing.T, subject, role string, expiresAt time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func TestTokenStore_SetParsesClaims(t *testing.T) {
	store := newTestStore()
	token := signedToken(t, "user-42", "admin", time.Now().Add(time.Hour))

	store.Set(token)

	assert.Equal(t, token, store.Token())
	assert.True(t, store.Authenticated())
	assert.Equal(t, "user-42", store.Subject())
	assert.Equal(t, "admin", store.Role())
}

func TestTokenStore_ExpiredTokenIsNotAuthenticated(t *testing.T) {
	store := newTestStore()
	store.Set(signedToken(t, "user-42", "admin", time.Now().Add(-time.Minute)))

	assert.NotEmpty(t, store.Token())
	assert.False(t, store.Authenticated())
}

func TestTokenStore_OpaqueTokenIsAccepted(t *testing.T) {
	store := newTestStore()
	store.Set("not-a-jwt-at-all")

	assert.Equal(t, "not-a-jwt-at-all", store.Token())
	assert.True(t, store.Authenticated())
	assert.Empty(t, store.Subject())
	assert.Empty(t, store.Role())
}

func TestTokenStore_Clear(t *testing.T) {
	store := newTestStore()
	store.Set(signedToken(t, "user-42", "admin", time.Now().Add(time.Hour)))

	store.Clear()

	assert.Empty(t, store.Token())
	assert.False(t, store.Authenticated())
	assert.Empty(t, store.Subject())
}

func TestTokenStore_NotifiesListeners(t *testing.T) {
	store := newTestStore()

	var calls int
	store.OnChange(func() { calls++ })

	store.Set("token-1")
	store.Set("token-2")
	store.Clear()

	assert.Equal(t, 3, calls)
}

func TestTokenStore_EmptyStoreIsNotAuthenticated(t *testing.T) {
	store := newTestStore()

	assert.False(t, store.Authenticated())
	assert.Empty(t, store.Token())
}
