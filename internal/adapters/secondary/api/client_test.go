package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentineliq/dashboard-agent/internal/adapters/secondary/api"
	"github.com/sentineliq/dashboard-agent/internal/core/domain"
	apperrors "github.com/sentineliq/dashboard-agent/internal/core/errors"
	"github.com/sentineliq/dashboard-agent/internal/core/ports"
)

type staticCreds struct {
	token string
}

func (c *staticCreds) Token() string       { return c.token }
func (c *staticCreds) Authenticated() bool { return c.token != "" }
func (c *staticCreds) OnChange(func())     {}

func newTestClient(t *testing.T, handler http.Handler, token string) *api.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return api.NewClient(srv.URL, 5*time.Second, &staticCreds{token: token}, nil, logger)
}

func TestClient_Login(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/auth/login", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "admin@example.com", body["email"])
		assert.Equal(t, "hunter2", body["password"])

		_ = json.NewEncoder(w).Encode(map[string]string{
			"access_token":  "access-abc",
			"refresh_token": "refresh-def",
			"token_type":    "bearer",
		})
	})

	client := newTestClient(t, handler, "")

	pair, err := client.Login(context.Background(), "admin@example.com", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "access-abc", pair.AccessToken)
	assert.Equal(t, "refresh-def", pair.RefreshToken)
}

func TestClient_Login_RejectsEmptyToken(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"token_type": "bearer"})
	})

	client := newTestClient(t, handler, "")

	_, err := client.Login(context.Background(), "a@b.c", "pw")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrUnauthorized))
}

func TestClient_SendsBearerToken(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token-xyz", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "healthy"})
	})

	client := newTestClient(t, handler, "token-xyz")

	health, err := client.GetSystemHealth(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "healthy", health.Status)
}

func TestClient_MissingTokenFailsBeforeRequest(t *testing.T) {
	var called bool
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	client := newTestClient(t, handler, "")

	_, err := client.GetSystemHealth(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrTokenMissing))
	assert.False(t, called)
}

func TestClient_MapsBackendStatusCodes(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr error
	}{
		{"401 maps to unauthorized", http.StatusUnauthorized, apperrors.ErrUnauthorized},
		{"403 maps to forbidden", http.StatusForbidden, apperrors.ErrForbidden},
		{"404 maps to not found", http.StatusNotFound, apperrors.ErrNotFound},
		{"429 maps to rate limited", http.StatusTooManyRequests, apperrors.ErrRateLimited},
		{"503 maps to backend unavailable", http.StatusServiceUnavailable, apperrors.ErrBackendUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.status)
			})

			client := newTestClient(t, handler, "token")

			_, err := client.GetUserStats(context.Background())
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestClient_UnreachableBackend(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := api.NewClient("http://127.0.0.1:1", time.Second, &staticCreds{token: "t"}, nil, logger)

	_, err := client.GetSystemHealth(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrBackendUnavailable))

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusBadGateway, appErr.StatusCode)
}

func TestClient_GetRecentEvents(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/admin/dashboard/events", r.URL.Path)
		assert.Equal(t, "25", r.URL.Query().Get("limit"))
		assert.Equal(t, "risk,login", r.URL.Query().Get("event_types"))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"events": []map[string]any{
				{
					"id":        101,
					"type":      "risk",
					"severity":  "high",
					"actor_id":  "user-1",
					"message":   "velocity check failed",
					"timestamp": "2025-06-01T10:00:00Z",
				},
				{
					"type": "login",
				},
			},
		})
	})

	client := newTestClient(t, handler, "token")

	events, err := client.GetRecentEvents(context.Background(), ports.EventFilter{
		Limit: 25,
		Types: []domain.EventType{domain.EventRisk, domain.EventLogin},
	})
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, "101", events[0].ID)
	assert.Equal(t, domain.EventRisk, events[0].Type)
	assert.Equal(t, domain.SeverityHigh, events[0].Severity)
	assert.Equal(t, "velocity check failed", events[0].Message)
	assert.Equal(t, time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC), events[0].Timestamp)

	// Sparse events get the documented defaults.
	assert.NotEmpty(t, events[1].ID)
	assert.Equal(t, domain.EventLogin, events[1].Type)
	assert.Equal(t, "login", events[1].Action)
	assert.Equal(t, "login", events[1].Message)
	assert.Equal(t, domain.SeverityInfo, events[1].Severity)
}

func TestClient_ForceLogout(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/admin/dashboard/users/user-7/force-logout", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	})

	client := newTestClient(t, handler, "token")

	require.NoError(t, client.ForceLogout(context.Background(), "user-7"))
}

func TestClient_GetAuditLogs_Paging(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/admin/dashboard/audit", r.URL.Path)
		assert.Equal(t, "50", r.URL.Query().Get("page_size"))
		assert.Equal(t, "3", r.URL.Query().Get("page"))
		assert.Equal(t, "login", r.URL.Query().Get("action"))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"logs": []map[string]any{
				{"id": "a1", "action": "login"},
			},
		})
	})

	client := newTestClient(t, handler, "token")

	logs, err := client.GetAuditLogs(context.Background(), ports.AuditFilter{
		Limit:  50,
		Offset: 100,
		Action: "login",
	})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "a1", logs[0].ID)
}
