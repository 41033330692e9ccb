package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/sentineliq/dashboard-agent/internal/core/domain"
	apperrors "github.com/sentineliq/dashboard-agent/internal/core/errors"
	"github.com/sentineliq/dashboard-agent/internal/core/ports"
	"github.com/sentineliq/dashboard-agent/internal/metrics"
)

const dashboardPrefix = "/api/admin/dashboard"

// maxErrorBodyBytes caps how much of an upstream error body is kept for
// diagnostics.
const maxErrorBodyBytes = 2048

// Client is the REST adapter for the admin backend's dashboard API.
type Client struct {
	baseURL string
	http    *http.Client
	creds   ports.CredentialSource
	limiter *rate.Limiter
	logger  *slog.Logger
}

// Ensure Client implements the DashboardAPI port.
var _ ports.DashboardAPI = (*Client)(nil)

// NewClient creates a dashboard API client. The limiter is optional; when
// present, every call waits for a token before hitting the backend.
func NewClient(baseURL string, timeout time.Duration, creds ports.CredentialSource, limiter *rate.Limiter, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		creds:   creds,
		limiter: limiter,
		logger:  logger.With("component", "backend_api"),
	}
}

// Login exchanges credentials for a token pair.
func (c *Client) Login(ctx context.Context, email, password string) (*ports.TokenPair, error) {
	body := map[string]string{"email": email, "password": password}

	var out ports.TokenPair
	if err := c.do(ctx, http.MethodPost, "/auth/login", nil, body, &out, false, "login"); err != nil {
		return nil, err
	}
	if out.AccessToken == "" {
		return nil, apperrors.NewUnauthorizedError("login response carried no access token")
	}
	return &out, nil
}

// Ping checks backend reachability for readiness probes. It reuses the
// dashboard health endpoint and discards the payload.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, dashboardPrefix+"/health", nil, nil, nil, true, "health")
}

// GetSystemHealth fetches the service health overview.
func (c *Client) GetSystemHealth(ctx context.Context) (*ports.SystemHealth, error) {
	var out ports.SystemHealth
	if err := c.do(ctx, http.MethodGet, dashboardPrefix+"/health", nil, nil, &out, true, "health"); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetSystemMetrics fetches performance metrics for a time range (1h, 6h, 24h, 7d).
func (c *Client) GetSystemMetrics(ctx context.Context, timeRange string) (*ports.SystemMetrics, error) {
	query := url.Values{"time_range": {timeRange}}

	var out ports.SystemMetrics
	if err := c.do(ctx, http.MethodGet, dashboardPrefix+"/metrics", query, nil, &out, true, "metrics"); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetActiveUsers lists users with live sessions.
func (c *Client) GetActiveUsers(ctx context.Context, limit int) ([]ports.ActiveUser, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("page_size", strconv.Itoa(limit))
	}

	var out struct {
		Users []ports.ActiveUser `json:"users"`
	}
	if err := c.do(ctx, http.MethodGet, dashboardPrefix+"/users/active", query, nil, &out, true, "users_active"); err != nil {
		return nil, err
	}
	return out.Users, nil
}

// GetUserStats fetches aggregate account statistics.
func (c *Client) GetUserStats(ctx context.Context) (*ports.UserStats, error) {
	var out ports.UserStats
	if err := c.do(ctx, http.MethodGet, dashboardPrefix+"/users/stats", nil, nil, &out, true, "users_stats"); err != nil {
		return nil, err
	}
	return &out, nil
}

// ForceLogout revokes all of a user's sessions.
func (c *Client) ForceLogout(ctx context.Context, userID string) error {
	path := fmt.Sprintf("%s/users/%s/force-logout", dashboardPrefix, url.PathEscape(userID))
	return c.do(ctx, http.MethodPost, path, nil, nil, nil, true, "force_logout")
}

// GetRecentEvents fetches the activity feed, normalized into DashboardEvents.
// It is used to backfill the feed before the live stream takes over.
func (c *Client) GetRecentEvents(ctx context.Context, filter ports.EventFilter) ([]domain.DashboardEvent, error) {
	query := url.Values{}
	if filter.Limit > 0 {
		query.Set("limit", strconv.Itoa(filter.Limit))
	}
	if len(filter.Types) > 0 {
		types := make([]string, len(filter.Types))
		for i, t := range filter.Types {
			types[i] = string(t)
		}
		query.Set("event_types", strings.Join(types, ","))
	}
	if len(filter.Severities) > 0 {
		severities := make([]string, len(filter.Severities))
		for i, s := range filter.Severities {
			severities[i] = s.String()
		}
		query.Set("severity", strings.Join(severities, ","))
	}
	if filter.Since != nil {
		query.Set("since", filter.Since.UTC().Format(time.RFC3339))
	}

	var out struct {
		Events []wireEvent `json:"events"`
	}
	if err := c.do(ctx, http.MethodGet, dashboardPrefix+"/events", query, nil, &out, true, "events"); err != nil {
		return nil, err
	}

	events := make([]domain.DashboardEvent, 0, len(out.Events))
	for _, w := range out.Events {
		events = append(events, w.toDomain())
	}
	return events, nil
}

// GetRiskSummary fetches the fraud/risk analytics summary.
func (c *Client) GetRiskSummary(ctx context.Context, timeRange string) (*ports.RiskSummary, error) {
	query := url.Values{"time_range": {timeRange}}

	var out ports.RiskSummary
	if err := c.do(ctx, http.MethodGet, dashboardPrefix+"/risk/summary", query, nil, &out, true, "risk_summary"); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetHighRiskUsers lists users above the backend's risk threshold.
func (c *Client) GetHighRiskUsers(ctx context.Context, limit int) ([]ports.HighRiskUser, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	var out struct {
		Users []ports.HighRiskUser `json:"users"`
	}
	if err := c.do(ctx, http.MethodGet, dashboardPrefix+"/risk/high-risk-users", query, nil, &out, true, "risk_users"); err != nil {
		return nil, err
	}
	return out.Users, nil
}

// GetAuditLogs fetches audit-log records.
func (c *Client) GetAuditLogs(ctx context.Context, filter ports.AuditFilter) ([]ports.AuditEntry, error) {
	query := url.Values{}
	if filter.Limit > 0 {
		query.Set("page_size", strconv.Itoa(filter.Limit))
		if filter.Offset > 0 {
			query.Set("page", strconv.Itoa(filter.Offset/filter.Limit+1))
		}
	}
	if filter.Action != "" {
		query.Set("action", filter.Action)
	}
	if filter.ActorID != "" {
		query.Set("actor_id", filter.ActorID)
	}
	if filter.Since != nil {
		query.Set("start_date", filter.Since.UTC().Format(time.RFC3339))
	}
	if filter.Until != nil {
		query.Set("end_date", filter.Until.UTC().Format(time.RFC3339))
	}

	var out struct {
		Logs []ports.AuditEntry `json:"logs"`
	}
	if err := c.do(ctx, http.MethodGet, dashboardPrefix+"/audit", query, nil, &out, true, "audit"); err != nil {
		return nil, err
	}
	return out.Logs, nil
}

// do performs one backend request: rate limit, auth header, JSON round trip,
// error mapping, metrics.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any, authed bool, endpoint string) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return apperrors.NewInternalError(err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return apperrors.NewInternalError(err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if authed {
		token := c.creds.Token()
		if token == "" {
			return apperrors.ErrTokenMissing
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	duration := time.Since(start)
	metrics.BackendRequestDuration.Observe(float64(duration.Milliseconds()))

	if err != nil {
		metrics.BackendRequests.WithLabelValues(endpoint, "error").Inc()
		c.logger.Warn("backend request failed",
			"endpoint", endpoint,
			"error", err,
		)
		return &apperrors.AppError{
			Err:        apperrors.ErrBackendUnavailable,
			Message:    "backend unreachable",
			Code:       "BACKEND_UNREACHABLE",
			StatusCode: http.StatusBadGateway,
		}
	}
	defer func() { _ = resp.Body.Close() }()

	metrics.BackendRequests.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		c.logger.Warn("backend returned error",
			"endpoint", endpoint,
			"status", resp.StatusCode,
		)
		return apperrors.NewBackendError(resp.StatusCode, string(snippet))
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.NewInternalError(fmt.Errorf("decoding %s response: %w", endpoint, err))
	}
	return nil
}

// wireEvent is the flat event shape of the REST activity feed.
type wireEvent struct {
	ID        any            `json:"id"`
	Type      string         `json:"type"`
	Action    string         `json:"action"`
	Severity  string         `json:"severity"`
	ActorID   string         `json:"actor_id"`
	Target    string         `json:"target"`
	Message   string         `json:"message"`
	Timestamp string         `json:"timestamp"`
	Metadata  map[string]any `json:"metadata"`
}

// toDomain applies the same defaulting rules the stream normalizer uses.
func (w wireEvent) toDomain() domain.DashboardEvent {
	id := ""
	switch v := w.ID.(type) {
	case string:
		id = v
	case float64:
		id = strconv.FormatFloat(v, 'f', -1, 64)
	case nil:
	default:
		id = fmt.Sprint(v)
	}
	if id == "" {
		id = uuid.NewString()
	}

	action := w.Action
	if action == "" {
		action = w.Type
	}

	message := w.Message
	if message == "" {
		message = w.Type
	}

	timestamp := time.Now().UTC()
	if w.Timestamp != "" {
		if t, err := time.Parse(time.RFC3339, w.Timestamp); err == nil {
			timestamp = t
		} else if t, err := time.Parse("2006-01-02T15:04:05.999999999", w.Timestamp); err == nil {
			timestamp = t.UTC()
		}
	}

	return domain.DashboardEvent{
		ID:        id,
		Type:      domain.ParseEventType(w.Type),
		Action:    action,
		Severity:  domain.ParseSeverity(w.Severity),
		ActorID:   w.ActorID,
		Target:    w.Target,
		Message:   message,
		Timestamp: timestamp,
		Metadata:  w.Metadata,
	}
}
