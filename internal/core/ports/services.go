package ports

import (
	"context"
	"time"

	"github.com/sentineliq/dashboard-agent/internal/core/domain"
)

// FeedService defines the consumer-facing surface of the event feed: the
// bounded recent-event buffer plus the dismissable notification side channel.
type FeedService interface {
	EventSink

	Events() []domain.DashboardEvent
	ClearEvents()

	Notifications() []domain.Notification
	RemoveNotification(id string) bool
	ClearNotifications()
}

// EventFilter narrows a recent-events query against the backend.
type EventFilter struct {
	Limit      int
	Types      []domain.EventType
	Severities []domain.Severity
	Since      *time.Time
}

// AuditFilter narrows an audit-log query against the backend.
type AuditFilter struct {
	Limit   int
	Offset  int
	Action  string
	ActorID string
	Since   *time.Time
	Until   *time.Time
}

// SystemHealth mirrors the backend's health overview response.
type SystemHealth struct {
	Status               string                   `json:"status"`
	Timestamp            time.Time                `json:"timestamp"`
	Services             map[string]ServiceHealth `json:"services"`
	OverallHealthPercent float64                  `json:"overall_health_percent"`
}

// ServiceHealth is the per-service slice of the health overview.
type ServiceHealth struct {
	Status    string  `json:"status"`
	LatencyMs float64 `json:"latency_ms,omitempty"`
	Error     string  `json:"error,omitempty"`
}

// SystemMetrics mirrors the backend's metrics response for a time range.
type SystemMetrics struct {
	TimeRange string `json:"time_range"`
	Latency   struct {
		P50Ms float64 `json:"p50_ms"`
		P95Ms float64 `json:"p95_ms"`
		P99Ms float64 `json:"p99_ms"`
	} `json:"latency"`
	Throughput struct {
		RequestsPerSecond float64 `json:"requests_per_second"`
		TotalRequests     int64   `json:"total_requests"`
	} `json:"throughput"`
	Errors struct {
		RatePercent float64 `json:"rate_percent"`
		Count5xx    int64   `json:"count_5xx"`
		Count4xx    int64   `json:"count_4xx"`
	} `json:"errors"`
}

// ActiveUser is one row of the live session listing.
type ActiveUser struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	FirstName string     `json:"first_name,omitempty"`
	LastName  string     `json:"last_name,omitempty"`
	Role      string     `json:"role"`
	LoginTime *time.Time `json:"login_time,omitempty"`
	IPAddress string     `json:"ip_address,omitempty"`
	RiskScore float64    `json:"risk_score"`
	Status    string     `json:"status,omitempty"`
}

// UserStats aggregates account counts by role, status and activity.
type UserStats struct {
	Total          int64            `json:"total_users"`
	ActiveToday    int64            `json:"active_today"`
	NewThisWeek    int64            `json:"new_this_week"`
	ByRole         map[string]int64 `json:"by_role,omitempty"`
	ByStatus       map[string]int64 `json:"by_status,omitempty"`
	Verified       int64            `json:"verified"`
	ActiveSessions int64            `json:"active_sessions"`
}

// RiskSummary mirrors the backend's fraud/risk analytics summary.
type RiskSummary struct {
	TimeRange string `json:"time_range"`
	Summary   struct {
		Blocked  int64 `json:"blocked"`
		Flagged  int64 `json:"flagged"`
		Reviewed int64 `json:"reviewed"`
		Allowed  int64 `json:"allowed"`
	} `json:"summary"`
	AvgRiskScore     float64 `json:"avg_risk_score"`
	TotalEvents      int64   `json:"total_events"`
	RiskDistribution struct {
		Low    int64 `json:"low"`
		Medium int64 `json:"medium"`
		High   int64 `json:"high"`
	} `json:"risk_distribution"`
}

// HighRiskUser is one row of the high-risk listing.
type HighRiskUser struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	FirstName   string     `json:"first_name,omitempty"`
	LastName    string     `json:"last_name,omitempty"`
	RiskScore   float64    `json:"risk_score"`
	Role        string     `json:"role,omitempty"`
	Status      string     `json:"status,omitempty"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	RiskFactors []string   `json:"risk_factors,omitempty"`
}

// AuditActor identifies who performed an audited action.
type AuditActor struct {
	ID    string `json:"id,omitempty"`
	Email string `json:"email,omitempty"`
}

// AuditEntry is one backend audit-log record.
type AuditEntry struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Actor     AuditActor     `json:"actor"`
	Action    string         `json:"action"`
	Target    string         `json:"target,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// TokenPair is the credential set returned by a successful login.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// DashboardAPI is the REST query surface of the admin backend.
type DashboardAPI interface {
	Login(ctx context.Context, email, password string) (*TokenPair, error)

	GetSystemHealth(ctx context.Context) (*SystemHealth, error)
	GetSystemMetrics(ctx context.Context, timeRange string) (*SystemMetrics, error)

	GetActiveUsers(ctx context.Context, limit int) ([]ActiveUser, error)
	GetUserStats(ctx context.Context) (*UserStats, error)
	ForceLogout(ctx context.Context, userID string) error

	GetRecentEvents(ctx context.Context, filter EventFilter) ([]domain.DashboardEvent, error)

	GetRiskSummary(ctx context.Context, timeRange string) (*RiskSummary, error)
	GetHighRiskUsers(ctx context.Context, limit int) ([]HighRiskUser, error)

	GetAuditLogs(ctx context.Context, filter AuditFilter) ([]AuditEntry, error)
}
