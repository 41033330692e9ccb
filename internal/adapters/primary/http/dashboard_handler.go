package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sentineliq/dashboard-agent/internal/core/ports"
)

const defaultTimeRange = "1h"

var validTimeRanges = map[string]bool{
	"1h": true, "6h": true, "24h": true, "7d": true,
}

// DashboardHandler mirrors the admin backend's dashboard queries through the
// agent, so local tooling can read health, sessions, risk and audit data
// without holding backend credentials itself.
type DashboardHandler struct {
	backend      ports.DashboardAPI
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(backend ports.DashboardAPI, errorHandler *ErrorHandler, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{
		backend:      backend,
		errorHandler: errorHandler,
		logger:       logger.With("handler", "dashboard"),
	}
}

// RegisterRoutes sets up the routing for all dashboard mirror endpoints.
func (h *DashboardHandler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.HandleSystemHealth)
	r.Get("/metrics", h.HandleSystemMetrics)

	r.Route("/users", func(r chi.Router) {
		r.Get("/active", h.HandleActiveUsers)
		r.Get("/stats", h.HandleUserStats)
		r.Post("/{userID}/force-logout", h.HandleForceLogout)
	})

	r.Route("/risk", func(r chi.Router) {
		r.Get("/summary", h.HandleRiskSummary)
		r.Get("/high-risk-users", h.HandleHighRiskUsers)
	})

	r.Get("/audit", h.HandleAuditLogs)
}

// HandleSystemHealth proxies the backend health overview.
func (h *DashboardHandler) HandleSystemHealth(w http.ResponseWriter, r *http.Request) {
	health, err := h.backend.GetSystemHealth(r.Context())
	if HandleError(w, r, err, h.errorHandler) {
		return
	}
	WriteSuccess(w, health)
}

// HandleSystemMetrics proxies performance metrics for a time range.
func (h *DashboardHandler) HandleSystemMetrics(w http.ResponseWriter, r *http.Request) {
	timeRange := r.URL.Query().Get("time_range")
	if timeRange == "" {
		timeRange = defaultTimeRange
	}
	if !validTimeRanges[timeRange] {
		WriteJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: "time_range must be one of 1h, 6h, 24h, 7d",
			Code:  "BAD_REQUEST",
		})
		return
	}

	metrics, err := h.backend.GetSystemMetrics(r.Context(), timeRange)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}
	WriteSuccess(w, metrics)
}

// HandleActiveUsers proxies the live session listing.
func (h *DashboardHandler) HandleActiveUsers(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 50, 100)

	users, err := h.backend.GetActiveUsers(r.Context(), limit)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}
	WriteList(w, users)
}

// HandleUserStats proxies aggregate account statistics.
func (h *DashboardHandler) HandleUserStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.backend.GetUserStats(r.Context())
	if HandleError(w, r, err, h.errorHandler) {
		return
	}
	WriteSuccess(w, stats)
}

// HandleForceLogout revokes all sessions of one user on the backend.
func (h *DashboardHandler) HandleForceLogout(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	if err := h.backend.ForceLogout(r.Context(), userID); HandleError(w, r, err, h.errorHandler) {
		return
	}

	h.logger.Info("forced user logout", "user_id", userID)
	WriteNoContent(w)
}

// HandleRiskSummary proxies the fraud/risk analytics summary.
func (h *DashboardHandler) HandleRiskSummary(w http.ResponseWriter, r *http.Request) {
	timeRange := r.URL.Query().Get("time_range")
	if timeRange == "" {
		timeRange = "24h"
	}
	if !validTimeRanges[timeRange] {
		WriteJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: "time_range must be one of 1h, 6h, 24h, 7d",
			Code:  "BAD_REQUEST",
		})
		return
	}

	summary, err := h.backend.GetRiskSummary(r.Context(), timeRange)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}
	WriteSuccess(w, summary)
}

// HandleHighRiskUsers proxies the high-risk user listing.
func (h *DashboardHandler) HandleHighRiskUsers(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 20, 100)

	users, err := h.backend.GetHighRiskUsers(r.Context(), limit)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}
	WriteList(w, users)
}

// HandleAuditLogs proxies audit-log records.
func (h *DashboardHandler) HandleAuditLogs(w http.ResponseWriter, r *http.Request) {
	filter := ports.AuditFilter{
		Limit:   parseLimit(r, 50, 200),
		Action:  r.URL.Query().Get("action"),
		ActorID: r.URL.Query().Get("actor_id"),
	}

	if raw := r.URL.Query().Get("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			WriteJSON(w, http.StatusBadRequest, ErrorResponse{
				Error: "since must be an RFC 3339 timestamp",
				Code:  "BAD_REQUEST",
			})
			return
		}
		filter.Since = &since
	}

	logs, err := h.backend.GetAuditLogs(r.Context(), filter)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}
	WriteList(w, logs)
}

// parseLimit reads the limit query parameter, clamped to [1, max].
func parseLimit(r *http.Request, fallback, max int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return min(parsed, max)
}
