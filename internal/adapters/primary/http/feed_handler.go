package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sentineliq/dashboard-agent/internal/core/ports"
)

const (
	defaultFeedLimit = 50
	maxFeedLimit     = 200
)

// FeedHandler serves the buffered event feed, the notification side channel,
// and the stream enable/disable toggle over the local ops API.
type FeedHandler struct {
	feed         ports.FeedService
	stream       ports.StreamClient
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

// NewFeedHandler creates a new feed handler
func NewFeedHandler(feed ports.FeedService, stream ports.StreamClient, errorHandler *ErrorHandler, logger *slog.Logger) *FeedHandler {
	return &FeedHandler{
		feed:         feed,
		stream:       stream,
		errorHandler: errorHandler,
		logger:       logger.With("handler", "feed"),
	}
}

// RegisterRoutes sets up the routing for all feed endpoints.
func (h *FeedHandler) RegisterRoutes(r chi.Router) {
	r.Get("/events", h.HandleListEvents)
	r.Delete("/events", h.HandleClearEvents)

	r.Get("/notifications", h.HandleListNotifications)
	r.Delete("/notifications", h.HandleClearNotifications)
	r.Delete("/notifications/{notificationID}", h.HandleRemoveNotification)

	r.Route("/stream", func(r chi.Router) {
		r.Get("/status", h.HandleStreamStatus)
		r.Post("/enable", h.HandleEnableStream)
		r.Post("/disable", h.HandleDisableStream)
	})
}

// HandleListEvents returns the most recent buffered events, newest first.
func (h *FeedHandler) HandleListEvents(w http.ResponseWriter, r *http.Request) {
	limit := defaultFeedLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			WriteJSON(w, http.StatusBadRequest, ErrorResponse{
				Error: "limit must be a positive integer",
				Code:  "BAD_REQUEST",
			})
			return
		}
		limit = min(parsed, maxFeedLimit)
	}

	events := h.feed.Events()
	if len(events) > limit {
		events = events[:limit]
	}

	WriteList(w, events)
}

// HandleClearEvents empties the event buffer.
func (h *FeedHandler) HandleClearEvents(w http.ResponseWriter, r *http.Request) {
	h.feed.ClearEvents()
	WriteNoContent(w)
}

// HandleListNotifications returns every undismissed notification.
func (h *FeedHandler) HandleListNotifications(w http.ResponseWriter, r *http.Request) {
	WriteList(w, h.feed.Notifications())
}

// HandleRemoveNotification dismisses one notification.
func (h *FeedHandler) HandleRemoveNotification(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "notificationID")

	if !h.feed.RemoveNotification(id) {
		WriteJSON(w, http.StatusNotFound, ErrorResponse{
			Error: "Notification not found",
			Code:  "NOT_FOUND",
		})
		return
	}

	WriteNoContent(w)
}

// HandleClearNotifications dismisses all notifications.
func (h *FeedHandler) HandleClearNotifications(w http.ResponseWriter, r *http.Request) {
	h.feed.ClearNotifications()
	WriteNoContent(w)
}

// HandleStreamStatus reports the connection state machine's snapshot.
func (h *FeedHandler) HandleStreamStatus(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, h.stream.Status())
}

// HandleEnableStream enables the live feed.
func (h *FeedHandler) HandleEnableStream(w http.ResponseWriter, r *http.Request) {
	h.stream.Start()
	h.logger.Info("stream enabled via ops API")
	WriteSuccess(w, h.stream.Status())
}

// HandleDisableStream disables the live feed and tears down the connection.
func (h *FeedHandler) HandleDisableStream(w http.ResponseWriter, r *http.Request) {
	h.stream.Stop()
	h.logger.Info("stream disabled via ops API")
	WriteSuccess(w, h.stream.Status())
}
