package services

import (
	"log/slog"
	"sync"

	"github.com/sentineliq/dashboard-agent/internal/core/domain"
	"github.com/sentineliq/dashboard-agent/internal/core/ports"
	"github.com/sentineliq/dashboard-agent/internal/metrics"
)

// DefaultFeedCapacity bounds the recent-event buffer when no capacity is given.
const DefaultFeedCapacity = 100

// FeedService owns the dashboard event feed: a bounded most-recent-first
// buffer of events plus a separate, user-dismissable notification list.
// The stream client only ever appends; readers get snapshots.
type FeedService struct {
	mu            sync.RWMutex
	events        []domain.DashboardEvent
	notifications []domain.Notification
	capacity      int
	logger        *slog.Logger
}

// Ensure FeedService implements the feed port.
var _ ports.FeedService = (*FeedService)(nil)

// NewFeedService creates a feed with the given capacity. A non-positive
// capacity falls back to DefaultFeedCapacity.
func NewFeedService(capacity int, logger *slog.Logger) *FeedService {
	if capacity <= 0 {
		capacity = DefaultFeedCapacity
	}
	return &FeedService{
		capacity: capacity,
		logger:   logger.With("component", "feed"),
	}
}

// AppendEvent inserts the event at the head of the buffer, truncating the
// tail so the buffer never exceeds its capacity. Events of severity high or
// critical also produce a notification on the side channel. Order is receipt
// order: out-of-order backend delivery is reflected verbatim.
func (f *FeedService) AppendEvent(event domain.DashboardEvent) {
	f.mu.Lock()
	f.events = append([]domain.DashboardEvent{event}, f.events...)
	if len(f.events) > f.capacity {
		f.events = f.events[:f.capacity]
	}
	f.mu.Unlock()

	if kind, ok := domain.NotificationKindFor(event.Severity); ok {
		f.PushNotification(domain.NewNotification(kind, string(event.Type), event.Message))
	}
}

// PushNotification adds a notification to the side channel.
func (f *FeedService) PushNotification(notification domain.Notification) {
	f.mu.Lock()
	f.notifications = append(f.notifications, notification)
	f.mu.Unlock()

	metrics.NotificationsPushed.WithLabelValues(string(notification.Kind)).Inc()

	f.logger.Debug("notification pushed",
		"kind", notification.Kind,
		"title", notification.Title,
	)
}

// Events returns a snapshot of the buffer, most recent first.
func (f *FeedService) Events() []domain.DashboardEvent {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]domain.DashboardEvent, len(f.events))
	copy(out, f.events)
	return out
}

// ClearEvents empties the event buffer. Notifications are not affected.
func (f *FeedService) ClearEvents() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = nil
}

// Notifications returns a snapshot of the notification list in push order.
func (f *FeedService) Notifications() []domain.Notification {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]domain.Notification, len(f.notifications))
	copy(out, f.notifications)
	return out
}

// RemoveNotification dismisses a single notification by ID.
func (f *FeedService) RemoveNotification(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i, n := range f.notifications {
		if n.ID == id {
			f.notifications = append(f.notifications[:i], f.notifications[i+1:]...)
			return true
		}
	}
	return false
}

// ClearNotifications dismisses all notifications.
func (f *FeedService) ClearNotifications() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notifications = nil
}
