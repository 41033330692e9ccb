package services_test

import (
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentineliq/dashboard-agent/internal/core/domain"
	"github.com/sentineliq/dashboard-agent/internal/core/services"
)

func newTestFeed(capacity int) *services.FeedService {
	return services.NewFeedService(capacity, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func testEvent(id string, severity domain.Severity) domain.DashboardEvent {
	return domain.DashboardEvent{
		ID:       id,
		Type:     domain.EventSystem,
		Action:   "test",
		Severity: severity,
		Message:  "message " + id,
	}
}

func TestFeedService_AppendEvent_MostRecentFirst(t *testing.T) {
	feed := newTestFeed(10)

	feed.AppendEvent(testEvent("a", domain.SeverityInfo))
	feed.AppendEvent(testEvent("b", domain.SeverityInfo))
	feed.AppendEvent(testEvent("c", domain.SeverityInfo))

	events := feed.Events()
	require.Len(t, events, 3)
	assert.Equal(t, "c", events[0].ID)
	assert.Equal(t, "b", events[1].ID)
	assert.Equal(t, "a", events[2].ID)
}

func TestFeedService_AppendEvent_EnforcesCapacity(t *testing.T) {
	feed := newTestFeed(5)

	for i := 0; i < 8; i++ {
		feed.AppendEvent(testEvent(fmt.Sprintf("e%d", i), domain.SeverityInfo))
	}

	events := feed.Events()
	require.Len(t, events, 5)

	// The newest five survive; the oldest three fell off the tail.
	assert.Equal(t, "e7", events[0].ID)
	assert.Equal(t, "e3", events[4].ID)
}

func TestFeedService_AppendEvent_SeverityNotifications(t *testing.T) {
	tests := []struct {
		name     string
		severity domain.Severity
		wantKind domain.NotificationKind
		notified bool
	}{
		{"critical produces error notification", domain.SeverityCritical, domain.NotificationError, true},
		{"high produces warning notification", domain.SeverityHigh, domain.NotificationWarning, true},
		{"warning produces nothing", domain.SeverityWarning, "", false},
		{"info produces nothing", domain.SeverityInfo, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			feed := newTestFeed(10)
			feed.AppendEvent(testEvent("x", tt.severity))

			notifications := feed.Notifications()
			if !tt.notified {
				assert.Empty(t, notifications)
				return
			}

			require.Len(t, notifications, 1)
			assert.Equal(t, tt.wantKind, notifications[0].Kind)
			assert.Equal(t, "message x", notifications[0].Message)
			assert.NotEmpty(t, notifications[0].ID)
			assert.False(t, notifications[0].Persistent)
		})
	}
}

func TestFeedService_EventsReturnsSnapshot(t *testing.T) {
	feed := newTestFeed(10)
	feed.AppendEvent(testEvent("a", domain.SeverityInfo))

	snapshot := feed.Events()
	feed.AppendEvent(testEvent("b", domain.SeverityInfo))

	assert.Len(t, snapshot, 1)
	assert.Len(t, feed.Events(), 2)
}

func TestFeedService_ClearEvents_KeepsNotifications(t *testing.T) {
	feed := newTestFeed(10)
	feed.AppendEvent(testEvent("a", domain.SeverityCritical))

	feed.ClearEvents()

	assert.Empty(t, feed.Events())
	assert.Len(t, feed.Notifications(), 1)
}

func TestFeedService_RemoveNotification(t *testing.T) {
	feed := newTestFeed(10)
	feed.PushNotification(domain.NewNotification(domain.NotificationInfo, "one", "first"))
	feed.PushNotification(domain.NewNotification(domain.NotificationInfo, "two", "second"))

	notifications := feed.Notifications()
	require.Len(t, notifications, 2)

	assert.True(t, feed.RemoveNotification(notifications[0].ID))
	assert.False(t, feed.RemoveNotification("no-such-id"))

	remaining := feed.Notifications()
	require.Len(t, remaining, 1)
	assert.Equal(t, "two", remaining[0].Title)
}

func TestFeedService_ClearNotifications(t *testing.T) {
	feed := newTestFeed(10)
	feed.PushNotification(domain.NewNotification(domain.NotificationWarning, "t", "m"))
	feed.PushNotification(domain.NewNotification(domain.NotificationError, "t", "m"))

	feed.ClearNotifications()

	assert.Empty(t, feed.Notifications())
}
