package domain

import (
	"time"

	"github.com/google/uuid"
)

// NotificationKind determines how the UI renders a notification.
type NotificationKind string

const (
	NotificationInfo    NotificationKind = "info"
	NotificationWarning NotificationKind = "warning"
	NotificationError   NotificationKind = "error"
)

// Notification is an ephemeral user-facing entry. It lives in its own
// dismissable list, independent of the event buffer.
type Notification struct {
	ID        string           `json:"id"`
	Kind      NotificationKind `json:"kind"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	CreatedAt time.Time        `json:"createdAt"`

	// Persistent marks notifications that should survive until the user
	// dismisses them explicitly, such as the retry-exhaustion notice.
	Persistent bool `json:"persistent,omitempty"`
}

// NewNotification builds a notification with a fresh identifier.
func NewNotification(kind NotificationKind, title, message string) Notification {
	return Notification{
		ID:        uuid.NewString(),
		Kind:      kind,
		Title:     title,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
}

// NotificationKindFor maps event severity onto the notification kind used for
// the high-severity side channel. Only high and critical events produce one.
func NotificationKindFor(severity Severity) (NotificationKind, bool) {
	switch severity {
	case SeverityCritical:
		return NotificationError, true
	case SeverityHigh:
		return NotificationWarning, true
	default:
		return "", false
	}
}
