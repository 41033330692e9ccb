package ports

import (
	"context"

	"github.com/sentineliq/dashboard-agent/internal/core/domain"
)

// EventSink is the only mutation surface the stream client is allowed to call
// on dashboard state.
type EventSink interface {
	AppendEvent(event domain.DashboardEvent)
	PushNotification(notification domain.Notification)
}

// CredentialSource exposes the current access token. The stream client
// re-evaluates connection eligibility whenever the source reports a change.
type CredentialSource interface {
	// Token returns the current access token, or "" when none is held.
	Token() string

	// Authenticated reports whether the held token is present and unexpired.
	Authenticated() bool

	// OnChange registers a listener invoked after the credential changes.
	OnChange(listener func())
}

// StreamConn is one live transport handle. *websocket.Conn satisfies it.
type StreamConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// StreamDialer establishes push-connection handles.
type StreamDialer interface {
	Dial(ctx context.Context, url string) (StreamConn, error)
}

// StreamClient is the toggle surface the owning view controls. No direct
// handle to the transport is ever exposed.
type StreamClient interface {
	Start()
	Stop()
	Status() domain.StreamStatus
}
