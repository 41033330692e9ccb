package stream

import (
	"context"

	"github.com/gorilla/websocket"
	"github.com/sentineliq/dashboard-agent/internal/core/ports"
)

// WebsocketDialer adapts gorilla/websocket to the StreamDialer port.
type WebsocketDialer struct {
	dialer *websocket.Dialer
}

// Ensure the adapter satisfies the port.
var _ ports.StreamDialer = (*WebsocketDialer)(nil)

// NewWebsocketDialer creates a dialer with gorilla's defaults.
func NewWebsocketDialer() *WebsocketDialer {
	return &WebsocketDialer{dialer: websocket.DefaultDialer}
}

// Dial establishes a websocket connection to the given URL.
func (d *WebsocketDialer) Dial(ctx context.Context, rawURL string) (ports.StreamConn, error) {
	conn, resp, err := d.dialer.DialContext(ctx, rawURL, nil)
	if err != nil {
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		return nil, err
	}
	return conn, nil
}
