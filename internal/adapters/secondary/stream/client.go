package stream

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sentineliq/dashboard-agent/internal/core/domain"
	"github.com/sentineliq/dashboard-agent/internal/core/ports"
	"github.com/sentineliq/dashboard-agent/internal/metrics"
)

const (
	// Time allowed to establish the transport.
	dialTimeout = 10 * time.Second

	// Client-initiated keepalive period, independent of server heartbeats.
	DefaultKeepaliveInterval = 25 * time.Second

	// Outbound queue depth per handle. Replies beyond it are dropped; the
	// keepalive ticker covers liveness regardless.
	sendBufferSize = 16
)

// pingPayload is the only outbound payload the client ever sends.
var pingPayload = []byte("ping")

// State is the connection lifecycle position.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateClosed
)

var stateNames = map[State]string{
	StateIdle:       "idle",
	StateConnecting: "connecting",
	StateOpen:       "open",
	StateClosed:     "closed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Config wires a Client's collaborators.
type Config struct {
	// URL is the push-connection endpoint without credentials. The access
	// token is appended as a query parameter at dial time.
	URL string

	Dialer      ports.StreamDialer
	Credentials ports.CredentialSource
	Sink        ports.EventSink

	Policy            RetryPolicy
	KeepaliveInterval time.Duration

	Logger *slog.Logger
}

// Client owns one logical push connection to the dashboard backend: it
// establishes the transport, answers heartbeats, sends periodic keepalives,
// normalizes inbound frames into the sink, and recovers from abnormal
// closures with capped exponential backoff.
//
// Exactly one live transport handle exists at a time. Every handle carries a
// generation number; callbacks from a replaced handle are discarded, so a
// stale close can never schedule a reconnect against the current handle.
// Each handle also has exactly one writer goroutine: heartbeat replies are
// queued onto a send channel the writer drains alongside its keepalive
// ticker, so the transport never sees concurrent writes.
type Client struct {
	url        string
	dialer     ports.StreamDialer
	creds      ports.CredentialSource
	sink       ports.EventSink
	normalizer *Normalizer
	policy     RetryPolicy
	keepalive  time.Duration
	logger     *slog.Logger

	// afterFunc schedules the reconnect timer; replaced in tests.
	afterFunc func(time.Duration, func()) *time.Timer

	mu           sync.Mutex
	enabled      bool
	state        State
	closedReason string
	attempts     int
	exhausted    bool
	generation   uint64
	conn         ports.StreamConn
	connDone     chan struct{}
	retryTimer   *time.Timer
}

// Ensure Client implements the toggle port.
var _ ports.StreamClient = (*Client)(nil)

// NewClient creates a stream client and subscribes it to credential changes.
// The client starts disabled; call Start to connect.
func NewClient(cfg Config) *Client {
	policy := cfg.Policy
	if policy.InitialDelay <= 0 {
		policy = DefaultRetryPolicy()
	}

	keepalive := cfg.KeepaliveInterval
	if keepalive <= 0 {
		keepalive = DefaultKeepaliveInterval
	}

	c := &Client{
		url:        cfg.URL,
		dialer:     cfg.Dialer,
		creds:      cfg.Credentials,
		sink:       cfg.Sink,
		normalizer: NewNormalizer(),
		policy:     policy,
		keepalive:  keepalive,
		logger:     cfg.Logger.With("component", "stream"),
		afterFunc:  time.AfterFunc,
		state:      StateIdle,
	}

	c.creds.OnChange(c.refresh)
	return c
}

// Start enables the stream and connects if a credential is available.
// Calling Start while a transport is connecting or open is a no-op.
func (c *Client) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.enabled = true

	if c.state == StateConnecting || c.state == StateOpen {
		return
	}

	if !c.creds.Authenticated() {
		c.logger.Debug("start deferred, no credential available")
		return
	}

	c.connectLocked()
}

// Stop disables the stream and tears down the transport and all timers. The
// closure is marked clean so no reconnect is scheduled; pending reconnect and
// keepalive timers are cancelled before the transport is closed.
func (c *Client) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.enabled = false
	c.teardownLocked()
	c.setStateLocked(StateIdle, "")
	c.attempts = 0
	c.exhausted = false
}

// Status returns a snapshot of the connection.
func (c *Client) Status() domain.StreamStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	return domain.StreamStatus{
		State:             c.state.String(),
		Enabled:           c.enabled,
		ReconnectAttempts: c.attempts,
		ClosedReason:      c.closedReason,
	}
}

// refresh re-evaluates connection eligibility after a credential change. A
// fresh token re-arms the client out of terminal Closed states, including
// auth rejection and retry exhaustion.
func (c *Client) refresh() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.enabled {
		return
	}

	if !c.creds.Authenticated() {
		c.teardownLocked()
		c.setStateLocked(StateClosed, "credential revoked")
		return
	}

	c.attempts = 0
	c.exhausted = false

	if c.state == StateIdle || c.state == StateClosed {
		c.connectLocked()
	}
}

// connectLocked replaces any prior handle and begins an async dial. Caller
// holds c.mu.
func (c *Client) connectLocked() {
	c.teardownLocked()
	c.setStateLocked(StateConnecting, "")

	c.generation++
	gen := c.generation

	go c.dial(gen)
}

// teardownLocked detaches and closes the current handle and cancels the
// reconnect timer. The generation bump marks all callbacks from the old
// handle as stale. Caller holds c.mu.
func (c *Client) teardownLocked() {
	c.generation++

	if c.retryTimer != nil {
		c.retryTimer.Stop()
		c.retryTimer = nil
	}

	if c.connDone != nil {
		close(c.connDone)
		c.connDone = nil
	}

	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}

func (c *Client) setStateLocked(state State, reason string) {
	if c.state != state {
		c.logger.Debug("connection state changed",
			"from", c.state.String(),
			"to", state.String(),
		)
	}
	c.state = state
	c.closedReason = reason
	metrics.ConnectionState.Set(float64(state))
}

// dial establishes the transport. Runs outside the lock; the generation check
// discards the result if the handle was replaced or torn down meanwhile.
func (c *Client) dial(gen uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()

	conn, err := c.dialer.Dial(ctx, c.connectURL())

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation || c.state != StateConnecting {
		if err == nil {
			_ = conn.Close()
		}
		return
	}

	if err != nil {
		// Transport construction failure is an immediate abnormal closure,
		// subject to the same retry policy.
		c.logger.Warn("transport construction failed", "error", err)
		c.handleCloseLocked(websocket.CloseAbnormalClosure, false)
		return
	}

	c.conn = conn
	c.connDone = make(chan struct{})
	c.attempts = 0
	c.setStateLocked(StateOpen, "")

	c.logger.Info("event stream connected")
	c.sink.PushNotification(domain.NewNotification(
		domain.NotificationInfo, "Live feed", "Event stream connected",
	))

	send := make(chan []byte, sendBufferSize)
	go c.readLoop(conn, gen, send)
	go c.writeLoop(conn, send, c.connDone)
}

// connectURL appends the current access token to the endpoint's query
// component.
func (c *Client) connectURL() string {
	u, err := url.Parse(c.url)
	if err != nil {
		return c.url
	}
	q := u.Query()
	q.Set("token", c.creds.Token())
	u.RawQuery = q.Encode()
	return u.String()
}

// readLoop pumps inbound frames until the transport closes. Runs in its own
// goroutine, one per handle.
func (c *Client) readLoop(conn ports.StreamConn, gen uint64, send chan<- []byte) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			code, clean := closeDetails(err)

			c.mu.Lock()
			if gen == c.generation {
				c.handleCloseLocked(code, clean)
			}
			c.mu.Unlock()
			return
		}

		c.handleFrame(send, raw)
	}
}

// handleFrame classifies one inbound frame and routes it. Parse failures are
// dropped without touching connection state. Outbound replies go through the
// handle's send channel; the write loop is the only goroutine touching the
// transport's writer side.
func (c *Client) handleFrame(send chan<- []byte, raw []byte) {
	classification := c.normalizer.Classify(raw)

	switch classification.Kind {
	case KindHeartbeat:
		metrics.HeartbeatsAnswered.Inc()
		select {
		case send <- pingPayload:
		default:
			c.logger.Debug("heartbeat reply dropped, send buffer full")
		}

	case KindConnectionAck:
		// Acknowledged; nothing to do.

	case KindDomainEvent:
		metrics.EventsReceived.WithLabelValues(classification.Event.Severity.String()).Inc()
		c.sink.AppendEvent(classification.Event)

	case KindUnparseable:
		metrics.FramesUnparseable.Inc()
		c.logger.Warn("dropping unparseable frame", "size_bytes", len(raw))
	}
}

// writeLoop is the single writer for one handle. It drains queued replies and
// sends a liveness ping on a fixed interval, independent of inbound
// heartbeats. It exits when done closes or a write fails.
func (c *Client) writeLoop(conn ports.StreamConn, send <-chan []byte, done chan struct{}) {
	ticker := time.NewTicker(c.keepalive)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case payload := <-send:
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.logger.Debug("stream write failed", "error", err)
				return
			}
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.TextMessage, pingPayload); err != nil {
				c.logger.Debug("keepalive write failed", "error", err)
				return
			}
			metrics.KeepalivesSent.Inc()
		}
	}
}

// handleCloseLocked applies the retry policy after the transport closed.
// Caller holds c.mu and has already confirmed the closing handle is current.
func (c *Client) handleCloseLocked(code int, clean bool) {
	if c.connDone != nil {
		close(c.connDone)
		c.connDone = nil
	}
	c.conn = nil

	if !c.policy.ShouldRetry(code, clean) {
		reason := "closed cleanly"
		if IsAuthClose(code) {
			reason = "authentication rejected"
			c.logger.Warn("event stream closed, credential rejected", "close_code", code)
		} else {
			c.logger.Info("event stream closed", "close_code", code)
		}
		c.setStateLocked(StateClosed, reason)
		return
	}

	if c.policy.Exhausted(c.attempts) {
		c.setStateLocked(StateClosed, "reconnect attempts exhausted")
		if !c.exhausted {
			c.exhausted = true
			c.logger.Error("giving up on event stream reconnection",
				"attempts", c.attempts,
			)
			notification := domain.NewNotification(
				domain.NotificationError, "Live feed",
				"Event stream disconnected. Refresh to reconnect.",
			)
			notification.Persistent = true
			c.sink.PushNotification(notification)
		}
		return
	}

	delay := c.policy.Delay(c.attempts)
	c.attempts++
	metrics.Reconnects.Inc()

	c.logger.Warn("event stream closed abnormally, reconnecting",
		"close_code", code,
		"attempt", c.attempts,
		"delay_ms", delay.Milliseconds(),
	)

	c.setStateLocked(StateConnecting, "")

	gen := c.generation
	c.retryTimer = c.afterFunc(delay, func() {
		c.mu.Lock()
		defer c.mu.Unlock()

		if gen != c.generation || !c.enabled || c.state != StateConnecting || c.conn != nil {
			return
		}
		c.retryTimer = nil
		c.connectLocked()
	})
}

// closeDetails extracts the close code and cleanliness from a read error.
// Normal and going-away closes count as clean; anything else, including
// transport-level failures without a close frame, is abnormal.
func closeDetails(err error) (code int, clean bool) {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		code = closeErr.Code
		clean = code == websocket.CloseNormalClosure || code == websocket.CloseGoingAway
		return code, clean
	}
	return websocket.CloseAbnormalClosure, false
}
