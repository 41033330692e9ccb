package stream

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sentineliq/dashboard-agent/internal/core/domain"
)

// Kind tags the result of classifying one inbound frame.
type Kind int

const (
	// KindHeartbeat is a server liveness probe requiring an immediate reply.
	KindHeartbeat Kind = iota

	// KindConnectionAck covers the backend's "connected" and "pong" frames.
	// They carry no normalizeable payload and are ignored.
	KindConnectionAck

	// KindDomainEvent is a normalized dashboard event ready for the feed.
	KindDomainEvent

	// KindUnparseable marks frames that are dropped: invalid JSON, missing
	// type, or missing payload.
	KindUnparseable
)

// Classification is the tagged result of normalizing one raw frame.
// Event is only valid when Kind == KindDomainEvent.
type Classification struct {
	Kind  Kind
	Event domain.DashboardEvent
}

// frame is the wire shape of an inbound text frame.
type frame struct {
	Type      string        `json:"type"`
	Timestamp string        `json:"timestamp"`
	Payload   *eventPayload `json:"payload"`
}

type eventPayload struct {
	ID       any            `json:"id"`
	Action   string         `json:"action"`
	Severity string         `json:"severity"`
	ActorID  string         `json:"actor_id"`
	Target   string         `json:"target"`
	Message  string         `json:"message"`
	Metadata map[string]any `json:"metadata"`
}

// Normalizer turns raw inbound frames into classified messages, filling the
// documented defaults for missing event fields. It never errors outward:
// anything it cannot make sense of is classified KindUnparseable.
type Normalizer struct {
	now   func() time.Time
	newID func() string
}

// NewNormalizer creates a normalizer using wall-clock receipt time and
// generated UUIDs for events that arrive without an id.
func NewNormalizer() *Normalizer {
	return &Normalizer{
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// Classify parses one raw text frame.
func (n *Normalizer) Classify(raw []byte) Classification {
	var f frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return Classification{Kind: KindUnparseable}
	}

	switch f.Type {
	case "heartbeat":
		return Classification{Kind: KindHeartbeat}
	case "connected", "pong":
		return Classification{Kind: KindConnectionAck}
	case "":
		return Classification{Kind: KindUnparseable}
	}

	if f.Payload == nil {
		return Classification{Kind: KindUnparseable}
	}

	return Classification{
		Kind:  KindDomainEvent,
		Event: n.normalize(f),
	}
}

// normalize maps the wire payload onto a DashboardEvent, defaulting every
// field the invariants require to be populated.
func (n *Normalizer) normalize(f frame) domain.DashboardEvent {
	p := f.Payload

	id := stringID(p.ID)
	if id == "" {
		id = n.newID()
	}

	action := p.Action
	if action == "" {
		action = f.Type
	}

	message := p.Message
	if message == "" {
		message = f.Type
	}

	return domain.DashboardEvent{
		ID:        id,
		Type:      domain.ParseEventType(f.Type),
		Action:    action,
		Severity:  domain.ParseSeverity(p.Severity),
		ActorID:   p.ActorID,
		Target:    p.Target,
		Message:   message,
		Timestamp: n.parseTimestamp(f.Timestamp),
		Metadata:  p.Metadata,
	}
}

// parseTimestamp accepts RFC 3339 with or without a zone offset (the backend
// emits naive UTC isoformat strings). Anything else falls back to receipt
// time.
func (n *Normalizer) parseTimestamp(s string) time.Time {
	if s == "" {
		return n.now().UTC()
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02T15:04:05.999999999", s); err == nil {
		return t.UTC()
	}
	return n.now().UTC()
}

// stringID renders a wire id of any JSON type as a string. The backend sends
// integer ids in REST responses and string ids over the stream.
func stringID(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return id
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	default:
		return fmt.Sprint(id)
	}
}
