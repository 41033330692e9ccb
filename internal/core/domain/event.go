package domain

import (
	"encoding/json"
	"time"
)

// EventType categorizes a dashboard event. The set is closed: anything the
// backend sends outside it is normalized to EventSystem.
type EventType string

const (
	EventLogin       EventType = "login"
	EventLogout      EventType = "logout"
	EventUserAction  EventType = "user_action"
	EventAdminAction EventType = "admin_action"
	EventRisk        EventType = "risk"
	EventSystem      EventType = "system"
)

// ParseEventType maps a wire value onto the closed event type set.
func ParseEventType(s string) EventType {
	switch EventType(s) {
	case EventLogin, EventLogout, EventUserAction, EventAdminAction, EventRisk, EventSystem:
		return EventType(s)
	default:
		return EventSystem
	}
}

// Severity is an ordinal scale: info < warning < high < critical.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityHigh
	SeverityCritical
)

var severityNames = map[Severity]string{
	SeverityInfo:     "info",
	SeverityWarning:  "warning",
	SeverityHigh:     "high",
	SeverityCritical: "critical",
}

func (s Severity) String() string {
	if name, ok := severityNames[s]; ok {
		return name
	}
	return "info"
}

// MarshalJSON emits the severity as its wire string.
func (s Severity) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON accepts the wire string form.
func (s *Severity) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	*s = ParseSeverity(name)
	return nil
}

// ParseSeverity maps a wire string onto the ordinal scale. Unknown or empty
// values fall back to info.
func ParseSeverity(s string) Severity {
	switch s {
	case "warning":
		return SeverityWarning
	case "high":
		return SeverityHigh
	case "critical":
		return SeverityCritical
	default:
		return SeverityInfo
	}
}

// StreamStatus is a snapshot of the push-connection state machine.
type StreamStatus struct {
	State             string `json:"state"`
	Enabled           bool   `json:"enabled"`
	ReconnectAttempts int    `json:"reconnectAttempts"`
	ClosedReason      string `json:"closedReason,omitempty"`
}

// DashboardEvent is a normalized event as it appears in the live feed.
// Every instance that reaches the feed has Type, Severity, Message and
// Timestamp populated, possibly with defaults filled in by the normalizer.
type DashboardEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Action    string         `json:"action"`
	Severity  Severity       `json:"severity"`
	ActorID   string         `json:"actorId,omitempty"`
	Target    string         `json:"target,omitempty"`
	Message   string         `json:"message"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}
