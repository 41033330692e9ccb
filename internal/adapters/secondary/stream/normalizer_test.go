package stream

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentineliq/dashboard-agent/internal/core/domain"
)

func testNormalizer() *Normalizer {
	return &Normalizer{
		now:   func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) },
		newID: func() string { return "generated-id" },
	}
}

func TestNormalizer_Classify_ControlFrames(t *testing.T) {
	n := testNormalizer()

	tests := []struct {
		name string
		raw  string
		want Kind
	}{
		{"heartbeat", `{"type":"heartbeat"}`, KindHeartbeat},
		{"connected ack", `{"type":"connected","timestamp":"2025-06-01T11:59:00Z"}`, KindConnectionAck},
		{"pong ack", `{"type":"pong"}`, KindConnectionAck},
		{"invalid json", `{not json`, KindUnparseable},
		{"missing type", `{"payload":{"message":"hi"}}`, KindUnparseable},
		{"event without payload", `{"type":"risk_alert"}`, KindUnparseable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, n.Classify([]byte(tt.raw)).Kind)
		})
	}
}

func TestNormalizer_Classify_DomainEvent(t *testing.T) {
	n := testNormalizer()

	raw := `{
		"type": "risk",
		"timestamp": "2025-06-01T11:58:30Z",
		"payload": {
			"id": "evt-17",
			"action": "score_threshold_exceeded",
			"severity": "critical",
			"actor_id": "user-9",
			"target": "transaction-442",
			"message": "Risk score 0.97 exceeds threshold",
			"metadata": {"score": 0.97}
		}
	}`

	c := n.Classify([]byte(raw))
	require.Equal(t, KindDomainEvent, c.Kind)

	assert.Equal(t, "evt-17", c.Event.ID)
	assert.Equal(t, domain.EventRisk, c.Event.Type)
	assert.Equal(t, "score_threshold_exceeded", c.Event.Action)
	assert.Equal(t, domain.SeverityCritical, c.Event.Severity)
	assert.Equal(t, "user-9", c.Event.ActorID)
	assert.Equal(t, "transaction-442", c.Event.Target)
	assert.Equal(t, "Risk score 0.97 exceeds threshold", c.Event.Message)
	assert.Equal(t, time.Date(2025, 6, 1, 11, 58, 30, 0, time.UTC), c.Event.Timestamp)
	assert.Equal(t, 0.97, c.Event.Metadata["score"])
}

func TestNormalizer_Classify_Defaults(t *testing.T) {
	n := testNormalizer()

	c := n.Classify([]byte(`{"type":"login","payload":{}}`))
	require.Equal(t, KindDomainEvent, c.Kind)

	assert.Equal(t, "generated-id", c.Event.ID)
	assert.Equal(t, domain.EventLogin, c.Event.Type)
	assert.Equal(t, "login", c.Event.Action)
	assert.Equal(t, "login", c.Event.Message)
	assert.Equal(t, domain.SeverityInfo, c.Event.Severity)
	assert.Equal(t, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), c.Event.Timestamp)
}

func TestNormalizer_Classify_UnknownTypeBecomesSystem(t *testing.T) {
	n := testNormalizer()

	c := n.Classify([]byte(`{"type":"maintenance_window","payload":{"message":"upgrading"}}`))
	require.Equal(t, KindDomainEvent, c.Kind)
	assert.Equal(t, domain.EventSystem, c.Event.Type)
}

func TestNormalizer_Classify_NumericID(t *testing.T) {
	n := testNormalizer()

	c := n.Classify([]byte(`{"type":"logout","payload":{"id":4217}}`))
	require.Equal(t, KindDomainEvent, c.Kind)
	assert.Equal(t, "4217", c.Event.ID)
}

func TestNormalizer_ParseTimestamp(t *testing.T) {
	n := testNormalizer()
	receipt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		in   string
		want time.Time
	}{
		{"rfc3339 with zone", "2025-06-01T10:30:00+02:00", time.Date(2025, 6, 1, 10, 30, 0, 0, time.FixedZone("", 2*3600))},
		{"naive isoformat", "2025-06-01T08:15:00.500000", time.Date(2025, 6, 1, 8, 15, 0, 500000000, time.UTC)},
		{"empty falls back to receipt time", "", receipt},
		{"garbage falls back to receipt time", "yesterday", receipt},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := n.parseTimestamp(tt.in)
			assert.True(t, tt.want.Equal(got), "want %v, got %v", tt.want, got)
		})
	}
}
