package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_agent_events_received_total",
		Help: "Total number of domain events received from the stream, labelled by severity.",
	}, []string{"severity"})

	FramesUnparseable = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dashboard_agent_frames_unparseable_total",
		Help: "Total number of inbound frames dropped because they could not be parsed.",
	})

	HeartbeatsAnswered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dashboard_agent_heartbeats_answered_total",
		Help: "Total number of server heartbeats answered with a liveness reply.",
	})

	KeepalivesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dashboard_agent_keepalives_sent_total",
		Help: "Total number of timer-driven keepalive pings sent.",
	})

	Reconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dashboard_agent_reconnects_total",
		Help: "Total number of reconnect attempts scheduled after abnormal closures.",
	})

	ConnectionState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dashboard_agent_connection_state",
		Help: "Current connection state (0 idle, 1 connecting, 2 open, 3 closed).",
	})

	NotificationsPushed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_agent_notifications_pushed_total",
		Help: "Total number of notifications pushed, labelled by kind.",
	}, []string{"kind"})

	BackendRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_agent_backend_requests_total",
		Help: "Total number of REST calls to the admin backend, labelled by endpoint and status.",
	}, []string{"endpoint", "status"})

	BackendRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dashboard_agent_backend_request_duration_ms",
		Help:    "Latency of REST calls to the admin backend in milliseconds.",
		Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500},
	})
)
