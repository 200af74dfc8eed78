package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActiveConnections tracks currently joined realtime connections.
	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "notify_active_connections",
			Help: "Number of joined realtime connections",
		},
	)

	// EventsEmitted counts realtime emissions by event name and whether any
	// connection was reached (delivered|missed).
	EventsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notify_events_emitted_total",
			Help: "Total realtime events emitted",
		},
		[]string{"event", "result"},
	)

	// EventsDropped counts events evicted from a connection's outbound queue.
	EventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notify_events_dropped_total",
			Help: "Total events dropped due to slow consumers",
		},
	)

	// HandshakeRejections counts gateway handshakes that failed verification.
	HandshakeRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notify_handshake_rejections_total",
			Help: "Total realtime handshakes rejected",
		},
		[]string{"reason"},
	)

	// NotificationsSwept counts notifications removed by the expiry sweeper.
	NotificationsSwept = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notify_notifications_swept_total",
			Help: "Total expired notifications removed by the sweeper",
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "notify_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
