// Package metrics provides Prometheus metrics for the chat-api service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActiveConnections tracks the number of live gateway sessions.
	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_active_connections",
			Help: "Number of currently connected live sessions",
		},
	)

	// MessagesSent tracks accepted messages by type.
	MessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_messages_sent_total",
			Help: "Total number of messages accepted",
		},
		[]string{"type"},
	)

	// EventsPublished tracks broadcast publishes by event type.
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_events_published_total",
			Help: "Total number of events published to the broadcaster",
		},
		[]string{"event_type"},
	)

	// EventsDropped tracks events discarded by backpressured sessions.
	EventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_events_dropped_total",
			Help: "Total number of events dropped on slow live sessions",
		},
	)

	// SessionsDisconnected tracks forced disconnects by reason.
	SessionsDisconnected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_sessions_disconnected_total",
			Help: "Total number of live sessions closed by the server",
		},
		[]string{"reason"},
	)

	// RateLimitRejections tracks sends rejected by the rate limiter.
	RateLimitRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_rate_limit_rejections_total",
			Help: "Total number of sends rejected by the rate limiter",
		},
	)

	// HTTPRequests tracks requests by method, endpoint and status.
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// HTTPRequestDuration tracks request latency by endpoint.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// BroadcastDuration tracks the publish path latency.
	BroadcastDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chat_broadcast_duration_seconds",
			Help:    "Duration of broadcaster publish calls",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		},
	)
)

// RecordRequest records one completed HTTP request.
func RecordRequest(method, endpoint, status string, duration float64) {
	HTTPRequests.WithLabelValues(method, endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration)
}

// RecordMessageSent increments the accepted-message counter.
func RecordMessageSent(messageType string) {
	MessagesSent.WithLabelValues(messageType).Inc()
}

// RecordSessionConnected increments the live session gauge.
func RecordSessionConnected() {
	ActiveConnections.Inc()
}

// RecordSessionDisconnected decrements the gauge and records the reason.
func RecordSessionDisconnected(reason string) {
	ActiveConnections.Dec()
	SessionsDisconnected.WithLabelValues(reason).Inc()
}
