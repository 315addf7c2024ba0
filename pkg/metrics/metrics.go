// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// RealtimeEventsPublished counts change events published per table.
	RealtimeEventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_events_published_total",
			Help: "Change events published to the feed",
		},
		[]string{"table", "type"},
	)

	// RealtimeEventsDropped counts events dropped from full subscription buffers.
	RealtimeEventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_events_dropped_total",
			Help: "Change events dropped because a subscriber buffer was full",
		},
		[]string{"table"},
	)

	// RealtimeSubscriptionsActive tracks open change-feed subscriptions.
	RealtimeSubscriptionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "realtime_subscriptions_active",
			Help: "Number of open change-feed subscriptions",
		},
	)

	// ChatConnectionsActive tracks active SSE and websocket chat connections.
	ChatConnectionsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "chat_connections_active",
			Help: "Number of active chat panel connections",
		},
		[]string{"transport"},
	)

	// MessagesTotal tracks chat messages written by staff.
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_messages_sent_total",
			Help: "Total chat messages sent",
		},
		[]string{"sender_role"},
	)

	// MessagesMarkedRead tracks messages flipped to read.
	MessagesMarkedRead = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_messages_marked_read_total",
			Help: "Total messages marked read by staff",
		},
	)

	// NotificationsTotal tracks notification deliveries.
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Notification deliveries by channel and outcome",
		},
		[]string{"channel", "outcome"},
	)

	// TranslationsTotal tracks auto-translation requests.
	TranslationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "translations_total",
			Help: "Auto-translation requests by outcome",
		},
		[]string{"outcome"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordNotification records a single notification delivery outcome.
func RecordNotification(channel string, success bool) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	NotificationsTotal.WithLabelValues(channel, outcome).Inc()
}

// IncrementChatConnections increments the active chat connection count.
func IncrementChatConnections(transport string) {
	ChatConnectionsActive.WithLabelValues(transport).Inc()
}

// DecrementChatConnections decrements the active chat connection count.
func DecrementChatConnections(transport string) {
	ChatConnectionsActive.WithLabelValues(transport).Dec()
}
