package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce            sync.Once
	httpRequestsTotal       *prometheus.CounterVec
	httpLatencySeconds      *prometheus.HistogramVec
	realtimeConnections     prometheus.Gauge
	chatMessagesTotal       prometheus.Counter
	eventsDispatchedTotal   *prometheus.CounterVec
	broadcastDropsTotal     *prometheus.CounterVec
	bridgePublishFailsTotal prometheus.Counter
)

// RegisterMetrics initialises the Prometheus collectors used by the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "medico_http_requests_total",
			Help: "Total number of HTTP requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "medico_http_latency_seconds",
			Help:    "Latency distribution for HTTP requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		realtimeConnections = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "medico_realtime_connections_active",
			Help: "Number of websocket connections currently joined to a room.",
		})

		chatMessagesTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "medico_chat_messages_total",
			Help: "Total number of chat messages persisted and broadcast.",
		})

		eventsDispatchedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "medico_events_dispatched_total",
			Help: "Total number of domain events dispatched to notification channels.",
		}, []string{"event"})

		broadcastDropsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "medico_broadcast_drops_total",
			Help: "Payloads dropped because a subscriber's outbound buffer was full.",
		}, []string{"room_kind"})

		bridgePublishFailsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "medico_bridge_publish_failures_total",
			Help: "Failed publishes to the cross-node distribution backend.",
		})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			realtimeConnections,
			chatMessagesTotal,
			eventsDispatchedTotal,
			broadcastDropsTotal,
			bridgePublishFailsTotal,
		)
	})
}

// HTTPRequests exposes the counter for HTTP requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for HTTP requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// RealtimeConnections exposes the gauge of active websocket connections.
func RealtimeConnections() prometheus.Gauge {
	RegisterMetrics()
	return realtimeConnections
}

// ChatMessages exposes the counter of broadcast chat messages.
func ChatMessages() prometheus.Counter {
	RegisterMetrics()
	return chatMessagesTotal
}

// EventsDispatched exposes the counter of dispatched domain events.
func EventsDispatched() *prometheus.CounterVec {
	RegisterMetrics()
	return eventsDispatchedTotal
}

// BroadcastDrops exposes the counter of dropped broadcast payloads.
func BroadcastDrops() *prometheus.CounterVec {
	RegisterMetrics()
	return broadcastDropsTotal
}

// BridgePublishFailures exposes the counter of failed bridge publishes.
func BridgePublishFailures() prometheus.Counter {
	RegisterMetrics()
	return bridgePublishFailsTotal
}
