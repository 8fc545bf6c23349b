package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "groupchat_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "groupchat_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "status"},
	)

	wsActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "groupchat_ws_active_connections",
			Help: "Number of live WebSocket connections",
		},
	)

	hubCommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "groupchat_hub_commands_total",
			Help: "Real-time commands handled by the hub",
		},
		[]string{"command"},
	)

	hubCommandDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "groupchat_hub_command_duration_seconds",
			Help:    "Time spent handling a hub command",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"command"},
	)

	messagesStoredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "groupchat_messages_stored_total",
			Help: "Messages appended to the log",
		},
		[]string{"type"},
	)

	eventsDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "groupchat_events_dropped_total",
			Help: "Events dropped because a client buffer was full",
		},
	)

	rateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "groupchat_ws_rate_limited_total",
			Help: "Inbound WebSocket frames rejected by the rate limiter",
		},
	)
)

// RecordHTTPMetrics records a finished HTTP request.
func RecordHTTPMetrics(method, endpoint string, status int, duration time.Duration) {
	strStatus := strconv.Itoa(status)

	httpRequestsTotal.WithLabelValues(method, endpoint, strStatus).Inc()
	httpRequestDuration.WithLabelValues(method, endpoint, strStatus).Observe(duration.Seconds())
}

func SetWSActiveConnections(count int) {
	wsActiveConnections.Set(float64(count))
}

// ObserveCommand records one handled hub command.
func ObserveCommand(command string, duration time.Duration) {
	hubCommandsTotal.WithLabelValues(command).Inc()
	hubCommandDuration.WithLabelValues(command).Observe(duration.Seconds())
}

func IncMessagesStored(messageType string) {
	messagesStoredTotal.WithLabelValues(messageType).Inc()
}

func AddEventsDropped(n int) {
	eventsDroppedTotal.Add(float64(n))
}

func IncRateLimited() {
	rateLimitedTotal.Inc()
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
