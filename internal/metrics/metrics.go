package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "order_tracker",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "order_tracker",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "order_tracker",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	statusChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "order_tracker",
			Subsystem: "orders",
			Name:      "status_changes_total",
			Help:      "Order status writes by resulting status.",
		},
		[]string{"status"},
	)

	clientActions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "order_tracker",
			Subsystem: "client",
			Name:      "actions_total",
			Help:      "Client-side operations by action and result.",
		},
		[]string{"action", "result"},
	)

	blobCleanupFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "order_tracker",
			Subsystem: "blobs",
			Name:      "cleanup_failures_total",
			Help:      "Blob deletions that failed and were skipped.",
		},
	)

	tokenOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "order_tracker",
			Subsystem: "tokens",
			Name:      "operations_total",
			Help:      "Access token issue, regenerate and revoke operations.",
		},
		[]string{"operation"},
	)

	realtimeSubscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "order_tracker",
			Subsystem: "realtime",
			Name:      "subscribers",
			Help:      "Open realtime subscriptions.",
		},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		httpInFlight,
		httpRequests,
		httpDuration,
		statusChanges,
		clientActions,
		blobCleanupFailures,
		tokenOperations,
		realtimeSubscribers,
	)
}

// Handler exposes the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

func RequestStarted() { httpInFlight.Inc() }

// RequestFinished records a completed HTTP request. path should be the route
// template, not the raw URL, to keep label cardinality bounded.
func RequestFinished(method, path string, status int, elapsed time.Duration) {
	httpInFlight.Dec()
	httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

func RecordStatusChange(status string) {
	statusChanges.WithLabelValues(status).Inc()
}

func RecordClientAction(action, result string) {
	clientActions.WithLabelValues(action, result).Inc()
}

func RecordBlobCleanupFailure() {
	blobCleanupFailures.Inc()
}

func RecordTokenOperation(op string) {
	tokenOperations.WithLabelValues(op).Inc()
}

func SubscriberOpened() { realtimeSubscribers.Inc() }

func SubscriberClosed() { realtimeSubscribers.Dec() }
