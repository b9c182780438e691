package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "schemakit",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "schemakit",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
	apiResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "schemakit",
			Subsystem: "api",
			Name:      "results_total",
			Help:      "API responses by route and taxonomy code.",
		},
		[]string{"route", "status", "code"},
	)
	rateLimitDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "schemakit",
			Subsystem: "ratelimit",
			Name:      "decisions_total",
			Help:      "Rate limiter decisions by route.",
		},
		[]string{"route", "admitted"},
	)
	storeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "schemakit",
			Subsystem: "store",
			Name:      "operation_duration_seconds",
			Help:      "Schema operation duration in seconds, store round trips included.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation", "success"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, apiResults, rateLimitDecisions, storeDuration)
	})
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

// RecordAPIResult counts one API response. code is "OK" on success.
func RecordAPIResult(route string, status int, code string) {
	RegisterMetrics()
	apiResults.WithLabelValues(route, strconv.Itoa(status), code).Inc()
}

func RecordRateLimit(route string, admitted bool) {
	RegisterMetrics()
	rateLimitDecisions.WithLabelValues(route, strconv.FormatBool(admitted)).Inc()
}

func RecordOperation(operation string, duration time.Duration, success bool) {
	RegisterMetrics()
	storeDuration.WithLabelValues(operation, strconv.FormatBool(success)).Observe(duration.Seconds())
}
