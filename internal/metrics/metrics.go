package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the ledger's Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "campuscoin",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "campuscoin",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "path"},
	)

	exchangeOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "campuscoin",
			Subsystem: "exchange",
			Name:      "operations_total",
			Help:      "Ledger operations by kind and outcome.",
		},
		[]string{"op", "outcome"},
	)

	exchangeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "campuscoin",
			Subsystem: "exchange",
			Name:      "operation_duration_seconds",
			Help:      "Duration of ledger operations including lock wait.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"op"},
	)

	conflictRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "campuscoin",
			Subsystem: "exchange",
			Name:      "conflict_retries_total",
			Help:      "Ledger operations retried after a concurrency conflict.",
		},
		[]string{"op"},
	)

	outboxDispatch = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "campuscoin",
			Subsystem: "outbox",
			Name:      "dispatch_total",
			Help:      "Notification dispatch attempts by result.",
		},
		[]string{"status"},
	)

	auditDiscrepancies = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "campuscoin",
			Subsystem: "audit",
			Name:      "discrepancies",
			Help:      "Accounts whose stored balance disagrees with the transaction log at the last audit.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpRequests,
		httpDuration,
		exchangeOps,
		exchangeDuration,
		conflictRetries,
		outboxDispatch,
		auditDiscrepancies,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest is called by the gin middleware with the route template as path.
func RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if path == "" {
		path = "unmatched"
	}
	httpRequests.WithLabelValues(method, path, status).Inc()
	httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordExchange records one ledger operation. outcome is "ok" or an error class.
func RecordExchange(op, outcome string, duration time.Duration) {
	if duration <= 0 {
		duration = time.Microsecond
	}
	exchangeOps.WithLabelValues(op, outcome).Inc()
	exchangeDuration.WithLabelValues(op).Observe(duration.Seconds())
}

func RecordConflictRetry(op string) {
	conflictRetries.WithLabelValues(op).Inc()
}

func RecordOutboxDispatch(status string) {
	outboxDispatch.WithLabelValues(status).Inc()
}

func SetAuditDiscrepancies(n int) {
	auditDiscrepancies.Set(float64(n))
}
