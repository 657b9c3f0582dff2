// Package metrics holds the Prometheus collectors shared by the tracker binaries.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "expensetracker"

var (
	ExpensesRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "expenses_recorded_total",
		Help:      "Expenses successfully stored.",
	})

	AlertsTriggered = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "budget_alerts_triggered_total",
		Help:      "Budget threshold crossings detected after an expense.",
	}, []string{"category"})

	// Deliveries counts notifier results by kind (alert, summary) and outcome.
	Deliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_total",
		Help:      "Notification delivery attempts by kind and result.",
	}, []string{"kind", "result"})

	StoreRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "store_retries_total",
		Help:      "Store calls retried after lock contention.",
	}, []string{"operation"})

	StoreBusy = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "store_busy_total",
		Help:      "Store calls that exhausted every retry.",
	}, []string{"operation"})

	MessagesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_processed_total",
		Help:      "Queue messages handled by workers.",
	}, []string{"queue", "result"})

	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_rate_limited_total",
		Help:      "Requests rejected by the per-client rate limit.",
	})

	SuspiciousRequests = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_suspicious_requests_total",
		Help:      "Requests rejected as scanner probes.",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// DeliveryResult maps a notifier outcome to its label value.
func DeliveryResult(delivered bool) string {
	if delivered {
		return "delivered"
	}
	return "failed"
}

// ObserveHTTP records one request.
func ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
