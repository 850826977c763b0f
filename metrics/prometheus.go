package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const serviceName = "tyre-assistant"

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"service", "method", "endpoint", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "method", "endpoint"},
	)

	// DialogTurnsTotal counts turns by the state the router acted on.
	DialogTurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dialog_turns_total",
			Help: "Total number of dialog turns by routed state",
		},
		[]string{"state"},
	)

	// ClassifierFallbacksTotal counts turns where classifier output was replaced.
	// reason: error | downgraded
	ClassifierFallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dialog_classifier_fallbacks_total",
			Help: "Classifier outputs that were rejected or downgraded",
		},
		[]string{"reason"},
	)

	RetrievalCollectionErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retrieval_collection_errors_total",
			Help: "Per-collection search failures isolated by fusion",
		},
		[]string{"collection"},
	)

	RetrievalHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retrieval_hits_total",
			Help: "Fused retrieval hits by collection and match type",
		},
		[]string{"collection", "match"},
	)

	// OrdersTotal tracks order attempts by outcome (created | rejected | failed | replayed).
	OrdersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orders_total",
			Help: "Total number of order attempts by outcome",
		},
		[]string{"outcome"},
	)

	// CircuitBreakerState tracks circuit breaker state (0=closed, 1=open, 2=half-open)
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
		[]string{"service", "circuit_name"},
	)

	CircuitBreakerFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_failures_total",
			Help: "Total number of circuit breaker failures",
		},
		[]string{"service", "circuit_name"},
	)

	OutboxPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbox_events_total",
			Help: "Outbox events by publish result (sent | failed | dead)",
		},
		[]string{"result"},
	)
)

func ServiceName() string {
	return serviceName
}

// PrometheusMiddleware records request count and latency per route.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		RequestsTotal.WithLabelValues(serviceName, c.Request.Method, endpoint, status).Inc()
		RequestDuration.WithLabelValues(serviceName, c.Request.Method, endpoint).Observe(duration)
	}
}
