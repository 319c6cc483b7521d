package utils

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Tracks delivery and dispatch counters across the system. Each collector
// carries its own registry so tests can create collectors independently.
type MetricsCollector struct {
	registry *prometheus.Registry

	MessagesSent      prometheus.Counter
	MessagesDelivered prometheus.Counter
	PushAttempts      prometheus.Counter
	PushFailures      prometheus.Counter
	OperationLatency  *prometheus.HistogramVec
}

func NewMetricsCollector() *MetricsCollector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &MetricsCollector{
		registry: reg,
		MessagesSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "sierra_messages_sent_total",
			Help: "Messages persisted by the delivery router.",
		}),
		MessagesDelivered: factory.NewCounter(prometheus.CounterOpts{
			Name: "sierra_messages_delivered_total",
			Help: "Live-session emits that were queued for a client.",
		}),
		PushAttempts: factory.NewCounter(prometheus.CounterOpts{
			Name: "sierra_push_attempts_total",
			Help: "Push requests handed to the provider, one per token.",
		}),
		PushFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "sierra_push_failures_total",
			Help: "Push requests that failed after retries.",
		}),
		OperationLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sierra_operation_duration_seconds",
			Help:    "Latency of router operations.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}
}

func (mc *MetricsCollector) AddOperationLatency(operationName string, duration time.Duration) {
	mc.OperationLatency.WithLabelValues(operationName).Observe(duration.Seconds())
}

// Handler returns the http.Handler for Prometheus scraping.
func (mc *MetricsCollector) Handler() http.Handler {
	return promhttp.HandlerFor(mc.registry, promhttp.HandlerOpts{})
}
