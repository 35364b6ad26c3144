package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	ProcessedEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "skillarena_outbox_processed_total", Help: "Contest events handled by the outbox worker"},
		[]string{"kind"},
	)
	FailedEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "skillarena_outbox_failed_total", Help: "Contest event handling attempts that failed"},
		[]string{"kind"},
	)
	PendingEvents = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "skillarena_outbox_pending", Help: "Contest events waiting for the worker"},
	)
	WriteRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "skillarena_lifecycle_write_retries_total", Help: "Contest writes retried after a version conflict"},
		[]string{"operation"},
	)
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "skillarena_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

func Register() {
	prometheus.MustRegister(ProcessedEvents, FailedEvents, PendingEvents, WriteRetries, RequestDuration)
}
