package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HealthScore is the most recent health score.
	HealthScore = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "container_health_score",
			Help: "Most recent container health score (0-100).",
		},
	)

	// UsagePercent is the most recent sampled usage per resource.
	//
	// Example usage:
	// metrics.UsagePercent.WithLabelValues("cpu").Set(42)
	UsagePercent = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "container_health_usage_percent",
			Help: "Most recent sampled resource usage percentage.",
		},
		[]string{"resource"},
	)

	// SamplesTotal counts samples taken, by source variant.
	SamplesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "container_health_samples_total",
			Help: "Number of resource samples taken.",
		},
		[]string{"source"},
	)

	// SourceErrorsTotal counts failed source reads, by source variant.
	SourceErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "container_health_source_errors_total",
			Help: "Number of failed resource reads.",
		},
		[]string{"source"},
	)

	// RequestsTotal counts HTTP requests served.
	//
	// Example usage:
	// metrics.RequestsTotal.WithLabelValues("GET", "200").Inc()
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "container_health_requests_total",
			Help: "Number of HTTP requests served.",
		},
		[]string{"method", "status"},
	)

	// StreamClients is the number of connected websocket clients.
	StreamClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "container_health_stream_clients",
			Help: "Number of connected live-stream clients.",
		},
	)
)
