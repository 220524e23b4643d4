// Package metrics holds the Prometheus collectors for transform execution.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TransformTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thomson_transform_total",
			Help: "Number of transforms executed",
		},
		[]string{"origin", "status"},
	)

	TransformDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "thomson_transform_duration_seconds",
			Help:    "Transform duration in seconds, including decoding and encoding",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"origin"},
	)

	TransformEntries = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "thomson_transform_entries",
			Help:    "Number of matched leaf entries per transform",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		},
	)

	AssembleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thomson_assemble_errors_total",
			Help: "Structural failures while assembling output, by error code",
		},
		[]string{"code"},
	)

	HistoryWriteFailed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "thomson_history_write_failed_total",
			Help: "Number of run records that could not be written to the history store",
		},
	)
)

// ObserveTransform records the outcome of one transform.
func ObserveTransform(origin, status string, took time.Duration, entries int) {
	TransformTotal.WithLabelValues(origin, status).Inc()
	TransformDuration.WithLabelValues(origin).Observe(took.Seconds())
	if status == "ok" {
		TransformEntries.Observe(float64(entries))
	}
}
