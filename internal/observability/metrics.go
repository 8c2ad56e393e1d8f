package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds the seeder's metrics. It is private so that repeated runs in
// one process (tests) do not collide with the default registry.
var Registry = prometheus.NewRegistry()

var (
	// RequestsTotal counts API create calls by resource and outcome.
	RequestsTotal = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Name: "storeseed_requests_total",
		Help: "Total number of API create requests by resource and outcome",
	}, []string{"resource", "outcome"})

	// RequestDuration records API call latency by resource.
	RequestDuration = promauto.With(Registry).NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storeseed_request_duration_seconds",
		Help:    "API create request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"resource"})

	// LastRunTimestamp is the unix time at which the last run finished.
	LastRunTimestamp = promauto.With(Registry).NewGauge(prometheus.GaugeOpts{
		Name: "storeseed_last_run_timestamp_seconds",
		Help: "Unix time at which the last seeding run finished",
	})
)

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// ObserveRequest records the outcome and latency of one API call.
func ObserveRequest(resource string, err error, start time.Time) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	RequestsTotal.WithLabelValues(resource, outcome).Inc()
	RequestDuration.WithLabelValues(resource).Observe(time.Since(start).Seconds())
}

// WriteMetricsFile writes the registry in the node_exporter textfile format.
func WriteMetricsFile(path string) error {
	LastRunTimestamp.SetToCurrentTime()
	if err := prometheus.WriteToTextfile(path, Registry); err != nil {
		return fmt.Errorf("write metrics file: %w", err)
	}
	return nil
}
