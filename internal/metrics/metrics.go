// Package metrics provides Prometheus metrics for matching runs and the
// HTTP API.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RunsTotal tracks matching runs by algorithm and outcome
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "matcher",
			Subsystem: "run",
			Name:      "runs_total",
			Help:      "Total number of matching runs by algorithm and status",
		},
		[]string{"algorithm", "status"},
	)

	// RunDuration tracks how long matching runs take
	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "matcher",
			Subsystem: "run",
			Name:      "duration_seconds",
			Help:      "Duration of matching runs in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
		},
		[]string{"algorithm"},
	)

	// PrimaryRowsTotal tracks primary rows processed
	PrimaryRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "matcher",
			Subsystem: "run",
			Name:      "primary_rows_total",
			Help:      "Total number of primary rows processed",
		},
		[]string{"algorithm"},
	)

	// ResultRowsTotal tracks emitted result rows by confidence tier
	ResultRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "matcher",
			Subsystem: "run",
			Name:      "result_rows_total",
			Help:      "Total number of result rows emitted by confidence",
		},
		[]string{"confidence"},
	)

	// RunsInFlight tracks runs currently executing
	RunsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "matcher",
			Subsystem: "run",
			Name:      "in_flight",
			Help:      "Number of matching runs currently executing",
		},
	)

	// HTTPRequestsTotal tracks API requests
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "matcher",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status_code"},
	)

	// HTTPRequestDuration tracks API request duration
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "matcher",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route"},
	)

	// StoreOperationsTotal tracks result store operations
	StoreOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "matcher",
			Subsystem: "store",
			Name:      "operations_total",
			Help:      "Total number of result store operations by status",
		},
		[]string{"operation", "status"},
	)
)

// Status returns the label value for an error outcome.
func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
