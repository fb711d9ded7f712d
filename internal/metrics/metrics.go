package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Pipeline metrics
	RunsStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gpolens_runs_started_total",
			Help: "Total number of analysis runs started",
		},
		[]string{"mode"},
	)

	RunsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gpolens_runs_completed_total",
			Help: "Total number of analysis runs finished, by outcome",
		},
		[]string{"mode", "status", "error_kind"},
	)

	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gpolens_run_duration_seconds",
			Help:    "Analysis run duration in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"mode"},
	)

	BatchesPerRun = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gpolens_batches_per_run",
			Help:    "Number of batches planned per run",
			Buckets: []float64{1, 2, 3, 5, 10, 20, 50},
		},
	)

	// Oracle metrics
	OracleCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gpolens_oracle_calls_total",
			Help: "Total number of analysis oracle calls",
		},
		[]string{"operation", "outcome"},
	)

	OracleLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gpolens_oracle_latency_seconds",
			Help:    "Analysis oracle call latency in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 80, 160},
		},
		[]string{"operation"},
	)

	// HTTP metrics
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gpolens_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "code"},
	)

	HTTPInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gpolens_http_requests_in_flight",
			Help: "HTTP requests currently being served",
		},
	)

	// Archive metrics
	ArchiveFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gpolens_archive_failures_total",
			Help: "Failures while archiving a finished run",
		},
		[]string{"target"},
	)
)
