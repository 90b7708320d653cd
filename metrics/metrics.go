// ABOUTME: Prometheus counters for status reconciliation, polling, and chart normalization outcomes.
// ABOUTME: Registered on the default registry via promauto and exposed by the web server at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StatusEvents counts folded status events by roster outcome.
	StatusEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tusk_status_events_total",
			Help: "Total number of status events folded into the roster",
		},
		[]string{"outcome"},
	)

	// Fetches counts status fetches by result: ok, failed, stale, cancelled.
	Fetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tusk_status_fetches_total",
			Help: "Total number of status fetches by result",
		},
		[]string{"result"},
	)

	// FetchDuration observes round-trip time of status fetches.
	FetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tusk_status_fetch_duration_seconds",
			Help:    "Status fetch duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Runs counts pipeline runs by lifecycle edge: started, settled.
	Runs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tusk_runs_total",
			Help: "Total number of pipeline runs observed",
		},
		[]string{"edge"},
	)

	// ChartNormalizations counts chart payloads by family and result.
	ChartNormalizations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tusk_chart_normalizations_total",
			Help: "Total number of chart payloads normalized",
		},
		[]string{"family", "result"},
	)
)
