// Package telemetry holds the Prometheus collectors for backtest runs.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backtester_runs_total",
			Help: "Completed backtest runs by status (ok, error).",
		},
		[]string{"status"},
	)

	RunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "backtester_run_duration_seconds",
			Help:    "Wall time of a single backtest run.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		},
	)

	BarsProcessed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "backtester_bars_processed_total",
			Help: "Bars walked by all runs.",
		},
	)

	TradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backtester_trades_total",
			Help: "Closed trades by exit reason.",
		},
		[]string{"reason"},
	)

	RejectedEntries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "backtester_rejected_entries_total",
			Help: "Entry signals that could not be sized or afforded.",
		},
	)

	SweepJobsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "backtester_sweep_jobs_in_flight",
			Help: "Sweep jobs currently running.",
		},
	)
)

func init() {
	prometheus.MustRegister(RunsTotal, RunDuration, BarsProcessed, TradesTotal, RejectedEntries, SweepJobsInFlight)
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
