// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Unit statuses.
const (
	UnitTraded  = "traded"
	UnitNoTrade = "no_trade"
	UnitFailed  = "failed"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Engine metrics
	UnitsProcessed     *prometheus.CounterVec
	UnitDuration       prometheus.Histogram
	BreakoutsDetected  *prometheus.CounterVec
	RoundsPlayed       prometheus.Counter
	ShortRounds        prometheus.Counter
	LegsClosed         *prometheus.CounterVec
	ThresholdCrossings *prometheus.CounterVec

	// Run metrics
	RunsTotal   *prometheus.CounterVec
	RunDuration prometheus.Histogram
	ActiveUnits prometheus.Gauge

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulRun prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "options_breakout_lab"
	}

	return &Metrics{
		UnitsProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "units_processed_total",
			Help:      "Total number of (strategy, trade_date) units by status",
		}, []string{"status"}),
		UnitDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "unit_duration_seconds",
			Help:      "Time to simulate one unit in seconds",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		BreakoutsDetected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "breakouts_detected_total",
			Help:      "Total number of breakout events by breakout type",
		}, []string{"breakout_type"}),
		RoundsPlayed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "rounds_played_total",
			Help:      "Total number of entry rounds that opened legs",
		}),
		ShortRounds: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "short_rounds_total",
			Help:      "Total number of rounds with fewer legs than configured",
		}),
		LegsClosed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "legs_closed_total",
			Help:      "Total number of closed legs by exit reason and leg type",
		}, []string{"exit_reason", "leg_type"}),
		ThresholdCrossings: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "portfolio_threshold_crossings_total",
			Help:      "Total number of portfolio threshold crossings by kind",
		}, []string{"kind"}),

		RunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "runs_total",
			Help:      "Total number of backtest runs by status",
		}, []string{"status"}),
		RunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "duration_seconds",
			Help:      "Backtest run duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),
		ActiveUnits: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "active_units",
			Help:      "Number of units currently being simulated",
		}),

		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"operation"}),

		LastSuccessfulRun: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_run_timestamp",
			Help:      "Unix timestamp of last successful backtest run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordUnit records a finished unit.
func RecordUnit(status string, d time.Duration) {
	DefaultMetrics.UnitsProcessed.WithLabelValues(status).Inc()
	DefaultMetrics.UnitDuration.Observe(d.Seconds())
}

// UnitStarted increments the in-flight gauge.
func UnitStarted() { DefaultMetrics.ActiveUnits.Inc() }

// UnitFinished decrements the in-flight gauge.
func UnitFinished() { DefaultMetrics.ActiveUnits.Dec() }

// RecordBreakouts adds detected events of a breakout type.
func RecordBreakouts(breakoutType string, n int) {
	DefaultMetrics.BreakoutsDetected.WithLabelValues(breakoutType).Add(float64(n))
}

// RecordRound records a played round.
func RecordRound(short bool) {
	DefaultMetrics.RoundsPlayed.Inc()
	if short {
		DefaultMetrics.ShortRounds.Inc()
	}
}

// RecordLegClosed records a leg exit.
func RecordLegClosed(exitReason, legType string) {
	DefaultMetrics.LegsClosed.WithLabelValues(exitReason, legType).Inc()
}

// RecordThreshold records a portfolio threshold crossing.
func RecordThreshold(kind string) {
	DefaultMetrics.ThresholdCrossings.WithLabelValues(kind).Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(operation string, d time.Duration, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(operation).Observe(d.Seconds())
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(operation).Inc()
	}
}

// RecordRun records a backtest run.
func RecordRun(status string, d time.Duration) {
	DefaultMetrics.RunsTotal.WithLabelValues(status).Inc()
	DefaultMetrics.RunDuration.Observe(d.Seconds())
	if status == "success" {
		DefaultMetrics.LastSuccessfulRun.SetToCurrentTime()
	}
}
