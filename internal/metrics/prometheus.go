package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the run pool pipeline

var (
	// API Call metrics
	APICallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "runpool_api_calls_total",
			Help: "Total number of StatsAPI calls",
		},
		[]string{"endpoint", "status"},
	)

	APICallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "runpool_api_call_duration_seconds",
			Help:    "Duration of API calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	// Database metrics
	DBConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "runpool_db_connections_active",
			Help: "Number of acquired database connections",
		},
	)

	DBConnectionsIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "runpool_db_connections_idle",
			Help: "Number of idle database connections",
		},
	)

	// Pipeline metrics
	StageRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "runpool_stage_runs_total",
			Help: "Total number of pipeline stage runs",
		},
		[]string{"stage", "status"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "runpool_stage_duration_seconds",
			Help:    "Duration of pipeline stages in seconds",
			Buckets: []float64{.1, .5, 1, 5, 10, 30, 60, 120, 300},
		},
		[]string{"stage"},
	)

	ScoreFactsIngested = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "runpool_score_facts_ingested_total",
			Help: "Total number of new score facts written",
		},
	)

	SummariesSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "runpool_summaries_skipped_total",
			Help: "Schedule entries skipped by the summary parser",
		},
		[]string{"reason"},
	)

	FactsRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "runpool_facts_rejected_total",
			Help: "Score facts rejected by validation",
		},
	)

	RunTotalsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "runpool_run_totals_created_total",
			Help: "Total number of new run totals recorded",
		},
	)

	PlayerScoresUpdated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "runpool_player_scores_updated_total",
			Help: "Total number of player score overwrites",
		},
	)

	FantasyGamesCompleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "runpool_fantasy_games_completed_total",
			Help: "Fantasy games closed after a player covered every run total",
		},
	)

	ActiveFantasyGames = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "runpool_active_fantasy_games",
			Help: "Number of active fantasy games seen by the last cycle",
		},
	)

	// Scheduler metrics
	CyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "runpool_cycles_total",
			Help: "Daily job cycles by outcome",
		},
		[]string{"status"},
	)

	CycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "runpool_cycle_duration_seconds",
			Help:    "Duration of daily job cycles in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	LockContention = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "runpool_lock_contention_total",
			Help: "Triggers dropped because a cycle was already running",
		},
	)

	// Error metrics
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "runpool_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)

	// System metrics
	SystemUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "runpool_system_uptime_seconds",
			Help: "System uptime in seconds",
		},
	)

	LastSuccessfulCycle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "runpool_last_successful_cycle_timestamp",
			Help: "Timestamp of the last cycle that finished without errors",
		},
	)
)

// RecordAPICall records an API call metric
func RecordAPICall(endpoint, status string, duration float64) {
	APICallsTotal.WithLabelValues(endpoint, status).Inc()
	APICallDuration.WithLabelValues(endpoint).Observe(duration)
}

// RecordStage records one pipeline stage run
func RecordStage(stage, status string, duration float64) {
	StageRunsTotal.WithLabelValues(stage, status).Inc()
	StageDuration.WithLabelValues(stage).Observe(duration)
}

// RecordSkip records a schedule entry the parser skipped
func RecordSkip(reason string) {
	SummariesSkipped.WithLabelValues(reason).Inc()
}

// RecordCycle records a daily job cycle
func RecordCycle(status string, duration float64) {
	CyclesTotal.WithLabelValues(status).Inc()
	CycleDuration.Observe(duration)

	if status == "success" {
		LastSuccessfulCycle.SetToCurrentTime()
	}
}

// RecordError records an error
func RecordError(component, errorType string) {
	ErrorsTotal.WithLabelValues(component, errorType).Inc()
}

// UpdateDBConnectionStats updates database connection pool statistics
func UpdateDBConnectionStats(active, idle int32) {
	DBConnectionsActive.Set(float64(active))
	DBConnectionsIdle.Set(float64(idle))
}
