package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SyncAttemptsTotal tracks sync cycles started per league
	SyncAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "draftsync_sync_attempts_total",
			Help: "Total number of sync cycles started",
		},
		[]string{"league"},
	)

	// SyncFailuresTotal tracks failed sync cycles by error code
	SyncFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "draftsync_sync_failures_total",
			Help: "Total number of failed sync cycles",
		},
		[]string{"league", "code", "type"},
	)

	// SyncDuration tracks how long a feed call takes
	SyncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "draftsync_sync_duration_seconds",
			Help:    "Feed sync call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"league"},
	)

	// SyncTimeoutWarningsTotal counts calls that exceeded the soft timeout
	SyncTimeoutWarningsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "draftsync_sync_timeout_warnings_total",
			Help: "Total number of sync calls exceeding the soft timeout",
		},
		[]string{"league"},
	)

	// PicksAppliedTotal tracks ledger entries appended
	PicksAppliedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "draftsync_picks_applied_total",
			Help: "Total number of picks appended to ledgers",
		},
		[]string{"league", "source"},
	)

	// CatchUpEventsTotal counts passes that crossed the catch-up threshold
	CatchUpEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "draftsync_catch_up_events_total",
			Help: "Total number of catch-up sync passes",
		},
		[]string{"league"},
	)

	// ConnectionState is 1 for the league's current state and 0 for the others
	ConnectionState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "draftsync_connection_state",
			Help: "Current derived connection state per league",
		},
		[]string{"league", "state"},
	)

	// RecomputeDuration tracks inflation recomputation time
	RecomputeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "draftsync_inflation_recompute_seconds",
			Help:    "Inflation recomputation latency in seconds",
			Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"league"},
	)

	// RecomputesCoalescedTotal counts notifications folded into an already pending recompute
	RecomputesCoalescedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "draftsync_inflation_recomputes_coalesced_total",
			Help: "Total number of ledger change notifications coalesced into a pending recompute",
		},
	)

	// DBConnectionPoolUsage tracks open connections as a percentage of the pool
	DBConnectionPoolUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "draftsync_db_connection_pool_usage_percent",
			Help: "Database connection pool usage percentage",
		},
	)

	// OverallInflation tracks the latest overall inflation rate
	OverallInflation = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "draftsync_inflation_overall_rate",
			Help: "Latest overall inflation rate per league",
		},
		[]string{"league"},
	)
)

var connectionStates = []string{"connected", "reconnecting", "disconnected", "manual"}

// SetConnectionState sets the state gauge so exactly one state reads 1.
func SetConnectionState(league, state string) {
	for _, s := range connectionStates {
		v := 0.0
		if s == state {
			v = 1
		}
		ConnectionState.WithLabelValues(league, s).Set(v)
	}
}
