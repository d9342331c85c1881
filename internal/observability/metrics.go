package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "groupfeed_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "groupfeed_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// StorageOperations counts object store calls by operation and outcome.
	StorageOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "groupfeed_storage_operations_total",
		Help: "Object store operations by operation and outcome",
	}, []string{"operation", "outcome"})

	// OptimisticRollbacks counts speculative feed updates that were reverted.
	OptimisticRollbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "groupfeed_optimistic_rollbacks_total",
		Help: "Optimistic updates reverted after a failed confirmation",
	}, []string{"action"})

	// EditSessionCommits counts post edit session commits by outcome.
	EditSessionCommits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "groupfeed_edit_session_commits_total",
		Help: "Post edit session commits by outcome",
	}, []string{"outcome"})

	// FeedEventsApplied counts feed events applied to a reconciler by kind.
	FeedEventsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "groupfeed_feed_events_applied_total",
		Help: "Feed events applied by kind",
	}, []string{"kind"})

	// FeedSubscribers is the gauge of websocket clients streaming feed events.
	FeedSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "groupfeed_feed_subscribers",
		Help: "Number of websocket clients streaming feed events",
	})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}

// RecordStorage increments the storage counter with an outcome derived from err.
func RecordStorage(operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	StorageOperations.WithLabelValues(operation, outcome).Inc()
}
