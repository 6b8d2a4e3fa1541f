package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "schoolboard_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "schoolboard_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// ReactionToggles counts reaction toggles by transition (e.g. "none->like").
	ReactionToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "schoolboard_reaction_toggles_total",
		Help: "Total reaction toggles by ledger transition",
	}, []string{"transition"})

	// BestRecomputeFailures counts failed best-post recomputes.
	BestRecomputeFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "schoolboard_best_recompute_failures_total",
		Help: "Total number of best-post recomputes that failed",
	})

	// ExternalFetchLatency records latency of calls to external data sources.
	ExternalFetchLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "schoolboard_external_fetch_latency_seconds",
		Help:    "Latency of external data source calls in seconds",
		Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"source", "outcome"})

	// CacheLookups counts cache-aside lookups by namespace and result.
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "schoolboard_cache_lookups_total",
		Help: "Cache lookups by namespace and result (hit/miss)",
	}, []string{"namespace", "result"})

	// WebSocketConnectionsTotal is the gauge of total WebSocket connections.
	WebSocketConnectionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "schoolboard_websocket_connections_total",
		Help: "Total number of active WebSocket connections",
	})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "schoolboard_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})

	// BoardEventsPublished counts board events by type and sink.
	BoardEventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "schoolboard_board_events_published_total",
		Help: "Board events published by type and sink",
	}, []string{"event_type", "sink"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}

// TrackExternal returns a function that records the latency of an external call
// once its outcome is known.
func TrackExternal(source string) func(err error) {
	start := time.Now()
	return func(err error) {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		ExternalFetchLatency.WithLabelValues(source, outcome).Observe(time.Since(start).Seconds())
	}
}
