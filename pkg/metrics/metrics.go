// Package metrics holds the Prometheus collectors of a sync run. They are
// registered on the default registry and exposed by `serve` at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ConnectionsSynced counts processed connections by outcome
	ConnectionsSynced = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wearsync_connections_synced_total",
			Help: "Connections processed by sync runs",
		},
		[]string{"result"}, // synced, auth_failed, upstream_failed, store_failed
	)

	// PointsForwarded counts delivery attempts per metric
	PointsForwarded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wearsync_points_forwarded_total",
			Help: "Points handed to the downstream ingestion service",
		},
		[]string{"metric", "result"}, // result: success, failure, skipped
	)

	// TokenRefresh counts refresh grants
	TokenRefresh = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wearsync_token_refresh_total",
			Help: "OAuth refresh grants performed",
		},
		[]string{"result"}, // success, rejected, error
	)

	// SyncDuration observes the wall time of one run
	SyncDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "wearsync_sync_duration_seconds",
			Help:    "Duration of a full sync run",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
		},
	)

	// BreakerState mirrors the downstream circuit breaker (0=closed, 1=half-open, 2=open)
	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "wearsync_circuit_breaker_state",
			Help: "Downstream circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)
)
