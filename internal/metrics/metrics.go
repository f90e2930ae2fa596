package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PublishTotal tracks publish outcomes by result
	PublishTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outpost_publish_total",
			Help: "Total number of publish attempts",
		},
		[]string{"result"},
	)

	// RetryAttempts tracks retries by error kind
	RetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outpost_retry_attempts_total",
			Help: "Total number of retry attempts",
		},
		[]string{"kind"},
	)

	// TokenRefreshTotal tracks credential refresh outcomes
	TokenRefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outpost_token_refresh_total",
			Help: "Total number of credential refresh attempts",
		},
		[]string{"result"},
	)

	// SyncItemsTotal tracks metrics sync items by result
	SyncItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outpost_sync_items_total",
			Help: "Total number of items processed by metrics sync",
		},
		[]string{"result"},
	)

	// ProviderLatency tracks posting-provider call latency
	ProviderLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "outpost_provider_latency_seconds",
			Help:    "Posting provider call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// DBConnectionPoolUsage tracks database pool utilization
	DBConnectionPoolUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "outpost_db_connection_pool_usage",
			Help: "Database connection pool usage percentage",
		},
	)
)
