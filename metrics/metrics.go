// Package metrics exposes Prometheus instrumentation for the service.
package metrics

import (
	"database/sql"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ResolutionsTotal counts URL resolutions by content category and outcome.
	ResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "later_resolutions_total",
			Help: "URL resolutions by content category and outcome",
		},
		[]string{"category", "outcome"},
	)

	// IngestTotal counts saved items by whether the save created a new item
	// or merged into an existing one.
	IngestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "later_ingest_total",
			Help: "Item saves by result (created or merged)",
		},
		[]string{"result"},
	)

	// HTTPRequestDuration observes API request latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "later_http_request_duration_seconds",
			Help:    "HTTP request latency by method and path",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

var (
	dbOpenConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "later_db_open_connections",
		Help: "Open connections in the database pool",
	})
	dbInUse = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "later_db_connections_in_use",
		Help: "Database connections currently in use",
	})
	dbIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "later_db_connections_idle",
		Help: "Idle database connections",
	})
)

// UpdateDBStats publishes connection pool statistics
func UpdateDBStats(stats sql.DBStats) {
	dbOpenConnections.Set(float64(stats.OpenConnections))
	dbInUse.Set(float64(stats.InUse))
	dbIdle.Set(float64(stats.Idle))
}

// Handler returns the Prometheus scrape endpoint handler
func Handler() http.Handler {
	return promhttp.Handler()
}
