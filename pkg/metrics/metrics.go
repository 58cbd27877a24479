// Package metrics defines the Prometheus collectors used by the indexing and
// query paths and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the service.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	SearchQueriesTotal   *prometheus.CounterVec
	SearchLatency        *prometheus.HistogramVec
	SearchResultsCount   *prometheus.HistogramVec
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
	IndexUpdatesTotal    *prometheus.CounterVec
	IndexUpdateDuration  *prometheus.HistogramVec
	PostingsWrittenTotal *prometheus.CounterVec
	StorageRetriesTotal  *prometheus.CounterVec
	CircuitBreakerState  *prometheus.GaugeVec
	KafkaMessagesTotal   *prometheus.CounterVec
}

// New creates all collectors and registers them with reg. Passing
// prometheus.DefaultRegisterer exposes them on Handler().
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		SearchQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fts_search_queries_total",
				Help: "Total search queries by record kind and outcome (hit, zero_result, empty_query, error).",
			},
			[]string{"kind", "result_type"},
		),
		SearchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fts_search_latency_seconds",
				Help:    "Search latency in seconds by evaluation path.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"kind", "path"},
		),
		SearchResultsCount: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fts_search_results_count",
				Help:    "Number of matching records per search.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 500},
			},
			[]string{"kind"},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "fts_cache_hits_total",
				Help: "Total number of search cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "fts_cache_misses_total",
				Help: "Total number of search cache misses.",
			},
		),
		IndexUpdatesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fts_index_updates_total",
				Help: "Total UpdateIndex calls by record kind and status.",
			},
			[]string{"kind", "status"},
		),
		IndexUpdateDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fts_index_update_duration_seconds",
				Help:    "UpdateIndex latency in seconds.",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120},
			},
			[]string{"kind"},
		),
		PostingsWrittenTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fts_postings_written_total",
				Help: "Total postings written by record kind.",
			},
			[]string{"kind"},
		),
		StorageRetriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fts_storage_retries_total",
				Help: "Storage calls retried after a transient failure.",
			},
			[]string{"operation"},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
		KafkaMessagesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fts_kafka_messages_total",
				Help: "Kafka messages handled by topic and outcome (processed, dropped).",
			},
			[]string{"topic", "outcome"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.SearchQueriesTotal,
		m.SearchLatency,
		m.SearchResultsCount,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.IndexUpdatesTotal,
		m.IndexUpdateDuration,
		m.PostingsWrittenTotal,
		m.StorageRetriesTotal,
		m.CircuitBreakerState,
		m.KafkaMessagesTotal,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
