// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Cache metrics
	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec
	CacheErrors *prometheus.CounterVec

	// Scoring metrics
	ProjectsScored  prometheus.Counter
	ProjectsFailed  prometheus.Counter
	ScoringDuration prometheus.Histogram

	// Collector metrics
	ChainFetchFailures *prometheus.CounterVec
	ChainFetchLatency  *prometheus.HistogramVec
	RPCCallLatency     *prometheus.HistogramVec

	// Pipeline metrics
	PipelineRunsTotal *prometheus.CounterVec
	PipelineDuration  *prometheus.HistogramVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulPipeline prometheus.Gauge
	WatchedAddresses       prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "airdrop_scout"
	}

	return &Metrics{
		// Cache metrics
		CacheHits: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Total number of cache hits by key namespace",
		}, []string{"namespace"}),
		CacheMisses: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Total number of cache misses by key namespace",
		}, []string{"namespace"}),
		CacheErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "errors_total",
			Help:      "Total number of cache backend failures by operation",
		}, []string{"operation"}),

		// Scoring metrics
		ProjectsScored: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "projects_scored_total",
			Help:      "Total number of projects scored successfully",
		}),
		ProjectsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "projects_failed_total",
			Help:      "Total number of projects that failed to score",
		}),
		ScoringDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "duration_seconds",
			Help:      "Time spent scoring all projects for one address",
			Buckets:   prometheus.DefBuckets,
		}),

		// Collector metrics
		ChainFetchFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "collector",
			Name:      "chain_failures_total",
			Help:      "Total number of failed chain fetches by chain and data kind",
		}, []string{"chain", "kind"}),
		ChainFetchLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "collector",
			Name:      "chain_fetch_latency_seconds",
			Help:      "Per-chain fetch latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"chain"}),
		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "collector",
			Name:      "rpc_call_latency_seconds",
			Help:      "Explorer and RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),

		// Pipeline metrics
		PipelineRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of pipeline runs by status",
		}, []string{"phase", "status"}),
		PipelineDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "Pipeline execution duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		}, []string{"phase"}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastSuccessfulPipeline: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_pipeline_timestamp",
			Help:      "Unix timestamp of last successful pipeline run",
		}),
		WatchedAddresses: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "watched_addresses",
			Help:      "Number of addresses refreshed by the background warmer",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordCacheHit increments the cache hit counter for a key namespace.
func RecordCacheHit(namespace string) {
	DefaultMetrics.CacheHits.WithLabelValues(namespace).Inc()
}

// RecordCacheMiss increments the cache miss counter for a key namespace.
func RecordCacheMiss(namespace string) {
	DefaultMetrics.CacheMisses.WithLabelValues(namespace).Inc()
}

// RecordCacheError records a swallowed cache backend failure.
func RecordCacheError(operation string) {
	DefaultMetrics.CacheErrors.WithLabelValues(operation).Inc()
}

// RecordScoring records one ScoreAll batch.
func RecordScoring(scored, failed int, seconds float64) {
	DefaultMetrics.ProjectsScored.Add(float64(scored))
	DefaultMetrics.ProjectsFailed.Add(float64(failed))
	DefaultMetrics.ScoringDuration.Observe(seconds)
}

// RecordChainFailure records a chain fetch that degraded to partial data.
func RecordChainFailure(chainID uint64, kind string) {
	DefaultMetrics.ChainFetchFailures.WithLabelValues(strconv.FormatUint(chainID, 10), kind).Inc()
}

// RecordChainLatency records how long one chain took to collect.
func RecordChainLatency(chainID uint64, seconds float64) {
	DefaultMetrics.ChainFetchLatency.WithLabelValues(strconv.FormatUint(chainID, 10)).Observe(seconds)
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordPipelineRun records a pipeline run.
func RecordPipelineRun(phase, status string, durationSeconds float64) {
	DefaultMetrics.PipelineRunsTotal.WithLabelValues(phase, status).Inc()
	DefaultMetrics.PipelineDuration.WithLabelValues(phase).Observe(durationSeconds)
}

// MarkPipelineSuccess sets the last successful pipeline timestamp.
func MarkPipelineSuccess(unix int64) {
	DefaultMetrics.LastSuccessfulPipeline.Set(float64(unix))
}

// SetWatchedAddresses updates the watched address gauge.
func SetWatchedAddresses(n int) {
	DefaultMetrics.WatchedAddresses.Set(float64(n))
}
