package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal     prometheus.CounterVec
	HTTPRequestDuration   prometheus.HistogramVec
	HTTPRequestSize       prometheus.HistogramVec
	HTTPResponseSize      prometheus.HistogramVec
	HTTPActiveConnections prometheus.GaugeVec

	// Rate limiting metrics
	RateLimitExceededTotal prometheus.CounterVec
	RateLimitBucketUsage   prometheus.GaugeVec

	// Database metrics
	DatabaseQueryDuration   prometheus.HistogramVec
	DatabaseQueriesTotal    prometheus.CounterVec
	DatabaseConnectionsOpen prometheus.GaugeVec

	// Redis metrics
	RedisOperationDuration prometheus.HistogramVec
	RedisOperationsTotal   prometheus.CounterVec
	RedisConnectionsOpen   prometheus.GaugeVec

	// Render job metrics
	JobsTotal             prometheus.CounterVec
	JobDuration           prometheus.HistogramVec
	JobDownloadDuration   prometheus.HistogramVec
	JobCompileDuration    prometheus.HistogramVec
	JobEncodeDuration     prometheus.HistogramVec
	JobPublishDuration    prometheus.HistogramVec
	JobsInFlight          prometheus.GaugeVec
	AssetDownloadsTotal   prometheus.CounterVec
	EngineExitsTotal      prometheus.CounterVec

	// Error metrics
	ErrorsTotal prometheus.CounterVec
}

var (
	instance *Metrics
	once     sync.Once
)

// Initialize creates and registers all Prometheus metrics
func Initialize() *Metrics {
	once.Do(func() {
		instance = &Metrics{
			// HTTP metrics
			HTTPRequestsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "http_requests_total",
					Help: "Total number of HTTP requests",
				},
				[]string{"method", "path", "status"},
			),
			HTTPRequestDuration: *promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "http_request_duration_seconds",
					Help:    "HTTP request latency in seconds",
					Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
				},
				[]string{"method", "path", "status"},
			),
			HTTPRequestSize: *promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "http_request_size_bytes",
					Help:    "HTTP request body size in bytes",
					Buckets: prometheus.ExponentialBuckets(100, 10, 7),
				},
				[]string{"method", "path"},
			),
			HTTPResponseSize: *promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "http_response_size_bytes",
					Help:    "HTTP response size in bytes",
					Buckets: prometheus.ExponentialBuckets(100, 10, 7),
				},
				[]string{"method", "path", "status"},
			),
			HTTPActiveConnections: *promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "http_active_connections",
					Help: "Number of currently active HTTP connections",
				},
				[]string{"method", "path"},
			),

			// Rate limiting metrics
			RateLimitExceededTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "rate_limit_exceeded_total",
					Help: "Total number of rate limit violations",
				},
				[]string{"endpoint", "method"},
			),
			RateLimitBucketUsage: *promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "rate_limit_bucket_usage",
					Help: "Current rate limit bucket usage (tokens used)",
				},
				[]string{"endpoint", "client_ip"},
			),

			// Database metrics
			DatabaseQueryDuration: *promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "database_query_duration_seconds",
					Help:    "Database query latency in seconds",
					Buckets: []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5},
				},
				[]string{"query_type", "table"},
			),
			DatabaseQueriesTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "database_queries_total",
					Help: "Total number of database queries",
				},
				[]string{"query_type", "table", "status"},
			),
			DatabaseConnectionsOpen: *promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "database_connections_open",
					Help: "Number of currently open database connections",
				},
				[]string{"database"},
			),

			// Redis metrics
			RedisOperationDuration: *promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "redis_operation_duration_seconds",
					Help:    "Redis operation latency in seconds",
					Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1},
				},
				[]string{"operation", "key_pattern"},
			),
			RedisOperationsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "redis_operations_total",
					Help: "Total number of Redis operations",
				},
				[]string{"operation", "status"},
			),
			RedisConnectionsOpen: *promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "redis_connections_open",
					Help: "Number of currently open Redis connections",
				},
				[]string{"instance"},
			),

			// Render job metrics
			JobsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "render_jobs_total",
					Help: "Total number of render jobs processed, by terminal state",
				},
				[]string{"state", "source"},
			),
			JobDuration: *promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "render_job_duration_seconds",
					Help:    "End-to-end render job duration in seconds",
					Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
				},
				[]string{"state"},
			),
			JobDownloadDuration: *promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "render_job_download_duration_seconds",
					Help:    "Time spent resolving all referenced assets to local paths",
					Buckets: []float64{.5, 1, 5, 15, 30, 60, 120},
				},
				[]string{},
			),
			JobCompileDuration: *promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "render_job_compile_duration_seconds",
					Help:    "Time spent compiling a timeline into a filter graph",
					Buckets: []float64{.001, .01, .05, .1, .5, 1},
				},
				[]string{},
			),
			JobEncodeDuration: *promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "render_job_encode_duration_seconds",
					Help:    "Time spent inside the encoding engine subprocess",
					Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
				},
				[]string{},
			),
			JobPublishDuration: *promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "render_job_publish_duration_seconds",
					Help:    "Time spent uploading outputs and recording final state",
					Buckets: []float64{.1, .5, 1, 5, 15, 30},
				},
				[]string{},
			),
			JobsInFlight: *promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "render_jobs_in_flight",
					Help: "Number of render jobs currently being processed (0 or 1 per process)",
				},
				[]string{},
			),
			AssetDownloadsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "render_asset_downloads_total",
					Help: "Total number of asset download attempts, by outcome",
				},
				[]string{"kind", "status"},
			),
			EngineExitsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "render_engine_exits_total",
					Help: "Total number of encoding engine subprocess exits, by outcome",
				},
				[]string{"status"},
			),

			// Error metrics
			ErrorsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "errors_total",
					Help: "Total number of errors by type",
				},
				[]string{"error_type", "endpoint"},
			),
		}
	})
	return instance
}

// Get returns the global metrics instance
func Get() *Metrics {
	if instance == nil {
		return Initialize()
	}
	return instance
}
