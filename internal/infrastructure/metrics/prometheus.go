// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tripreel"

var (
	// CacheOperationsTotal tracks cache operations (get, set, delete).
	// Labels:
	//   - operation: get, set, delete
	//   - status: hit, miss, expired, success, error
	//   - cache_type: memory, redis
	CacheOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_operations_total",
			Help:      "Total number of cache operations",
		},
		[]string{"operation", "status", "cache_type"},
	)

	// CacheEvictionsTotal counts entries removed to keep a cache within its bound.
	// Labels:
	//   - cache: videos, collections, analyses, places
	CacheEvictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_evictions_total",
			Help:      "Total number of entries evicted from in-memory caches",
		},
		[]string{"cache"},
	)

	// DBQueriesTotal tracks database queries.
	// Labels:
	//   - query_type: select, insert, update
	//   - table: export_jobs
	DBQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "db_queries_total",
			Help:      "Total number of database queries",
		},
		[]string{"query_type", "table"},
	)

	// SingleflightRequestsTotal tracks singleflight behavior.
	// Labels:
	//   - result: initiated (new execution), shared (reused result)
	SingleflightRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "singleflight_requests_total",
			Help:      "Total number of singleflight requests",
		},
		[]string{"result"},
	)

	// UpstreamRequestsTotal tracks calls to third-party APIs.
	// Labels:
	//   - upstream: youtube_search, youtube_videos, openai, places
	//   - status: success, error, quota_exceeded
	UpstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Total number of requests to upstream APIs",
		},
		[]string{"upstream", "status"},
	)

	// RankingOutcomesTotal tracks how relevance filtering resolved.
	// Labels:
	//   - outcome: skipped, ranked, backfilled, fallback
	RankingOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ranking_outcomes_total",
			Help:      "Total number of relevance filter invocations by outcome",
		},
		[]string{"outcome"},
	)

	// ExportTasksTotal tracks export task traffic through the broker.
	// Labels:
	//   - result: published, acked, retried, rejected
	ExportTasksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "export_tasks_total",
			Help:      "Total number of export tasks by queue outcome",
		},
		[]string{"result"},
	)

	// HTTPRequestsTotal tracks API requests.
	// Labels:
	//   - route: chi route pattern
	//   - code: HTTP status code
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"route", "code"},
	)

	// RateLimitedTotal counts requests rejected by the rate limiter.
	RateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Total number of requests rejected by the rate limiter",
		},
	)
)

// Cache operation status constants.
const (
	CacheStatusHit     = "hit"
	CacheStatusMiss    = "miss"
	CacheStatusExpired = "expired"
	CacheStatusSuccess = "success"
	CacheStatusError   = "error"
)

// Cache operation type constants.
const (
	CacheOpGet    = "get"
	CacheOpSet    = "set"
	CacheOpDelete = "delete"
)

// Cache type constants.
const (
	CacheTypeMemory = "memory"
	CacheTypeRedis  = "redis"
)

// DB query type constants.
const (
	DBQuerySelect = "select"
	DBQueryInsert = "insert"
	DBQueryUpdate = "update"
)

// Table name constants.
const (
	TableExportJobs = "export_jobs"
)

// Singleflight result constants.
const (
	SingleflightInitiated = "initiated"
	SingleflightShared    = "shared"
)

// Upstream name constants.
const (
	UpstreamYouTubeSearch = "youtube_search"
	UpstreamYouTubeVideos = "youtube_videos"
	UpstreamOpenAI        = "openai"
	UpstreamPlaces        = "places"
)

// Upstream status constants.
const (
	UpstreamStatusSuccess       = "success"
	UpstreamStatusError         = "error"
	UpstreamStatusQuotaExceeded = "quota_exceeded"
)

// Ranking outcome constants.
const (
	RankingSkipped    = "skipped"
	RankingRanked     = "ranked"
	RankingBackfilled = "backfilled"
	RankingFallback   = "fallback"
)

// Export task result constants.
const (
	TaskPublished = "published"
	TaskAcked     = "acked"
	TaskRetried   = "retried"
	TaskRejected  = "rejected"
)
