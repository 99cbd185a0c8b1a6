package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// 员工目录服务调用延迟（毫秒）
	DirectoryCallLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "directory_call_latency_ms",
			Help:    "Employee directory call latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(5, 2, 10), // 5ms to ~5s
		},
		[]string{"endpoint", "status"},
	)

	// 员工目录缓存命中
	DirectoryCacheCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "directory_cache_total",
			Help: "Employee directory cache lookups",
		},
		[]string{"result"}, // result: hit, miss, error
	)

	// 数据库查询延迟（秒）
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"operation", "table"},
	)

	// 慢查询计数
	SlowQueryCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_slow_query_total",
			Help: "Total number of queries slower than the configured threshold",
		},
		[]string{"sql"},
	)

	// HTTP 请求延迟（秒）
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	// 排期冲突计数
	SchedulingConflictCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "project_scheduling_conflict_total",
			Help: "Total number of employee assignments rejected because of overlapping projects",
		},
	)

	// 项目事件发布计数
	ProjectEventCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "project_event_published_total",
			Help: "Total number of project events by outcome; disabled means no broker is configured",
		},
		[]string{"routing_key", "status"}, // status: published, failed, disabled
	)

	// 熔断器状态：0 closed, 1 open, 2 half-open
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Current circuit breaker state (0 closed, 1 open, 2 half-open)",
		},
		[]string{"name"},
	)
)

// RecordDirectoryCallLatency 记录员工目录调用延迟
func RecordDirectoryCallLatency(endpoint, status string, duration time.Duration) {
	DirectoryCallLatency.WithLabelValues(endpoint, status).Observe(float64(duration.Milliseconds()))
}

// IncrementDirectoryCache 记录缓存查询结果
func IncrementDirectoryCache(result string) {
	DirectoryCacheCount.WithLabelValues(result).Inc()
}

// RecordDBQueryDuration 记录数据库查询延迟
func RecordDBQueryDuration(operation, table string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

// IncrementSlowQuery 记录一次慢查询
func IncrementSlowQuery(sql string, _ time.Duration) {
	SlowQueryCount.WithLabelValues(sql).Inc()
}

// RecordHTTPRequestDuration 记录 HTTP 请求延迟
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// IncrementSchedulingConflict 增加排期冲突计数
func IncrementSchedulingConflict() {
	SchedulingConflictCount.Inc()
}

// IncrementProjectEvent 增加事件发布计数
func IncrementProjectEvent(routingKey, status string) {
	ProjectEventCount.WithLabelValues(routingKey, status).Inc()
}

// SetCircuitBreakerState 更新熔断器状态
func SetCircuitBreakerState(name string, state int) {
	CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}
