package httpserver

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"projecthub/internal/handler"
	"projecthub/pkg/circuitbreaker"
	"projecthub/pkg/metrics"
	"projecthub/pkg/otel"
	"projecthub/pkg/trace"
)

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ConnectionChecker reports whether a long-lived connection is alive.
type ConnectionChecker interface {
	IsConnected() bool
}

// BreakerReporter exposes the state of an outbound circuit breaker.
type BreakerReporter interface {
	BreakerState() circuitbreaker.State
}

type Options struct {
	// JWTSecret enables bearer-token verification on /projects when set.
	JWTSecret string
	Store     Pinger
	// Events is optional; when set, /readyz also checks the broker connection.
	Events ConnectionChecker
	// Directory is reported in /readyz but never makes the service unready:
	// reads keep working while the employee directory is down.
	Directory BreakerReporter
}

func NewRouter(projectHandler *handler.ProjectHandler, opts Options, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(TraceMiddleware())
	r.Use(otel.GinMiddleware())
	r.Use(MetricsMiddleware())

	// 添加请求日志中间件
	r.Use(func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
			zap.String("trace_id", trace.FromContext(c.Request.Context())),
		}
		if subject := c.GetString(SubjectKey); subject != "" {
			fields = append(fields, zap.String("subject", subject))
		}
		logger.Info("HTTP Request", fields...)
	})

	// Health endpoints (放在最前面)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 1*time.Second)
		defer cancel()

		if opts.Store != nil {
			if err := opts.Store.Ping(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db_not_ready", "error": err.Error()})
				return
			}
		}

		if opts.Events != nil && !opts.Events.IsConnected() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "mq_not_ready"})
			return
		}

		resp := gin.H{"status": "ready"}
		if opts.Directory != nil {
			resp["employee_directory"] = opts.Directory.BreakerState().String()
		}
		c.JSON(http.StatusOK, resp)
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	projects := r.Group("/projects")
	if opts.JWTSecret != "" {
		projects.Use(AuthMiddleware(opts.JWTSecret))
	}
	projectHandler.Register(projects)

	return r
}

// TraceMiddleware 读取或生成 X-Trace-ID，写入 context 和响应头
func TraceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := trace.FromHeaders(c.GetHeader(trace.HeaderName), c.GetHeader("X-Request-ID"))

		c.Request = c.Request.WithContext(trace.WithContext(c.Request.Context(), traceID))
		c.Header(trace.HeaderName, traceID)

		c.Next()
	}
}

// MetricsMiddleware 记录 http_request_duration，按路由模板聚合
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.RecordHTTPRequestDuration(c.Request.Method, path, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}
