package directory

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"projecthub/pkg/circuitbreaker"
	"projecthub/pkg/logger"
	"projecthub/pkg/metrics"
	"projecthub/pkg/otel"
	"projecthub/pkg/trace"
)

const employeeEndpoint = "/employees/{id}"

// StatusError is an unexpected status code from the employee directory.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("employee directory returned status %d", e.StatusCode)
}

// Client asks the external employee directory whether an employee exists.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cb         *circuitbreaker.CircuitBreaker // 熔断器
	logger     *zap.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	// 只有网络错误和 5xx 计入熔断；404 是正常的"不存在"
	cbConfig := circuitbreaker.Config{
		Name:                "employee_directory",
		FailureThreshold:    5,                // 连续失败5次后打开
		SuccessThreshold:    2,                // 半开状态下成功2次后关闭
		Timeout:             30 * time.Second, // 打开状态持续30秒
		HalfOpenMaxRequests: 2,                // 半开状态下最多允许2个请求
		OnStateChange: func(name string, from, to circuitbreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		cb:     circuitbreaker.NewCircuitBreaker(cbConfig),
		logger: logger,
	}
}

// EmployeeExists returns true on 200 and false on 404. credential is sent as
// the Authorization header exactly as received. Every other outcome, including
// an open circuit breaker, is returned as an error.
func (c *Client) EmployeeExists(ctx context.Context, employeeID int64, credential string) (bool, error) {
	ctx, span := otel.StartSpan(ctx, "directory.EmployeeExists",
		oteltrace.WithSpanKind(oteltrace.SpanKindClient),
		oteltrace.WithAttributes(attribute.Int64("employee.id", employeeID)),
	)
	defer span.End()
	log := logger.WithTrace(ctx, c.logger)

	var (
		exists    bool
		clientErr error
	)

	err := c.cb.Execute(func() error {
		start := time.Now()

		url := c.baseURL + "/employees/" + strconv.FormatInt(employeeID, 10)
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if reqErr != nil {
			return reqErr
		}
		req.Header.Set("Accept", "application/json")
		if credential != "" {
			req.Header.Set("Authorization", credential)
		}
		// 传播 trace_id
		if traceID := trace.FromContext(ctx); traceID != "" {
			req.Header.Set(trace.HeaderName, traceID)
		}
		otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

		resp, doErr := c.httpClient.Do(req)
		latency := time.Since(start)

		if doErr != nil {
			metrics.RecordDirectoryCallLatency(employeeEndpoint, "error", latency)
			return fmt.Errorf("employee directory request failed: %w", doErr)
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)

		span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

		switch {
		case resp.StatusCode == http.StatusOK:
			metrics.RecordDirectoryCallLatency(employeeEndpoint, "success", latency)
			exists = true
			return nil
		case resp.StatusCode == http.StatusNotFound:
			metrics.RecordDirectoryCallLatency(employeeEndpoint, "not_found", latency)
			return nil
		case resp.StatusCode >= 500:
			metrics.RecordDirectoryCallLatency(employeeEndpoint, "5xx", latency)
			// 可重试错误，计入熔断
			return &StatusError{StatusCode: resp.StatusCode}
		default:
			metrics.RecordDirectoryCallLatency(employeeEndpoint, strconv.Itoa(resp.StatusCode), latency)
			// 4xx 是调用方的问题，不影响熔断状态
			clientErr = &StatusError{StatusCode: resp.StatusCode}
			return nil
		}
	})
	if err == nil {
		err = clientErr
	}
	if err != nil {
		transient, errType := ClassifyError(err)
		log.Warn("Employee directory lookup failed",
			zap.Int64("employee_id", employeeID),
			zap.String("error_type", errType),
			zap.Bool("transient", transient),
			zap.Error(err),
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, err
	}

	log.Debug("Employee directory lookup",
		zap.Int64("employee_id", employeeID),
		zap.Bool("exists", exists),
	)
	return exists, nil
}

// BreakerState exposes the circuit breaker state for readiness reporting.
func (c *Client) BreakerState() circuitbreaker.State {
	return c.cb.GetState()
}
