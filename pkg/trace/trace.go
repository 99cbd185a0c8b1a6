package trace

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

type contextKey struct{}

// HeaderName 请求和出站调用使用的 trace ID header
const HeaderName = "X-Trace-ID"

// GenerateTraceID 生成一个新的 trace ID（32 位十六进制）
func GenerateTraceID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// FromContext 从 context 中获取 trace_id
func FromContext(ctx context.Context) string {
	if traceID, ok := ctx.Value(contextKey{}).(string); ok {
		return traceID
	}
	return ""
}

// WithContext 将 trace_id 添加到 context 中
func WithContext(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, contextKey{}, traceID)
}

// FromHeaders 依次尝试 X-Trace-ID 和 X-Request-ID，都没有时生成新的
func FromHeaders(traceHeader, requestIDHeader string) string {
	if traceHeader != "" {
		return traceHeader
	}
	if requestIDHeader != "" {
		return requestIDHeader
	}
	return GenerateTraceID()
}
