package logger

import (
	"context"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"projecthub/pkg/trace"
)

var Log *zap.Logger

// NewLogger 创建全局 logger；LOG_LEVEL=debug 时使用开发配置
func NewLogger() *zap.Logger {
	cfg := zap.NewProductionConfig()
	if strings.EqualFold(os.Getenv("LOG_LEVEL"), "debug") {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	l, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	Log = l
	return l
}

// WithTrace 从 context 中提取 trace_id 并添加到 logger
func WithTrace(ctx context.Context, logger *zap.Logger) *zap.Logger {
	traceID := trace.FromContext(ctx)
	if traceID != "" {
		return logger.With(zap.String("trace_id", traceID))
	}
	return logger
}
