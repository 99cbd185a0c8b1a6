package otel

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"projecthub/pkg/metrics"
)

// DBSpan 为数据库操作创建 span
func DBSpan(ctx context.Context, operation, table string) (context.Context, trace.Span) {
	return StartSpan(ctx, "db."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.operation.name", operation),
			attribute.String("db.collection.name", table),
		),
	)
}

// DBOperation 包装一次数据库操作：创建 span，并记录 db_query_duration_seconds
func DBOperation(ctx context.Context, operation, table string, fn func(context.Context) error) error {
	ctx, span := DBSpan(ctx, operation, table)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	metrics.RecordDBQueryDuration(operation, table, time.Since(start))

	WrapDBError(span, err)
	return err
}

// WrapDBError 记录数据库错误到 span，ErrNoRows 不算错误
func WrapDBError(span trace.Span, err error) {
	switch {
	case err == nil:
		span.SetStatus(codes.Ok, "")
	case errors.Is(err, pgx.ErrNoRows):
		span.SetStatus(codes.Ok, "no rows")
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}
