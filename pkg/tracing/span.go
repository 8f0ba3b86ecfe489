package tracing

import (
	"context"

	"github.com/Combine-Capital/pgcache/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentationName names the tracer used for pgcache spans.
const InstrumentationName = "github.com/Combine-Capital/pgcache"

// StartSpan starts a span from the global provider as a child of any span
// already in ctx.
//
//	ctx, span := tracing.StartSpan(ctx, "cache.get",
//	    trace.WithAttributes(tracing.CacheAttributes("postgres", "get", key)...))
//	defer span.End()
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return otel.Tracer(InstrumentationName).Start(ctx, name, opts...)
}

// SetSpanError records err on the span in ctx. Cancellations are recorded as
// an event without marking the span failed.
func SetSpanError(ctx context.Context, err error) {
	if err == nil {
		return
	}

	span := trace.SpanFromContext(ctx)
	span.SetAttributes(attribute.String("error.kind", errors.Kind(err)))
	if errors.IsCanceled(err) {
		span.AddEvent("canceled", trace.WithAttributes(attribute.String("reason", err.Error())))
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// SetSpanAttributes adds attributes to the span in ctx.
func SetSpanAttributes(ctx context.Context, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).SetAttributes(attrs...)
}

// CacheAttributes describes a cache operation. The key is included as-is;
// callers that treat keys as sensitive should not trace.
func CacheAttributes(backend, operation, key string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("cache.backend", backend),
		attribute.String("cache.operation", operation),
		attribute.String("cache.key", key),
	}
}

// CacheHit records whether a read found a live entry.
func CacheHit(hit bool) attribute.KeyValue {
	return attribute.Bool("cache.hit", hit)
}

// DatabaseAttributes describes a statement against a table.
func DatabaseAttributes(operation, schema, table string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", operation),
		attribute.String("db.sql.table", schema+"."+table),
	}
}
