package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope used by the service.
const TracerName = "github.com/kart-io/clinrag"

// Span attribute keys used by the pipeline.
const (
	AttrDocumentID   = "clinrag.document.id"
	AttrDocumentName = "clinrag.document.name"
	AttrChunkCount   = "clinrag.chunk.count"
	AttrTopK         = "clinrag.top_k"
	AttrCodeCount    = "clinrag.phecode.count"
	AttrProvider     = "clinrag.provider"
	AttrCacheHit     = "clinrag.cache.hit"
	AttrFaithfulness = "clinrag.eval.faithfulness"
	AttrRelevance    = "clinrag.eval.relevance"
)

// StartSpan starts a span on the service tracer.
func StartSpan(ctx context.Context, spanName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(TracerName).Start(ctx, spanName, trace.WithAttributes(attrs...))
}

// RecordError records err on span and marks it failed. A nil err is a no-op.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// TraceIDFromContext extracts the trace ID from the context.
// Returns an empty string if no trace is active.
func TraceIDFromContext(ctx context.Context) string {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return ""
	}
	return sc.TraceID().String()
}
