// Package logger carries request-scoped log fields through a context and
// hands out loggers that include them.
package logger

import (
	"context"
	"maps"

	"go.opentelemetry.io/otel/trace"

	"github.com/kart-io/logger"
	"github.com/kart-io/logger/core"
)

type contextKey int

const (
	fieldsKey contextKey = iota
	loggerKey
)

// Field names set by the helpers in this package.
const (
	FieldRequestID = "request_id"
	FieldTraceID   = "trace_id"
	FieldSpanID    = "span_id"
	FieldTurnID    = "turn_id"
	FieldDocument  = "document_id"
)

type fields map[string]any

func fromContext(ctx context.Context) fields {
	if f, ok := ctx.Value(fieldsKey).(fields); ok {
		return f
	}
	return nil
}

func (f fields) slice() []any {
	if len(f) == 0 {
		return nil
	}
	out := make([]any, 0, len(f)*2)
	for k, v := range f {
		out = append(out, k, v)
	}
	return out
}

// WithFields returns a context carrying the given key/value pairs in addition
// to any already present. A trailing key without a value is dropped, as are
// non-string keys.
func WithFields(ctx context.Context, keysAndValues ...any) context.Context {
	if len(keysAndValues) < 2 {
		return ctx
	}
	next := maps.Clone(fromContext(ctx))
	if next == nil {
		next = make(fields, len(keysAndValues)/2)
	}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		if key, ok := keysAndValues[i].(string); ok {
			next[key] = keysAndValues[i+1]
		}
	}
	return context.WithValue(ctx, fieldsKey, next)
}

// WithRequestID adds request_id to the context fields.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	return WithFields(ctx, FieldRequestID, requestID)
}

// WithTraceContext copies trace_id and span_id from the active span, if any.
func WithTraceContext(ctx context.Context) context.Context {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return ctx
	}
	return WithFields(ctx,
		FieldTraceID, sc.TraceID().String(),
		FieldSpanID, sc.SpanID().String(),
	)
}

// Fields returns the context fields as a key/value slice, or nil.
func Fields(ctx context.Context) []any {
	return fromContext(ctx).slice()
}

// WithLogger pins log to ctx; From returns it unchanged afterwards.
func WithLogger(ctx context.Context, log core.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, log)
}

// From returns a logger carrying the context fields. It falls back to the
// global logger when the context holds neither a pinned logger nor fields.
func From(ctx context.Context) core.Logger {
	if log, ok := ctx.Value(loggerKey).(core.Logger); ok {
		return log
	}
	base := logger.Global()
	if f := Fields(ctx); len(f) > 0 {
		return base.With(f...)
	}
	return base
}
