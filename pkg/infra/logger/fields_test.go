package logger

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/kart-io/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func fieldMap(ctx context.Context) map[string]any {
	out := map[string]any{}
	f := Fields(ctx)
	for i := 0; i+1 < len(f); i += 2 {
		out[f[i].(string)] = f[i+1]
	}
	return out
}

func TestWithRequestID(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, Fields(WithRequestID(ctx, "")))

	ctx = WithRequestID(ctx, "01HZX")
	assert.Equal(t, map[string]any{FieldRequestID: "01HZX"}, fieldMap(ctx))
}

func TestWithFields_CopyOnWrite(t *testing.T) {
	parent := WithFields(context.Background(), FieldDocument, "doc-1")
	child := WithFields(parent, FieldTurnID, "turn-1", "dangling")

	assert.Equal(t, map[string]any{FieldDocument: "doc-1"}, fieldMap(parent))
	assert.Equal(t, map[string]any{FieldDocument: "doc-1", FieldTurnID: "turn-1"}, fieldMap(child))

	same := WithFields(child, 42, "ignored")
	assert.Equal(t, fieldMap(child), fieldMap(same))
}

func TestWithTraceContext(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, Fields(WithTraceContext(ctx)), "no span")

	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID})

	ctx = WithTraceContext(trace.ContextWithSpanContext(ctx, sc))
	got := fieldMap(ctx)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", got[FieldTraceID])
	assert.Equal(t, "00f067aa0ba902b7", got[FieldSpanID])
}

func TestFrom(t *testing.T) {
	assert.NotNil(t, From(WithRequestID(context.Background(), "r1")))

	pinned := logger.Global()
	assert.Equal(t, pinned, From(WithLogger(context.Background(), pinned)))
}

func TestErrorChain(t *testing.T) {
	assert.Nil(t, ErrorChain(nil))

	base := errors.New("connection refused")
	wrapped := fmt.Errorf("embed: %w", base)
	assert.Equal(t, []string{"embed: connection refused", "connection refused"}, ErrorChain(wrapped))

	joined := errors.Join(errors.New("a"), wrapped)
	chain := ErrorChain(joined)
	assert.Equal(t, joined.Error(), chain[0])
	assert.Equal(t, []string{"a", "embed: connection refused", "connection refused"}, chain[1:])
}

func TestErrorAndWarn_NoPanic(t *testing.T) {
	ctx := WithRequestID(context.Background(), "r1")
	Error(ctx, "ignored", nil)
	Error(ctx, "failed", fmt.Errorf("x: %w", errors.New("y")), "stage", "test")
	Warn(ctx, "degraded", nil, "stage", "test")
	Warn(ctx, "degraded", errors.New("z"))
}
