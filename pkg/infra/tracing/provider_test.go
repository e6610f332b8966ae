package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNewOptions(t *testing.T) {
	opts := NewOptions()
	assert.False(t, opts.Enabled)
	assert.Equal(t, "clinrag", opts.ServiceName)
	assert.Empty(t, opts.Validate())
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Options)
		wantErr bool
	}{
		{"disabled is valid", func(o *Options) { o.ExporterType = "bogus" }, false},
		{"enabled defaults", func(o *Options) { o.Enabled = true }, false},
		{"missing endpoint", func(o *Options) { o.Enabled = true; o.Endpoint = "" }, true},
		{"stdout needs no endpoint", func(o *Options) { o.Enabled = true; o.Endpoint = ""; o.ExporterType = ExporterStdout }, false},
		{"bad exporter", func(o *Options) { o.Enabled = true; o.ExporterType = "jaeger" }, true},
		{"bad ratio", func(o *Options) { o.Enabled = true; o.SamplerRatio = 1.5 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := NewOptions()
			tt.mutate(o)
			assert.Equal(t, tt.wantErr, len(o.Validate()) > 0)
		})
	}
}

func TestNewProvider_Disabled(t *testing.T) {
	p, err := NewProvider(context.Background(), NewOptions(), "test")
	require.NoError(t, err)
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestNewProvider_Noop(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	opts := NewOptions()
	opts.Enabled = true
	opts.ExporterType = ExporterNoop

	p, err := NewProvider(context.Background(), opts, "test")
	require.NoError(t, err)
	_, span := p.Tracer("t").Start(context.Background(), "op")
	span.End()
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestStartSpanAndRecordError(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	ctx, span := StartSpan(context.Background(), "clinrag.ask")
	assert.NotEmpty(t, TraceIDFromContext(ctx))
	RecordError(span, errors.New("boom"))
	RecordError(span, nil)
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "clinrag.ask", spans[0].Name())
	assert.Equal(t, "boom", spans[0].Status().Description)
	assert.Empty(t, TraceIDFromContext(context.Background()))
}
