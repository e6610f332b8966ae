package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	ctxlog "github.com/kart-io/clinrag/pkg/infra/logger"
	"github.com/kart-io/clinrag/pkg/infra/middleware/common"
	"github.com/kart-io/clinrag/pkg/infra/tracing"
)

// Span attribute keys set by the tracing middleware.
const (
	attrClientIP  = "http.client_ip"
	attrRequestID = "http.request_id"
)

// Tracing returns a middleware that extracts the W3C trace context from the
// request headers and wraps the request in a server span named
// "{method} {route}". Paths in skipPaths are not traced.
func Tracing(skipPaths ...string) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = struct{}{}
	}
	tracer := otel.Tracer(tracing.TracerName)

	return func(c *gin.Context) {
		req := c.Request
		if _, ok := skip[req.URL.Path]; ok {
			c.Next()
			return
		}

		ctx := otel.GetTextMapPropagator().Extract(req.Context(), propagation.HeaderCarrier(req.Header))

		route := c.FullPath()
		if route == "" {
			route = req.URL.Path
		}
		ctx, span := tracer.Start(ctx, req.Method+" "+route, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		attrs := []attribute.KeyValue{
			semconv.HTTPMethod(req.Method),
			semconv.HTTPTarget(req.URL.Path),
			semconv.HTTPRoute(route),
			semconv.ServerAddress(req.Host),
			attribute.String(attrClientIP, common.ClientIP(req)),
		}
		if ua := req.UserAgent(); ua != "" {
			attrs = append(attrs, semconv.UserAgentOriginal(ua))
		}
		if rid := common.GetRequestID(ctx); rid != "" {
			attrs = append(attrs, attribute.String(attrRequestID, rid))
		}
		span.SetAttributes(attrs...)

		if sc := span.SpanContext(); sc.HasTraceID() {
			c.Header(common.HeaderTraceID, sc.TraceID().String())
		}

		c.Request = req.WithContext(ctxlog.WithTraceContext(ctx))
		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(semconv.HTTPStatusCode(status))
		if status >= http.StatusBadRequest {
			span.SetStatus(codes.Error, http.StatusText(status))
		} else {
			span.SetStatus(codes.Ok, "")
		}
		if status >= http.StatusInternalServerError {
			msg := fmt.Sprintf("HTTP %d: %s", status, http.StatusText(status))
			if len(c.Errors) > 0 {
				msg += ": " + strings.Join(c.Errors.Errors(), "; ")
			}
			span.RecordError(fmt.Errorf("%s", msg))
		}
	}
}
