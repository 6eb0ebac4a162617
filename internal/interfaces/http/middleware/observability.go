package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/omega-networks/mapkit-auth/internal/infrastructure/monitoring"
	"github.com/omega-networks/mapkit-auth/pkg/constants"
)

// Observability starts a server span per request, continuing any trace the
// caller propagated, and records request count, latency and in-flight gauges.
// Observability 为每个请求创建追踪 span 并记录 Prometheus 指标。
func Observability(tracer trace.Tracer, metrics *monitoring.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		route := c.FullPath()
		if route == "" {
			route = "not_found"
		}

		ctx := otel.GetTextMapPropagator().Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		ctx, span := tracer.Start(ctx, c.Request.Method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				semconv.HTTPMethodKey.String(c.Request.Method),
				semconv.HTTPRouteKey.String(route),
			),
		)
		defer span.End()
		c.Request = c.Request.WithContext(ctx)

		if sc := span.SpanContext(); sc.HasTraceID() {
			setContextValue(c, constants.ContextKeyTraceID, sc.TraceID().String())
		}

		if metrics != nil {
			metrics.HTTPInFlight.Inc()
			defer metrics.HTTPInFlight.Dec()
		}

		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(
			semconv.HTTPStatusCodeKey.Int(status),
			attribute.String("http.client_ip", c.ClientIP()),
		)
		if status >= 500 {
			span.SetStatus(codes.Error, strconv.Itoa(status))
		}

		if metrics != nil {
			metrics.HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
			metrics.HTTPLatency.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
		}
	}
}
