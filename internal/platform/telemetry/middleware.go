package telemetry

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsamuelsen/platform-service/internal/platform/logging"
)

// HeaderTraceID carries the active trace ID back to the caller.
const HeaderTraceID = "X-Trace-ID"

// httpMetrics are the OpenTelemetry server instruments.
type httpMetrics struct {
	duration metric.Float64Histogram
	inFlight metric.Int64UpDownCounter
}

func newHTTPMetrics() (*httpMetrics, error) {
	meter := otel.Meter(instrumentationName)

	duration, err := meter.Float64Histogram(
		"http.server.request.duration",
		metric.WithDescription("Duration of platform API requests"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	inFlight, err := meter.Int64UpDownCounter(
		"http.server.active_requests",
		metric.WithDescription("Platform API requests in flight"),
	)
	if err != nil {
		return nil, err
	}

	return &httpMetrics{duration: duration, inFlight: inFlight}, nil
}

// Middleware records request metrics, echoes the trace ID in X-Trace-ID and
// tags the request logger with it.
// It belongs after TracingMiddleware so the server span is already started.
func Middleware(serviceName string) gin.HandlerFunc {
	m, err := newHTTPMetrics()
	if err != nil {
		otel.Handle(err)
	}

	service := attribute.String("service.name", serviceName)

	return func(c *gin.Context) {
		start := time.Now()
		ctx := c.Request.Context()

		if sc := trace.SpanFromContext(ctx).SpanContext(); sc.HasTraceID() {
			traceID := sc.TraceID().String()
			c.Header(HeaderTraceID, traceID)

			ctx = logging.WithTraceID(ctx, traceID)
			c.Request = c.Request.WithContext(ctx)
		}

		route := attribute.String("http.route", c.FullPath())
		method := attribute.String("http.request.method", c.Request.Method)

		if m != nil {
			m.inFlight.Add(ctx, 1, metric.WithAttributes(service, method, route))
			defer m.inFlight.Add(ctx, -1, metric.WithAttributes(service, method, route))
		}

		c.Next()

		if m != nil {
			m.duration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(
				service, method, route,
				attribute.Int("http.response.status_code", c.Writer.Status()),
			))
		}
	}
}

// TracingMiddleware starts a server span per request and extracts the
// inbound trace context.
func TracingMiddleware(serviceName string) gin.HandlerFunc {
	return otelgin.Middleware(serviceName, otelgin.WithPropagators(Propagator()))
}
