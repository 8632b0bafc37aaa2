package http

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/fyrsmithlabs/sparkd/internal/http"

// requestMetrics records per-route request counts, latency and in-flight
// requests on the global meter.
type requestMetrics struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
	inflight metric.Int64UpDownCounter
}

func newRequestMetrics(logger *zap.Logger) *requestMetrics {
	meter := otel.Meter(instrumentationName)
	m := &requestMetrics{}

	var err error
	if m.requests, err = meter.Int64Counter("sparkd.http.requests",
		metric.WithDescription("HTTP requests by route, status and outcome."),
		metric.WithUnit("{request}"),
	); err != nil {
		logger.Warn("failed to create http request counter", zap.Error(err))
	}
	if m.duration, err = meter.Float64Histogram("sparkd.http.request.duration",
		metric.WithDescription("HTTP request latency by route."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5),
	); err != nil {
		logger.Warn("failed to create http duration histogram", zap.Error(err))
	}
	if m.inflight, err = meter.Int64UpDownCounter("sparkd.http.requests.inflight",
		metric.WithDescription("HTTP requests currently being served."),
		metric.WithUnit("{request}"),
	); err != nil {
		logger.Warn("failed to create http inflight counter", zap.Error(err))
	}
	return m
}

// middleware records each request once its status is final, so it must
// wrap the middleware that turns handler errors into responses.
func (m *requestMetrics) middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			start := time.Now()
			if m.inflight != nil {
				m.inflight.Add(ctx, 1)
				defer m.inflight.Add(ctx, -1)
			}

			err := next(c)

			status := c.Response().Status
			attrs := metric.WithAttributes(
				attribute.String("http.request.method", c.Request().Method),
				attribute.String("http.route", routeLabel(c.Path())),
				attribute.Int("http.response.status_code", status),
				attribute.String("outcome", outcome(status)),
			)
			if m.requests != nil {
				m.requests.Add(ctx, 1, attrs)
			}
			if m.duration != nil {
				m.duration.Record(ctx, time.Since(start).Seconds(), attrs)
			}
			return err
		}
	}
}

// routeLabel is the route template (/api/v1/reflections/:id), never the raw
// URL, so ids cannot inflate cardinality.
func routeLabel(path string) string {
	if path == "" || path == "/*" {
		return "unmatched"
	}
	return path
}

// outcome buckets a status for dashboards: rate-limited redeems and
// missing identity headers are called out separately from other 4xx.
func outcome(status int) string {
	switch {
	case status == http.StatusTooManyRequests:
		return "rate_limited"
	case status == http.StatusUnauthorized:
		return "unauthenticated"
	case status >= 500:
		return "server_error"
	case status >= 400:
		return "client_error"
	default:
		return "ok"
	}
}
