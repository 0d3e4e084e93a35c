package metrics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// requestDurationBuckets spans quick status reads up to a full rotation sweep,
// which can hold POST /v1/encryption/rotate open for an hour.
var requestDurationBuckets = []float64{
	0.005, 0.025, 0.1, 0.5, 1, 5, 30, 120, 600, 1800, 3600,
}

// unscrapedPaths are hit by orchestrator health checks and would drown the
// admin routes in the request counters.
var unscrapedPaths = map[string]bool{
	"/health": true,
	"/ready":  true,
}

type httpMetrics struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
}

func newHTTPMetrics(meterProvider metric.MeterProvider, namespace string) (*httpMetrics, error) {
	meter := meterProvider.Meter(namespace)

	requests, err := meter.Int64Counter(
		fmt.Sprintf("%s_http_requests_total", namespace),
		metric.WithDescription("Admin API requests by route and status"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http request counter: %w", err)
	}

	duration, err := meter.Float64Histogram(
		fmt.Sprintf("%s_http_request_duration_seconds", namespace),
		metric.WithDescription("Admin API request duration, including rotation sweeps"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(requestDurationBuckets...),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http duration histogram: %w", err)
	}

	return &httpMetrics{requests: requests, duration: duration}, nil
}

// HTTPMetricsMiddleware records request counts and durations labelled with
// method, route pattern and status code. Health checks are not recorded. When
// the instruments cannot be created the middleware only passes through.
func HTTPMetricsMiddleware(meterProvider metric.MeterProvider, namespace string) gin.HandlerFunc {
	m, err := newHTTPMetrics(meterProvider, namespace)
	if err != nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		if unscrapedPaths[c.FullPath()] {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		attrs := metric.WithAttributes(
			attribute.String("method", c.Request.Method),
			attribute.String("path", routePattern(c.FullPath())),
			attribute.String("status_code", strconv.Itoa(c.Writer.Status())),
		)
		m.requests.Add(c.Request.Context(), 1, attrs)
		m.duration.Record(c.Request.Context(), time.Since(start).Seconds(), attrs)
	}
}

// routePattern keeps label cardinality bounded: unmatched paths share one value.
func routePattern(fullPath string) string {
	if fullPath == "" {
		return "unmatched"
	}
	return fullPath
}
