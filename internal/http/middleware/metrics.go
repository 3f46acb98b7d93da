// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file holds the Prometheus instrumentation of the HTTP layer. Series
// are namespaced "message_backend" and labelled by method, registered route
// and status. Requests that matched no route share the "unmatched" route label
// so probing clients cannot grow the series set.
//
// Rendered error payloads are counted by status, error code and field, which
// separates content validation failures from pagination, auth or rate-limit
// rejections.
package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tbourn/go-message-backend/internal/problem"
)

const (
	metricsNamespace = "message_backend"
	unmatchedRoute   = "unmatched"
)

type httpMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inflight prometheus.Gauge
	respSize *prometheus.HistogramVec
	problems *prometheus.CounterVec
}

func newHTTPMetrics(reg prometheus.Registerer) *httpMetrics {
	f := promauto.With(reg)
	return &httpMetrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		inflight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "requests_inflight",
			Help:      "Requests currently being served.",
		}),
		// message payloads are small; token and list responses dominate
		respSize: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "response_size_bytes",
			Help:      "Response body size by method and route.",
			Buckets:   prometheus.ExponentialBuckets(64, 4, 8), // 64B..1MiB
		}, []string{"method", "route"}),
		problems: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "problems_total",
			Help:      "Error payload details rendered, by status, error code and field.",
		}, []string{"status", "error_code", "field"}),
	}
}

var defaultMetrics = newHTTPMetrics(prometheus.DefaultRegisterer)

// ObserveProblem counts the details of a rendered payload. A payload without
// details is counted once under error_code "none".
func ObserveProblem(resp problem.ErrorResponse) {
	defaultMetrics.observeProblem(resp)
}

func (m *httpMetrics) observeProblem(resp problem.ErrorResponse) {
	st := strconv.Itoa(resp.Status)
	if len(resp.Details) == 0 {
		m.problems.WithLabelValues(st, "none", "").Inc()
		return
	}
	for _, d := range resp.Details {
		field := ""
		if d.Field != nil {
			field = *d.Field
		}
		m.problems.WithLabelValues(st, strconv.Itoa(d.ErrorCode), field).Inc()
	}
}

// Metrics instruments every request. Mount promhttp.Handler() next to it to
// expose the series.
func Metrics() gin.HandlerFunc {
	return defaultMetrics.handler()
}

func (m *httpMetrics) handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		m.inflight.Inc()
		defer m.inflight.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		method := c.Request.Method

		m.requests.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.duration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
		// -1 when nothing was written
		if size := c.Writer.Size(); size >= 0 {
			m.respSize.WithLabelValues(method, route).Observe(float64(size))
		}
	}
}
