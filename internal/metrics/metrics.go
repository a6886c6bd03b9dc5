// Package metrics exposes Prometheus instrumentation for the HTTP
// surface and the allocation engine.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billsnap_http_requests_total",
			Help: "HTTP requests by route and status code.",
		},
		[]string{"method", "route", "status"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "billsnap_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	allocationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "billsnap_allocation_duration_seconds",
			Help:    "Time spent computing a bill allocation.",
			Buckets: prometheus.ExponentialBuckets(1e-6, 4, 10),
		},
	)

	extractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billsnap_extractions_total",
			Help: "Receipt extraction attempts by outcome.",
		},
		[]string{"outcome"},
	)
)

// Middleware records request counts and latency per route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		requestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		requestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// ObserveAllocation records one allocation engine run.
func ObserveAllocation(d time.Duration) {
	allocationDuration.Observe(d.Seconds())
}

// CountExtraction records a receipt extraction outcome ("ok", "service_error",
// "malformed", "validation").
func CountExtraction(outcome string) {
	extractionsTotal.WithLabelValues(outcome).Inc()
}
