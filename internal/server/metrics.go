package server

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	nsPostsIngestedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "northstar_posts_ingested_total",
		Help: "Total ingested posts by outcome (new, duplicate, error).",
	}, []string{"outcome"})

	nsAlertsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "northstar_alerts_total",
		Help: "Total alerts created by category.",
	}, []string{"category"})

	nsRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "northstar_requests_total",
		Help: "Total HTTP requests by method, path, and response status.",
	}, []string{"method", "path", "status"})

	nsRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "northstar_request_duration_seconds",
		Help:    "Request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})
)

// PrometheusMiddleware returns a Gin middleware that records per-request metrics.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		nsRequestsTotal.WithLabelValues(method, path, status).Inc()
		nsRequestDuration.WithLabelValues(method, path).Observe(duration)
	}
}

// MetricsHandler exposes the prometheus scrape endpoint.
func MetricsHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
