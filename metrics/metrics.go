// Package metrics registers the Prometheus instrumentation for the
// file core. HTTP request metrics come from the gin middleware;
// business counters are bumped from the handler layer.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tv_http_requests_total",
			Help: "Total HTTP requests handled",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tv_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// UploadsTotal counts uploads by outcome
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tv_uploads_total",
			Help: "Total upload attempts",
		},
		[]string{"result"},
	)

	// DownloadsTotal counts direct and share downloads by outcome
	DownloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tv_downloads_total",
			Help: "Total download attempts",
		},
		[]string{"kind", "result"},
	)

	// ValidationRejections counts upload validation failures by code
	ValidationRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tv_validation_rejections_total",
			Help: "Uploads rejected by the validator",
		},
		[]string{"code"},
	)
)

// Middleware records request counts and durations per route. Gin's
// FullPath keeps parameterized routes from exploding label cardinality.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())

		httpRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the /metrics endpoint
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
