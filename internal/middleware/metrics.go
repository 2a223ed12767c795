package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fieldtrack/practicum-api/internal/service"
)

// Metrics observes request latency and status per route template. The
// scrape and probe endpoints are left out so they never dominate the
// histogram.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		if metricsSvc == nil || path == "/metrics" || path == "/health" {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		metricsSvc.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
