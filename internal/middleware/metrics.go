package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"freelance-tracker/internal/metrics"
)

// Metrics records request counts and latency per route template.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		metrics.RequestStarted()
		defer func() {
			path := c.FullPath()
			if path == "" {
				path = "unmatched"
			}
			metrics.RequestFinished(c.Request.Method, path, c.Writer.Status(), time.Since(start))
		}()
		c.Next()
	}
}
