package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"security-hub/internal/logging"
)

func RequestLoggingMiddleware(logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()
		entry := logger.WithField("client", c.ClientIP())
		if status >= 500 {
			entry.Errorf("Request: %s %s, Status: %d, Latency: %v", method, path, status, latency)
			return
		}
		entry.Infof("Request: %s %s, Status: %d, Latency: %v", method, path, status, latency)
	}
}
