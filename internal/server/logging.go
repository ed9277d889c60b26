package server

import (
	"time"

	"theraslot/internal/logger"

	"github.com/gin-gonic/gin"
)

// Probe endpoints are scraped constantly; logging them is pure noise.
var quietPaths = map[string]bool{
	"/health":  true,
	"/metrics": true,
}

// RequestLoggingMiddleware emits one structured line per request. 5xx
// responses log at error level with any handler errors attached.
func RequestLoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		if quietPaths[path] {
			return
		}

		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		status := c.Writer.Status()
		fields := []any{
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		if callerID := c.GetString("caller_id"); callerID != "" {
			fields = append(fields, "caller_id", callerID)
		}

		switch {
		case status >= 500:
			if len(c.Errors) > 0 {
				fields = append(fields, "errors", c.Errors.String())
			}
			logger.Error("HTTP request", fields...)
		case status >= 400:
			logger.Warn("HTTP request", fields...)
		default:
			logger.Info("HTTP request", fields...)
		}
	}
}
