package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/authflow/logger"
)

var quietPaths = map[string]bool{
	"/health":  true,
	"/version": true,
}

// RequestLogger logs every request with method, route, status and duration.
// Health and version probes are not logged.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if quietPaths[c.Request.URL.Path] {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()

		// The route template keeps provider names but never query strings,
		// which carry authorization codes and state.
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		fields := logger.Fields(
			"method", c.Request.Method,
			"route", route,
			"status", status,
			logger.FieldDuration, latency.Milliseconds(),
			"client", c.ClientIP(),
		)
		if code := errorCode(c); code != "" {
			fields[logger.FieldCode] = code
		}
		if latency > 500*time.Millisecond {
			fields["slow"] = true
		}

		l := log.WithContext(c.Request.Context())
		switch {
		case status >= 500:
			l.Error("Request completed", fields)
		case status >= 400:
			l.Warn("Request completed", fields)
		default:
			l.Debug("Request completed", fields)
		}
	}
}
