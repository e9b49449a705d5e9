// Package endpoint provides the operational endpoints every server mounts.
package endpoint

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/authflow/observability"
)

// Health reports the aggregated health of the registered checks. A down
// component turns the response into a 503.
func Health(registry *observability.HealthRegistry) gin.HandlerFunc {
	return func(c *gin.Context) {
		report := registry.Check(c.Request.Context())
		status := http.StatusOK
		if report.Status == observability.HealthStatusDown {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, report)
	}
}
