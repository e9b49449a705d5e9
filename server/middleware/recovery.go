package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/authflow/errors"
	"github.com/kbukum/authflow/logger"
	"github.com/kbukum/authflow/observability"
)

// Recovery recovers handler panics, logs the stack and answers with a
// generic INTERNAL_ERROR body. metrics may be nil.
func Recovery(log *logger.Logger, metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			log.WithContext(c.Request.Context()).Error("Panic recovered", logger.Fields(
				logger.FieldError, fmt.Sprintf("%v", rec),
				"stack", string(debug.Stack()),
				"path", c.Request.URL.Path,
				"method", c.Request.Method,
			))
			if metrics != nil {
				metrics.RecordPanic(c.Request.Context(), c.FullPath())
			}
			appErr := errors.Internal(fmt.Errorf("panic: %v", rec))
			c.Set(ErrorCodeKey, string(appErr.Code))
			c.AbortWithStatusJSON(http.StatusInternalServerError, appErr.ToResponse())
		}()
		c.Next()
	}
}
