package middleware

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/authflow/observability"
)

// Observe starts a server span per request, continuing any incoming trace
// context, and records request metrics. tracer and metrics may be nil.
func Observe(service string, tracer trace.Tracer, metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		ctx := otel.GetTextMapPropagator().Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))

		scope := observability.NewRequestScope(tracer, metrics, service, c.Request.Method, route, c.GetString(RequestIDKey))
		ctx = scope.Begin(ctx)
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		scope.End(ctx, c.Writer.Status(), errorCode(c))
	}
}
