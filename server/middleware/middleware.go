// Package middleware holds the Gin middleware the authflow server installs.
// Recovery, request ids, tracing and request logging run on every route;
// RequireSession guards the routes that need a signed-in user.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Gin context keys set by this package.
const (
	RequestIDKey = "request_id"
	// ErrorCodeKey holds the application error code a handler responded with.
	ErrorCodeKey = "error_code"
)

// Middleware wraps an http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Chain composes middleware. The first in the list is the outermost.
func Chain(middlewares ...Middleware) Middleware {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}

// GinWrap adapts a Middleware for use in a Gin chain. Request changes made
// by the middleware are propagated to the Gin context, and a middleware
// that answers without calling next aborts the chain.
func GinWrap(mw Middleware) gin.HandlerFunc {
	return func(c *gin.Context) {
		called := false
		next := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			called = true
			c.Request = r
			c.Next()
		})
		mw(next).ServeHTTP(c.Writer, c.Request)
		if !called {
			c.Abort()
		}
	}
}

func errorCode(c *gin.Context) string {
	return c.GetString(ErrorCodeKey)
}
