package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/authflow/auth"
	"github.com/kbukum/authflow/auth/authctx"
	"github.com/kbukum/authflow/auth/identity"
	"github.com/kbukum/authflow/errors"
)

// IdentityKey is the Gin context key for the authenticated identity.
const IdentityKey = "identity"

// RequireSession authenticates the request from the session cookie, or an
// "Authorization: Bearer" header when the cookie is absent. On success the
// identity is stored in the request context (see authctx) and under
// IdentityKey; otherwise the request is aborted with the error's status.
func RequireSession(authn auth.Authenticator, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := sessionToken(c, cookieName)
		id, err := authn.Authenticate(c.Request.Context(), token)
		if err != nil {
			appErr, ok := errors.AsAppError(err)
			if !ok {
				appErr = errors.Internal(err)
			}
			c.Set(ErrorCodeKey, string(appErr.Code))
			c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.ToResponse())
			return
		}
		c.Set(IdentityKey, id)
		c.Request = c.Request.WithContext(authctx.WithIdentity(c.Request.Context(), id))
		c.Next()
	}
}

// IdentityFrom returns the identity RequireSession stored on c.
func IdentityFrom(c *gin.Context) (identity.Identity, bool) {
	return authctx.IdentityFrom(c.Request.Context())
}

func sessionToken(c *gin.Context, cookieName string) string {
	if v, err := c.Cookie(cookieName); err == nil && v != "" {
		return v
	}
	h := c.GetHeader("Authorization")
	if scheme, token, ok := strings.Cut(h, " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	return ""
}

