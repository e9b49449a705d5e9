package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/authflow/errors"
	"github.com/kbukum/authflow/server/middleware"
)

// RespondWithError writes err as an error envelope. An *apperrors.AppError
// keeps its status and code; anything else becomes a generic 500. The code
// is recorded on c for request logging and tracing.
func RespondWithError(c *gin.Context, err error) {
	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		appErr = apperrors.Internal(err)
	}
	c.Set(middleware.ErrorCodeKey, string(appErr.Code))
	c.JSON(appErr.HTTPStatus, appErr.ToResponse())
}

// AbortWithError is RespondWithError followed by c.Abort.
func AbortWithError(c *gin.Context, err error) {
	RespondWithError(c, err)
	c.Abort()
}

// RespondMessage sends {"message": msg} with a 200.
func RespondMessage(c *gin.Context, msg string) {
	c.JSON(http.StatusOK, gin.H{"message": msg})
}
