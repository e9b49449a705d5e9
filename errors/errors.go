package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Detail keys attached to login failures.
const (
	DetailProvider  = "provider"
	DetailAttemptID = "attempt_id"
	DetailKeyID     = "kid"
	DetailReason    = "reason"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message. It never contains secrets or raw tokens.
	Message string `json:"message"`
	// Retryable indicates if the caller may retry the operation.
	Retryable bool `json:"retryable"`
	// HTTPStatus is the recommended HTTP status code for this error.
	HTTPStatus int `json:"-"`
	// Details contains additional non-secret context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error. It stays internal and is never serialized.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause returns a copy of the error with cause set. The receiver is
// left unchanged, so an error shared between goroutines can be decorated
// by each of them.
func (e *AppError) WithCause(cause error) *AppError {
	c := e.clone()
	c.Cause = cause
	return c
}

// WithDetail returns a copy of the error with key set in its details. The
// receiver and its Details map are left unchanged.
func (e *AppError) WithDetail(key string, value any) *AppError {
	c := e.clone()
	c.Details = make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		c.Details[k] = v
	}
	c.Details[key] = value
	return c
}

func (e *AppError) clone() *AppError {
	c := *e
	return &c
}

// WithProvider tags the error with the identity provider name.
func (e *AppError) WithProvider(provider string) *AppError {
	if provider == "" {
		return e
	}
	return e.WithDetail(DetailProvider, provider)
}

// WithAttempt tags the error with the login attempt id.
func (e *AppError) WithAttempt(attemptID string) *AppError {
	if attemptID == "" {
		return e
	}
	return e.WithDetail(DetailAttemptID, attemptID)
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Retryable:  IsRetryableCode(code),
	}
}

// HasCode reports whether any AppError in err's chain carries code.
func HasCode(err error, code ErrorCode) bool {
	for err != nil {
		var appErr *AppError
		if !stderrors.As(err, &appErr) {
			return false
		}
		if appErr.Code == code {
			return true
		}
		err = appErr.Cause
	}
	return false
}

// CodeOf returns the code of the outermost AppError in err's chain, or
// ErrCodeInternal when there is none.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

// --- Token verification ---

// MalformedToken creates an error for a structurally invalid token.
func MalformedToken(reason string) *AppError {
	return &AppError{
		Code: ErrCodeMalformedToken, Message: "The token is malformed.",
		HTTPStatus: http.StatusUnauthorized,
		Details:    map[string]any{DetailReason: reason},
	}
}

// UnknownKey creates an error for a key id missing from the provider key set.
func UnknownKey(kid string) *AppError {
	return &AppError{
		Code: ErrCodeUnknownKey, Message: "The token was signed with an unknown key.",
		HTTPStatus: http.StatusUnauthorized,
		Details:    map[string]any{DetailKeyID: kid},
	}
}

// BadSignature creates an error for a signature that does not verify.
func BadSignature() *AppError {
	return &AppError{
		Code: ErrCodeBadSignature, Message: "The token signature is invalid.",
		HTTPStatus: http.StatusUnauthorized,
	}
}

// IssuerMismatch creates an error for an unexpected iss claim.
func IssuerMismatch(got string) *AppError {
	return &AppError{
		Code: ErrCodeIssuerMismatch, Message: "The token issuer is not trusted.",
		HTTPStatus: http.StatusUnauthorized,
		Details:    map[string]any{"issuer": got},
	}
}

// AudienceMismatch creates an error for an aud claim without the expected client.
func AudienceMismatch() *AppError {
	return &AppError{
		Code: ErrCodeAudienceMismatch, Message: "The token was issued for another audience.",
		HTTPStatus: http.StatusUnauthorized,
	}
}

// TokenExpired creates an error for a token past its expiry.
func TokenExpired() *AppError {
	return &AppError{
		Code: ErrCodeTokenExpired, Message: "The token has expired. Please log in again.",
		HTTPStatus: http.StatusUnauthorized,
	}
}

// --- Login flow ---

// StateMismatch creates an error for a callback whose state does not match.
func StateMismatch() *AppError {
	return &AppError{
		Code: ErrCodeStateMismatch, Message: "Invalid authentication credentials.",
		HTTPStatus: http.StatusUnauthorized,
	}
}

// ProviderUnavailable creates an error for a provider whose metadata or keys
// could not be fetched.
func ProviderUnavailable(provider string, cause error) *AppError {
	return (&AppError{
		Code: ErrCodeProviderUnavailable, Message: "The identity provider is temporarily unavailable. Please try again.",
		HTTPStatus: http.StatusServiceUnavailable, Retryable: true, Cause: cause,
	}).WithProvider(provider)
}

// TokenExchangeFailed creates an error for a failed authorization code exchange.
func TokenExchangeFailed(provider string, cause error) *AppError {
	return (&AppError{
		Code: ErrCodeTokenExchangeFailed, Message: "The identity provider rejected the sign-in. Please try again.",
		HTTPStatus: http.StatusBadGateway, Retryable: true, Cause: cause,
	}).WithProvider(provider)
}

// --- Request ---

// Unauthorized creates a new AppError for a request without a credential.
func Unauthorized(reason string) *AppError {
	if reason == "" {
		reason = "Authentication required."
	}
	return &AppError{
		Code: ErrCodeUnauthorized, Message: reason,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// NotFound creates a new AppError for a resource that was not found.
func NotFound(resource, id string) *AppError {
	details := map[string]any{"resource": resource}
	if id != "" {
		details["id"] = id
	}
	return &AppError{
		Code: ErrCodeNotFound, Message: fmt.Sprintf("The requested %s was not found.", resource),
		HTTPStatus: http.StatusNotFound, Details: details,
	}
}

// InvalidInput creates a new AppError for invalid input.
func InvalidInput(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Code: ErrCodeInvalidInput, Message: fmt.Sprintf("Invalid input: %s", reason),
		HTTPStatus: http.StatusBadRequest, Details: details,
	}
}

// Internal creates a new AppError for an internal server error.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "An unexpected error occurred. Please try again or contact support.",
		HTTPStatus: http.StatusInternalServerError, Cause: cause,
	}
}
