package httpclient

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode classifies a failed request.
type ErrorCode int

const (
	ErrCodeTimeout    ErrorCode = iota // deadline or client timeout
	ErrCodeConnection                  // refused, DNS, TLS, reset
	ErrCodeClient                      // 4xx
	ErrCodeServer                      // 5xx and unexpected statuses
	ErrCodeDecode                      // body unreadable or not the expected JSON
	ErrCodeRequest                     // request could not be built
)

var errorCodeNames = [...]string{
	ErrCodeTimeout:    "timeout",
	ErrCodeConnection: "connection",
	ErrCodeClient:     "client",
	ErrCodeServer:     "server",
	ErrCodeDecode:     "decode",
	ErrCodeRequest:    "request",
}

func (c ErrorCode) String() string {
	if c < 0 || int(c) >= len(errorCodeNames) {
		return "unknown"
	}
	return errorCodeNames[c]
}

// Error is a failed request. StatusCode is 0 when no response arrived.
type Error struct {
	StatusCode int
	Code       ErrorCode
	Message    string
	Retryable  bool
	Body       []byte
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("httpclient: %s (HTTP %d): %s", e.Code, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("httpclient: %s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func wrap(code ErrorCode, status int, retryable bool, err error) *Error {
	return &Error{StatusCode: status, Code: code, Message: err.Error(), Retryable: retryable, Err: err}
}

// NewTimeoutError wraps a timeout. Timeouts are retryable.
func NewTimeoutError(err error) *Error { return wrap(ErrCodeTimeout, 0, true, err) }

// NewConnectionError wraps a transport failure. It is retryable.
func NewConnectionError(err error) *Error { return wrap(ErrCodeConnection, 0, true, err) }

// NewDecodeError wraps a body that could not be read or decoded.
func NewDecodeError(statusCode int, err error) *Error {
	return wrap(ErrCodeDecode, statusCode, false, err)
}

// NewRequestError wraps a request that could not be built.
func NewRequestError(err error) *Error { return wrap(ErrCodeRequest, 0, false, err) }

// ClassifyStatusCode returns nil for 2xx. 429 and 5xx are retryable;
// 3xx is unexpected since redirects are not followed.
func ClassifyStatusCode(statusCode int, body []byte) *Error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}
	e := &Error{StatusCode: statusCode, Code: ErrCodeServer, Message: fmt.Sprintf("HTTP %d", statusCode), Body: body}
	switch {
	case statusCode >= 500:
		e.Retryable = true
	case statusCode >= 400:
		e.Code = ErrCodeClient
		e.Retryable = statusCode == http.StatusTooManyRequests
	default:
		e.Message = "unexpected " + e.Message
	}
	return e
}

func codeOf(err error) (ErrorCode, bool) {
	var e *Error
	if !errors.As(err, &e) {
		return 0, false
	}
	return e.Code, true
}

// IsTimeout reports whether err is a timeout.
func IsTimeout(err error) bool {
	c, ok := codeOf(err)
	return ok && c == ErrCodeTimeout
}

// IsConnection reports whether err is a transport failure.
func IsConnection(err error) bool {
	c, ok := codeOf(err)
	return ok && c == ErrCodeConnection
}

// IsServerError reports whether err is a 5xx or unexpected status.
func IsServerError(err error) bool {
	c, ok := codeOf(err)
	return ok && c == ErrCodeServer
}

// IsRetryable reports whether err may succeed on another attempt.
func IsRetryable(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Retryable
}
