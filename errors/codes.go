package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Token verification errors. Verification failures are terminal for the
// attempt; retrying would not change the outcome.
const (
	// ErrCodeMalformedToken indicates a token that is structurally invalid or
	// misses a required claim.
	ErrCodeMalformedToken ErrorCode = "MALFORMED_TOKEN"
	// ErrCodeUnknownKey indicates the token's key id is not in the provider key set.
	ErrCodeUnknownKey ErrorCode = "UNKNOWN_KEY"
	// ErrCodeBadSignature indicates the signature does not verify with the resolved key.
	ErrCodeBadSignature ErrorCode = "BAD_SIGNATURE"
	// ErrCodeIssuerMismatch indicates the iss claim differs from the expected issuer.
	ErrCodeIssuerMismatch ErrorCode = "ISSUER_MISMATCH"
	// ErrCodeAudienceMismatch indicates the aud claim does not contain the client id.
	ErrCodeAudienceMismatch ErrorCode = "AUDIENCE_MISMATCH"
	// ErrCodeTokenExpired indicates the token is past its expiry.
	ErrCodeTokenExpired ErrorCode = "TOKEN_EXPIRED"
)

// Login flow errors
const (
	// ErrCodeStateMismatch indicates the callback state does not match the stored state.
	ErrCodeStateMismatch ErrorCode = "STATE_MISMATCH"
	// ErrCodeProviderUnavailable indicates discovery or key-set retrieval failed.
	ErrCodeProviderUnavailable ErrorCode = "PROVIDER_UNAVAILABLE"
	// ErrCodeTokenExchangeFailed indicates the authorization code exchange failed.
	ErrCodeTokenExchangeFailed ErrorCode = "TOKEN_EXCHANGE_FAILED"
)

// Request errors
const (
	// ErrCodeUnauthorized indicates the request carries no credential.
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	// ErrCodeNotFound indicates the requested resource was not found.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeInvalidInput indicates the input is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
)

// Internal errors
const (
	// ErrCodeInternal indicates an internal server error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeProviderUnavailable: true,
	ErrCodeTokenExchangeFailed: true,
}

// IsRetryableCode returns true if the caller may retry the operation with backoff.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
