// Package errors provides the structured error type shared by every authflow
// package. Each failure carries a machine-readable code, an HTTP status hint,
// a retryable flag and non-secret diagnostic details such as the provider and
// the login attempt id.
package errors
