// Package authctx carries the authenticated caller through a request context.
//
//	ctx = authctx.WithIdentity(ctx, id)   // in middleware
//	id, ok := authctx.IdentityFrom(ctx)   // in handlers
//
// The generic Set/Get pair stores any other per-request auth value.
package authctx

import (
	"context"
	"errors"

	"github.com/kbukum/authflow/auth/identity"
)

type contextKey struct{}

var claimsKey = contextKey{}

// ErrNoIdentity is returned when the context carries no identity.
var ErrNoIdentity = errors.New("authctx: no identity in context")

// Set stores an authentication value in the context.
func Set(ctx context.Context, value any) context.Context {
	return context.WithValue(ctx, claimsKey, value)
}

// Get retrieves a typed authentication value from the context.
func Get[T any](ctx context.Context) (T, bool) {
	v, ok := ctx.Value(claimsKey).(T)
	return v, ok
}

// WithIdentity stores the caller's identity.
func WithIdentity(ctx context.Context, id identity.Identity) context.Context {
	return Set(ctx, id)
}

// IdentityFrom returns the caller's identity, if the request was authenticated.
func IdentityFrom(ctx context.Context) (identity.Identity, bool) {
	id, ok := Get[identity.Identity](ctx)
	if !ok || id.IsZero() {
		return identity.Identity{}, false
	}
	return id, true
}

// MustIdentity returns the caller's identity and panics without one. Use
// only behind middleware that guarantees authentication.
func MustIdentity(ctx context.Context) identity.Identity {
	id, ok := IdentityFrom(ctx)
	if !ok {
		panic(ErrNoIdentity)
	}
	return id
}

// IdentityOrError returns the caller's identity or ErrNoIdentity.
func IdentityOrError(ctx context.Context) (identity.Identity, error) {
	id, ok := IdentityFrom(ctx)
	if !ok {
		return identity.Identity{}, ErrNoIdentity
	}
	return id, nil
}
