package auth

import (
	"context"

	"github.com/kbukum/authflow/auth/identity"
)

// Authenticator resolves the caller of a request from its session token.
// Middleware depends on this interface; *flow.Orchestrator implements it.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (identity.Identity, error)
}

// AuthenticatorFunc adapts an ordinary function to Authenticator.
//
//	authn := auth.AuthenticatorFunc(func(ctx context.Context, token string) (identity.Identity, error) {
//	    return codec.Verify(token)
//	})
type AuthenticatorFunc func(ctx context.Context, token string) (identity.Identity, error)

// Authenticate implements Authenticator.
func (f AuthenticatorFunc) Authenticate(ctx context.Context, token string) (identity.Identity, error) {
	return f(ctx, token)
}
