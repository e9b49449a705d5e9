// Package oidc verifies OpenID Connect ID tokens from third-party identity
// providers and guards the authorization round trip against CSRF.
//
// A KeyResolver discovers each provider's issuer and JWKS endpoint and
// caches its signing keys. A Verifier checks an ID token against those keys
// with the provider's pinned algorithm, then checks issuer, audience and
// expiry before producing an identity.Identity. StateGuard issues and
// checks the state value that binds a callback to the browser that started
// the login.
//
//	providers, _ := oidc.NewRegistry(cfg.Providers)
//	keys := oidc.NewKeyResolver(providers, client, oidc.KeyResolverConfig{})
//	verifier := oidc.NewVerifier(providers, keys, oidc.VerifierConfig{})
//	id, err := verifier.Verify(ctx, "google", rawIDToken)
package oidc
