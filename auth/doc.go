// Package auth wires the login protocol together.
//
// Subpackages:
//
//   - auth/identity  the authenticated user (subject plus optional email)
//   - auth/oidc      provider registry, signing key resolution, ID token verification, CSRF state
//   - auth/jwt       generic HMAC token service
//   - auth/session   the relying party's own session token
//   - auth/flow      the authorization code login and the "who is calling" check
//   - auth/authctx   identity propagation through request contexts
//
// The top-level package holds the Authenticator contract used by HTTP
// middleware and the composite Config loaded from YAML/env:
//
//	auth:
//	  providers:
//	    google:
//	      client_id: "..."
//	      client_secret: "..."
//	      redirect_uri: "http://localhost:8080/auth/google/callback"
//	  session:
//	    secret: "at-least-32-bytes-of-random-data!"
//	    ttl: 15m
package auth
