// Package httpclient is the outbound HTTP client used to talk to identity
// providers: discovery documents, JWKS endpoints and token endpoints.
//
// Every request carries a context and the client-wide timeout. Transport
// failures and non-2xx responses come back as *Error with a classification,
// so callers can map them onto their own error taxonomy without inspecting
// net/http internals.
//
//	c, _ := httpclient.New(httpclient.Config{Timeout: 10 * time.Second})
//	doc, err := httpclient.GetJSON[discoveryDocument](ctx, c, issuer+"/.well-known/openid-configuration")
//
// The underlying *http.Client is available through Unwrap for libraries such
// as golang.org/x/oauth2 that accept one.
package httpclient
