// Package oidctest runs a fake OpenID Connect provider for tests.
//
//	p := oidctest.New(t)
//	reg, _ := oidc.NewRegistry(map[string]oidc.ProviderConfig{"google": p.Config("google")})
//	token := p.Sign(p.Claims("u1", "u1@example.com"))
//
// The provider serves discovery, JWKS and token endpoints from an
// httptest server and counts every hit.
package oidctest

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	jose "github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"

	"github.com/kbukum/authflow/auth/oidc"
	"github.com/kbukum/authflow/config"
)

// Client credentials the token endpoint accepts.
const (
	ClientID     = "test-client"
	ClientSecret = "test-secret"
)

// SigningKey is an RSA key with its key id.
type SigningKey struct {
	ID  string
	Key *rsa.PrivateKey
}

// Provider is a fake OIDC provider.
type Provider struct {
	t      testing.TB
	server *httptest.Server

	mu          sync.Mutex
	keys        []SigningKey
	codes       map[string]string
	tokenStatus int
	unavailable bool
	delay       time.Duration
	lastToken   url.Values
	generation  int

	// Now is the clock used by Claims.
	Now func() time.Time

	discoveryHits atomic.Int64
	jwksHits      atomic.Int64
	tokenHits     atomic.Int64
}

// New starts a fake provider with one signing key. It is closed when the
// test ends.
func New(t testing.TB) *Provider {
	t.Helper()
	p := &Provider{
		t:     t,
		codes: make(map[string]string),
		Now:   time.Now,
	}
	p.keys = []SigningKey{p.newKey()}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /.well-known/openid-configuration", p.handleDiscovery)
	mux.HandleFunc("GET /jwks", p.handleJWKS)
	mux.HandleFunc("POST /token", p.handleToken)
	p.server = httptest.NewServer(mux)
	t.Cleanup(p.server.Close)
	return p
}

// URL is the provider base URL. It doubles as the issuer.
func (p *Provider) URL() string { return p.server.URL }

// Issuer returns the iss value the provider advertises.
func (p *Provider) Issuer() string { return p.server.URL }

// Config returns a provider configuration pointing at this server.
func (p *Provider) Config(name string) oidc.ProviderConfig {
	return oidc.ProviderConfig{
		Name:                  name,
		ClientID:              ClientID,
		ClientSecret:          config.Secret(ClientSecret),
		RedirectURI:           "http://localhost:8080/auth/" + name + "/callback",
		AuthorizationEndpoint: p.server.URL + "/authorize",
		TokenEndpoint:         p.server.URL + "/token",
		DiscoveryEndpoint:     p.server.URL + "/.well-known/openid-configuration",
	}
}

// Claims returns a valid claim set for sub and email, expiring in one hour.
// An empty email is left out.
func (p *Provider) Claims(sub, email string) jwt.MapClaims {
	now := p.Now()
	claims := jwt.MapClaims{
		"iss": p.Issuer(),
		"aud": ClientID,
		"sub": sub,
		"iat": now.Unix(),
		"exp": now.Add(time.Hour).Unix(),
	}
	if email != "" {
		claims["email"] = email
		claims["email_verified"] = true
	}
	return claims
}

// Sign signs claims with the current key using RS256.
func (p *Provider) Sign(claims jwt.Claims) string {
	return p.SignWith(p.CurrentKey(), jwt.SigningMethodRS256, claims)
}

// SignWith signs claims with key and method, setting the kid header.
func (p *Provider) SignWith(key SigningKey, method jwt.SigningMethod, claims jwt.Claims) string {
	p.t.Helper()
	token := jwt.NewWithClaims(method, claims)
	token.Header["kid"] = key.ID
	signed, err := token.SignedString(key.Key)
	if err != nil {
		p.t.Fatalf("oidctest: sign token: %v", err)
	}
	return signed
}

// CurrentKey returns the newest published key.
func (p *Provider) CurrentKey() SigningKey {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.keys[len(p.keys)-1]
}

// ForeignKey returns a key that is never published.
func (p *Provider) ForeignKey() SigningKey {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.newKey()
}

// Rotate replaces the published key set with a single new key and returns it.
func (p *Provider) Rotate() SigningKey {
	p.mu.Lock()
	defer p.mu.Unlock()
	key := p.newKey()
	p.keys = []SigningKey{key}
	return key
}

// SetCodeToken makes the token endpoint answer code with idToken.
func (p *Provider) SetCodeToken(code, idToken string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.codes[code] = idToken
}

// SetTokenStatus forces the token endpoint to answer with status. Zero restores normal behavior.
func (p *Provider) SetTokenStatus(status int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tokenStatus = status
}

// SetUnavailable makes discovery and JWKS answer 503.
func (p *Provider) SetUnavailable(down bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.unavailable = down
}

// SetDelay holds every response for d, or until the client gives up.
func (p *Provider) SetDelay(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.delay = d
}

// DiscoveryHits returns the number of discovery requests served.
func (p *Provider) DiscoveryHits() int64 { return p.discoveryHits.Load() }

// JWKSHits returns the number of JWKS requests served.
func (p *Provider) JWKSHits() int64 { return p.jwksHits.Load() }

// TokenHits returns the number of token requests served.
func (p *Provider) TokenHits() int64 { return p.tokenHits.Load() }

// LastTokenRequest returns the form of the last token request.
func (p *Provider) LastTokenRequest() url.Values {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastToken
}

// newKey must be called with mu held or before the server starts.
func (p *Provider) newKey() SigningKey {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		p.t.Fatalf("oidctest: generate key: %v", err)
	}
	p.generation++
	return SigningKey{ID: fmt.Sprintf("key-%d", p.generation), Key: key}
}

// isUnavailable applies the configured delay and reports whether the
// request was answered with 503.
func (p *Provider) isUnavailable(w http.ResponseWriter, r *http.Request) bool {
	p.mu.Lock()
	down, delay := p.unavailable, p.delay
	p.mu.Unlock()
	if !p.wait(r, delay) {
		return true
	}
	if down {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}
	return down
}

// wait reports false when the client went away first.
func (p *Provider) wait(r *http.Request, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-r.Context().Done():
		return false
	}
}

func (p *Provider) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	p.discoveryHits.Add(1)
	if p.isUnavailable(w, r) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"issuer":                 p.Issuer(),
		"jwks_uri":               p.server.URL + "/jwks",
		"authorization_endpoint": p.server.URL + "/authorize",
		"token_endpoint":         p.server.URL + "/token",
	})
}

func (p *Provider) handleJWKS(w http.ResponseWriter, r *http.Request) {
	p.jwksHits.Add(1)
	if p.isUnavailable(w, r) {
		return
	}
	p.mu.Lock()
	var set jose.JSONWebKeySet
	for _, k := range p.keys {
		set.Keys = append(set.Keys, jose.JSONWebKey{
			Key:       &k.Key.PublicKey,
			KeyID:     k.ID,
			Algorithm: string(jose.RS256),
			Use:       "sig",
		})
	}
	p.mu.Unlock()
	writeJSON(w, http.StatusOK, set)
}

func (p *Provider) handleToken(w http.ResponseWriter, r *http.Request) {
	p.tokenHits.Add(1)
	p.mu.Lock()
	delay := p.delay
	p.mu.Unlock()
	if !p.wait(r, delay) {
		return
	}
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_request"})
		return
	}

	p.mu.Lock()
	p.lastToken = r.PostForm
	status := p.tokenStatus
	idToken, known := p.codes[r.PostForm.Get("code")]
	p.mu.Unlock()

	switch {
	case status != 0:
		writeJSON(w, status, map[string]string{"error": "server_error"})
	case r.PostForm.Get("grant_type") != "authorization_code":
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unsupported_grant_type"})
	case r.PostForm.Get("client_id") != ClientID || r.PostForm.Get("client_secret") != ClientSecret:
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid_client"})
	case !known:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant"})
	default:
		body := map[string]any{
			"access_token": "provider-access-token",
			"token_type":   "Bearer",
			"expires_in":   3600,
		}
		if idToken != "" {
			body["id_token"] = idToken
		}
		writeJSON(w, http.StatusOK, body)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
