// Package session issues and verifies the relying party's own session
// token.
//
// A session token is an HS256 JWT carrying the subject, an optional email
// and an absolute expiry. It is stateless: nothing is stored server side,
// so a token stays valid until it expires and logout only clears the
// cookie that carries it.
package session

import (
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"

	"github.com/kbukum/authflow/auth/identity"
	"github.com/kbukum/authflow/auth/jwt"
	"github.com/kbukum/authflow/errors"
)

// Claims is the session token payload.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
}

// Stamp implements jwt.Stamper.
func (c *Claims) Stamp(issuer string, issuedAt, expiresAt time.Time) {
	c.Issuer = issuer
	c.IssuedAt = gojwt.NewNumericDate(issuedAt)
	c.ExpiresAt = gojwt.NewNumericDate(expiresAt)
}

// Codec issues and verifies session tokens.
type Codec struct {
	tokens *jwt.Service[*Claims]
}

// Option configures a Codec.
type Option func(*jwt.Config)

// WithClock overrides time.Now for issuance and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(c *jwt.Config) { c.Now = now }
}

// NewCodec creates a codec from cfg.
func NewCodec(cfg Config, opts ...Option) (*Codec, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	jc := jwt.Config{
		Secret: []byte(cfg.Secret.Reveal()),
		Method: jwt.HS256,
		Issuer: cfg.Issuer,
		TTL:    cfg.TTL,
	}
	for _, opt := range opts {
		opt(&jc)
	}
	tokens, err := jwt.NewService(jc, func() *Claims { return &Claims{} })
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	return &Codec{tokens: tokens}, nil
}

// TTL returns the default session lifetime.
func (c *Codec) TTL() time.Duration { return c.tokens.TTL() }

// Issue signs a session token for id, valid for ttl (the default TTL when
// ttl is not positive). It returns the token and its expiry.
func (c *Codec) Issue(id identity.Identity, ttl time.Duration) (string, time.Time, error) {
	if id.IsZero() {
		return "", time.Time{}, errors.InvalidInput("subject", "identity has no subject")
	}
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: id.Subject()},
		Email:            id.Email(),
	}
	return c.tokens.Sign(claims, ttl)
}

// Verify checks raw and returns the identity it carries. A token without
// a subject is malformed even if it has an email.
func (c *Codec) Verify(raw string) (identity.Identity, error) {
	claims, err := c.tokens.Parse(raw)
	if err != nil {
		return identity.Identity{}, err
	}
	if claims.Subject == "" {
		if claims.Email == "" {
			return identity.Identity{}, errors.MalformedToken("token has neither sub nor email")
		}
		return identity.Identity{}, errors.MalformedToken("token has no sub")
	}
	return identity.New(claims.Subject, claims.Email)
}
