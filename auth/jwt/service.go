// Package jwt signs and parses HMAC JSON Web Tokens for a caller-defined
// claims type.
//
// The service is parameterized by a claims type T, which must implement
// jwt.Claims (typically by embedding jwt.RegisteredClaims):
//
//	type Claims struct {
//	    jwt.RegisteredClaims
//	    Email string `json:"email,omitempty"`
//	}
//
//	svc, err := jwt.NewService(cfg, func() *Claims { return &Claims{} })
//	token, expiresAt, err := svc.Sign(&Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "u1"}}, 0)
//	claims, err := svc.Parse(token)
//
// Parse failures are *errors.AppError values: MALFORMED_TOKEN,
// BAD_SIGNATURE, ISSUER_MISMATCH or TOKEN_EXPIRED.
package jwt

import (
	"errors"
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"

	apperrors "github.com/kbukum/authflow/errors"
)

// RegisteredClaims re-exports the standard claim set for embedding.
type RegisteredClaims = gojwt.RegisteredClaims

// NumericDate re-exports the JWT time type.
type NumericDate = gojwt.NumericDate

// Stamper is implemented by claims that accept the standard time and
// issuer claims. Sign calls it before signing.
type Stamper interface {
	Stamp(issuer string, issuedAt, expiresAt time.Time)
}

// Service signs and parses tokens with claims of type T.
type Service[T gojwt.Claims] struct {
	cfg      Config
	method   gojwt.SigningMethod
	newEmpty func() T
}

// NewService creates a token service. newEmpty returns a fresh T to decode into.
func NewService[T gojwt.Claims](cfg Config, newEmpty func() T) (*Service[T], error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("jwt: %w", err)
	}
	return &Service[T]{cfg: cfg, method: cfg.signingMethod(), newEmpty: newEmpty}, nil
}

// TTL returns the default token lifetime.
func (s *Service[T]) TTL() time.Duration { return s.cfg.TTL }

// Sign stamps iss, iat and exp (now + ttl, or the default TTL when ttl is
// not positive) on claims and returns the signed token and its expiry.
func (s *Service[T]) Sign(claims T, ttl time.Duration) (string, time.Time, error) {
	if ttl <= 0 {
		ttl = s.cfg.TTL
	}
	now := s.cfg.Now().Truncate(time.Second)
	expiresAt := now.Add(ttl)
	if stamper, ok := any(claims).(Stamper); ok {
		stamper.Stamp(s.cfg.Issuer, now, expiresAt)
	}

	signed, err := gojwt.NewWithClaims(s.method, claims).SignedString(s.cfg.Secret)
	if err != nil {
		return "", time.Time{}, apperrors.Internal(fmt.Errorf("jwt: sign token: %w", err))
	}
	return signed, expiresAt, nil
}

// Parse verifies the signature, issuer and expiry of raw and returns its claims.
func (s *Service[T]) Parse(raw string) (T, error) {
	var zero T
	claims := s.newEmpty()
	_, err := gojwt.ParseWithClaims(raw, claims, s.keyFunc, s.parserOptions()...)
	if err != nil {
		return zero, classify(err)
	}
	return claims, nil
}

func (s *Service[T]) keyFunc(*gojwt.Token) (any, error) {
	return s.cfg.Secret, nil
}

func (s *Service[T]) parserOptions() []gojwt.ParserOption {
	opts := []gojwt.ParserOption{
		gojwt.WithValidMethods([]string{s.method.Alg()}),
		gojwt.WithExpirationRequired(),
		gojwt.WithTimeFunc(s.cfg.Now),
		gojwt.WithLeeway(s.cfg.Leeway),
	}
	if s.cfg.Issuer != "" {
		opts = append(opts, gojwt.WithIssuer(s.cfg.Issuer))
	}
	return opts
}

// classify maps golang-jwt errors to application errors. Signature
// problems win over claim problems.
func classify(err error) *apperrors.AppError {
	switch {
	case errors.Is(err, gojwt.ErrTokenMalformed):
		return apperrors.MalformedToken("token is not a valid JWT").WithCause(err)
	case errors.Is(err, gojwt.ErrTokenSignatureInvalid), errors.Is(err, gojwt.ErrTokenUnverifiable):
		return apperrors.BadSignature().WithCause(err)
	case errors.Is(err, gojwt.ErrTokenRequiredClaimMissing):
		return apperrors.MalformedToken("token misses a required claim").WithCause(err)
	case errors.Is(err, gojwt.ErrTokenExpired):
		return apperrors.TokenExpired().WithCause(err)
	case errors.Is(err, gojwt.ErrTokenInvalidIssuer):
		return apperrors.IssuerMismatch("").WithCause(err)
	default:
		return apperrors.MalformedToken("token claims are invalid").WithCause(err)
	}
}
