package oidc

import (
	"context"
	"crypto"
	"encoding/base64"
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/authflow/auth/identity"
	apperrors "github.com/kbukum/authflow/errors"
)

// KeySource resolves provider signing keys and issuers. *KeyResolver
// implements it.
type KeySource interface {
	Resolve(ctx context.Context, provider, kid string) (crypto.PublicKey, error)
	Issuer(ctx context.Context, provider string) (string, error)
}

// VerifierConfig configures ID token verification.
type VerifierConfig struct {
	// Leeway is the clock skew tolerated on exp. Defaults to 60s.
	Leeway time.Duration `yaml:"leeway" mapstructure:"leeway"`
}

// ApplyDefaults fills zero values.
func (c *VerifierConfig) ApplyDefaults() {
	if c.Leeway <= 0 {
		c.Leeway = 60 * time.Second
	}
}

// Verifier validates provider-issued ID tokens and extracts an Identity.
type Verifier struct {
	providers *Registry
	keys      KeySource
	leeway    time.Duration
	now       func() time.Time
	tracer    trace.Tracer
}

// VerifierOption configures a Verifier.
type VerifierOption func(*Verifier)

// WithVerifierClock overrides time.Now.
func WithVerifierClock(now func() time.Time) VerifierOption {
	return func(v *Verifier) { v.now = now }
}

// WithVerifierTracerProvider sets the tracer provider. Defaults to the global one.
func WithVerifierTracerProvider(tp trace.TracerProvider) VerifierOption {
	return func(v *Verifier) { v.tracer = tp.Tracer(tracerName) }
}

// NewVerifier creates a verifier for the providers in reg.
func NewVerifier(reg *Registry, keys KeySource, cfg VerifierConfig, opts ...VerifierOption) *Verifier {
	cfg.ApplyDefaults()
	v := &Verifier{
		providers: reg,
		keys:      keys,
		leeway:    cfg.Leeway,
		now:       time.Now,
		tracer:    otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

type tokenHeader struct {
	Alg string `json:"alg"`
	Kid string `json:"kid"`
}

// Verify checks the signature, issuer, audience and expiry of rawIDToken
// and returns the identity it asserts. The signing algorithm is the one
// pinned in the provider configuration; the header alg must match it.
func (v *Verifier) Verify(ctx context.Context, provider, rawIDToken string) (identity.Identity, error) {
	ctx, span := v.tracer.Start(ctx, "oidc.Verifier.Verify", trace.WithAttributes(
		attribute.String("oidc.provider", provider),
	))
	defer span.End()

	id, err := v.verify(ctx, provider, rawIDToken)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(apperrors.CodeOf(err)))
		return identity.Identity{}, err
	}
	return id, nil
}

func (v *Verifier) verify(ctx context.Context, provider, raw string) (identity.Identity, error) {
	cfg, ok := v.providers.Get(provider)
	if !ok {
		return identity.Identity{}, apperrors.NotFound("provider", provider)
	}

	header, err := parseHeader(raw)
	if err != nil {
		return identity.Identity{}, err.WithProvider(provider)
	}

	key, resolveErr := v.keys.Resolve(ctx, provider, header.Kid)
	if resolveErr != nil {
		return identity.Identity{}, resolveErr
	}
	issuer, resolveErr := v.keys.Issuer(ctx, provider)
	if resolveErr != nil {
		return identity.Identity{}, resolveErr
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{cfg.SigningAlgorithm}),
		jwt.WithoutClaimsValidation(),
	)
	claims := &IDTokenClaims{}
	if _, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return key, nil
	}); err != nil {
		return identity.Identity{}, classifyParseError(err).WithProvider(provider)
	}

	if claims.Issuer != issuer {
		return identity.Identity{}, apperrors.IssuerMismatch(claims.Issuer).WithProvider(provider)
	}
	if !slices.Contains(claims.Audience, cfg.Audience) {
		return identity.Identity{}, apperrors.AudienceMismatch().WithProvider(provider)
	}
	if claims.ExpiresAt == nil {
		return identity.Identity{}, apperrors.MalformedToken("missing exp claim").WithProvider(provider)
	}
	if !claims.ExpiresAt.After(v.now().Add(-v.leeway)) {
		return identity.Identity{}, apperrors.TokenExpired().WithProvider(provider)
	}
	if claims.Subject == "" {
		return identity.Identity{}, apperrors.MalformedToken("missing sub claim").WithProvider(provider)
	}

	email := ""
	if claims.emailUsable() {
		email = claims.Email
	}
	id, idErr := identity.New(claims.Subject, email)
	if idErr != nil {
		return identity.Identity{}, apperrors.MalformedToken(idErr.Error()).WithProvider(provider)
	}
	return id, nil
}

// parseHeader reads the unverified header. Only kid is taken from it.
func parseHeader(raw string) (tokenHeader, *apperrors.AppError) {
	parts := strings.Split(raw, ".")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return tokenHeader{}, apperrors.MalformedToken("token must have three segments")
	}
	data, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return tokenHeader{}, apperrors.MalformedToken("header is not base64url")
	}
	var h tokenHeader
	if err := json.Unmarshal(data, &h); err != nil {
		return tokenHeader{}, apperrors.MalformedToken("header is not a JSON object")
	}
	if h.Kid == "" {
		return tokenHeader{}, apperrors.MalformedToken("header has no kid")
	}
	return h, nil
}

func classifyParseError(err error) *apperrors.AppError {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return apperrors.BadSignature().WithCause(err)
	case errors.Is(err, jwt.ErrTokenMalformed):
		return apperrors.MalformedToken("token payload is invalid").WithCause(err)
	default:
		return apperrors.MalformedToken("token could not be parsed").WithCause(err)
	}
}
