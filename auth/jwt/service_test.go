package jwt

import (
	"strings"
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"

	"github.com/kbukum/authflow/errors"
)

type testClaims struct {
	RegisteredClaims
	Role string `json:"role,omitempty"`
}

func (c *testClaims) Stamp(issuer string, issuedAt, expiresAt time.Time) {
	c.Issuer = issuer
	c.IssuedAt = gojwt.NewNumericDate(issuedAt)
	c.ExpiresAt = gojwt.NewNumericDate(expiresAt)
}

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func newTestService(t *testing.T, c *clock, mutate ...func(*Config)) *Service[*testClaims] {
	t.Helper()
	cfg := Config{Secret: testSecret, Issuer: "authflow", Now: c.Now}
	for _, m := range mutate {
		m(&cfg)
	}
	svc, err := NewService(cfg, func() *testClaims { return &testClaims{} })
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestService_SignAndParse(t *testing.T) {
	c := &clock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	svc := newTestService(t, c)

	token, exp, err := svc.Sign(&testClaims{RegisteredClaims: RegisteredClaims{Subject: "u1"}, Role: "member"}, 0)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if !exp.Equal(c.now.Add(15 * time.Minute)) {
		t.Errorf("expected default ttl expiry, got %v", exp)
	}

	claims, err := svc.Parse(token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.Subject != "u1" || claims.Role != "member" || claims.Issuer != "authflow" {
		t.Errorf("unexpected claims %+v", claims)
	}
}

func TestService_Expiry(t *testing.T) {
	c := &clock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	svc := newTestService(t, c)

	token, _, err := svc.Sign(&testClaims{RegisteredClaims: RegisteredClaims{Subject: "u1"}}, time.Minute)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	c.now = c.now.Add(59 * time.Second)
	if _, err := svc.Parse(token); err != nil {
		t.Errorf("expected valid token before expiry, got %v", err)
	}
	c.now = c.now.Add(time.Second)
	if _, err := svc.Parse(token); !errors.HasCode(err, errors.ErrCodeTokenExpired) {
		t.Errorf("expected TOKEN_EXPIRED at expiry, got %v", err)
	}
}

func TestService_ParseFailures(t *testing.T) {
	c := &clock{now: time.Now()}
	svc := newTestService(t, c)
	valid, _, err := svc.Sign(&testClaims{RegisteredClaims: RegisteredClaims{Subject: "u1"}}, 0)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	otherSecret := newTestService(t, c, func(cfg *Config) {
		cfg.Secret = []byte("ffffffffffffffffffffffffffffffff")
	})
	forged, _, _ := otherSecret.Sign(&testClaims{RegisteredClaims: RegisteredClaims{Subject: "u1"}}, 0)

	otherIssuer := newTestService(t, c, func(cfg *Config) { cfg.Issuer = "someone-else" })
	foreignIss, _, _ := otherIssuer.Sign(&testClaims{RegisteredClaims: RegisteredClaims{Subject: "u1"}}, 0)

	noExp, _ := gojwt.NewWithClaims(gojwt.SigningMethodHS256, &testClaims{
		RegisteredClaims: RegisteredClaims{Subject: "u1", Issuer: "authflow"},
	}).SignedString(testSecret)

	hs512, _ := gojwt.NewWithClaims(gojwt.SigningMethodHS512, &testClaims{
		RegisteredClaims: RegisteredClaims{Subject: "u1", Issuer: "authflow", ExpiresAt: gojwt.NewNumericDate(c.now.Add(time.Hour))},
	}).SignedString(testSecret)

	admin, _, _ := svc.Sign(&testClaims{RegisteredClaims: RegisteredClaims{Subject: "admin"}}, 0)
	parts := strings.Split(valid, ".")
	tampered := parts[0] + "." + strings.Split(admin, ".")[1] + "." + parts[2]

	tests := []struct {
		name  string
		token string
		code  errors.ErrorCode
	}{
		{"garbage", "not-a-token", errors.ErrCodeMalformedToken},
		{"empty", "", errors.ErrCodeMalformedToken},
		{"wrong secret", forged, errors.ErrCodeBadSignature},
		{"swapped payload", tampered, errors.ErrCodeBadSignature},
		{"foreign issuer", foreignIss, errors.ErrCodeIssuerMismatch},
		{"missing exp", noExp, errors.ErrCodeMalformedToken},
		{"other hmac method", hs512, errors.ErrCodeBadSignature},
		{"alg none", "eyJhbGciOiJub25lIiwidHlwIjoiSldUIn0." + parts[1] + ".", errors.ErrCodeBadSignature},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Parse(tc.token)
			if !errors.HasCode(err, tc.code) {
				t.Errorf("expected %s, got %v", tc.code, err)
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"missing secret", Config{}, "secret is required"},
		{"short secret", Config{Secret: []byte("short")}, "at least 32 bytes"},
		{"rsa method", Config{Secret: testSecret, Method: "RS256"}, "unsupported signing method"},
		{"negative leeway", Config{Secret: testSecret, Leeway: -time.Second}, "leeway"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.cfg.ApplyDefaults()
			err := tc.cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}
