package jwt

import (
	"errors"
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// SigningMethod names a supported HMAC algorithm.
type SigningMethod string

const (
	HS256 SigningMethod = "HS256"
	HS384 SigningMethod = "HS384"
	HS512 SigningMethod = "HS512"
)

// MinSecretLength is the shortest accepted HMAC secret, in bytes.
const MinSecretLength = 32

// Config configures the token service.
type Config struct {
	// Secret is the HMAC signing key. At least MinSecretLength bytes.
	Secret []byte

	// Method is the signing algorithm (default: HS256).
	Method SigningMethod

	// Issuer is stamped as iss and required on parse when set.
	Issuer string

	// TTL is the lifetime used when Sign is given a zero ttl (default: 15m).
	TTL time.Duration

	// Leeway is the clock skew tolerated on exp (default: none).
	Leeway time.Duration

	// Now overrides time.Now.
	Now func() time.Time
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	if c.Method == "" {
		c.Method = HS256
	}
	if c.TTL <= 0 {
		c.TTL = 15 * time.Minute
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

// Validate checks the secret and method.
func (c *Config) Validate() error {
	if len(c.Secret) == 0 {
		return errors.New("secret is required")
	}
	if len(c.Secret) < MinSecretLength {
		return fmt.Errorf("secret must be at least %d bytes (got: %d)", MinSecretLength, len(c.Secret))
	}
	if c.signingMethod() == nil {
		return fmt.Errorf("unsupported signing method: %s", c.Method)
	}
	if c.Leeway < 0 {
		return errors.New("leeway must not be negative")
	}
	return nil
}

func (c *Config) signingMethod() gojwt.SigningMethod {
	switch c.Method {
	case HS256:
		return gojwt.SigningMethodHS256
	case HS384:
		return gojwt.SigningMethodHS384
	case HS512:
		return gojwt.SigningMethodHS512
	default:
		return nil
	}
}
