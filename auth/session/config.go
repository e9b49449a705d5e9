package session

import (
	"fmt"
	"time"

	"github.com/kbukum/authflow/auth/jwt"
	"github.com/kbukum/authflow/config"
)

// Config configures session tokens.
type Config struct {
	// Secret is the HMAC key, at least 32 bytes. Never logged.
	Secret config.Secret `yaml:"secret" mapstructure:"secret"`

	// TTL is the session lifetime (default: 15m).
	TTL time.Duration `yaml:"ttl" mapstructure:"ttl"`

	// Issuer is stamped as iss and required on verify (default: authflow).
	Issuer string `yaml:"issuer" mapstructure:"issuer"`

	// CookieName carries the token between requests (default: access_token).
	CookieName string `yaml:"cookie_name" mapstructure:"cookie_name"`
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	if c.TTL <= 0 {
		c.TTL = 15 * time.Minute
	}
	if c.Issuer == "" {
		c.Issuer = "authflow"
	}
	if c.CookieName == "" {
		c.CookieName = "access_token"
	}
}

// Validate checks the secret length.
func (c *Config) Validate() error {
	if c.Secret.IsEmpty() {
		return fmt.Errorf("secret is required")
	}
	if len(c.Secret.Reveal()) < jwt.MinSecretLength {
		return fmt.Errorf("secret must be at least %d bytes", jwt.MinSecretLength)
	}
	return nil
}
