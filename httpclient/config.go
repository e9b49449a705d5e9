package httpclient

import (
	"fmt"
	"net/http"
	"time"

	"github.com/kbukum/authflow/resilience"
	"github.com/kbukum/authflow/security"
)

const (
	defaultTimeout      = 10 * time.Second
	defaultMaxBodyBytes = 1 << 20
	defaultUserAgent    = "authflow"
)

// Config configures the HTTP client.
type Config struct {
	// BaseURL is prepended to relative request paths.
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`

	// Timeout bounds each request including reading the body. Defaults to 10s.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// MaxBodyBytes caps the response body size. Defaults to 1 MiB.
	MaxBodyBytes int64 `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`

	// UserAgent is sent with every request.
	UserAgent string `yaml:"user_agent" mapstructure:"user_agent"`

	// Headers are default headers applied to all requests.
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`

	// Retry configures retry behavior. The default is a single attempt.
	Retry resilience.RetryConfig `yaml:"retry" mapstructure:"retry"`

	// TLS configures the client side of provider connections, e.g. a
	// private CA for an egress proxy. Ignored when Transport is set.
	TLS security.TLSConfig `yaml:"tls" mapstructure:"tls"`

	// Transport overrides the HTTP transport. Tests point it at fakes.
	Transport http.RoundTripper `yaml:"-" mapstructure:"-"`
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = defaultMaxBodyBytes
	}
	if c.UserAgent == "" {
		c.UserAgent = defaultUserAgent
	}
	if c.Retry.RetryIf == nil {
		c.Retry.RetryIf = IsRetryable
	}
	c.Retry.ApplyDefaults()
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("httpclient: timeout must be positive")
	}
	if c.Retry.MaxAttempts > 5 {
		return fmt.Errorf("httpclient: retry.max_attempts must be at most 5 (got: %d)", c.Retry.MaxAttempts)
	}
	if err := c.TLS.Validate(); err != nil {
		return fmt.Errorf("httpclient: %w", err)
	}
	return nil
}
