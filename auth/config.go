package auth

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kbukum/authflow/auth/flow"
	"github.com/kbukum/authflow/auth/oidc"
	"github.com/kbukum/authflow/auth/session"
)

// Config holds all authentication configuration, loaded from YAML/env via
// mapstructure.
type Config struct {
	// Providers maps a provider name ("google", "apple") to its configuration.
	Providers map[string]oidc.ProviderConfig `yaml:"providers" mapstructure:"providers"`

	// Keys configures signing key caching.
	Keys oidc.KeyResolverConfig `yaml:"keys" mapstructure:"keys"`

	// Verifier configures ID token verification.
	Verifier oidc.VerifierConfig `yaml:"verifier" mapstructure:"verifier"`

	// Session configures the session token.
	Session session.Config `yaml:"session" mapstructure:"session"`

	// Flow configures the login flow.
	Flow flow.Config `yaml:"flow" mapstructure:"flow"`
}

// ApplyDefaults sets defaults on every section.
func (c *Config) ApplyDefaults() {
	for name, p := range c.Providers {
		p.Name = name
		p.ApplyDefaults()
		c.Providers[name] = p
	}
	c.Keys.ApplyDefaults()
	c.Verifier.ApplyDefaults()
	c.Session.ApplyDefaults()
	c.Flow.ApplyDefaults()
}

// Validate checks every section.
func (c *Config) Validate() error {
	if len(c.Providers) == 0 {
		return fmt.Errorf("auth.providers: at least one provider is required")
	}
	for _, name := range c.providerNames() {
		p := c.Providers[name]
		if err := p.Validate(); err != nil {
			return fmt.Errorf("auth.providers: %w", err)
		}
	}
	if err := c.Session.Validate(); err != nil {
		return fmt.Errorf("auth.session: %w", err)
	}
	if err := c.Flow.Validate(); err != nil {
		return fmt.Errorf("auth.flow: %w", err)
	}
	return nil
}

// Describe returns a one-line summary for the startup log. It never
// includes secrets.
// Example: "providers=apple,google session=15m0s keys_ttl=1h0m0s"
func (c *Config) Describe() string {
	return fmt.Sprintf("providers=%s session=%s keys_ttl=%s",
		strings.Join(c.providerNames(), ","), c.Session.TTL, c.Keys.CacheTTL)
}

func (c *Config) providerNames() []string {
	names := make([]string, 0, len(c.Providers))
	for name := range c.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
