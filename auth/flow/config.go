package flow

import (
	"fmt"
	"time"
)

// Config configures the login flow.
type Config struct {
	// StateTTL bounds how long an authorization attempt may wait for its
	// callback. The HTTP layer uses it as the state cookie lifetime.
	StateTTL time.Duration `yaml:"state_ttl" mapstructure:"state_ttl"`
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	if c.StateTTL <= 0 {
		c.StateTTL = 10 * time.Minute
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.StateTTL > time.Hour {
		return fmt.Errorf("state_ttl must be at most 1h (got: %s)", c.StateTTL)
	}
	return nil
}
