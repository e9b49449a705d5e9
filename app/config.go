package app

import (
	"fmt"
	"maps"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/kbukum/authflow/auth"
	"github.com/kbukum/authflow/config"
	"github.com/kbukum/authflow/httpclient"
	"github.com/kbukum/authflow/observability"
	"github.com/kbukum/authflow/redis"
	"github.com/kbukum/authflow/server"
	"github.com/kbukum/authflow/server/handler"
	"github.com/kbukum/authflow/validation"
)

// ServiceName is the config and env file lookup name.
const ServiceName = "authflow"

// Config is the complete service configuration.
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	// FrontURL is the browser application the callback redirects to.
	FrontURL string `yaml:"front_url" mapstructure:"front_url"`

	Auth          auth.Config          `yaml:"auth" mapstructure:"auth"`
	HTTP          httpclient.Config    `yaml:"http" mapstructure:"http"`
	Server        server.Config        `yaml:"server" mapstructure:"server"`
	Cookies       handler.CookieConfig `yaml:"cookies" mapstructure:"cookies"`
	Redis         redis.Config         `yaml:"redis" mapstructure:"redis"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`
}

// EnvAliases maps config keys to the flat environment names older
// deployments use.
var EnvAliases = map[string][]string{
	"auth.session.secret": {"SECRET_KEY"},

	"auth.providers.google.client_id":              {"GOOGLE_CLIENT_ID"},
	"auth.providers.google.client_secret":          {"GOOGLE_CLIENT_SECRET"},
	"auth.providers.google.redirect_uri":           {"GOOGLE_REDIRECT_URI"},
	"auth.providers.google.authorization_endpoint": {"GOOGLE_AUTH_URI"},
	"auth.providers.google.token_endpoint":         {"GOOGLE_TOKEN_URI"},

	"auth.providers.apple.client_id":              {"APPLE_CLIENT_ID"},
	"auth.providers.apple.client_secret":          {"APPLE_CLIENT_SECRET"},
	"auth.providers.apple.redirect_uri":           {"APPLE_REDIRECT_URI"},
	"auth.providers.apple.authorization_endpoint": {"APPLE_AUTH_URI"},
	"auth.providers.apple.token_endpoint":         {"APPLE_TOKEN_URI"},
}

// SessionTTLMinutesEnv sets the session lifetime in whole minutes. The
// canonical AUTH_SESSION_TTL takes precedence when both are set.
const SessionTTLMinutesEnv = "ACCESS_TOKEN_EXPIRE_MINUTES"

// Load reads the configuration from config.yml, .env and the environment.
func Load(opts ...config.LoaderOption) (*Config, error) {
	var cfg Config
	opts = append([]config.LoaderOption{config.WithEnvAliases(EnvAliases)}, opts...)
	if err := config.LoadConfig(ServiceName, &cfg, opts...); err != nil {
		return nil, err
	}
	if cfg.Name == "" {
		cfg.Name = ServiceName
	}
	if err := cfg.applySessionMinutes(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applySessionMinutes reads SessionTTLMinutesEnv. It runs after the .env
// file is loaded, so the variable may come from either place.
func (c *Config) applySessionMinutes() error {
	raw := strings.TrimSpace(os.Getenv(SessionTTLMinutesEnv))
	if raw == "" || os.Getenv(config.EnvName("auth.session.ttl")) != "" {
		return nil
	}
	minutes, err := strconv.Atoi(raw)
	if err != nil || minutes <= 0 {
		return fmt.Errorf("config: %s must be a positive number of minutes (got: %q)", SessionTTLMinutesEnv, raw)
	}
	c.Auth.Session.TTL = time.Duration(minutes) * time.Minute
	return nil
}

// ApplyDefaults fills zero values in every section.
func (c *Config) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	c.Auth.ApplyDefaults()
	c.HTTP.ApplyDefaults()
	c.Server.ApplyDefaults()
	if c.Cookies.SessionName == "" {
		c.Cookies.SessionName = c.Auth.Session.CookieName
	}
	c.Cookies.ApplyDefaults()
	c.Redis.ApplyDefaults()
	c.Observability.ApplyDefaults()
	if len(c.Server.CORS.AllowedOrigins) == 0 && c.FrontURL != "" {
		if origin, err := originOf(c.FrontURL); err == nil {
			c.Server.CORS.AllowedOrigins = []string{origin}
			c.Server.CORS.AllowCredentials = true
		}
	}
}

// Validate checks every section and stops at the first error.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := validation.New().
		Required("front_url", c.FrontURL).
		AbsoluteURL("front_url", c.FrontURL).
		Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	checks := []struct {
		section string
		err     error
	}{
		{"auth", c.Auth.Validate()},
		{"http", c.HTTP.Validate()},
		{"server", c.Server.Validate()},
		{"redis", c.Redis.Validate()},
		{"observability", c.Observability.Validate()},
	}
	for _, check := range checks {
		if check.err != nil {
			return fmt.Errorf("config.%s: %w", check.section, check.err)
		}
	}
	return c.validateCookieMode()
}

// validateCookieMode rejects insecure cookies for providers that post the
// callback cross-site: browsers do not send SameSite=Lax cookies with it,
// so the state check would always fail.
func (c *Config) validateCookieMode() error {
	if !c.Cookies.Insecure {
		return nil
	}
	for _, name := range slices.Sorted(maps.Keys(c.Auth.Providers)) {
		if c.Auth.Providers[name].ResponseMode == "form_post" {
			return fmt.Errorf("config.cookies: insecure cookies are not sent with the form_post callback of provider %s; "+
				"set response_mode: query or drop cookies.insecure", name)
		}
	}
	return nil
}

// originOf returns scheme://host of a URL.
func originOf(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%q is not an absolute URL", raw)
	}
	return u.Scheme + "://" + u.Host, nil
}
