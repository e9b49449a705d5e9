package oidc

import (
	"fmt"
	"slices"
	"strings"

	"github.com/kbukum/authflow/config"
	"github.com/kbukum/authflow/validation"
)

// Well-known provider names with built-in endpoint defaults.
const (
	ProviderGoogle = "google"
	ProviderApple  = "apple"
)

// Signing algorithms an ID token may be pinned to.
var supportedAlgorithms = []string{"RS256", "RS384", "RS512", "PS256", "PS384", "PS512", "ES256", "ES384", "ES512"}

// ProviderConfig is the static configuration of one identity provider.
// It is loaded once at startup and treated as immutable.
type ProviderConfig struct {
	// Name is the registry key ("google", "apple"). Set from the config map key.
	Name string `yaml:"-" mapstructure:"-"`

	ClientID     string        `yaml:"client_id" mapstructure:"client_id" validate:"required"`
	ClientSecret config.Secret `yaml:"client_secret" mapstructure:"client_secret" validate:"required"`
	RedirectURI  string        `yaml:"redirect_uri" mapstructure:"redirect_uri" validate:"required,url"`

	AuthorizationEndpoint string `yaml:"authorization_endpoint" mapstructure:"authorization_endpoint" validate:"required,url"`
	TokenEndpoint         string `yaml:"token_endpoint" mapstructure:"token_endpoint" validate:"required,url"`
	DiscoveryEndpoint     string `yaml:"discovery_endpoint" mapstructure:"discovery_endpoint" validate:"required,url"`

	// Audience is the expected aud claim. Defaults to ClientID.
	Audience string `yaml:"audience" mapstructure:"audience"`

	// Scopes requested at authorization. Defaults to openid and email.
	Scopes []string `yaml:"scopes" mapstructure:"scopes"`

	// ResponseMode is sent as response_mode. Defaults to form_post.
	ResponseMode string `yaml:"response_mode" mapstructure:"response_mode" validate:"omitempty,oneof=query fragment form_post"`

	// Prompt is sent as prompt when set.
	Prompt string `yaml:"prompt" mapstructure:"prompt"`

	// SigningAlgorithm is the only algorithm accepted for ID tokens. Defaults to RS256.
	SigningAlgorithm string `yaml:"signing_algorithm" mapstructure:"signing_algorithm"`

	// ExtraAuthParams are appended to the authorization URL.
	ExtraAuthParams map[string]string `yaml:"extra_auth_params" mapstructure:"extra_auth_params"`
}

type providerDefaults struct {
	authorization, token, discovery, prompt string
}

var wellKnown = map[string]providerDefaults{
	ProviderGoogle: {
		authorization: "https://accounts.google.com/o/oauth2/v2/auth",
		token:         "https://oauth2.googleapis.com/token",
		discovery:     "https://accounts.google.com/.well-known/openid-configuration",
		prompt:        "select_account consent",
	},
	ProviderApple: {
		authorization: "https://appleid.apple.com/auth/authorize",
		token:         "https://appleid.apple.com/auth/token",
		discovery:     "https://appleid.apple.com/.well-known/openid-configuration",
	},
}

// ApplyDefaults fills empty fields, using the well-known endpoints for
// google and apple.
func (c *ProviderConfig) ApplyDefaults() {
	if d, ok := wellKnown[c.Name]; ok {
		if c.AuthorizationEndpoint == "" {
			c.AuthorizationEndpoint = d.authorization
		}
		if c.TokenEndpoint == "" {
			c.TokenEndpoint = d.token
		}
		if c.DiscoveryEndpoint == "" {
			c.DiscoveryEndpoint = d.discovery
		}
		if c.Prompt == "" {
			c.Prompt = d.prompt
		}
	}
	if c.Audience == "" {
		c.Audience = c.ClientID
	}
	if len(c.Scopes) == 0 {
		c.Scopes = []string{"openid", "email"}
	}
	if c.ResponseMode == "" {
		c.ResponseMode = "form_post"
	}
	if c.SigningAlgorithm == "" {
		c.SigningAlgorithm = "RS256"
	}
}

// Validate checks required fields and the pinned algorithm.
func (c *ProviderConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("provider name is required")
	}
	if err := validation.Validate(c); err != nil {
		return fmt.Errorf("provider %s: %w", c.Name, err)
	}
	if !slices.Contains(supportedAlgorithms, c.SigningAlgorithm) {
		return fmt.Errorf("provider %s: signing_algorithm must be one of %s (got: %s)",
			c.Name, strings.Join(supportedAlgorithms, ", "), c.SigningAlgorithm)
	}
	return nil
}
