package oidc

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// IDTokenClaims are the ID token claims the verifier reads. Other claims
// are ignored.
type IDTokenClaims struct {
	jwt.RegisteredClaims
	Email           string    `json:"email,omitempty"`
	EmailVerified   *FlexBool `json:"email_verified,omitempty"`
	Nonce           string    `json:"nonce,omitempty"`
	AuthorizedParty string    `json:"azp,omitempty"`
}

// FlexBool decodes a JSON boolean that some providers send as a string
// ("true"/"false"), as Apple does for email_verified.
type FlexBool bool

// UnmarshalJSON accepts true, false, "true" and "false".
func (b *FlexBool) UnmarshalJSON(data []byte) error {
	var v bool
	if err := json.Unmarshal(data, &v); err == nil {
		*b = FlexBool(v)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("oidc: boolean claim: %s", data)
	}
	switch strings.ToLower(s) {
	case "true":
		*b = true
	case "false":
		*b = false
	default:
		return fmt.Errorf("oidc: boolean claim: %q", s)
	}
	return nil
}

// emailUsable reports whether the email claim may be carried into the
// identity. An address the provider explicitly marks unverified is dropped.
func (c *IDTokenClaims) emailUsable() bool {
	if c.Email == "" {
		return false
	}
	return c.EmailVerified == nil || bool(*c.EmailVerified)
}
