package handler

import (
	"net/http"
	"strings"
	"time"
)

// CookieConfig controls the state and session cookies.
type CookieConfig struct {
	// SessionName is the session cookie (default "access_token").
	SessionName string `yaml:"session_name" mapstructure:"session_name"`
	// StateName is the CSRF state cookie (default "authstate").
	StateName string `yaml:"state_name" mapstructure:"state_name"`
	Domain    string `yaml:"domain" mapstructure:"domain"`
	// Insecure drops the Secure attribute and uses SameSite=Lax, for plain
	// HTTP hosts other than localhost. Lax cookies are not sent with a
	// form_post callback, so providers must use response_mode=query.
	Insecure bool `yaml:"insecure" mapstructure:"insecure"`
}

// ApplyDefaults sets default cookie names.
func (c *CookieConfig) ApplyDefaults() {
	if c.SessionName == "" {
		c.SessionName = "access_token"
	}
	if c.StateName == "" {
		c.StateName = "authstate"
	}
}

// sameSite is None by default: Apple and Google post the callback form
// cross-site, and Lax cookies would not be sent with it.
func (c CookieConfig) sameSite() http.SameSite {
	if c.Insecure {
		return http.SameSiteLaxMode
	}
	return http.SameSiteNoneMode
}

func (c CookieConfig) cookie(name, value, path string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Domain:   c.Domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   !c.Insecure,
		SameSite: c.sameSite(),
	}
}

func maxAgeUntil(expires, now time.Time) int {
	secs := int(expires.Sub(now).Seconds())
	if secs < 1 {
		return 1
	}
	return secs
}

// The state cookie carries "<state>.<attempt id>". Neither part contains
// a dot: state is base64url and attempt ids are UUIDs.
func encodeStateCookie(state, attemptID string) string {
	return state + "." + attemptID
}

func decodeStateCookie(v string) (state, attemptID string) {
	state, attemptID, _ = strings.Cut(v, ".")
	return state, attemptID
}
