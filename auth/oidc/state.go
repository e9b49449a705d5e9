package oidc

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"io"

	apperrors "github.com/kbukum/authflow/errors"
)

// stateBytes is the entropy of an issued state value (256 bits).
const stateBytes = 32

// StateGuard issues and checks the CSRF state bound to one authorization
// attempt. The state travels out of band of the authorization URL (a
// cookie) and is compared on callback. The zero value reads crypto/rand.
type StateGuard struct {
	// Rand overrides the entropy source. Tests only.
	Rand io.Reader
}

// Issue returns a fresh URL-safe state value.
func (g StateGuard) Issue() (string, error) {
	r := g.Rand
	if r == nil {
		r = rand.Reader
	}
	b := make([]byte, stateBytes)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", apperrors.Internal(fmt.Errorf("oidc: generate state: %w", err))
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Verify succeeds only when presented and stored are non-empty and equal.
// A missing stored value fails like a mismatch.
func (g StateGuard) Verify(presented, stored string) error {
	if presented == "" || stored == "" || subtle.ConstantTimeCompare([]byte(presented), []byte(stored)) != 1 {
		return apperrors.StateMismatch()
	}
	return nil
}
