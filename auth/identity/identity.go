// Package identity defines the authenticated user as seen by the relying party.
//
// An Identity is produced only by verifying a provider ID token
// (oidc.Verifier) or one of our own session tokens (session.Codec). Its
// fields are unexported so handlers cannot assemble one from request data.
package identity

import (
	"encoding/json"
	"errors"
)

// ErrNoSubject is returned when constructing an Identity without a subject.
var ErrNoSubject = errors.New("identity: subject is required")

// Identity is an authenticated user: a provider-scoped subject plus an
// optional email. Subject alone identifies the user; email is informational.
type Identity struct {
	subject string
	email   string
}

// New builds an Identity. It is meant for token verifiers; the subject must
// come from a verified token.
func New(subject, email string) (Identity, error) {
	if subject == "" {
		return Identity{}, ErrNoSubject
	}
	return Identity{subject: subject, email: email}, nil
}

// Subject returns the opaque provider-scoped user id.
func (i Identity) Subject() string { return i.subject }

// Email returns the email address, or "" when the provider did not share one.
func (i Identity) Email() string { return i.email }

// IsZero reports whether i is the zero Identity.
func (i Identity) IsZero() bool { return i.subject == "" }

// Equal compares identities by subject.
func (i Identity) Equal(other Identity) bool {
	return i.subject == other.subject
}

// String returns the subject. Email is left out so identities can be logged.
func (i Identity) String() string { return i.subject }

type wire struct {
	Subject string `json:"sub"`
	Email   string `json:"email,omitempty"`
}

// MarshalJSON renders {"sub": ..., "email": ...}.
func (i Identity) MarshalJSON() ([]byte, error) {
	return json.Marshal(wire{Subject: i.subject, Email: i.email})
}
