package oidc

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	jose "github.com/go-jose/go-jose/v4"
)

const minRSAKeyBits = 2048

// curveFor maps an ECDSA algorithm to the curve its keys must use.
var curveFor = map[string]string{"ES256": "P-256", "ES384": "P-384", "ES512": "P-521"}

// jwksDocument is a JWKS response with its keys left raw, so one key
// go-jose cannot decode does not discard the rest of the set.
type jwksDocument struct {
	Keys []json.RawMessage `json:"keys"`
}

// SigningKeySet is a provider's issuer and signing keys as last fetched.
type SigningKeySet struct {
	Provider  string                     `json:"provider"`
	Issuer    string                     `json:"issuer"`
	JWKSURI   string                     `json:"jwks_uri"`
	Keys      map[string]jose.JSONWebKey `json:"keys"`
	FetchedAt time.Time                  `json:"fetched_at"`
}

// KeyIDs returns the key ids in the set.
func (s *SigningKeySet) KeyIDs() []string {
	ids := make([]string, 0, len(s.Keys))
	for kid := range s.Keys {
		ids = append(ids, kid)
	}
	return ids
}

// decodeKeys indexes the keys of a JWKS document by kid. Entries without a
// kid or that fail to decode are reported in skipped and left out.
func decodeKeys(raw []json.RawMessage) (keys map[string]jose.JSONWebKey, skipped []error) {
	keys = make(map[string]jose.JSONWebKey, len(raw))
	for i, entry := range raw {
		var k jose.JSONWebKey
		if err := json.Unmarshal(entry, &k); err != nil {
			skipped = append(skipped, fmt.Errorf("jwk #%d: %w", i, err))
			continue
		}
		if k.KeyID == "" {
			skipped = append(skipped, fmt.Errorf("jwk #%d: missing kid", i))
			continue
		}
		keys[k.KeyID] = k
	}
	return keys, skipped
}

// verificationKey returns the public key of k when it can verify
// signatures made with alg. A key that declares a different alg, is not a
// signing key, or is too weak for alg is rejected.
func verificationKey(k jose.JSONWebKey, alg string) (crypto.PublicKey, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("jwk %s: invalid key", k.KeyID)
	}
	if k.Use != "" && k.Use != "sig" {
		return nil, fmt.Errorf("jwk %s: use %q is not sig", k.KeyID, k.Use)
	}
	if k.Algorithm != "" && k.Algorithm != alg {
		return nil, fmt.Errorf("jwk %s: alg %s does not match %s", k.KeyID, k.Algorithm, alg)
	}

	pub := k.Public()
	if !pub.Valid() {
		return nil, fmt.Errorf("jwk %s: no public key", k.KeyID)
	}

	switch {
	case strings.HasPrefix(alg, "RS"), strings.HasPrefix(alg, "PS"):
		key, ok := pub.Key.(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("jwk %s: %T cannot verify %s", k.KeyID, pub.Key, alg)
		}
		if key.N.BitLen() < minRSAKeyBits {
			return nil, fmt.Errorf("jwk %s: rsa modulus is %d bits", k.KeyID, key.N.BitLen())
		}
		if key.E < 3 || key.E%2 == 0 {
			return nil, fmt.Errorf("jwk %s: invalid rsa exponent", k.KeyID)
		}
		return key, nil
	case strings.HasPrefix(alg, "ES"):
		key, ok := pub.Key.(*ecdsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("jwk %s: %T cannot verify %s", k.KeyID, pub.Key, alg)
		}
		if got := key.Curve.Params().Name; got != curveFor[alg] {
			return nil, fmt.Errorf("jwk %s: curve %s cannot verify %s", k.KeyID, got, alg)
		}
		return key, nil
	default:
		return nil, fmt.Errorf("jwk %s: unsupported algorithm %s", k.KeyID, alg)
	}
}
