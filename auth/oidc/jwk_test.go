package oidc

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"strings"
	"testing"

	jose "github.com/go-jose/go-jose/v4"
)

func rsaJWK(t *testing.T, bits int) (jose.JSONWebKey, *rsa.PrivateKey) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	return jose.JSONWebKey{Key: &key.PublicKey, KeyID: "r1", Use: "sig"}, key
}

func ecJWK(t *testing.T) jose.JSONWebKey {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	return jose.JSONWebKey{Key: &key.PublicKey, KeyID: "e1"}
}

func rawKeys(t *testing.T, keys ...any) []json.RawMessage {
	t.Helper()
	out := make([]json.RawMessage, 0, len(keys))
	for _, k := range keys {
		b, err := json.Marshal(k)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		out = append(out, b)
	}
	return out
}

func TestVerificationKey_RSA(t *testing.T) {
	jwk, priv := rsaJWK(t, 2048)
	pub, err := verificationKey(jwk, "RS256")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok || !rsaPub.Equal(&priv.PublicKey) {
		t.Errorf("unexpected public key %T", pub)
	}

	// A private key published by mistake still yields only its public half.
	private := jose.JSONWebKey{Key: priv, KeyID: "p1"}
	pub, err = verificationKey(private, "RS256")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := pub.(*rsa.PublicKey); !ok {
		t.Errorf("expected *rsa.PublicKey, got %T", pub)
	}
}

func TestVerificationKey_Rejects(t *testing.T) {
	good, priv := rsaJWK(t, 2048)
	weak, _ := rsaJWK(t, 1024)
	ec := ecJWK(t)

	tests := []struct {
		name string
		key  func() jose.JSONWebKey
		alg  string
	}{
		{"encryption key", func() jose.JSONWebKey { k := good; k.Use = "enc"; return k }, "RS256"},
		{"declared alg differs", func() jose.JSONWebKey { k := good; k.Algorithm = "RS512"; return k }, "RS256"},
		{"rsa key for ec alg", func() jose.JSONWebKey { return good }, "ES256"},
		{"ec key for rsa alg", func() jose.JSONWebKey { return ec }, "RS256"},
		{"short modulus", func() jose.JSONWebKey { return weak }, "RS256"},
		{"even exponent", func() jose.JSONWebKey {
			return jose.JSONWebKey{Key: &rsa.PublicKey{N: priv.N, E: 65536}, KeyID: "r2"}
		}, "RS256"},
		{"wrong curve", func() jose.JSONWebKey { return ec }, "ES384"},
		{"symmetric key", func() jose.JSONWebKey { return jose.JSONWebKey{Key: []byte("0123456789abcdef"), KeyID: "s1"} }, "RS256"},
		{"empty key", func() jose.JSONWebKey { return jose.JSONWebKey{KeyID: "x"} }, "RS256"},
		{"hmac alg", func() jose.JSONWebKey { return good }, "HS256"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := verificationKey(tc.key(), tc.alg); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestVerificationKey_EC(t *testing.T) {
	if _, err := verificationKey(ecJWK(t), "ES256"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestDecodeKeys(t *testing.T) {
	good, _ := rsaJWK(t, 2048)
	ec := ecJWK(t)
	noKid := good
	noKid.KeyID = ""

	offCurve, err := json.Marshal(ec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	_ = json.Unmarshal(offCurve, &m)
	m["y"] = m["x"]
	m["kid"] = "bad-ec"

	raw := rawKeys(t,
		good,
		ec,
		noKid,
		m,
		map[string]string{"kty": "RSA", "kid": "no-modulus", "e": "AQAB"},
		map[string]string{"kty": "OKP?", "kid": "unknown-type"},
	)
	keys, skipped := decodeKeys(raw)

	if len(keys) != 2 {
		t.Errorf("expected 2 keys, got %v", keys)
	}
	if _, ok := keys["r1"]; !ok {
		t.Error("expected r1")
	}
	if _, ok := keys["e1"]; !ok {
		t.Error("expected e1")
	}
	if len(skipped) != 4 {
		t.Errorf("expected 4 skipped entries, got %v", skipped)
	}
	for _, err := range skipped {
		if !strings.HasPrefix(err.Error(), "jwk #") {
			t.Errorf("expected indexed error, got %v", err)
		}
	}
}

func TestSigningKeySet_JSON(t *testing.T) {
	good, _ := rsaJWK(t, 2048)
	set := SigningKeySet{Provider: "google", Issuer: "https://accounts.google.com", Keys: map[string]jose.JSONWebKey{"r1": good}}

	data, err := json.Marshal(set)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back SigningKeySet
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, err := verificationKey(back.Keys["r1"], "RS256"); err != nil {
		t.Errorf("expected stored key to stay usable, got %v", err)
	}
}

func TestFlexBool(t *testing.T) {
	tests := []struct {
		in      string
		want    bool
		wantErr bool
	}{
		{`true`, true, false},
		{`false`, false, false},
		{`"true"`, true, false},
		{`"false"`, false, false},
		{`"yes"`, false, true},
		{`1`, false, true},
	}
	for _, tc := range tests {
		var b FlexBool
		err := json.Unmarshal([]byte(tc.in), &b)
		if (err != nil) != tc.wantErr {
			t.Errorf("%s: expected wantErr=%v, got %v", tc.in, tc.wantErr, err)
			continue
		}
		if !tc.wantErr && bool(b) != tc.want {
			t.Errorf("%s: expected %v, got %v", tc.in, tc.want, b)
		}
	}
}

func TestIDTokenClaims_EmailUsable(t *testing.T) {
	yes, no := FlexBool(true), FlexBool(false)
	tests := []struct {
		name   string
		claims IDTokenClaims
		want   bool
	}{
		{"no email", IDTokenClaims{}, false},
		{"verified absent", IDTokenClaims{Email: "a@b.c"}, true},
		{"verified", IDTokenClaims{Email: "a@b.c", EmailVerified: &yes}, true},
		{"unverified", IDTokenClaims{Email: "a@b.c", EmailVerified: &no}, false},
	}
	for _, tc := range tests {
		if got := tc.claims.emailUsable(); got != tc.want {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}
