package security

import (
	"crypto/tls"
	"net/http"
	"strings"
	"testing"

	"github.com/kbukum/authflow/security/tlstest"
)

func TestBuildDisabled(t *testing.T) {
	var nilCfg *TLSConfig
	for name, c := range map[string]*TLSConfig{"nil": nilCfg, "zero": {}} {
		cfg, err := c.Build()
		if err != nil || cfg != nil {
			t.Errorf("%s: expected (nil, nil), got (%v, %v)", name, cfg, err)
		}
	}
}

func TestBuildEnabledUsesSystemRoots(t *testing.T) {
	cfg, err := (&TLSConfig{Enabled: true, ServerName: "cache.internal"}).Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.RootCAs != nil {
		t.Error("expected system roots")
	}
	if cfg.ServerName != "cache.internal" || cfg.MinVersion != tls.VersionTLS12 {
		t.Errorf("unexpected config %+v", cfg)
	}
}

func TestIsEnabled(t *testing.T) {
	tests := []struct {
		name string
		cfg  TLSConfig
		want bool
	}{
		{"zero", TLSConfig{}, false},
		{"enabled", TLSConfig{Enabled: true}, true},
		{"ca only", TLSConfig{CAFile: "ca.pem"}, true},
		{"skip verify", TLSConfig{SkipVerify: true}, true},
		{"key only", TLSConfig{KeyFile: "key.pem"}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.cfg.IsEnabled(); got != tc.want {
				t.Errorf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestValidatePairsCertAndKey(t *testing.T) {
	if err := (&TLSConfig{CertFile: "cert.pem"}).Validate(); err == nil {
		t.Error("expected error for cert without key")
	}
	if err := (&TLSConfig{CertFile: "cert.pem", KeyFile: "key.pem"}).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if _, err := (&TLSConfig{KeyFile: "key.pem", Enabled: true}).Build(); err == nil {
		t.Error("expected Build to validate")
	}
}

func TestBuildErrors(t *testing.T) {
	invalid := tlstest.WriteFile(t, "bad.pem", "-----BEGIN CERTIFICATE-----\nnot-base64\n-----END CERTIFICATE-----\n")
	tests := []struct {
		name string
		cfg  TLSConfig
		want string
	}{
		{"missing ca", TLSConfig{CAFile: "/nonexistent/ca.pem"}, "read ca_file"},
		{"invalid ca", TLSConfig{CAFile: invalid}, "holds no certificate"},
		{"missing cert", TLSConfig{CertFile: "/nonexistent/c.pem", KeyFile: "/nonexistent/k.pem"}, "client certificate"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.cfg.Build()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestBuildTrustsPrivateCA(t *testing.T) {
	certs := tlstest.Generate(t)
	srv := certs.NewServer(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	cfg, err := (&TLSConfig{CAFile: certs.CAFile, CertFile: certs.CertFile, KeyFile: certs.KeyFile}).Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Certificates) != 1 {
		t.Errorf("expected client certificate, got %d", len(cfg.Certificates))
	}

	client := &http.Client{Transport: &http.Transport{TLSClientConfig: cfg}}
	resp, err := client.Get(srv.URL)
	if err != nil {
		t.Fatalf("expected handshake to succeed: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("expected 204, got %d", resp.StatusCode)
	}

	if _, err := (&http.Client{}).Get(srv.URL); err == nil {
		t.Error("expected system roots to reject the private CA")
	}
}
