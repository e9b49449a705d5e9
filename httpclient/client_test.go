package httpclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kbukum/authflow/resilience"
	"github.com/kbukum/authflow/security"
	"github.com/kbukum/authflow/security/tlstest"
)

func TestClient_Do_GET(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		if r.URL.Path != "/.well-known/openid-configuration" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if ua := r.Header.Get("User-Agent"); ua != "authflow" {
			t.Errorf("expected default user agent, got %q", ua)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"issuer": "https://issuer.test"})
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp, err := c.Do(context.Background(), Request{Path: "/.well-known/openid-configuration"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.IsSuccess() {
		t.Errorf("expected success, got %d", resp.StatusCode)
	}
	if !strings.Contains(string(resp.Body), "issuer.test") {
		t.Errorf("unexpected body %s", resp.Body)
	}
	if resp.Headers["Content-Type"] != "application/json" {
		t.Errorf("expected content type header, got %v", resp.Headers)
	}
}

func TestClient_Do_FormBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/x-www-form-urlencoded" {
			t.Errorf("expected form content type, got %s", ct)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if r.PostForm.Get("grant_type") != "authorization_code" {
			t.Errorf("unexpected form %v", r.PostForm)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c, _ := New(Config{})
	_, err := c.Do(context.Background(), Request{
		Method: http.MethodPost,
		Path:   srv.URL + "/token",
		Body:   url.Values{"grant_type": {"authorization_code"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestClient_Do_StatusClassification(t *testing.T) {
	tests := []struct {
		status    int
		code      ErrorCode
		retryable bool
	}{
		{http.StatusBadRequest, ErrCodeClient, false},
		{http.StatusNotFound, ErrCodeClient, false},
		{http.StatusTooManyRequests, ErrCodeClient, true},
		{http.StatusInternalServerError, ErrCodeServer, true},
		{http.StatusServiceUnavailable, ErrCodeServer, true},
		{http.StatusFound, ErrCodeServer, false},
	}
	for _, tc := range tests {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tc.status == http.StatusFound {
					http.Redirect(w, r, "/elsewhere", tc.status)
					return
				}
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(`{"error":"x"}`))
			}))
			defer srv.Close()

			c, _ := New(Config{})
			resp, err := c.Do(context.Background(), Request{Path: srv.URL})
			if err == nil {
				t.Fatal("expected error")
			}
			e, ok := err.(*Error)
			if !ok {
				t.Fatalf("expected *Error, got %T", err)
			}
			if e.Code != tc.code || e.Retryable != tc.retryable || e.StatusCode != tc.status {
				t.Errorf("expected code=%s retryable=%v status=%d, got %+v", tc.code, tc.retryable, tc.status, e)
			}
			if resp == nil || resp.StatusCode != tc.status {
				t.Errorf("expected response with status %d alongside the error, got %+v", tc.status, resp)
			}
		})
	}
}

func TestClient_Do_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c, _ := New(Config{Timeout: 50 * time.Millisecond})
	_, err := c.Do(context.Background(), Request{Path: srv.URL})
	if !IsTimeout(err) {
		t.Errorf("expected timeout error, got %v", err)
	}
	if !IsRetryable(err) {
		t.Error("expected timeout to be retryable")
	}
}

func TestClient_Do_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	addr := srv.URL
	srv.Close()

	c, _ := New(Config{Timeout: time.Second})
	_, err := c.Do(context.Background(), Request{Path: addr})
	if !IsConnection(err) {
		t.Errorf("expected connection error, got %v", err)
	}
}

func TestClient_Do_BodyLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 64)))
	}))
	defer srv.Close()

	c, _ := New(Config{MaxBodyBytes: 16})
	_, err := c.Do(context.Background(), Request{Path: srv.URL})
	var e *Error
	if err == nil {
		t.Fatal("expected error")
	}
	if e, _ = err.(*Error); e == nil || e.Code != ErrCodeDecode {
		t.Errorf("expected decode error, got %v", err)
	}
}

func TestClient_Do_RetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c, _ := New(Config{Retry: resilience.RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     time.Millisecond,
	}})
	if _, err := c.Do(context.Background(), Request{Path: srv.URL}); err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if hits.Load() != 3 {
		t.Errorf("expected 3 hits, got %d", hits.Load())
	}
}

func TestClient_Do_DefaultsToSingleAttempt(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c, _ := New(Config{})
	_, _ = c.Do(context.Background(), Request{Path: srv.URL})
	if hits.Load() != 1 {
		t.Errorf("expected 1 hit, got %d", hits.Load())
	}
}

func TestGetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bad" {
			_, _ = w.Write([]byte("not json"))
			return
		}
		_, _ = w.Write([]byte(`{"jwks_uri":"https://issuer.test/keys"}`))
	}))
	defer srv.Close()

	type doc struct {
		JWKSURI string `json:"jwks_uri"`
	}
	c, _ := New(Config{BaseURL: srv.URL})

	got, err := GetJSON[doc](context.Background(), c, "/ok")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.JWKSURI != "https://issuer.test/keys" {
		t.Errorf("unexpected jwks uri %q", got.JWKSURI)
	}

	_, err = GetJSON[doc](context.Background(), c, "/bad")
	var e *Error
	if e, _ = err.(*Error); e == nil || e.Code != ErrCodeDecode {
		t.Errorf("expected decode error, got %v", err)
	}
}

func TestConfig(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	if cfg.Timeout != 10*time.Second {
		t.Errorf("expected 10s timeout, got %v", cfg.Timeout)
	}
	if cfg.Retry.MaxAttempts != 1 {
		t.Errorf("expected single attempt, got %d", cfg.Retry.MaxAttempts)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	bad := Config{Timeout: time.Second, Retry: resilience.RetryConfig{MaxAttempts: 9}}
	if err := bad.Validate(); err == nil {
		t.Error("expected error for too many attempts")
	}
}

func TestErrorCodeString(t *testing.T) {
	if ErrCodeTimeout.String() != "timeout" || ErrorCode(99).String() != "unknown" {
		t.Error("unexpected error code names")
	}
	e := &Error{Code: ErrCodeServer, StatusCode: 500, Message: "HTTP 500"}
	if e.Error() != "httpclient: server (HTTP 500): HTTP 500" {
		t.Errorf("unexpected message %q", e.Error())
	}
}

func TestClient_Do_PrivateCA(t *testing.T) {
	certs := tlstest.Generate(t)
	srv := certs.NewServer(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"keys":[]}`))
	}))

	c, err := New(Config{BaseURL: srv.URL, TLS: security.TLSConfig{CAFile: certs.CAFile}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := c.Do(context.Background(), Request{Path: "/jwks"}); err != nil {
		t.Fatalf("expected the private CA to be trusted: %v", err)
	}

	plain, err := New(Config{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := plain.Do(context.Background(), Request{Path: "/jwks"}); err == nil {
		t.Error("expected the default roots to reject the server")
	}

	if _, err := New(Config{TLS: security.TLSConfig{CertFile: "cert.pem"}}); err == nil {
		t.Error("expected an unpaired client certificate to be rejected")
	}
}
