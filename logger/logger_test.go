package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func newJSONLogger(t *testing.T, level string) (*Logger, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	cfg := &Config{Level: level, Format: "json", Output: "stdout"}
	return NewWithWriter(cfg, "authflow", buf), buf
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	line := strings.TrimSpace(buf.String())
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("failed to decode log line %q: %v", line, err)
	}
	return entry
}

func TestNewDefault(t *testing.T) {
	l := NewDefault("test-svc")
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
	if l.service != "test-svc" {
		t.Errorf("expected service 'test-svc', got %q", l.service)
	}
}

func TestNewInvalidLevel(t *testing.T) {
	l, buf := newJSONLogger(t, "invalid-level")
	l.Info("hello")
	if buf.Len() == 0 {
		t.Fatal("expected info to be written when level falls back to info")
	}
}

func TestLevelFiltering(t *testing.T) {
	l, buf := newJSONLogger(t, "warn")
	l.Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("expected info to be filtered, got %q", buf.String())
	}
	l.Warn("kept")
	entry := decodeLine(t, buf)
	if entry["message"] != "kept" {
		t.Errorf("expected message 'kept', got %v", entry["message"])
	}
}

func TestWithAttempt(t *testing.T) {
	l, buf := newJSONLogger(t, "info")
	l.WithComponent("flow").WithAttempt("google", "a-1").Info("login completed",
		Fields(FieldSubject, "u1"))

	entry := decodeLine(t, buf)
	checks := map[string]string{
		FieldComponent: "flow",
		FieldProvider:  "google",
		FieldAttemptID: "a-1",
		FieldSubject:   "u1",
		"service":      "authflow",
	}
	for k, want := range checks {
		if entry[k] != want {
			t.Errorf("expected %s=%q, got %v", k, want, entry[k])
		}
	}
}

func TestWithAttempt_SkipsEmpty(t *testing.T) {
	l, buf := newJSONLogger(t, "info")
	l.WithAttempt("", "").Info("x")
	entry := decodeLine(t, buf)
	if _, ok := entry[FieldProvider]; ok {
		t.Error("expected no provider field")
	}
	if _, ok := entry[FieldAttemptID]; ok {
		t.Error("expected no attempt_id field")
	}
}

func TestWithContext(t *testing.T) {
	l, buf := newJSONLogger(t, "info")
	ctx := ContextWithRequestID(context.Background(), "req-42")
	l.WithContext(ctx).Info("handled")

	entry := decodeLine(t, buf)
	if entry[FieldRequestID] != "req-42" {
		t.Errorf("expected request_id=req-42, got %v", entry[FieldRequestID])
	}
	if RequestIDFromContext(context.Background()) != "" {
		t.Error("expected empty request id for bare context")
	}
}

func TestWithError(t *testing.T) {
	l, buf := newJSONLogger(t, "info")
	l.WithError(errors.New("boom")).Error("failed")
	entry := decodeLine(t, buf)
	if entry["error"] != "boom" {
		t.Errorf("expected error=boom, got %v", entry["error"])
	}
}

func TestNewNop(t *testing.T) {
	l := NewNop()
	l.Info("nothing")
	l.WithAttempt("google", "a").Warn("still nothing")
}

func TestInitAndGlobal(t *testing.T) {
	prev := globalLogger
	defer SetGlobalLogger(prev)

	l := Init(Config{Format: "json"}, "init-svc")
	if GetGlobalLogger() != l {
		t.Error("expected Init to set the global logger")
	}
	SetGlobalLogger(nil)
	if GetGlobalLogger() == nil {
		t.Error("expected a default global logger")
	}
}

func TestConfigApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	if cfg.Level != "info" {
		t.Errorf("expected level 'info', got %q", cfg.Level)
	}
	if cfg.Format != "console" {
		t.Errorf("expected format 'console', got %q", cfg.Format)
	}
	if cfg.Output != "stdout" {
		t.Errorf("expected output 'stdout', got %q", cfg.Output)
	}
	if !cfg.Timestamp {
		t.Error("expected timestamp enabled")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid json", Config{Level: "info", Format: "json", Output: "stdout"}, false},
		{"valid pretty", Config{Level: "debug", Format: "pretty", Output: "stderr"}, false},
		{"bad level", Config{Level: "loud", Format: "json", Output: "stdout"}, true},
		{"bad format", Config{Level: "info", Format: "xml", Output: "stdout"}, true},
		{"bad output", Config{Level: "info", Format: "json", Output: "file"}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("expected wantErr=%v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestConsoleFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	cfg := &Config{Level: "info", Format: "console", NoColor: true}
	NewWithWriter(cfg, "authflow", buf).Info("started")
	out := buf.String()
	if !strings.Contains(out, "[AUT][INF]") {
		t.Errorf("expected service and level tag, got %q", out)
	}
	if !strings.Contains(out, "started") {
		t.Errorf("expected message, got %q", out)
	}
}

func TestFields(t *testing.T) {
	m := Fields("a", 1, "b", "two", 3, "skipped", "dangling")
	if len(m) != 2 {
		t.Fatalf("expected 2 fields, got %d: %v", len(m), m)
	}
	if m["a"] != 1 || m["b"] != "two" {
		t.Errorf("unexpected fields %v", m)
	}
}

func TestErrorAndDurationFields(t *testing.T) {
	ef := ErrorFields("exchange", errors.New("denied"))
	if ef[FieldOperation] != "exchange" || ef[FieldError] != "denied" {
		t.Errorf("unexpected error fields %v", ef)
	}
	df := DurationFields("jwks", 1500*time.Millisecond)
	if df[FieldDuration] != int64(1500) {
		t.Errorf("expected 1500ms, got %v", df[FieldDuration])
	}
}
