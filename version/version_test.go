package version

import (
	"runtime/debug"
	"testing"
	"time"
)

func restore() func() {
	v, c, b := Version, GitCommit, BuildTime
	return func() { Version, GitCommit, BuildTime = v, c, b }
}

func TestGetDefaults(t *testing.T) {
	defer restore()()
	Version, GitCommit, BuildTime = "dev", "", ""

	info := Get()
	if info.Version != "dev" {
		t.Errorf("expected version 'dev', got %q", info.Version)
	}
	if info.Release {
		t.Error("dev should not be a release")
	}
}

func TestGetLinkerValues(t *testing.T) {
	defer restore()()
	Version, GitCommit, BuildTime = "1.4.0", "abcdef1234567", "2026-01-02T15:04:05Z"

	info := Get()
	if info.GitCommit != "abcdef1" {
		t.Errorf("expected short commit, got %q", info.GitCommit)
	}
	if !info.BuildTime.Equal(time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)) {
		t.Errorf("unexpected build time %v", info.BuildTime)
	}
}

func TestApplyVCS(t *testing.T) {
	info := Info{Version: "1.0.0"}
	applyVCS(&info, []debug.BuildSetting{
		{Key: "vcs.revision", Value: "0123456789"},
		{Key: "vcs.modified", Value: "true"},
		{Key: "vcs.time", Value: "2025-06-01T00:00:00Z"},
	})
	if info.GitCommit != "0123456789" || !info.Dirty || info.BuildTime.Year() != 2025 {
		t.Errorf("unexpected info %+v", info)
	}

	linked := Info{GitCommit: "fromflag", BuildTime: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	applyVCS(&linked, []debug.BuildSetting{
		{Key: "vcs.revision", Value: "fromvcs"},
		{Key: "vcs.time", Value: "2025-06-01T00:00:00Z"},
	})
	if linked.GitCommit != "fromflag" || linked.BuildTime.Year() != 2024 {
		t.Errorf("expected linker values to win, got %+v", linked)
	}
}

func TestParseTimeInvalid(t *testing.T) {
	if !parseTime("yesterday").IsZero() {
		t.Error("expected zero time for invalid input")
	}
}

func TestString(t *testing.T) {
	tests := []struct {
		info Info
		want string
	}{
		{Info{Version: "dev"}, "dev"},
		{Info{Version: "1.0.0", GitCommit: "abc1234"}, "1.0.0-abc1234"},
		{Info{Version: "1.0.0", GitCommit: "abc1234", Dirty: true}, "1.0.0-abc1234-dirty"},
	}
	for _, tc := range tests {
		if got := tc.info.String(); got != tc.want {
			t.Errorf("expected %q, got %q", tc.want, got)
		}
	}
}
