package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, _, exists, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if exists {
		t.Fatal("expected exists=false for missing file")
	}
	if cfg.Relay.BaseURL != defaultRelayBaseURL {
		t.Errorf("relay base URL = %q, want default", cfg.Relay.BaseURL)
	}
	if cfg.Routing.ScoreThreshold != defaultScoreThreshold {
		t.Errorf("score threshold = %v, want %v", cfg.Routing.ScoreThreshold, defaultScoreThreshold)
	}
	if cfg.Submission.SuccessRevertSeconds != 3 || cfg.Submission.ErrorRevertSeconds != 5 {
		t.Errorf("revert timings = %d/%d, want 3/5",
			cfg.Submission.SuccessRevertSeconds, cfg.Submission.ErrorRevertSeconds)
	}
}

func TestLoadParsesAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[relay]
base_url = "http://relay.example:9000/"
request_timeout = 45

[cache]
path = "` + filepath.Join(dir, "cache", "dup.cache") + `"
sync_interval = 0

[logging]
format = "JSON"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("resolved=%q exists=%v", resolved, exists)
	}
	if cfg.Relay.BaseURL != "http://relay.example:9000" {
		t.Errorf("base URL not trimmed: %q", cfg.Relay.BaseURL)
	}
	if cfg.Relay.RequestTimeout != 45 {
		t.Errorf("request timeout = %d, want 45", cfg.Relay.RequestTimeout)
	}
	if cfg.Cache.SyncInterval != defaultSyncInterval {
		t.Errorf("sync interval = %d, want default on non-positive input", cfg.Cache.SyncInterval)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("logging format = %q, want json", cfg.Logging.Format)
	}
}

func TestValidateRejectsBadRelayURL(t *testing.T) {
	cfg := Default()
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	cfg.Relay.BaseURL = "ftp://relay.example"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for non-http scheme")
	}
}

func TestValidateRejectsBadThreshold(t *testing.T) {
	cfg := Default()
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	cfg.Routing.ScoreThreshold = 1.5
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for threshold > 1")
	}
}

func TestCreateSampleRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[relay]") {
		t.Error("sample config missing relay section")
	}
	if err := CreateSample(path); err == nil {
		t.Fatal("expected error when sample already exists")
	}
}

func TestExpandPathHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}
	got, err := ExpandPath("~/cache")
	if err != nil {
		t.Fatalf("ExpandPath: %v", err)
	}
	if got != filepath.Join(home, "cache") {
		t.Errorf("ExpandPath(~/cache) = %q", got)
	}
}
