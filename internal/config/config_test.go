package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BackendURL != "http://localhost:8000" {
		t.Fatalf("unexpected backend url: %q", cfg.BackendURL)
	}
	if cfg.CacheTTL != "5m" || cfg.PageSize != 5 || cfg.CachePrimeSize != 100 {
		t.Fatalf("unexpected cache defaults: %+v", cfg)
	}
	if cfg.DisplayTimezone != "Asia/Kathmandu" {
		t.Fatalf("unexpected timezone: %q", cfg.DisplayTimezone)
	}
}

func TestLoadReadsYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "backendURL: https://api.clinic.example\ncacheTTL: 2m\npageSize: 10\nlogLevel: debug\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BackendURL != "https://api.clinic.example" {
		t.Fatalf("unexpected backend url: %q", cfg.BackendURL)
	}
	if cfg.CacheTTL != "2m" || cfg.PageSize != 10 || cfg.LogLevel != "debug" {
		t.Fatalf("yaml values not applied: %+v", cfg)
	}
	// Unset fields keep their defaults.
	if cfg.CachePrimeSize != 100 {
		t.Fatalf("default lost: %+v", cfg)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("backendURL: http://from-file\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("NEUROSCAN_BACKEND_URL", "http://from-env")
	t.Setenv("NEUROSCAN_PAGE_SIZE", "7")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BackendURL != "http://from-env" {
		t.Fatalf("env override lost: %q", cfg.BackendURL)
	}
	if cfg.PageSize != 7 || cfg.RedisAddr != "localhost:6379" {
		t.Fatalf("env values not applied: %+v", cfg)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	dir := t.TempDir()
	cases := []struct {
		name    string
		content string
	}{
		{"empty backend", "backendURL: \"\"\n"},
		{"zero page size", "pageSize: 0\n"},
		{"archive without bucket", "archiveEndpoint: localhost:9000\n"},
		{"broken yaml", "backendURL: [\n"},
	}
	for _, tc := range cases {
		path := filepath.Join(dir, "bad.yaml")
		if err := os.WriteFile(path, []byte(tc.content), 0o600); err != nil {
			t.Fatalf("write config: %v", err)
		}
		if _, err := Load(path); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}

func TestDurationParsers(t *testing.T) {
	if d, err := ParseHTTPTimeout(""); err != nil || d != 15*time.Second {
		t.Fatalf("default timeout: %v %v", d, err)
	}
	if d, err := ParseCacheTTL("90s"); err != nil || d != 90*time.Second {
		t.Fatalf("parse ttl: %v %v", d, err)
	}
	if _, err := ParseCacheTTL("five minutes"); err == nil {
		t.Fatalf("expected parse error")
	}
	if _, err := ParseHTTPTimeout("soon"); err == nil {
		t.Fatalf("expected parse error")
	}
}
