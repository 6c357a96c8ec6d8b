package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/richardthorek/Station-Manager-sub004/internal/config"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadRequiresBaseURL(t *testing.T) {
	path := writeConfig(t, "[remote]\n")
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error when remote.base_url missing")
	}
}

func TestLoadAppliesDefaultsAndNormalizes(t *testing.T) {
	base := t.TempDir()
	path := writeConfig(t, `
[paths]
data_dir = "`+filepath.Join(base, "data")+`"
log_dir = "`+filepath.Join(base, "logs")+`"

[remote]
base_url = "https://station.example.org/api/"
`)

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists || resolved == "" {
		t.Fatalf("expected config file to be resolved, got %q exists=%v", resolved, exists)
	}
	if cfg.Remote.BaseURL != "https://station.example.org/api" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Remote.BaseURL)
	}
	if cfg.Sync.RetryLimit != 3 {
		t.Fatalf("expected default retry limit 3, got %d", cfg.Sync.RetryLimit)
	}
	if cfg.Sync.GraceWindowSeconds != 30 {
		t.Fatalf("expected default grace window, got %d", cfg.Sync.GraceWindowSeconds)
	}
	if !strings.HasSuffix(cfg.Connectivity.ProbeURL, "/health") {
		t.Fatalf("expected probe URL derived from base URL, got %q", cfg.Connectivity.ProbeURL)
	}
	if cfg.Logging.Format != "console" {
		t.Fatalf("expected console log format, got %q", cfg.Logging.Format)
	}
	if cfg.QueueDatabasePath() != filepath.Join(cfg.Paths.DataDir, "queue.db") {
		t.Fatalf("unexpected queue db path %q", cfg.QueueDatabasePath())
	}
}

func TestLoadRejectsBadScheme(t *testing.T) {
	path := writeConfig(t, `
[remote]
base_url = "ftp://station.example.org"
`)
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error for non-http scheme")
	}
}

func TestAPITokenEnvFallback(t *testing.T) {
	t.Setenv("STATION_API_TOKEN", "env-token")
	path := writeConfig(t, `
[remote]
base_url = "https://station.example.org"
`)
	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Remote.APIToken != "env-token" {
		t.Fatalf("expected token from environment, got %q", cfg.Remote.APIToken)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[remote]") {
		t.Fatal("sample config missing [remote] section")
	}
}

func TestExplicitConfigPathMissingFileUsesDefaults(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "absent.toml")
	if _, _, _, err := config.Load(missing); err == nil {
		// Defaults have no base_url, so validation must fail.
		t.Fatal("expected validation error for defaults without base_url")
	}
}
