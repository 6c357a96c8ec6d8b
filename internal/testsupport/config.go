package testsupport

import (
	"path/filepath"
	"testing"

	"github.com/richardthorek/Station-Manager-sub004/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Remote.BaseURL = "http://127.0.0.1:0"
	cfg.Connectivity.ProbeURL = "http://127.0.0.1:0/health"
	cfg.Connectivity.WatchNetlink = false

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithBaseURL points the remote API at the provided URL (typically an
// httptest server).
func WithBaseURL(url string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Remote.BaseURL = url
		cfg.Connectivity.ProbeURL = url + "/health"
	}
}

// WithGraceWindow overrides the synced-action grace window.
func WithGraceWindow(seconds int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Sync.GraceWindowSeconds = seconds
	}
}

// WithRetryLimit overrides the connectivity retry limit.
func WithRetryLimit(limit int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Sync.RetryLimit = limit
	}
}
