package testsupport

import (
	"path/filepath"
	"testing"

	"helioframe/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.OutputDir = filepath.Join(base, "output")
	cfg.Paths.WorkDir = filepath.Join(base, "work")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Source.BaseURL = "http://127.0.0.1:0"

	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return &cfg
}

// WithMode sets the reconciliation mode on the test config.
func WithMode(mode string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Acquisition.Mode = mode
	}
}

// WithSchema sets the container schema on the test config.
func WithSchema(schema string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Container.Schema = schema
	}
}

// WithChannels overrides the acquired channel list on the test config.
func WithChannels(channels ...int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Acquisition.Channels = channels
	}
}
