package testsupport

import (
	"context"
	"testing"
	"time"

	"helioframe/internal/config"
	"helioframe/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewRun creates a pending run for tests using the config's acquisition
// and container settings.
func NewRun(t testing.TB, store *queue.Store, cfg *config.Config, nominal time.Time) *queue.Item {
	t.Helper()

	item, err := store.NewRun(context.Background(), cfg.Acquisition.Mode, cfg.Container.Schema, cfg.ChannelSet(), nominal)
	if err != nil {
		t.Fatalf("store.NewRun: %v", err)
	}
	return item
}
