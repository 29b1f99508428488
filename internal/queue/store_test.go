package queue

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenPath(filepath.Join(t.TempDir(), "queue.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	return store
}

func TestNewRunDefaults(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	nominal := time.Date(2023, 4, 12, 6, 30, 0, 0, time.UTC)

	item, err := store.NewRun(ctx, "independent", "raw", []int{9, 10, 11, 13, 16}, nominal)
	if err != nil {
		t.Fatalf("new run: %v", err)
	}
	if item.Status != StatusPending {
		t.Errorf("status = %q, want %q", item.Status, StatusPending)
	}
	if item.RunID == "" {
		t.Error("run id is empty")
	}
	if !item.NominalAt.Equal(nominal) {
		t.Errorf("nominal = %v, want %v", item.NominalAt, nominal)
	}
	if got := item.ChannelList(); got != "9,10,11,13,16" {
		t.Errorf("channels = %q, want %q", got, "9,10,11,13,16")
	}
	if !item.CanonicalAt.IsZero() {
		t.Errorf("canonical should be unset, got %v", item.CanonicalAt)
	}
}

func TestGetByRunID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.NewRun(ctx, "single", "compressed", []int{19}, time.Now().UTC())
	if err != nil {
		t.Fatalf("new run: %v", err)
	}

	found, err := store.GetByRunID(ctx, created.RunID)
	if err != nil {
		t.Fatalf("get by run id: %v", err)
	}
	if found == nil || found.ID != created.ID {
		t.Fatalf("lookup returned %+v, want item %d", found, created.ID)
	}

	missing, err := store.GetByRunID(ctx, "does-not-exist")
	if err != nil {
		t.Fatalf("get missing run: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for unknown run, got %+v", missing)
	}
}

func TestUpdatePersistsTransition(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	item, err := store.NewRun(ctx, "anchored", "composite", []int{9, 10, 11, 13, 16, 19}, time.Now().UTC())
	if err != nil {
		t.Fatalf("new run: %v", err)
	}

	canonical := time.Date(2023, 4, 12, 6, 30, 4, 0, time.UTC)
	item.Status = StatusAcquired
	item.CanonicalAt = canonical
	item.StagedDir = "/tmp/staged/run"
	item.ProgressStage = "acquiring"
	item.ProgressMessage = "6 channels acquired"
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("update: %v", err)
	}

	reloaded, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Status != StatusAcquired {
		t.Errorf("status = %q, want %q", reloaded.Status, StatusAcquired)
	}
	if !reloaded.CanonicalAt.Equal(canonical) {
		t.Errorf("canonical = %v, want %v", reloaded.CanonicalAt, canonical)
	}
	if reloaded.StagedDir != "/tmp/staged/run" {
		t.Errorf("staged dir = %q", reloaded.StagedDir)
	}
}

func TestUpdateRejectsInvalidStatus(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	item, err := store.NewRun(ctx, "independent", "raw", []int{9}, time.Now().UTC())
	if err != nil {
		t.Fatalf("new run: %v", err)
	}
	item.Status = Status("exploded")
	if err := store.Update(ctx, item); err == nil {
		t.Fatal("expected error for invalid status")
	}
}

func TestNextForStatusesOrdering(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.NewRun(ctx, "independent", "raw", []int{9}, time.Now().UTC())
	if err != nil {
		t.Fatalf("new run: %v", err)
	}
	if _, err := store.NewRun(ctx, "independent", "raw", []int{10}, time.Now().UTC()); err != nil {
		t.Fatalf("new run: %v", err)
	}

	next, err := store.NextForStatuses(ctx, StatusPending)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if next == nil || next.ID != first.ID {
		t.Fatalf("next = %+v, want item %d", next, first.ID)
	}

	none, err := store.NextForStatuses(ctx, StatusAssembling)
	if err != nil {
		t.Fatalf("next assembling: %v", err)
	}
	if none != nil {
		t.Errorf("expected no assembling items, got %+v", none)
	}
}

func TestClearAndRetry(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	done, err := store.NewRun(ctx, "independent", "raw", []int{9}, time.Now().UTC())
	if err != nil {
		t.Fatalf("new run: %v", err)
	}
	done.Status = StatusCompleted
	if err := store.Update(ctx, done); err != nil {
		t.Fatalf("update completed: %v", err)
	}

	failed, err := store.NewRun(ctx, "independent", "raw", []int{10}, time.Now().UTC())
	if err != nil {
		t.Fatalf("new run: %v", err)
	}
	failed.Status = StatusFailed
	failed.ErrorMessage = "transport unreachable"
	if err := store.Update(ctx, failed); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	cleared, err := store.ClearCompleted(ctx)
	if err != nil {
		t.Fatalf("clear completed: %v", err)
	}
	if cleared != 1 {
		t.Errorf("cleared = %d, want 1", cleared)
	}

	retried, err := store.RetryFailed(ctx)
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if retried != 1 {
		t.Errorf("retried = %d, want 1", retried)
	}

	reset, err := store.GetByID(ctx, failed.ID)
	if err != nil {
		t.Fatalf("reload retried: %v", err)
	}
	if reset.Status != StatusPending {
		t.Errorf("status = %q, want %q", reset.Status, StatusPending)
	}
	if reset.ErrorMessage != "" {
		t.Errorf("error message should be cleared, got %q", reset.ErrorMessage)
	}
}

func TestHealthAndActiveRuns(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	active, err := store.HasActiveRun(ctx)
	if err != nil {
		t.Fatalf("has active: %v", err)
	}
	if active {
		t.Error("empty queue reported an active run")
	}

	item, err := store.NewRun(ctx, "anchored", "composite", []int{9, 10, 11, 13, 16, 19}, time.Now().UTC())
	if err != nil {
		t.Fatalf("new run: %v", err)
	}
	item.Status = StatusAcquiring
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("update: %v", err)
	}

	active, err = store.HasActiveRun(ctx)
	if err != nil {
		t.Fatalf("has active: %v", err)
	}
	if !active {
		t.Error("acquiring item not counted as active")
	}

	summary, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	if summary.Total != 1 || summary.Processing != 1 {
		t.Errorf("summary = %+v, want total 1 processing 1", summary)
	}
}

func TestListOrdersOldestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, channel := range []int{9, 10, 13} {
		if _, err := store.NewRun(ctx, "independent", "raw", []int{channel}, time.Now().UTC()); err != nil {
			t.Fatalf("new run: %v", err)
		}
	}

	items, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("len(items) = %d, want 3", len(items))
	}
	for i := 1; i < len(items); i++ {
		if items[i].ID < items[i-1].ID {
			t.Errorf("items out of order: %d before %d", items[i-1].ID, items[i].ID)
		}
	}
}
