package staging

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"helioframe/internal/logging"
)

func TestCleanStaleInvalidPaths(t *testing.T) {
	for _, dir := range []string{"", "   ", "/nonexistent/path/12345"} {
		result := CleanStale(dir, time.Hour, logging.NewNop())
		if len(result.Removed) != 0 || len(result.Errors) != 0 {
			t.Errorf("expected empty result for path %q", dir)
		}
	}
}

func TestCleanStaleRemovesOldRunDirs(t *testing.T) {
	tmpDir := t.TempDir()

	oldDir := filepath.Join(tmpDir, "run-aaaa1111")
	if err := os.Mkdir(oldDir, 0o755); err != nil {
		t.Fatalf("create old dir: %v", err)
	}
	oldTime := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(oldDir, oldTime, oldTime); err != nil {
		t.Fatalf("set old time: %v", err)
	}

	recentDir := filepath.Join(tmpDir, "run-bbbb2222")
	if err := os.Mkdir(recentDir, 0o755); err != nil {
		t.Fatalf("create recent dir: %v", err)
	}

	result := CleanStale(tmpDir, time.Hour, logging.NewNop())

	if len(result.Removed) != 1 {
		t.Fatalf("expected 1 removed, got %d", len(result.Removed))
	}
	if result.Removed[0] != oldDir {
		t.Errorf("expected %s to be removed, got %s", oldDir, result.Removed[0])
	}
	if _, err := os.Stat(oldDir); !os.IsNotExist(err) {
		t.Error("old directory should have been removed")
	}
	if _, err := os.Stat(recentDir); err != nil {
		t.Error("recent directory should still exist")
	}
}

func TestCleanStaleIgnoresForeignEntries(t *testing.T) {
	tmpDir := t.TempDir()
	oldTime := time.Now().Add(-2 * time.Hour)

	oldFile := filepath.Join(tmpDir, "old-file.txt")
	if err := os.WriteFile(oldFile, []byte("test"), 0o644); err != nil {
		t.Fatalf("create file: %v", err)
	}
	if err := os.Chtimes(oldFile, oldTime, oldTime); err != nil {
		t.Fatalf("set old time: %v", err)
	}

	foreignDir := filepath.Join(tmpDir, "scratch")
	if err := os.Mkdir(foreignDir, 0o755); err != nil {
		t.Fatalf("create foreign dir: %v", err)
	}
	if err := os.Chtimes(foreignDir, oldTime, oldTime); err != nil {
		t.Fatalf("set old time: %v", err)
	}

	result := CleanStale(tmpDir, time.Hour, logging.NewNop())

	if len(result.Removed) != 0 {
		t.Errorf("expected no removals, got %v", result.Removed)
	}
	if _, err := os.Stat(oldFile); err != nil {
		t.Error("file should not have been removed")
	}
	if _, err := os.Stat(foreignDir); err != nil {
		t.Error("non-run directory should not have been removed")
	}
}

func TestCleanOrphanedEmptyDir(t *testing.T) {
	for _, dir := range []string{"", "   "} {
		result := CleanOrphaned(dir, nil, logging.NewNop())
		if len(result.Removed) != 0 || len(result.Errors) != 0 {
			t.Errorf("expected empty result for path %q", dir)
		}
	}
}

func TestCleanOrphanedRemovesUnknownRuns(t *testing.T) {
	tmpDir := t.TempDir()

	knownDir := filepath.Join(tmpDir, "run-active-run")
	if err := os.Mkdir(knownDir, 0o755); err != nil {
		t.Fatalf("create known dir: %v", err)
	}
	unknownDir := filepath.Join(tmpDir, "run-finished-run")
	if err := os.Mkdir(unknownDir, 0o755); err != nil {
		t.Fatalf("create unknown dir: %v", err)
	}
	foreignDir := filepath.Join(tmpDir, "scratch")
	if err := os.Mkdir(foreignDir, 0o755); err != nil {
		t.Fatalf("create foreign dir: %v", err)
	}

	active := map[string]struct{}{"active-run": {}}

	result := CleanOrphaned(tmpDir, active, logging.NewNop())

	if len(result.Removed) != 1 {
		t.Fatalf("expected 1 removed, got %d: %v", len(result.Removed), result.Removed)
	}
	if result.Removed[0] != unknownDir {
		t.Errorf("expected %s to be removed, got %s", unknownDir, result.Removed[0])
	}
	if _, err := os.Stat(knownDir); err != nil {
		t.Error("active run directory should still exist")
	}
	if _, err := os.Stat(foreignDir); err != nil {
		t.Error("non-run directory should still exist")
	}
}
