package staging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"helioframe/internal/logging"
)

// CleanResult contains the outcome of a staging cleanup pass.
type CleanResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a directory path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// CleanStale removes staged run directories older than maxAge. It
// returns the list of removed directories and any errors encountered.
func CleanStale(stagingRoot string, maxAge time.Duration, logger *slog.Logger) CleanResult {
	result := CleanResult{}

	stagingRoot = strings.TrimSpace(stagingRoot)
	if stagingRoot == "" {
		return result
	}

	entries, err := os.ReadDir(stagingRoot)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, CleanupError{Path: stagingRoot, Error: err})
		}
		return result
	}

	cutoff := time.Now().Add(-maxAge)

	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), "run-") {
			continue
		}

		dirPath := filepath.Join(stagingRoot, entry.Name())
		info, err := entry.Info()
		if err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dirPath, Error: err})
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}

		if err := os.RemoveAll(dirPath); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dirPath, Error: err})
			if logger != nil {
				logger.Warn("failed to remove stale staging directory",
					logging.String("path", dirPath),
					logging.Error(err),
				)
			}
		} else {
			result.Removed = append(result.Removed, dirPath)
			if logger != nil {
				logger.Info("removed stale staging directory",
					logging.String("path", dirPath),
					logging.Duration("age", time.Since(info.ModTime())),
				)
			}
		}
	}

	return result
}

// CleanOrphaned removes run directories whose run UUID is not in the
// active set. Directories that do not follow the run naming scheme are
// left alone.
func CleanOrphaned(stagingRoot string, activeRunIDs map[string]struct{}, logger *slog.Logger) CleanResult {
	result := CleanResult{}

	stagingRoot = strings.TrimSpace(stagingRoot)
	if stagingRoot == "" {
		return result
	}

	entries, err := os.ReadDir(stagingRoot)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, CleanupError{Path: stagingRoot, Error: err})
		}
		return result
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		runID, ok := strings.CutPrefix(entry.Name(), "run-")
		if !ok {
			continue
		}
		if _, active := activeRunIDs[runID]; active {
			continue
		}

		dirPath := filepath.Join(stagingRoot, entry.Name())
		if err := os.RemoveAll(dirPath); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dirPath, Error: err})
			if logger != nil {
				logger.Warn("failed to remove orphaned staging directory",
					logging.String("path", dirPath),
					logging.Error(err),
				)
			}
		} else {
			result.Removed = append(result.Removed, dirPath)
			if logger != nil {
				logger.Info("removed orphaned staging directory",
					logging.String("path", dirPath),
				)
			}
		}
	}

	return result
}
