package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTransport marks per-channel fetch failures (non-success status,
	// network failure, empty body).
	ErrTransport = errors.New("transport error")
	// ErrDecode marks per-channel raster failures (malformed encoding,
	// dimension/length mismatch).
	ErrDecode = errors.New("decode error")
	// ErrReconciliation marks fatal orchestration failures (anchor channel
	// failed, zero channels succeeded).
	ErrReconciliation = errors.New("reconciliation error")
	// ErrAssembly marks fatal container assembly failures (wrong channel
	// cardinality, mismatched group buffer lengths).
	ErrAssembly = errors.New("assembly error")
	// ErrConfiguration marks unusable configuration discovered at stage time.
	ErrConfiguration = errors.New("configuration error")
	// ErrValidation marks inconsistent queue item state.
	ErrValidation = errors.New("validation error")
	// ErrTransient marks failures worth retrying on a later run.
	ErrTransient = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later status classification. The marker should
// be one of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsFatal reports whether an error class aborts the whole run rather than
// degrading a single channel. Fatal markers take precedence: a reconciliation
// failure stays fatal even when its cause chain contains a transport error.
func IsFatal(err error) bool {
	for _, marker := range []error{ErrReconciliation, ErrAssembly, ErrConfiguration, ErrValidation} {
		if errors.Is(err, marker) {
			return true
		}
	}
	return !errors.Is(err, ErrTransport) && !errors.Is(err, ErrDecode)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
