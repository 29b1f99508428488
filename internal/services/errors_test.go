package services_test

import (
	"errors"
	"strings"
	"testing"

	"helioframe/internal/services"
)

func TestWrapTagsMarker(t *testing.T) {
	base := errors.New("connection refused")
	err := services.Wrap(services.ErrTransport, "acquiring", "fetch channel", "channel 9", base)
	if !errors.Is(err, services.ErrTransport) {
		t.Fatalf("expected transport marker, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
	if !strings.Contains(err.Error(), "acquiring: fetch channel: channel 9") {
		t.Fatalf("unexpected detail: %v", err)
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("unexpected message: %v", err)
	}
}

func TestIsFatal(t *testing.T) {
	cases := []struct {
		marker error
		fatal  bool
	}{
		{services.ErrTransport, false},
		{services.ErrDecode, false},
		{services.ErrReconciliation, true},
		{services.ErrAssembly, true},
		{services.ErrConfiguration, true},
		{services.ErrTransient, true},
	}
	for _, tc := range cases {
		err := services.Wrap(tc.marker, "stage", "op", "", nil)
		if got := services.IsFatal(err); got != tc.fatal {
			t.Fatalf("IsFatal(%v) = %v, want %v", tc.marker, got, tc.fatal)
		}
	}
}

func TestIsFatalPrefersFatalMarkerOverCause(t *testing.T) {
	cause := services.Wrap(services.ErrTransport, "acquiring", "fetch", "channel 19", nil)
	err := services.Wrap(services.ErrReconciliation, "acquiring", "fetch reference", "reference channel 19 failed", cause)
	if !services.IsFatal(err) {
		t.Fatalf("reconciliation failure with transport cause should stay fatal: %v", err)
	}
}
