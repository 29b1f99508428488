package acquisition_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"helioframe/internal/acquisition"
	"helioframe/internal/config"
	"helioframe/internal/logging"
	"helioframe/internal/source"
	"helioframe/internal/staging"
	"helioframe/internal/testsupport"
)

type fakeFetcher struct {
	mu       sync.Mutex
	payloads map[int]*source.Payload
	failing  map[int]error
	calls    []int
}

func (f *fakeFetcher) FetchImage(ctx context.Context, nominal time.Time, channel int) (*source.Payload, error) {
	f.mu.Lock()
	f.calls = append(f.calls, channel)
	f.mu.Unlock()

	if err, ok := f.failing[channel]; ok {
		return nil, err
	}
	payload, ok := f.payloads[channel]
	if !ok {
		return nil, fmt.Errorf("channel %d: no fixture", channel)
	}
	return payload, nil
}

func captureFilename(ts time.Time) string {
	return ts.Format("2006_01_02__15_04_05") + "__SDO_TEST.jp2"
}

func TestAcquisitionStagesPlanes(t *testing.T) {
	cfg := testsupport.NewConfig(t,
		testsupport.WithMode(config.ModeIndependent),
		testsupport.WithSchema(config.SchemaRaw),
		testsupport.WithChannels(9, 13),
	)
	store := testsupport.MustOpenStore(t, cfg)

	nominal := time.Date(2023, 4, 12, 6, 30, 0, 0, time.UTC)
	latest := nominal.Add(7 * time.Second)
	body := testsupport.PNGImage(t, 8, 8)
	fetcher := &fakeFetcher{payloads: map[int]*source.Payload{
		9:  {Body: body, Filename: captureFilename(nominal.Add(2 * time.Second))},
		13: {Body: body, Filename: captureFilename(latest)},
	}}

	item := testsupport.NewRun(t, store, cfg, nominal)
	handler := acquisition.NewAcquisitionWithFetcher(cfg, store, logging.NewNop(), fetcher)

	if err := handler.Prepare(context.Background(), item); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := handler.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if !item.CanonicalAt.Equal(latest) {
		t.Errorf("canonical = %v, want %v", item.CanonicalAt, latest)
	}
	if item.StagedDir == "" {
		t.Fatal("staged dir not recorded")
	}
	manifest, outcome, err := staging.Load(item.StagedDir)
	if err != nil {
		t.Fatalf("load staged planes: %v", err)
	}
	if manifest.RunID != item.RunID {
		t.Errorf("manifest run = %q, want %q", manifest.RunID, item.RunID)
	}
	if len(outcome.Results) != 2 {
		t.Errorf("staged planes = %d, want 2", len(outcome.Results))
	}
	for _, result := range outcome.Results {
		if result.Plane.Width != 4 || result.Plane.Height != 4 {
			t.Errorf("channel %d dims = %dx%d, want 4x4 after 0.5 scale",
				result.Channel, result.Plane.Width, result.Plane.Height)
		}
	}
}

func TestAcquisitionAllChannelsFailedIsFatal(t *testing.T) {
	cfg := testsupport.NewConfig(t,
		testsupport.WithMode(config.ModeIndependent),
		testsupport.WithSchema(config.SchemaRaw),
		testsupport.WithChannels(9, 13),
	)
	store := testsupport.MustOpenStore(t, cfg)

	fetcher := &fakeFetcher{failing: map[int]error{
		9:  errors.New("connection refused"),
		13: errors.New("connection refused"),
	}}

	item := testsupport.NewRun(t, store, cfg, time.Now().UTC())
	handler := acquisition.NewAcquisitionWithFetcher(cfg, store, logging.NewNop(), fetcher)

	if err := handler.Execute(context.Background(), item); err == nil {
		t.Fatal("expected error when every channel fails")
	}
	if item.StagedDir != "" {
		if _, statErr := os.Stat(item.StagedDir); statErr == nil {
			t.Error("no planes should be staged for a failed run")
		}
	}
}

func TestAcquisitionAnchoredUsesReferenceChannel(t *testing.T) {
	cfg := testsupport.NewConfig(t,
		testsupport.WithMode(config.ModeAnchored),
		testsupport.WithSchema(config.SchemaRaw),
		testsupport.WithChannels(9, 13),
	)
	store := testsupport.MustOpenStore(t, cfg)

	nominal := time.Date(2023, 4, 12, 6, 30, 0, 0, time.UTC)
	referenceActual := nominal.Add(4 * time.Second)
	body := testsupport.PNGImage(t, 8, 8)
	fetcher := &fakeFetcher{payloads: map[int]*source.Payload{
		9:  {Body: body, Filename: captureFilename(nominal)},
		13: {Body: body, Filename: captureFilename(nominal)},
		19: {Body: body, Filename: captureFilename(referenceActual)},
	}}

	item := testsupport.NewRun(t, store, cfg, nominal)
	handler := acquisition.NewAcquisitionWithFetcher(cfg, store, logging.NewNop(), fetcher)

	if err := handler.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !item.CanonicalAt.Equal(referenceActual) {
		t.Errorf("canonical = %v, want reference actual %v", item.CanonicalAt, referenceActual)
	}

	_, outcome, err := staging.Load(item.StagedDir)
	if err != nil {
		t.Fatalf("load staged planes: %v", err)
	}
	if len(outcome.Results) != 3 {
		t.Errorf("staged planes = %d, want 3 (followers plus reference)", len(outcome.Results))
	}
}

func TestAcquisitionHealthCheck(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	handler := acquisition.NewAcquisitionWithFetcher(cfg, store, logging.NewNop(), &fakeFetcher{})

	if health := handler.HealthCheck(context.Background()); !health.Ready {
		t.Errorf("expected healthy, got %+v", health)
	}

	cfg.Source.BaseURL = ""
	if health := handler.HealthCheck(context.Background()); health.Ready {
		t.Error("expected unhealthy without a source base URL")
	}
}

func TestNewAcquisitionRequiresSourceURL(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	handler, err := acquisition.NewAcquisition(cfg, store, logging.NewNop())
	if err != nil {
		t.Fatalf("NewAcquisition: %v", err)
	}
	if handler == nil {
		t.Fatal("expected a handler for a valid configuration")
	}

	cfg.Source.BaseURL = "   "
	if _, err := acquisition.NewAcquisition(cfg, store, logging.NewNop()); err == nil {
		t.Fatal("expected an error without a source base URL")
	}
}
