package staging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"helioframe/internal/acquire"
	"helioframe/internal/fileutil"
	"helioframe/internal/raster"
)

const manifestName = "manifest.json"

// Manifest records the acquired planes staged between the acquisition
// and assembly stages of a run.
type Manifest struct {
	RunID       string        `json:"run_id"`
	Schema      string        `json:"schema"`
	Mode        string        `json:"mode"`
	CanonicalAt time.Time     `json:"canonical_at"`
	Planes      []PlaneRecord `json:"planes"`
}

// PlaneRecord describes one staged channel plane. File is relative to
// the staging directory.
type PlaneRecord struct {
	Channel int       `json:"channel"`
	Actual  time.Time `json:"actual_at"`
	Width   int       `json:"width"`
	Height  int       `json:"height"`
	File    string    `json:"file"`
}

// RunDir returns the staging directory for a run.
func RunDir(stagingRoot, runID string) string {
	return filepath.Join(stagingRoot, "run-"+runID)
}

// Save writes the outcome's planes and a manifest into dir. Plane order
// in the manifest matches the outcome's acquisition order.
func Save(dir string, runID, mode, schema string, outcome *acquire.Outcome) (*Manifest, error) {
	if outcome == nil || len(outcome.Results) == 0 {
		return nil, fmt.Errorf("nothing to stage for run %s", runID)
	}

	manifest := &Manifest{
		RunID:       runID,
		Schema:      schema,
		Mode:        mode,
		CanonicalAt: outcome.Canonical,
	}

	for _, result := range outcome.Results {
		name := fmt.Sprintf("ch-%03d.plane", result.Channel)
		if err := fileutil.WriteFileAtomic(filepath.Join(dir, name), result.Plane.Data, 0o644); err != nil {
			return nil, fmt.Errorf("stage channel %d: %w", result.Channel, err)
		}
		manifest.Planes = append(manifest.Planes, PlaneRecord{
			Channel: result.Channel,
			Actual:  result.Actual,
			Width:   result.Plane.Width,
			Height:  result.Plane.Height,
			File:    name,
		})
	}

	encoded, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	if err := fileutil.WriteFileAtomic(filepath.Join(dir, manifestName), encoded, 0o644); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}
	return manifest, nil
}

// Load reads a staged run back into an outcome, preserving the order
// the planes were staged in.
func Load(dir string) (*Manifest, *acquire.Outcome, error) {
	encoded, err := os.ReadFile(filepath.Join(dir, manifestName))
	if err != nil {
		return nil, nil, fmt.Errorf("read manifest: %w", err)
	}

	var manifest Manifest
	if err := json.Unmarshal(encoded, &manifest); err != nil {
		return nil, nil, fmt.Errorf("decode manifest: %w", err)
	}
	if len(manifest.Planes) == 0 {
		return nil, nil, fmt.Errorf("manifest in %s lists no planes", dir)
	}

	outcome := &acquire.Outcome{Canonical: manifest.CanonicalAt}
	for _, record := range manifest.Planes {
		data, err := os.ReadFile(filepath.Join(dir, record.File))
		if err != nil {
			return nil, nil, fmt.Errorf("read staged channel %d: %w", record.Channel, err)
		}
		outcome.Results = append(outcome.Results, acquire.ChannelResult{
			Channel: record.Channel,
			Actual:  record.Actual,
			Plane: raster.Plane{
				Data:   data,
				Width:  record.Width,
				Height: record.Height,
			},
		})
	}
	return &manifest, outcome, nil
}

// Remove deletes a staged run directory.
func Remove(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove staging dir: %w", err)
	}
	return nil
}
