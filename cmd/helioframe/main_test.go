package main

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"helioframe/internal/config"
)

func writeTestConfig(t *testing.T, cfg *config.Config) string {
	t.Helper()
	encoded, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.OutputDir = filepath.Join(base, "output")
	cfg.Paths.WorkDir = filepath.Join(base, "work")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	return &cfg
}

func runCLI(t *testing.T, configPath string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--config", configPath))
	err := cmd.Execute()
	return out.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("output %q does not contain %q", haystack, needle)
	}
}

func TestConfigInitCommand(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")
	cfgPath := writeTestConfig(t, testConfig(t))

	out, err := runCLI(t, cfgPath, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")

	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	// A second init without --overwrite refuses to clobber the file.
	if _, err := runCLI(t, cfgPath, "config", "init", "--path", target); err == nil {
		t.Fatal("expected error when target exists")
	}
}

func TestConfigShowCommand(t *testing.T) {
	cfgPath := writeTestConfig(t, testConfig(t))

	out, err := runCLI(t, cfgPath, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "[acquisition]")
	requireContains(t, out, "[container]")
}

func TestQueueCommandsOnEmptyQueue(t *testing.T) {
	cfgPath := writeTestConfig(t, testConfig(t))

	out, err := runCLI(t, cfgPath, "queue", "list")
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	requireContains(t, out, "Queue is empty")

	out, err = runCLI(t, cfgPath, "queue", "retry")
	if err != nil {
		t.Fatalf("queue retry: %v", err)
	}
	requireContains(t, out, "Reset 0 failed run(s)")

	out, err = runCLI(t, cfgPath, "queue", "health")
	if err != nil {
		t.Fatalf("queue health: %v", err)
	}
	requireContains(t, out, "Total")
}

func TestAcquireCommandEndToEnd(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8(x * y)})
		}
	}
	var encoded bytes.Buffer
	if err := png.Encode(&encoded, img); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Disposition",
			`attachment; filename="2023_04_12__06_30_04__SDO_TEST.jp2"`)
		w.Write(encoded.Bytes())
	}))
	defer server.Close()

	cfg := testConfig(t)
	cfg.Source.BaseURL = server.URL
	cfg.Acquisition.Mode = config.ModeSingle
	cfg.Acquisition.Channels = []int{19}
	cfg.Container.Schema = config.SchemaRaw
	cfgPath := writeTestConfig(t, cfg)

	out, err := runCLI(t, cfgPath, "acquire", "--time", "2023-04-12T06:30:00Z")
	if err != nil {
		t.Fatalf("acquire: %v\noutput: %s", err, out)
	}
	requireContains(t, out, "Canonical timestamp: 2023-04-12 06:30:04")
	requireContains(t, out, "raw schema")

	entries, err := os.ReadDir(cfg.Paths.OutputDir)
	if err != nil {
		t.Fatalf("read output dir: %v", err)
	}
	var containerSeen bool
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".dat") {
			containerSeen = true
			info, err := entry.Info()
			if err != nil {
				t.Fatalf("stat container: %v", err)
			}
			// 1 count byte + 19 byte timestamp + record header + 4x4 plane.
			if info.Size() == 0 {
				t.Error("container file is empty")
			}
			requireContains(t, out, fmt.Sprintf("%d bytes", info.Size()))
		}
	}
	if !containerSeen {
		t.Fatal("no container file written")
	}
}

func TestAcquireCommandFailsWhenSourceUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer server.Close()

	cfg := testConfig(t)
	cfg.Source.BaseURL = server.URL
	cfg.Acquisition.Mode = config.ModeSingle
	cfg.Acquisition.Channels = []int{19}
	cfg.Container.Schema = config.SchemaRaw
	cfgPath := writeTestConfig(t, cfg)

	if _, err := runCLI(t, cfgPath, "acquire"); err == nil {
		t.Fatal("expected acquire to fail against an erroring source")
	}
}

func TestLogsCommandShowsTrailingLines(t *testing.T) {
	cfg := testConfig(t)
	cfgPath := writeTestConfig(t, cfg)

	if err := os.MkdirAll(cfg.Paths.LogDir, 0o755); err != nil {
		t.Fatalf("create log dir: %v", err)
	}
	logFile := filepath.Join(cfg.Paths.LogDir, "helioframe.log")
	if err := os.WriteFile(logFile, []byte("first\nsecond\nthird\n"), 0o644); err != nil {
		t.Fatalf("write log file: %v", err)
	}

	out, err := runCLI(t, cfgPath, "logs", "--lines", "2")
	if err != nil {
		t.Fatalf("logs command failed: %v", err)
	}
	if strings.Contains(out, "first") {
		t.Fatalf("output %q should not contain the oldest line", out)
	}
	requireContains(t, out, "second")
	requireContains(t, out, "third")
}
