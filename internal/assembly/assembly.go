package assembly

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"helioframe/internal/config"
	"helioframe/internal/container"
	"helioframe/internal/fileutil"
	"helioframe/internal/logging"
	"helioframe/internal/queue"
	"helioframe/internal/services"
	"helioframe/internal/stage"
	"helioframe/internal/staging"
)

// Assembly loads the staged planes of a run, serializes the configured
// container schema, and writes the output file atomically.
type Assembly struct {
	store  *queue.Store
	cfg    *config.Config
	logger *slog.Logger
}

// NewAssembly constructs the assembly stage handler.
func NewAssembly(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Assembly {
	return &Assembly{
		store:  store,
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "assembly"),
	}
}

func (b *Assembly) Prepare(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, b.logger)
	item.ProgressStage = "assembling"
	item.ProgressMessage = fmt.Sprintf("Assembling %s container", item.ContainerSchema)
	item.ErrorMessage = ""
	logger.Info("starting assembly",
		logging.String("schema", item.ContainerSchema),
		logging.String("staged_dir", item.StagedDir),
	)
	return nil
}

func (b *Assembly) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, b.logger)

	schema, err := container.ParseSchema(item.ContainerSchema)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "assembling", "parse schema",
			"run carries an unknown container schema", err)
	}
	if strings.TrimSpace(item.StagedDir) == "" {
		return services.Wrap(services.ErrValidation, "assembling", "validate inputs",
			"no staged planes recorded for this run; run acquisition first", nil)
	}

	_, outcome, err := staging.Load(item.StagedDir)
	if err != nil {
		return services.Wrap(services.ErrAssembly, "assembling", "load staged planes",
			"staged planes missing or unreadable", err)
	}

	encoded, err := container.Assemble(outcome, schema)
	if err != nil {
		return err
	}

	outputPath := b.outputPath(item)
	if err := fileutil.WriteFileAtomic(outputPath, encoded, 0o644); err != nil {
		return services.Wrap(services.ErrAssembly, "assembling", "write container",
			"failed to write container file", err)
	}

	if b.cfg.Container.TimestampSidecar {
		sidecarPath := filepath.Join(b.cfg.Paths.OutputDir, b.cfg.Container.SidecarName)
		// The sidecar is exactly the 19-byte timestamp, no trailing newline.
		sidecar := []byte(container.FormatTimestamp(outcome.Canonical))
		if err := fileutil.WriteFileAtomic(sidecarPath, sidecar, 0o644); err != nil {
			return services.Wrap(services.ErrAssembly, "assembling", "write sidecar",
				"failed to write timestamp sidecar", err)
		}
	}

	if err := staging.Remove(item.StagedDir); err != nil {
		logger.Warn("failed to clean staging directory", logging.Error(err))
	} else {
		item.StagedDir = ""
	}

	item.OutputPath = outputPath
	item.FileSize = int64(len(encoded))
	item.ProgressMessage = fmt.Sprintf("Wrote %s (%d bytes)", filepath.Base(outputPath), len(encoded))

	logger.Info("assembly complete",
		logging.String("output", outputPath),
		logging.Int64("size", int64(len(encoded))),
		logging.Int("records", len(outcome.Results)),
	)
	return nil
}

func (b *Assembly) HealthCheck(ctx context.Context) stage.Health {
	const name = "assembly"
	if b.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	if strings.TrimSpace(b.cfg.Paths.OutputDir) == "" {
		return stage.Unhealthy(name, "output directory not configured")
	}
	if _, err := container.ParseSchema(b.cfg.Container.Schema); err != nil {
		return stage.Unhealthy(name, err.Error())
	}
	return stage.Healthy(name)
}

// outputPath derives a per-run file name by inserting the canonical
// timestamp before the configured name's extension. The daemon produces
// one container per interval; a fixed name would overwrite them.
func (b *Assembly) outputPath(item *queue.Item) string {
	name := b.cfg.Container.OutputName
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	stamp := item.CanonicalAt.UTC().Format("20060102T150405")
	return filepath.Join(b.cfg.Paths.OutputDir, fmt.Sprintf("%s-%s%s", stem, stamp, ext))
}
