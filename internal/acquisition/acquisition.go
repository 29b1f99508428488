package acquisition

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"helioframe/internal/acquire"
	"helioframe/internal/config"
	"helioframe/internal/logging"
	"helioframe/internal/queue"
	"helioframe/internal/raster"
	"helioframe/internal/services"
	"helioframe/internal/source"
	"helioframe/internal/stage"
	"helioframe/internal/staging"
)

// Acquisition fetches and normalizes every requested channel, reconciles
// the canonical timestamp, and stages the planes for assembly.
type Acquisition struct {
	store   *queue.Store
	cfg     *config.Config
	logger  *slog.Logger
	fetcher source.Fetcher
}

// NewAcquisition constructs the acquisition stage handler with an HTTP
// client built from the configured source.
func NewAcquisition(cfg *config.Config, store *queue.Store, logger *slog.Logger) (*Acquisition, error) {
	client, err := source.New(
		cfg.Source.BaseURL,
		cfg.Source.UserAgent,
		time.Duration(cfg.Source.RequestTimeout)*time.Second,
	)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "acquiring", "build source client",
			"channel source client could not be constructed", err)
	}
	return NewAcquisitionWithFetcher(cfg, store, logger, client), nil
}

// NewAcquisitionWithFetcher allows injecting the channel fetcher (used in tests).
func NewAcquisitionWithFetcher(cfg *config.Config, store *queue.Store, logger *slog.Logger, fetcher source.Fetcher) *Acquisition {
	return &Acquisition{
		store:   store,
		cfg:     cfg,
		logger:  logging.NewComponentLogger(logger, "acquisition"),
		fetcher: fetcher,
	}
}

func (a *Acquisition) Prepare(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, a.logger)
	item.ProgressStage = "acquiring"
	item.ProgressMessage = fmt.Sprintf("Fetching channels %s", item.ChannelList())
	item.ErrorMessage = ""
	logger.Info("starting acquisition",
		logging.String("mode", item.Mode),
		logging.String("channels", item.ChannelList()),
		logging.Time("nominal", item.NominalAt),
	)
	return nil
}

func (a *Acquisition) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, a.logger)

	req, err := a.buildRequest(item)
	if err != nil {
		return err
	}

	outcome, err := acquire.New(a.fetcher, a.logger).Acquire(ctx, req)
	if err != nil {
		return err
	}

	dir := staging.RunDir(a.cfg.Paths.WorkDir, item.RunID)
	if _, err := staging.Save(dir, item.RunID, item.Mode, item.ContainerSchema, outcome); err != nil {
		return services.Wrap(services.ErrAssembly, "acquiring", "stage planes",
			"failed to persist acquired planes", err)
	}

	item.CanonicalAt = outcome.Canonical
	item.StagedDir = dir
	item.ProgressMessage = fmt.Sprintf("%d of %d channels acquired", len(outcome.Results), len(item.Channels))

	logger.Info("acquisition complete",
		logging.Int("acquired", len(outcome.Results)),
		logging.Int("requested", len(item.Channels)),
		logging.Time("canonical", outcome.Canonical),
	)
	return nil
}

func (a *Acquisition) HealthCheck(ctx context.Context) stage.Health {
	const name = "acquisition"
	if a.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	if strings.TrimSpace(a.cfg.Source.BaseURL) == "" {
		return stage.Unhealthy(name, "source base URL not configured")
	}
	if strings.TrimSpace(a.cfg.Paths.WorkDir) == "" {
		return stage.Unhealthy(name, "work directory not configured")
	}
	if a.fetcher == nil {
		return stage.Unhealthy(name, "channel fetcher unavailable")
	}
	return stage.Healthy(name)
}

func (a *Acquisition) buildRequest(item *queue.Item) (acquire.Request, error) {
	mode, err := acquire.ParseMode(item.Mode)
	if err != nil {
		return acquire.Request{}, services.Wrap(services.ErrConfiguration, "acquiring", "parse mode",
			"run carries an unknown reconciliation mode", err)
	}

	channels := item.Channels
	reference := a.cfg.Acquisition.ReferenceChannel
	if mode == acquire.ModeAnchored {
		// The queue stores the full channel set; the acquirer wants the
		// followers and the reference separately.
		followers := make([]int, 0, len(channels))
		for _, channel := range channels {
			if channel != reference {
				followers = append(followers, channel)
			}
		}
		channels = followers
	}

	return acquire.Request{
		Nominal:   item.NominalAt,
		Mode:      mode,
		Channels:  channels,
		Reference: reference,
		Policy:    policyFor(item.ContainerSchema, a.cfg),
		Precision: precisionFor(item.ContainerSchema),
	}, nil
}

// policyFor selects the resampling and color policy the container schema
// needs. Composite interleave requires pixel-aligned planes, so it pins
// every channel to the fixed target size.
func policyFor(schema string, cfg *config.Config) raster.Policy {
	switch schema {
	case config.SchemaComposite:
		return raster.Policy{
			Rule:   raster.FitToSize,
			Width:  cfg.Raster.TargetWidth,
			Height: cfg.Raster.TargetHeight,
			Color:  raster.Grayscale,
		}
	case config.SchemaCompressed:
		return raster.Policy{
			Rule:   raster.ScaleByFactor,
			Factor: cfg.Raster.ScaleFactor,
			Color:  raster.CompressedPNG,
		}
	default:
		return raster.Policy{
			Rule:   raster.ScaleByFactor,
			Factor: cfg.Raster.ScaleFactor,
			Color:  raster.Grayscale,
		}
	}
}

// precisionFor returns the filename timestamp precision. Only the
// compressed schema keeps sub-second information.
func precisionFor(schema string) source.Precision {
	if schema == config.SchemaCompressed {
		return source.PrecisionMillisecond
	}
	return source.PrecisionSecond
}
