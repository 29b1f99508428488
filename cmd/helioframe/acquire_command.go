package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"helioframe/internal/acquisition"
	"helioframe/internal/assembly"
	"helioframe/internal/config"
	"helioframe/internal/container"
	"helioframe/internal/queue"
	"helioframe/internal/services"
	"helioframe/internal/stage"
	"helioframe/internal/staging"
)

// nominalLayouts lists the accepted --time formats.
var nominalLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05"}

func newAcquireCommand(ctx *commandContext) *cobra.Command {
	var (
		timeFlag     string
		modeFlag     string
		schemaFlag   string
		channelsFlag []int
	)

	cmd := &cobra.Command{
		Use:   "acquire",
		Short: "Run a single acquisition and write the container",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := applyOverrides(cfg, modeFlag, schemaFlag, channelsFlag); err != nil {
				return err
			}

			nominal, err := parseNominal(timeFlag)
			if err != nil {
				return err
			}

			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				runCtx := cmd.Context()
				item, err := store.NewRun(runCtx, cfg.Acquisition.Mode, cfg.Container.Schema, cfg.ChannelSet(), nominal)
				if err != nil {
					return fmt.Errorf("enqueue run: %w", err)
				}

				acquireStage, err := acquisition.NewAcquisition(cfg, store, logger)
				if err != nil {
					return err
				}
				assembleStage := assembly.NewAssembly(cfg, store, logger)

				item.Status = queue.StatusAcquiring
				if err := runStage(runCtx, store, item, acquireStage); err != nil {
					return failRun(runCtx, store, item, err)
				}

				// The manifest is read before assembly removes the staged
				// planes; it feeds the per-channel summary below.
				manifest, _, loadErr := staging.Load(item.StagedDir)

				item.Status = queue.StatusAssembling
				if err := runStage(runCtx, store, item, assembleStage); err != nil {
					return failRun(runCtx, store, item, err)
				}

				item.Status = queue.StatusCompleted
				item.ProgressStage = "completed"
				if err := store.Update(runCtx, item); err != nil {
					return fmt.Errorf("persist run completion: %w", err)
				}

				out := cmd.OutOrStdout()
				if loadErr == nil {
					printChannelSummary(out, manifest, item.CanonicalAt)
				}
				fmt.Fprintf(out, "Canonical timestamp: %s\n", container.FormatTimestamp(item.CanonicalAt))
				fmt.Fprintf(out, "Container: %s (%d bytes, %s schema)\n",
					item.OutputPath, item.FileSize, item.ContainerSchema)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&timeFlag, "time", "t", "", "Nominal observation time (RFC3339; defaults to now)")
	cmd.Flags().StringVarP(&modeFlag, "mode", "m", "", "Reconciliation mode override (independent, anchored, single)")
	cmd.Flags().StringVarP(&schemaFlag, "schema", "s", "", "Container schema override (raw, composite, compressed)")
	cmd.Flags().IntSliceVar(&channelsFlag, "channels", nil, "Channel identifiers override")
	return cmd
}

func runStage(ctx context.Context, store *queue.Store, item *queue.Item, handler stage.Handler) error {
	if err := store.Update(ctx, item); err != nil {
		return fmt.Errorf("persist stage transition: %w", err)
	}
	if err := handler.Prepare(ctx, item); err != nil {
		return err
	}
	if err := store.Update(ctx, item); err != nil {
		return fmt.Errorf("persist stage preparation: %w", err)
	}
	if err := handler.Execute(ctx, item); err != nil {
		return err
	}
	return store.Update(ctx, item)
}

func failRun(ctx context.Context, store *queue.Store, item *queue.Item, runErr error) error {
	item.Status = queue.StatusFailed
	item.ErrorMessage = runErr.Error()
	item.ProgressStage = "failed"
	if err := store.Update(ctx, item); err != nil {
		return fmt.Errorf("persist run failure (%v): %w", runErr, err)
	}
	if services.IsFatal(runErr) {
		return fmt.Errorf("run failed: %w", runErr)
	}
	return fmt.Errorf("run failed (transient, worth retrying): %w", runErr)
}

func applyOverrides(cfg *config.Config, mode, schema string, channels []int) error {
	if mode != "" {
		cfg.Acquisition.Mode = mode
	}
	if schema != "" {
		cfg.Container.Schema = schema
	}
	if len(channels) > 0 {
		cfg.Acquisition.Channels = channels
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("effective configuration invalid: %w", err)
	}
	return nil
}

func parseNominal(value string) (time.Time, error) {
	if value == "" {
		return time.Now().UTC(), nil
	}
	for _, layout := range nominalLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q (expected RFC3339 or %q)", value, nominalLayouts[1])
}

func printChannelSummary(out io.Writer, manifest *staging.Manifest, canonical time.Time) {
	rows := make([][]string, 0, len(manifest.Planes))
	for _, plane := range manifest.Planes {
		delta := plane.Actual.Sub(canonical).Round(time.Millisecond)
		rows = append(rows, []string{
			strconv.Itoa(plane.Channel),
			container.FormatTimestamp(plane.Actual),
			delta.String(),
			fmt.Sprintf("%dx%d", plane.Width, plane.Height),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Channel", "Actual", "Delta", "Dimensions"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignRight, alignRight},
	))
}
