package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"helioframe/internal/acquisition"
	"helioframe/internal/assembly"
	"helioframe/internal/daemon"
	"helioframe/internal/logging"
	"helioframe/internal/queue"
	"helioframe/internal/workflow"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run the acquisition daemon until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			store, err := queue.Open(cfg)
			if err != nil {
				return fmt.Errorf("open queue store: %w", err)
			}

			acquireStage, err := acquisition.NewAcquisition(cfg, store, logger)
			if err != nil {
				store.Close()
				return err
			}

			manager := workflow.NewManager(cfg, store, logger)
			manager.ConfigureStages(workflow.StageSet{
				Acquisition: acquireStage,
				Assembly:    assembly.NewAssembly(cfg, store, logger),
			})

			d, err := daemon.New(cfg, store, logger, manager)
			if err != nil {
				store.Close()
				return err
			}
			defer d.Close()

			if err := d.Start(signalCtx); err != nil {
				return err
			}
			logger.Info("daemon running, press Ctrl+C to stop",
				logging.String("mode", cfg.Acquisition.Mode),
				logging.String("schema", cfg.Container.Schema),
				logging.Int("interval_seconds", cfg.Acquisition.Interval),
			)

			<-signalCtx.Done()
			logger.Info("shutdown signal received")
			d.Stop()
			return nil
		},
	}
}
