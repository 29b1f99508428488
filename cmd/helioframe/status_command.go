package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"helioframe/internal/acquisition"
	"helioframe/internal/assembly"
	"helioframe/internal/config"
	"helioframe/internal/queue"
	"helioframe/internal/workflow"
)

const (
	ansiGreen = "\x1b[32m"
	ansiRed   = "\x1b[31m"
	ansiReset = "\x1b[0m"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show stage health and queue summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				acquireStage, err := acquisition.NewAcquisition(cfg, store, logger)
				if err != nil {
					return err
				}

				manager := workflow.NewManager(cfg, store, logger)
				manager.ConfigureStages(workflow.StageSet{
					Acquisition: acquireStage,
					Assembly:    assembly.NewAssembly(cfg, store, logger),
				})
				summary := manager.Status(cmd.Context())

				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)

				rows := make([][]string, 0, len(summary.StageHealth))
				for _, name := range []string{"acquisition", "assembly"} {
					health, ok := summary.StageHealth[name]
					if !ok {
						continue
					}
					state := "ready"
					if !health.Ready {
						state = "unavailable"
					}
					if colorize {
						if health.Ready {
							state = ansiGreen + state + ansiReset
						} else {
							state = ansiRed + state + ansiReset
						}
					}
					rows = append(rows, []string{titleLabel(name), state, health.Detail})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Stage", "State", "Detail"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft},
				))

				fmt.Fprintf(out, "Queue: %s total, %s pending, %s processing, %s completed, %s failed\n",
					strconv.Itoa(summary.Queue.Total),
					strconv.Itoa(summary.Queue.Pending),
					strconv.Itoa(summary.Queue.Processing),
					strconv.Itoa(summary.Queue.Completed),
					strconv.Itoa(summary.Queue.Failed),
				)
				return nil
			})
		},
	}
}
