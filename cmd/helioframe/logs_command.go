package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"helioframe/internal/logging"
	"helioframe/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var (
		follow bool
		lines  int
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent daemon log output",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := logging.FilePath(cfg)
			if path == "" {
				return fmt.Errorf("no log directory configured")
			}
			return logs.Tail(cmd.Context(), path, logs.TailOptions{
				Lines:  lines,
				Follow: follow,
			}, cmd.OutOrStdout())
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "number of trailing lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "keep streaming new log lines")

	return cmd
}
