package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"easel/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lineCount int
	var follow bool

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent collection log output",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logPath := filepath.Join(cfg.Paths.LogDir, "easel.log")
			out := cmd.OutOrStdout()

			lines, offset, err := logs.LastLines(logPath, lineCount)
			if err != nil {
				return err
			}
			for _, line := range lines {
				fmt.Fprintln(out, line)
			}
			if !follow {
				if len(lines) == 0 {
					fmt.Fprintf(out, "No log output at %s yet.\n", logPath)
				}
				return nil
			}

			followCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			err = logs.Follow(followCtx, logPath, offset, func(line string) {
				fmt.Fprintln(out, line)
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().IntVarP(&lineCount, "lines", "n", 50, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Stream new log lines until interrupted")
	return cmd
}
