package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"recogni/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var (
		lines  int
		follow bool
		list   bool
	)
	cmd := &cobra.Command{
		Use:   "logs [file]",
		Short: "Show the latest run log",
		Long: `Show the last lines of a run log. Without an argument the newest
transcription_*.log in paths.log_dir is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if list {
				runs, err := logs.RunLogs(cfg.Paths.LogDir)
				if err != nil {
					return err
				}
				if len(runs) == 0 {
					fmt.Fprintf(out, "No run logs in %s\n", cfg.Paths.LogDir)
					return nil
				}
				rows := make([][]string, 0, len(runs))
				for _, run := range runs {
					rows = append(rows, []string{
						filepath.Base(run.Path),
						strconv.FormatInt(run.Size, 10),
						run.ModTime.Local().Format("2006-01-02 15:04:05"),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Log", "Size", "Modified"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignLeft},
				))
				return nil
			}

			path := ""
			if len(args) == 1 {
				path = args[0]
				if filepath.Base(path) == path {
					path = filepath.Join(cfg.Paths.LogDir, path)
				}
			} else if path, err = logs.Latest(cfg.Paths.LogDir); err != nil {
				return err
			}

			result, err := logs.Tail(path, lines)
			if err != nil {
				return err
			}
			for _, line := range result.Lines {
				fmt.Fprintln(out, line)
			}
			if !follow {
				return nil
			}
			err = logs.Follow(cmd.Context(), path, result.Offset, logs.DefaultPollInterval, func(batch []string) error {
				for _, line := range batch {
					fmt.Fprintln(out, line)
				}
				return nil
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to show (0 for all)")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing appended lines until interrupted")
	cmd.Flags().BoolVar(&list, "list", false, "List run logs instead of printing one")
	return cmd
}
