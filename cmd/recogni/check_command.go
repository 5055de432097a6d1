package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"recogni/internal/config"
	"recogni/internal/deps"
	"recogni/internal/language"
	"recogni/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check the transcription helper, GPU and configured stores",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			statuses := preflight.CheckSystemDeps(cmd.Context(), cfg, ctx.runner)

			lines := renderSectionHeader("Dependencies", colorize)
			lines = append(lines, dependencyLines(statuses, colorize)...)

			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Transcription", colorize)...)
			lines = append(lines, renderStatusLine("Model", statusInfo, cfg.Transcription.Model, colorize))
			lines = append(lines, renderStatusLine("Language", statusInfo, language.DisplayName(cfg.Transcription.Language), colorize))
			gpus := deps.DetectCUDA(cmd.Context(), ctx.runner)
			switch {
			case len(gpus) > 0:
				names := make([]string, 0, len(gpus))
				for _, gpu := range gpus {
					names = append(names, fmt.Sprintf("%s: %s", gpu.Index, gpu.Name))
				}
				lines = append(lines, renderStatusLine("CUDA", statusOK, strings.Join(names, "; "), colorize))
			case cfg.Transcription.Device == config.DeviceCUDA:
				lines = append(lines, renderStatusLine("CUDA", statusWarn, "no device found; transcription falls back to cpu", colorize))
			default:
				lines = append(lines, renderStatusLine("CUDA", statusInfo, "not used (device "+cfg.Transcription.Device+")", colorize))
			}

			engine, err := metricsEngine(cfg)
			if err != nil {
				return err
			}
			table := engine.Phrases()
			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Metrics", colorize)...)
			lines = append(lines, renderStatusLine("Magic phrases", statusInfo, fmt.Sprintf("%d roots, top %d words", table.Len(), engine.TopN()), colorize))
			for _, root := range table.Roots() {
				pattern, _ := table.Pattern(root)
				lines = append(lines, renderStatusLine(root, statusInfo, pattern, colorize))
			}

			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Paths and stores", colorize)...)
			results := preflight.RunAll(cmd.Context(), cfg)
			for _, r := range results {
				kind := statusOK
				if !r.Passed {
					kind = statusError
				}
				lines = append(lines, renderStatusLine(r.Name, kind, r.Detail, colorize))
			}
			if !cfg.BlobEnabled() {
				lines = append(lines, renderStatusLine("Blob store", statusInfo, "not configured", colorize))
			}
			if !cfg.DocStoreEnabled() {
				lines = append(lines, renderStatusLine("Document store", statusInfo, "not configured", colorize))
			}
			if cfg.NotificationsEnabled() {
				lines = append(lines, renderStatusLine("Notifications", statusInfo, cfg.Notifications.NtfyTopic, colorize))
			} else {
				lines = append(lines, renderStatusLine("Notifications", statusInfo, "disabled", colorize))
			}

			for _, line := range lines {
				fmt.Fprintln(out, line)
			}
			if failed := len(deps.Missing(statuses)) + len(preflight.Failed(results)); failed > 0 {
				return fmt.Errorf("%d readiness check(s) failed", failed)
			}
			return nil
		},
	}
}
