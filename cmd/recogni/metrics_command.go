package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"recogni/internal/fileutil"
	"recogni/internal/transcript"
)

type metricsReport struct {
	File    string             `json:"file"`
	Metrics transcript.Metrics `json:"metrics"`
}

func newMetricsCommand(ctx *commandContext) *cobra.Command {
	var recompute, write, asJSON bool
	cmd := &cobra.Command{
		Use:   "metrics <json>...",
		Short: "Show the metrics stored in transcription documents",
		Long: `Show the metrics stored in one or more transcription documents.

With --recompute the metrics are recalculated from the stored segments using
the configured phrase table; --write saves the recomputed metrics back.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if write && !recompute {
				return fmt.Errorf("--write requires --recompute")
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			engine, err := metricsEngine(cfg)
			if err != nil {
				return err
			}

			reports := make([]metricsReport, 0, len(args))
			for _, path := range args {
				doc, err := transcript.ReadFile(path)
				if err != nil {
					return err
				}
				if recompute {
					doc.Metrics = engine.Analyze(doc.Transcription)
					if write {
						data, err := transcript.Marshal(doc)
						if err != nil {
							return err
						}
						if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
							return fmt.Errorf("write %s: %w", path, err)
						}
					}
				}
				reports = append(reports, metricsReport{File: path, Metrics: doc.Metrics})
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(cmd, reports)
			}
			fmt.Fprintln(out, renderMetricsSummary(reports))
			if phrases := renderPhraseShares(reports); phrases != "" {
				fmt.Fprintln(out, phrases)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&recompute, "recompute", false, "Recalculate metrics from the stored segments")
	cmd.Flags().BoolVar(&write, "write", false, "Save recomputed metrics back to the document")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func renderMetricsSummary(reports []metricsReport) string {
	rows := make([][]string, 0, len(reports))
	for _, r := range reports {
		top := make([]string, 0, len(r.Metrics.TopWords))
		for _, wc := range r.Metrics.TopWords {
			top = append(top, fmt.Sprintf("%s (%d)", wc.Word, wc.Count))
		}
		rows = append(rows, []string{
			filepath.Base(r.File),
			strconv.Itoa(r.Metrics.TotalWords),
			strconv.FormatFloat(r.Metrics.WordsPerMinute, 'f', 1, 64),
			strings.Join(top, ", "),
		})
	}
	return renderTable(
		[]string{"File", "Words", "WPM", "Top Words"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft},
	)
}

// renderPhraseShares builds a phrase × file table. Rows follow the order in
// which phrases first appear across the reports.
func renderPhraseShares(reports []metricsReport) string {
	var roots []string
	seen := make(map[string]struct{})
	for _, r := range reports {
		for _, share := range r.Metrics.MagicWordPercentages {
			if _, ok := seen[share.Root]; ok {
				continue
			}
			seen[share.Root] = struct{}{}
			roots = append(roots, share.Root)
		}
	}
	if len(roots) == 0 {
		return ""
	}

	headers := []string{"Phrase"}
	aligns := []columnAlignment{alignLeft}
	for _, r := range reports {
		headers = append(headers, filepath.Base(r.File))
		aligns = append(aligns, alignRight)
	}
	rows := make([][]string, 0, len(roots))
	for _, root := range roots {
		row := []string{root}
		for _, r := range reports {
			if pct, ok := r.Metrics.MagicWordPercentages.Get(root); ok {
				row = append(row, strconv.FormatFloat(pct, 'f', 2, 64)+"%")
			} else {
				row = append(row, "-")
			}
		}
		rows = append(rows, row)
	}
	return renderTable(headers, rows, aligns)
}
