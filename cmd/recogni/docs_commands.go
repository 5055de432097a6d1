package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"recogni/internal/config"
	"recogni/internal/docstore"
)

func newDocsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docs",
		Short: "Manage transcription documents in the document store",
	}
	cmd.AddCommand(newDocsIngestCommand(ctx))
	cmd.AddCommand(newDocsListCommand(ctx))
	cmd.AddCommand(newDocsShowCommand(ctx))
	return cmd
}

func openDocStore(cmd *cobra.Command, ctx *commandContext) (docstore.Store, *config.Config, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	if !cfg.DocStoreEnabled() {
		return nil, nil, errors.New("no document store configured (set docstore.provider)")
	}
	store, err := docstore.Open(cmd.Context(), cfg.DocStore)
	if err != nil {
		return nil, nil, err
	}
	return store, cfg, nil
}

func newDocsIngestCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest [dir]",
		Short: "Insert every transcription JSON in a directory",
		Long: `Insert every *.json file carrying a "transcription" key into the document
store. The directory defaults to paths.output_dir. Each file gets a fresh id.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cfg, err := openDocStore(cmd, ctx)
			if err != nil {
				return err
			}
			defer store.Close()
			logger, err := ctx.runLogger()
			if err != nil {
				return err
			}
			dir := cfg.Paths.OutputDir
			if len(args) == 1 {
				dir = args[0]
			}

			report, err := docstore.IngestDir(cmd.Context(), store, dir, nil, logger)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Inserted: %d  Skipped: %d  Failed: %d\n",
				len(report.Inserted), len(report.Skipped), len(report.Failed))
			for _, rec := range report.Inserted {
				fmt.Fprintf(out, "  %s  %s\n", rec.ID, audioLabel(rec))
			}
			if err != nil {
				return err
			}
			if len(report.Failed) == 0 {
				return nil
			}
			names := make([]string, 0, len(report.Failed))
			for name := range report.Failed {
				names = append(names, name)
			}
			sort.Strings(names)
			errs := make([]error, 0, len(names))
			for _, name := range names {
				fmt.Fprintf(out, "  %s: %v\n", name, report.Failed[name])
				errs = append(errs, fmt.Errorf("%s: %w", name, report.Failed[name]))
			}
			return errors.Join(errs...)
		},
	}
}

func newDocsListCommand(ctx *commandContext) *cobra.Command {
	var (
		limit  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored documents, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := openDocStore(cmd, ctx)
			if err != nil {
				return err
			}
			defer store.Close()
			records, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, records)
			}
			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No documents stored")
				return nil
			}
			rows := make([][]string, 0, len(records))
			for _, rec := range records {
				rows = append(rows, []string{
					rec.ID,
					audioLabel(rec),
					rec.ProcessedAt.Local().Format("2006-01-02 15:04:05"),
					strconv.Itoa(rec.Metrics.TotalWords),
					strconv.FormatFloat(rec.Metrics.WordsPerMinute, 'f', 1, 64),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Audio", "Processed", "Words", "WPM"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight},
			))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum documents to list (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newDocsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print one stored document as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := openDocStore(cmd, ctx)
			if err != nil {
				return err
			}
			defer store.Close()
			rec, err := store.Get(cmd.Context(), args[0])
			if errors.Is(err, docstore.ErrNotFound) {
				return fmt.Errorf("document %s not found", args[0])
			}
			if err != nil {
				return err
			}
			return writeJSON(cmd, rec)
		},
	}
}

// audioLabel is the base name shown for a record without an audio name.
func audioLabel(rec docstore.Record) string {
	if rec.AudioName != "" {
		return rec.AudioName
	}
	return filepath.Base(rec.AudioPath)
}
