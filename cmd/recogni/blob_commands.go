package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"recogni/internal/blobstore"
	"recogni/internal/config"
)

const (
	kindAudio = "audio"
	kindJSON  = "json"
	kindLogs  = "logs"
)

type blobOptions struct {
	container string
}

func newBlobCommand(ctx *commandContext) *cobra.Command {
	opts := &blobOptions{}
	cmd := &cobra.Command{
		Use:   "blob",
		Short: "Transfer files to and from the configured blob store",
	}
	cmd.PersistentFlags().StringVar(&opts.container, "container", kindJSON, "Container kind: audio, json or logs")

	cmd.AddCommand(
		newBlobListCommand(ctx, opts),
		newBlobDownloadCommand(ctx, opts),
		newBlobDownloadAllCommand(ctx, opts),
		newBlobUploadCommand(ctx, opts),
		newBlobUploadDirCommand(ctx, opts),
		newBlobCatCommand(ctx, opts),
		newBlobDeleteCommand(ctx, opts),
		newBlobIngestCommand(ctx),
	)
	return cmd
}

func openBlobStore(cmd *cobra.Command, ctx *commandContext, kind string) (blobstore.Store, *config.Config, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	if !cfg.BlobEnabled() {
		return nil, nil, errors.New("no blob store configured (set blob.provider)")
	}
	container, err := cfg.Container(kind)
	if err != nil {
		return nil, nil, err
	}
	store, err := blobstore.Open(cmd.Context(), cfg.Blob, container)
	if err != nil {
		return nil, nil, err
	}
	return store, cfg, nil
}

func newBlobListCommand(ctx *commandContext, opts *blobOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list [prefix]",
		Short: "List blobs in a container",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := openBlobStore(cmd, ctx, opts.container)
			if err != nil {
				return err
			}
			defer blobstore.Close(store)

			prefix := ""
			if len(args) == 1 {
				prefix = args[0]
			}
			objects, err := store.List(cmd.Context(), prefix)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, objects)
			}
			out := cmd.OutOrStdout()
			if len(objects) == 0 {
				fmt.Fprintf(out, "No blobs in %s\n", store.Location())
				return nil
			}
			rows := make([][]string, 0, len(objects))
			for _, obj := range objects {
				modified := "-"
				if !obj.LastModified.IsZero() {
					modified = obj.LastModified.Local().Format("2006-01-02 15:04:05")
				}
				rows = append(rows, []string{obj.Name, strconv.FormatInt(obj.Size, 10), modified})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Name", "Size", "Modified"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newBlobDownloadCommand(ctx *commandContext, opts *blobOptions) *cobra.Command {
	var dest string
	cmd := &cobra.Command{
		Use:   "download <name>...",
		Short: "Download blobs into a local directory",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cfg, err := openBlobStore(cmd, ctx, opts.container)
			if err != nil {
				return err
			}
			defer blobstore.Close(store)
			if dest == "" {
				dest = cfg.Paths.DownloadDir
			}
			out := cmd.OutOrStdout()
			for _, name := range args {
				path, err := blobstore.DownloadFile(cmd.Context(), store, name, dest)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Downloaded %s -> %s\n", name, path)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dest, "dest", "", "Destination directory (default paths.download_dir)")
	return cmd
}

func newBlobDownloadAllCommand(ctx *commandContext, opts *blobOptions) *cobra.Command {
	var dest string
	cmd := &cobra.Command{
		Use:   "download-all [prefix]",
		Short: "Download every blob not already present locally",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cfg, err := openBlobStore(cmd, ctx, opts.container)
			if err != nil {
				return err
			}
			defer blobstore.Close(store)
			logger, err := ctx.runLogger()
			if err != nil {
				return err
			}
			if dest == "" {
				dest = cfg.Paths.DownloadDir
			}
			prefix := ""
			if len(args) == 1 {
				prefix = args[0]
			}
			report, err := blobstore.DownloadAll(cmd.Context(), store, prefix, dest, logger)
			printTransfer(cmd.OutOrStdout(), "Downloaded", report)
			if err != nil {
				return err
			}
			return report.Err()
		},
	}
	cmd.Flags().StringVar(&dest, "dest", "", "Destination directory (default paths.download_dir)")
	return cmd
}

func newBlobUploadCommand(ctx *commandContext, opts *blobOptions) *cobra.Command {
	var overwrite bool
	cmd := &cobra.Command{
		Use:   "upload <file>...",
		Short: "Upload files under their base names",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := openBlobStore(cmd, ctx, opts.container)
			if err != nil {
				return err
			}
			defer blobstore.Close(store)
			logger, err := ctx.runLogger()
			if err != nil {
				return err
			}
			report, err := blobstore.UploadFiles(cmd.Context(), store, args, overwrite, logger)
			printTransfer(cmd.OutOrStdout(), "Uploaded", report)
			if err != nil {
				return err
			}
			return report.Err()
		},
	}
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace blobs that already exist")
	return cmd
}

func newBlobUploadDirCommand(ctx *commandContext, opts *blobOptions) *cobra.Command {
	var (
		overwrite bool
		ext       string
	)
	cmd := &cobra.Command{
		Use:   "upload-dir [dir]",
		Short: "Upload every matching file of a directory",
		Long: `Upload every regular file of a directory whose extension matches --ext.

Defaults depend on --container: audio uploads paths.download_dir with
transcription.audio_extension, json uploads paths.output_dir with .json and
logs uploads paths.log_dir with .log.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cfg, err := openBlobStore(cmd, ctx, opts.container)
			if err != nil {
				return err
			}
			defer blobstore.Close(store)
			logger, err := ctx.runLogger()
			if err != nil {
				return err
			}
			dir, defaultExt := kindDefaults(cfg, opts.container)
			if len(args) == 1 {
				dir = args[0]
			}
			if !cmd.Flags().Changed("ext") {
				ext = defaultExt
			}
			report, err := blobstore.UploadDir(cmd.Context(), store, dir, ext, overwrite, logger)
			printTransfer(cmd.OutOrStdout(), "Uploaded", report)
			if err != nil {
				return err
			}
			return report.Err()
		},
	}
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace blobs that already exist")
	cmd.Flags().StringVar(&ext, "ext", "", "File extension to upload (empty uploads every file)")
	return cmd
}

func newBlobCatCommand(ctx *commandContext, opts *blobOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "cat <name>",
		Short: "Print a blob to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := openBlobStore(cmd, ctx, opts.container)
			if err != nil {
				return err
			}
			defer blobstore.Close(store)
			content, err := blobstore.ReadString(cmd.Context(), store, args[0])
			if err != nil {
				return err
			}
			_, err = io.WriteString(cmd.OutOrStdout(), content)
			return err
		},
	}
}

func newBlobDeleteCommand(ctx *commandContext, opts *blobOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>...",
		Short: "Delete blobs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := openBlobStore(cmd, ctx, opts.container)
			if err != nil {
				return err
			}
			defer blobstore.Close(store)
			out := cmd.OutOrStdout()
			for _, name := range args {
				if err := store.Delete(cmd.Context(), name); err != nil {
					return fmt.Errorf("delete %s: %w", name, err)
				}
				fmt.Fprintf(out, "Deleted %s\n", name)
			}
			return nil
		},
	}
}

// newBlobIngestCommand pushes the local output and log directories to their
// containers in one pass.
func newBlobIngestCommand(ctx *commandContext) *cobra.Command {
	var overwrite, withAudio bool
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Upload JSON documents and run logs to their containers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.BlobEnabled() {
				return errors.New("no blob store configured (set blob.provider)")
			}
			logger, err := ctx.runLogger()
			if err != nil {
				return err
			}
			kinds := []string{kindJSON, kindLogs}
			if withAudio {
				kinds = append([]string{kindAudio}, kinds...)
			}
			var errs []error
			for _, kind := range kinds {
				if err := ingestKind(cmd, ctx, cfg, kind, overwrite, logger); err != nil {
					errs = append(errs, fmt.Errorf("%s: %w", kind, err))
				}
			}
			return errors.Join(errs...)
		},
	}
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace blobs that already exist")
	cmd.Flags().BoolVar(&withAudio, "audio", false, "Also upload the audio files in paths.download_dir")
	return cmd
}

func ingestKind(cmd *cobra.Command, ctx *commandContext, cfg *config.Config, kind string, overwrite bool, logger *slog.Logger) error {
	store, _, err := openBlobStore(cmd, ctx, kind)
	if err != nil {
		return err
	}
	defer blobstore.Close(store)
	dir, ext := kindDefaults(cfg, kind)
	report, err := blobstore.UploadDir(cmd.Context(), store, dir, ext, overwrite, logger)
	fmt.Fprintf(cmd.OutOrStdout(), "[%s] ", kind)
	printTransfer(cmd.OutOrStdout(), "Uploaded", report)
	if err != nil {
		return err
	}
	return report.Err()
}

func kindDefaults(cfg *config.Config, kind string) (string, string) {
	switch kind {
	case kindAudio, "audios":
		return cfg.Paths.DownloadDir, cfg.Transcription.AudioExtension
	case kindLogs, "log":
		return cfg.Paths.LogDir, ".log"
	default:
		return cfg.Paths.OutputDir, ".json"
	}
}

func printTransfer(out io.Writer, verb string, report blobstore.TransferReport) {
	fmt.Fprintf(out, "%s: %d  Skipped: %d  Failed: %d\n",
		verb, len(report.Transferred), len(report.Skipped), len(report.Failed))
	for _, f := range report.Failed {
		fmt.Fprintf(out, "  %s: %v\n", f.Name, f.Err)
	}
}
