package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"recogni/internal/batch"
	"recogni/internal/blobstore"
	"recogni/internal/config"
	"recogni/internal/deps"
	"recogni/internal/docstore"
	"recogni/internal/language"
	"recogni/internal/logging"
	"recogni/internal/metrics"
	"recogni/internal/notifications"
	"recogni/internal/preflight"
	"recogni/internal/services/whisper"
)

type transcribeOptions struct {
	prompt       string
	model        string
	beamSize     int
	device       string
	computeType  string
	language     string
	launcher     string
	outputDir    string
	audioExt     string
	topN         int
	skipExisting bool
	store        bool
	upload       bool
	overwrite    bool
}

func newTranscribeCommand(ctx *commandContext) *cobra.Command {
	opts := &transcribeOptions{}
	cmd := &cobra.Command{
		Use:   "transcribe <audio_path>",
		Short: "Transcribe an audio file or a directory of audio files",
		Long: `Transcribe an audio file, or every audio file directly inside a directory,
and write <output_dir>/<name>.json with the segments and transcript metrics.

Examples:
  recogni transcribe call.wav
  recogni transcribe ./audios --device cpu --compute_type int8
  recogni transcribe ./audios --skip-existing --store --upload`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranscribe(cmd, ctx, opts, args[0])
		},
	}
	bindTranscribeFlags(cmd, opts)
	return cmd
}

func bindTranscribeFlags(cmd *cobra.Command, opts *transcribeOptions) {
	flags := cmd.Flags()
	flags.StringVar(&opts.prompt, "prompt", "", "Initial prompt passed to the model")
	flags.StringVar(&opts.model, "model_size", "", "faster-whisper model name or path")
	flags.IntVar(&opts.beamSize, "beam_size", 0, "Beam size")
	flags.StringVar(&opts.device, "device", "", "Device: cuda, cpu or auto")
	flags.StringVar(&opts.computeType, "compute_type", "", "Compute type (e.g. int8_float16, float16, int8)")
	flags.StringVar(&opts.language, "language", "", "Spoken language code")
	flags.StringVar(&opts.launcher, "launcher", "", "Helper launcher: python or uv")
	flags.StringVar(&opts.outputDir, "output-dir", "", "Directory for JSON documents")
	flags.StringVar(&opts.audioExt, "audio-ext", "", "Audio extension when the input is a directory")
	flags.IntVar(&opts.topN, "top-n", 0, "Number of most frequent words to report")
	flags.BoolVar(&opts.skipExisting, "skip-existing", false, "Skip audio files whose JSON output already exists")
	flags.BoolVar(&opts.store, "store", false, "Insert each document into the configured document store")
	flags.BoolVar(&opts.upload, "upload", false, "Upload each JSON document to the json blob container")
	flags.BoolVar(&opts.overwrite, "overwrite", false, "Replace JSON blobs that already exist")
}

func (o *transcribeOptions) apply(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("prompt") {
		cfg.Transcription.Prompt = o.prompt
	}
	if flags.Changed("model_size") {
		cfg.Transcription.Model = o.model
	}
	if flags.Changed("beam_size") {
		cfg.Transcription.BeamSize = o.beamSize
	}
	if flags.Changed("device") {
		cfg.Transcription.Device = lower(o.device)
	}
	if flags.Changed("compute_type") {
		cfg.Transcription.ComputeType = lower(o.computeType)
	}
	if flags.Changed("language") {
		code, err := language.Code(o.language)
		if err != nil {
			return fmt.Errorf("--language: %w", err)
		}
		cfg.Transcription.Language = code
	}
	if flags.Changed("launcher") {
		cfg.Transcription.Launcher = lower(o.launcher)
	}
	if flags.Changed("audio-ext") {
		cfg.Transcription.AudioExtension = o.audioExt
	}
	if flags.Changed("top-n") {
		cfg.Metrics.TopN = o.topN
	}
	if flags.Changed("output-dir") {
		dir, err := config.ExpandPath(o.outputDir)
		if err != nil {
			return fmt.Errorf("resolve output dir: %w", err)
		}
		cfg.Paths.OutputDir = dir
	}
	if o.store && !cfg.DocStoreEnabled() {
		return errors.New("--store requires docstore.provider (cosmos or sqlite)")
	}
	if o.upload && !cfg.BlobEnabled() {
		return errors.New("--upload requires blob.provider (azure, s3, gcs or local)")
	}
	return cfg.Validate()
}

func runTranscribe(cmd *cobra.Command, ctx *commandContext, opts *transcribeOptions, inputPath string) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	if err := opts.apply(cmd, cfg); err != nil {
		return err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}
	logger, err := ctx.runLogger()
	if err != nil {
		return err
	}

	if missing := deps.Missing(preflight.CheckLauncher(cfg)); len(missing) > 0 {
		logging.ErrorWithContext(logger, "transcription helper launcher not found", "launcher_missing",
			logging.String("command", missing[0].Command),
			logging.String(logging.FieldErrorHint, "install python3 with faster-whisper or set transcription.launcher = \"uv\""),
		)
		return fmt.Errorf("%s: %s", missing[0].Name, missing[0].Detail)
	}

	engine, err := metricsEngine(cfg)
	if err != nil {
		return err
	}
	svc := whisper.NewService(whisperConfig(cfg), logger)
	defer svc.Close()

	var options []batch.Option
	if opts.store {
		store, err := docstore.Open(cmd.Context(), cfg.DocStore)
		if err != nil {
			return err
		}
		defer store.Close()
		options = append(options, batch.WithDocStore(store))
	}
	if opts.upload {
		store, err := blobstore.Open(cmd.Context(), cfg.Blob, cfg.Blob.Containers.JSON)
		if err != nil {
			return err
		}
		defer blobstore.Close(store)
		options = append(options, batch.WithBlobStore(store))
	}

	processor := batch.NewProcessor(batch.Options{
		OutputDir:        cfg.Paths.OutputDir,
		Prompt:           cfg.Transcription.Prompt,
		AudioExtension:   cfg.Transcription.AudioExtension,
		SkipExisting:     opts.skipExisting,
		OverwriteUploads: opts.overwrite,
	}, svc, engine, logger, options...)

	notifier := notifications.NewService(cfg)
	summary, err := processor.Run(cmd.Context(), inputPath)
	if err != nil {
		notifyRun(cmd, logger, func(nctx context.Context) error {
			return notifier.NotifyError(nctx, err, "transcribe")
		})
		return err
	}
	notifyRun(cmd, logger, func(nctx context.Context) error {
		return notifier.NotifyRunCompleted(nctx, notifications.RunReport{
			Input:          inputPath,
			Processed:      summary.Processed,
			Failed:         summary.Failed,
			Skipped:        summary.Skipped,
			StoreFailures:  summary.StoreFailures,
			UploadFailures: summary.UploadFailures,
			Duration:       summary.FinishedAt.Sub(summary.StartedAt),
		})
	})

	out := cmd.OutOrStdout()
	if len(summary.Files) > 0 {
		fmt.Fprintln(out, renderSummary(summary))
	}
	fmt.Fprintf(out, "Processed: %d  Failed: %d  Skipped: %d\n", summary.Processed, summary.Failed, summary.Skipped)
	if ctx.logPath != "" {
		fmt.Fprintf(out, "Log: %s\n", ctx.logPath)
	}
	if summary.HasFailures() {
		return fmt.Errorf("%d of %d file(s) failed (store failures: %d, upload failures: %d)",
			summary.Failed, len(summary.Files), summary.StoreFailures, summary.UploadFailures)
	}
	return nil
}

// notifyRun delivers a notification without failing the run. It uses a
// fresh context so an interrupted run is still reported.
func notifyRun(cmd *cobra.Command, logger *slog.Logger, send func(context.Context) error) {
	nctx, cancel := context.WithTimeout(context.WithoutCancel(cmd.Context()), 30*time.Second)
	defer cancel()
	if err := send(nctx); err != nil {
		logging.WarnWithContext(logger, "run notification failed", "notification_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
			logging.String(logging.FieldImpact, "run summary was not delivered"),
		)
	}
}

func renderSummary(summary batch.Summary) string {
	rows := make([][]string, 0, len(summary.Files))
	for _, f := range summary.Files {
		detail := f.JSONPath
		words, wpm := "-", "-"
		switch f.Status {
		case batch.StatusFailed:
			detail = fmt.Sprintf("%s: %v", f.Step, f.Err)
		case batch.StatusProcessed:
			words = strconv.Itoa(f.Metrics.TotalWords)
			wpm = strconv.FormatFloat(f.Metrics.WordsPerMinute, 'f', 1, 64)
			if f.StoreErr != nil {
				detail += fmt.Sprintf(" (store: %v)", f.StoreErr)
			}
			if f.UploadErr != nil {
				detail += fmt.Sprintf(" (upload: %v)", f.UploadErr)
			}
		}
		rows = append(rows, []string{filepath.Base(f.Audio), string(f.Status), words, wpm, detail})
	}
	return renderTable(
		[]string{"Audio", "Status", "Words", "WPM", "Output"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft},
	)
}

func whisperConfig(cfg *config.Config) whisper.Config {
	return whisper.Config{
		Model:         cfg.Transcription.Model,
		Device:        cfg.Transcription.Device,
		ComputeType:   cfg.Transcription.ComputeType,
		BeamSize:      cfg.Transcription.BeamSize,
		Language:      cfg.Transcription.Language,
		Launcher:      cfg.Transcription.Launcher,
		Python:        cfg.Transcription.Python,
		ModelCacheDir: cfg.Transcription.ModelCacheDir,
		Timeout:       cfg.TranscriptionTimeout(),
	}
}

func metricsEngine(cfg *config.Config) (*metrics.Engine, error) {
	if len(cfg.Metrics.MagicPhrases) == 0 {
		return metrics.NewEngine(metrics.DefaultPhraseTable(), cfg.Metrics.TopN), nil
	}
	phrases := make([]metrics.Phrase, 0, len(cfg.Metrics.MagicPhrases))
	for _, p := range cfg.Metrics.MagicPhrases {
		phrases = append(phrases, metrics.Phrase{Root: p.Root, Pattern: p.Pattern})
	}
	table, err := metrics.NewPhraseTable(phrases)
	if err != nil {
		return nil, fmt.Errorf("metrics.magic_phrases: %w", err)
	}
	return metrics.NewEngine(table, cfg.Metrics.TopN), nil
}

func lower(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
