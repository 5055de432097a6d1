package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"recogni/internal/blobstore"
	"recogni/internal/docstore"
	"recogni/internal/fileutil"
	"recogni/internal/logging"
	"recogni/internal/metrics"
	"recogni/internal/services"
	"recogni/internal/services/whisper"
	"recogni/internal/transcript"
)

// LockFileName is created in the output directory while a run is active.
const LockFileName = ".recogni.lock"

// ErrBusy reports another run holding the output directory lock.
var ErrBusy = errors.New("output directory is locked by another run")

// Transcriber turns one audio file into ordered segments.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string, req whisper.Request) (whisper.Result, error)
	Model() string
}

// Options configure a Processor.
type Options struct {
	OutputDir      string
	Prompt         string
	AudioExtension string
	// SkipExisting skips audio files whose JSON output already exists.
	SkipExisting bool
	// OverwriteUploads replaces JSON blobs that already exist remotely.
	OverwriteUploads bool
}

// Processor runs the pipeline for every resolved audio file.
type Processor struct {
	opts        Options
	transcriber Transcriber
	engine      *metrics.Engine
	docs        docstore.Store
	blobs       blobstore.Store
	logger      *slog.Logger
	now         func() time.Time
}

// Option customizes a Processor.
type Option func(*Processor)

// WithDocStore inserts each written document into store.
func WithDocStore(store docstore.Store) Option {
	return func(p *Processor) { p.docs = store }
}

// WithBlobStore uploads each written JSON file to store.
func WithBlobStore(store blobstore.Store) Option {
	return func(p *Processor) { p.blobs = store }
}

// WithClock overrides the time source used for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Processor) {
		if now != nil {
			p.now = now
		}
	}
}

// NewProcessor builds a processor. engine may be nil to use the default table.
func NewProcessor(opts Options, transcriber Transcriber, engine *metrics.Engine, logger *slog.Logger, options ...Option) *Processor {
	if engine == nil {
		engine = metrics.NewEngine(metrics.DefaultPhraseTable(), metrics.DefaultTopN)
	}
	p := &Processor{
		opts:        opts,
		transcriber: transcriber,
		engine:      engine,
		logger:      logging.NewComponentLogger(logger, "batch"),
		now:         time.Now,
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

// Run processes inputPath, a single audio file or a directory. The returned
// error covers conditions that stop the whole batch (invalid input, lock,
// cancellation); per-file failures are reported in the Summary.
func (p *Processor) Run(ctx context.Context, inputPath string) (Summary, error) {
	runID := uuid.NewString()
	ctx = logging.WithRun(ctx, runID)
	logger := logging.WithContext(ctx, p.logger)
	summary := Summary{RunID: runID, StartedAt: p.now()}

	files, err := ResolveAudioFiles(inputPath, p.opts.AudioExtension)
	if err != nil {
		logging.ErrorWithContext(logger, "invalid input path", "batch_invalid_input",
			logging.String("path", inputPath),
			logging.String(logging.FieldErrorHint, "pass an audio file or a directory of audio files"),
			logging.Error(err),
		)
		return summary, err
	}

	if err := os.MkdirAll(p.opts.OutputDir, 0o755); err != nil {
		return summary, fmt.Errorf("create output directory: %w", err)
	}
	lock := flock.New(filepath.Join(p.opts.OutputDir, LockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return summary, fmt.Errorf("acquire lock: %w", err)
	}
	if !locked {
		return summary, fmt.Errorf("%w: %s", ErrBusy, p.opts.OutputDir)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("failed to release output lock", logging.Error(err))
		}
	}()

	logger.Info("batch started",
		logging.String("input", inputPath),
		logging.Int("files", len(files)),
		logging.String("output_dir", p.opts.OutputDir),
		logging.String("model", p.transcriber.Model()),
		logging.Bool("skip_existing", p.opts.SkipExisting),
		logging.Bool("store", p.docs != nil),
		logging.Bool("upload", p.blobs != nil),
	)
	if len(files) == 0 {
		logger.Warn("no audio files found",
			logging.String("input", inputPath),
			logging.String(logging.FieldImpact, "nothing to transcribe"),
			logging.String(logging.FieldErrorHint, "check --audio-ext or the directory contents"),
		)
	}

	for _, audio := range files {
		if err := ctx.Err(); err != nil {
			summary.FinishedAt = p.now()
			return summary, err
		}
		summary.add(p.processFile(ctx, audio))
	}
	summary.FinishedAt = p.now()

	logger.Info("batch finished",
		logging.Int("processed", summary.Processed),
		logging.Int("failed", summary.Failed),
		logging.Int("skipped", summary.Skipped),
		logging.Duration("elapsed", summary.FinishedAt.Sub(summary.StartedAt)),
	)
	return summary, nil
}

func (p *Processor) processFile(ctx context.Context, audio string) FileOutcome {
	ctx = logging.WithAudio(ctx, audio)
	logger := logging.WithContext(ctx, p.logger)
	started := p.now()
	outcome := FileOutcome{
		Audio:    audio,
		JSONPath: filepath.Join(p.opts.OutputDir, transcript.JSONName(audio)),
	}
	finish := func(status Status) FileOutcome {
		outcome.Status = status
		outcome.Elapsed = p.now().Sub(started)
		return outcome
	}
	fail := func(step string, err error) FileOutcome {
		outcome.Step = step
		outcome.Err = err
		logging.ErrorWithContext(logger, "file processing failed", "file_failed",
			logging.String(logging.FieldStep, step),
			logging.String("error_kind", services.Kind(err)),
			logging.Error(err),
		)
		return finish(StatusFailed)
	}

	if p.opts.SkipExisting {
		exists, err := fileutil.FileExists(outcome.JSONPath)
		if err != nil {
			return fail(StepWrite, err)
		}
		if exists {
			logger.Info("output exists; skipping", logging.String("json", outcome.JSONPath))
			return finish(StatusSkipped)
		}
	}

	logger.Info("transcribing")
	result, err := p.transcriber.Transcribe(ctx, audio, whisper.Request{Prompt: p.opts.Prompt})
	if err != nil {
		return fail(StepTranscribe, err)
	}
	logger.Debug("transcribed",
		logging.String("language", result.Language),
		logging.Float64("audio_seconds", result.Duration),
		logging.Int("segments", len(result.Segments)),
	)

	record := p.engine.Analyze(result.Segments)
	if record.ClampedSegments > 0 {
		logging.WarnWithContext(logger, "segments with end before start", "malformed_timing",
			logging.Int("segments", record.ClampedSegments),
			logging.String(logging.FieldImpact, "counted with zero duration"),
		)
	}
	outcome.Metrics = record

	doc := transcript.Document{
		Prompt:        p.opts.Prompt,
		Model:         p.transcriber.Model(),
		AudioPath:     audio,
		Transcription: result.Segments,
		Metrics:       record,
	}
	path, err := transcript.WriteFile(p.opts.OutputDir, doc)
	if err != nil {
		return fail(StepWrite, err)
	}
	outcome.JSONPath = path
	logger.Info("transcription and metrics saved",
		logging.String("json", outcome.JSONPath),
		logging.Int("total_words", record.TotalWords),
		logging.Float64("words_per_minute", record.WordsPerMinute),
	)

	if p.docs != nil {
		rec := docstore.NewRecord(doc, "", p.now())
		if err := p.docs.Insert(ctx, rec); err != nil {
			outcome.StoreErr = err
			logging.ErrorWithContext(logger, "document insert failed", "docstore_insert_failed",
				logging.String(logging.FieldStep, StepStore),
				logging.String(logging.FieldImpact, "json kept locally; re-run `recogni docs ingest` to retry"),
				logging.Error(err),
			)
		} else {
			outcome.DocumentID = rec.ID
			logger.Info("document inserted", logging.String("id", rec.ID))
		}
	}

	if p.blobs != nil {
		name := filepath.Base(outcome.JSONPath)
		uploaded, err := blobstore.UploadFile(ctx, p.blobs, outcome.JSONPath, name, p.opts.OverwriteUploads)
		switch {
		case err != nil:
			outcome.UploadErr = err
			logging.ErrorWithContext(logger, "json upload failed", "blob_upload_failed",
				logging.String(logging.FieldStep, StepUpload),
				logging.String(logging.FieldContainer, p.blobs.Location()),
				logging.String(logging.FieldImpact, "json kept locally"),
				logging.Error(err),
			)
		case !uploaded:
			logging.WarnWithContext(logger, "json blob already exists; skipping upload", "blob_exists",
				logging.String(logging.FieldBlob, name),
				logging.String(logging.FieldErrorHint, "pass --overwrite to replace it"),
			)
		default:
			outcome.Uploaded = true
			logger.Info("json uploaded", logging.String(logging.FieldBlob, name))
		}
	}

	return finish(StatusProcessed)
}
