package batch_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"recogni/internal/batch"
	"recogni/internal/blobstore"
	"recogni/internal/docstore"
	"recogni/internal/logging"
	"recogni/internal/services/whisper"
	"recogni/internal/testsupport"
	"recogni/internal/transcript"
)

type fakeTranscriber struct {
	results map[string][]transcript.Segment
	fail    map[string]error
	calls   []string
	prompts []string
}

func (f *fakeTranscriber) Model() string { return "large-v3" }

func (f *fakeTranscriber) Transcribe(_ context.Context, audioPath string, req whisper.Request) (whisper.Result, error) {
	base := filepath.Base(audioPath)
	f.calls = append(f.calls, base)
	f.prompts = append(f.prompts, req.Prompt)
	if err := f.fail[base]; err != nil {
		return whisper.Result{}, err
	}
	return whisper.Result{Language: "pt", Segments: f.results[base]}, nil
}

type failingDocs struct {
	docstore.Store
}

func (failingDocs) Insert(context.Context, docstore.Record) error {
	return errors.New("request rate too large")
}

func audioDir(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		testsupport.WriteFile(t, filepath.Join(dir, name), 16)
	}
	return dir
}

func TestProcessorWritesDocuments(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	dir := audioDir(t, "a.wav", "b.wav")
	fake := &fakeTranscriber{results: map[string][]transcript.Segment{
		"a.wav": testsupport.Segments(0, 3, "obrigado pelo atendimento", 3, 6, "de nada, boa tarde"),
		"b.wav": testsupport.Segments(0, 2, "alô"),
	}}

	p := batch.NewProcessor(batch.Options{OutputDir: cfg.Paths.OutputDir, Prompt: "ligação"}, fake, nil, logging.NewNop())
	summary, err := p.Run(context.Background(), dir)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Processed != 2 || summary.Failed != 0 || summary.HasFailures() {
		t.Fatalf("summary = %+v", summary)
	}
	if summary.RunID == "" {
		t.Fatal("expected run id")
	}
	if len(fake.calls) != 2 || fake.calls[0] != "a.wav" || fake.prompts[0] != "ligação" {
		t.Fatalf("calls = %v prompts = %v", fake.calls, fake.prompts)
	}

	doc, err := transcript.ReadFile(filepath.Join(cfg.Paths.OutputDir, "a.json"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if doc.Model != "large-v3" || doc.Prompt != "ligação" || doc.AudioPath != filepath.Join(dir, "a.wav") {
		t.Fatalf("document header = %+v", doc)
	}
	if doc.Metrics.TotalWords != 7 || doc.Metrics.WordsPerMinute != 70 {
		t.Fatalf("metrics = %+v", doc.Metrics)
	}
	if share, _ := doc.Metrics.MagicWordPercentages.Get("obrigado"); share <= 14 || share >= 15 {
		t.Fatalf("obrigado share = %v", share)
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.OutputDir, batch.LockFileName)); err != nil {
		t.Fatalf("lock file missing: %v", err)
	}
}

func TestProcessorContinuesAfterFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	dir := audioDir(t, "a.wav", "b.wav", "c.wav")
	fake := &fakeTranscriber{
		results: map[string][]transcript.Segment{
			"a.wav": testsupport.Segments(0, 1, "um"),
			"c.wav": testsupport.Segments(0, 1, "três"),
		},
		fail: map[string]error{"b.wav": errors.New("cuda out of memory")},
	}

	p := batch.NewProcessor(batch.Options{OutputDir: cfg.Paths.OutputDir}, fake, nil, logging.NewNop())
	summary, err := p.Run(context.Background(), dir)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Processed != 2 || summary.Failed != 1 {
		t.Fatalf("summary = %+v", summary)
	}
	failed := summary.Files[1]
	if failed.Status != batch.StatusFailed || failed.Step != batch.StepTranscribe || failed.Err == nil {
		t.Fatalf("failed outcome = %+v", failed)
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.OutputDir, "b.json")); !os.IsNotExist(err) {
		t.Fatalf("no json expected for failed file: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.OutputDir, "c.json")); err != nil {
		t.Fatalf("c.json missing: %v", err)
	}
}

func TestProcessorLogsCarryRunAndAudio(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	dir := audioDir(t, "a.wav")
	fake := &fakeTranscriber{results: map[string][]transcript.Segment{
		"a.wav": testsupport.Segments(0, 3, "obrigado"),
	}}
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	p := batch.NewProcessor(batch.Options{OutputDir: cfg.Paths.OutputDir}, fake, nil, logger)
	summary, err := p.Run(context.Background(), dir)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"run_id=" + summary.RunID,
		"audio=" + filepath.Join(dir, "a.wav"),
		"language=pt",
		"skip_existing=false",
		"upload=false",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in logs:\n%s", want, out)
		}
	}
}

func TestProcessorWriteFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	dir := audioDir(t, "a.wav", "b.wav")
	if err := os.MkdirAll(filepath.Join(cfg.Paths.OutputDir, "a.json"), 0o755); err != nil {
		t.Fatal(err)
	}
	fake := &fakeTranscriber{results: map[string][]transcript.Segment{}}

	p := batch.NewProcessor(batch.Options{OutputDir: cfg.Paths.OutputDir}, fake, nil, logging.NewNop())
	summary, err := p.Run(context.Background(), dir)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Failed != 1 || summary.Files[0].Step != batch.StepWrite {
		t.Fatalf("summary = %+v", summary)
	}
	if summary.Processed != 1 {
		t.Fatalf("b.wav should still be processed: %+v", summary)
	}
}

func TestProcessorSkipExisting(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	dir := audioDir(t, "a.wav", "b.wav")
	testsupport.WriteText(t, filepath.Join(cfg.Paths.OutputDir, "a.json"), "{}")
	fake := &fakeTranscriber{}

	p := batch.NewProcessor(batch.Options{OutputDir: cfg.Paths.OutputDir, SkipExisting: true}, fake, nil, logging.NewNop())
	summary, err := p.Run(context.Background(), dir)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Skipped != 1 || summary.Processed != 1 {
		t.Fatalf("summary = %+v", summary)
	}
	if len(fake.calls) != 1 || fake.calls[0] != "b.wav" {
		t.Fatalf("calls = %v", fake.calls)
	}
}

func TestProcessorInvalidInput(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	fake := &fakeTranscriber{}
	p := batch.NewProcessor(batch.Options{OutputDir: cfg.Paths.OutputDir}, fake, nil, logging.NewNop())
	_, err := p.Run(context.Background(), filepath.Join(t.TempDir(), "missing"))
	if !errors.Is(err, batch.ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
	if len(fake.calls) != 0 {
		t.Fatalf("nothing should be transcribed: %v", fake.calls)
	}
}

func TestProcessorRefusesLockedOutputDir(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	dir := audioDir(t, "a.wav")
	if err := os.MkdirAll(cfg.Paths.OutputDir, 0o755); err != nil {
		t.Fatal(err)
	}
	held := flock.New(filepath.Join(cfg.Paths.OutputDir, batch.LockFileName))
	locked, err := held.TryLock()
	if err != nil || !locked {
		t.Fatalf("TryLock = %v, %v", locked, err)
	}
	defer held.Unlock()

	p := batch.NewProcessor(batch.Options{OutputDir: cfg.Paths.OutputDir}, &fakeTranscriber{}, nil, logging.NewNop())
	if _, err := p.Run(context.Background(), dir); !errors.Is(err, batch.ErrBusy) {
		t.Fatalf("err = %v, want ErrBusy", err)
	}
}

func TestProcessorStoresAndUploads(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithLocalBlob(), testsupport.WithSQLiteDocStore())
	docs := testsupport.MustOpenDocStore(t, cfg)
	blobs := testsupport.MustOpenBlob(t, cfg, "json")
	dir := audioDir(t, "a.wav")
	fake := &fakeTranscriber{results: map[string][]transcript.Segment{
		"a.wav": testsupport.Segments(0, 2, "por favor"),
	}}
	fixed := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	p := batch.NewProcessor(batch.Options{OutputDir: cfg.Paths.OutputDir}, fake, nil, logging.NewNop(),
		batch.WithDocStore(docs), batch.WithBlobStore(blobs), batch.WithClock(func() time.Time { return fixed }))
	summary, err := p.Run(context.Background(), dir)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	outcome := summary.Files[0]
	if outcome.DocumentID == "" || !outcome.Uploaded {
		t.Fatalf("outcome = %+v", outcome)
	}

	rec, err := docs.Get(context.Background(), outcome.DocumentID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.AudioName != "a.wav" || !rec.ProcessedAt.Equal(fixed) {
		t.Fatalf("record = %+v", rec)
	}

	body, err := blobstore.ReadString(context.Background(), blobs, "a.json")
	if err != nil {
		t.Fatalf("ReadString: %v", err)
	}
	if !strings.Contains(body, "\"por favor\": 50") {
		t.Fatalf("uploaded body missing metrics:\n%s", body)
	}

	// A second run finds the blob and leaves it alone.
	summary, err = p.Run(context.Background(), dir)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if summary.Files[0].Uploaded || summary.UploadFailures != 0 {
		t.Fatalf("second outcome = %+v", summary.Files[0])
	}
}

func TestProcessorStoreFailureKeepsJSON(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	dir := audioDir(t, "a.wav")
	fake := &fakeTranscriber{results: map[string][]transcript.Segment{"a.wav": testsupport.Segments(0, 1, "oi")}}

	p := batch.NewProcessor(batch.Options{OutputDir: cfg.Paths.OutputDir}, fake, nil, logging.NewNop(), batch.WithDocStore(failingDocs{}))
	summary, err := p.Run(context.Background(), dir)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Processed != 1 || summary.StoreFailures != 1 || !summary.HasFailures() {
		t.Fatalf("summary = %+v", summary)
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.OutputDir, "a.json")); err != nil {
		t.Fatalf("json missing: %v", err)
	}
}

func TestProcessorStopsOnCancel(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	dir := audioDir(t, "a.wav", "b.wav")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fake := &fakeTranscriber{}
	p := batch.NewProcessor(batch.Options{OutputDir: cfg.Paths.OutputDir}, fake, nil, logging.NewNop())
	if _, err := p.Run(ctx, dir); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if len(fake.calls) != 0 {
		t.Fatalf("calls = %v", fake.calls)
	}
}
