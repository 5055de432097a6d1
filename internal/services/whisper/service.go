package whisper

import (
	"bufio"
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"recogni/internal/deps"
	"recogni/internal/logging"
	"recogni/internal/services"
	"recogni/internal/transcript"
)

//go:embed assets/faster_whisper.py
var helperScript []byte

// Request carries per-file transcription options.
type Request struct {
	// Prompt is passed to the model as the initial prompt.
	Prompt string
}

// Result is the decoded helper output for one audio file.
type Result struct {
	// Language is the detected (or forced) language code.
	Language string
	// Duration is the audio length in seconds as reported by the model.
	Duration float64
	Segments []transcript.Segment
}

type helperOutput struct {
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

// helperRequest is one line written to the helper's stdin.
type helperRequest struct {
	Audio         string `json:"audio"`
	Output        string `json:"output"`
	InitialPrompt string `json:"initial_prompt,omitempty"`
}

// helperResponse is the line the helper prints once a request is done.
type helperResponse struct {
	Output string `json:"output"`
	Error  string `json:"error,omitempty"`
}

// Process is a running helper. Requests go to Stdin and responses come back on
// Stdout, one JSON line each.
type Process struct {
	Stdin  io.WriteCloser
	Stdout io.Reader
	// Wait blocks until the process exits. Its error carries the tail of the
	// helper's stderr.
	Wait func() error
	// Kill stops the process; pending reads on Stdout return.
	Kill func() error
}

// Starter launches the helper in serve mode.
type Starter func(name string, args ...string) (*Process, error)

var errHelperExited = errors.New("helper exited unexpectedly")

const closeGrace = 10 * time.Second

// Service provides faster-whisper transcription. One helper process, and so
// one loaded model, serves every Transcribe call until Close or until the
// helper dies.
type Service struct {
	cfg       Config
	logger    *slog.Logger
	starter   Starter
	cudaCheck func(ctx context.Context) bool

	deviceOnce  sync.Once
	device      string
	computeType string

	mu        sync.Mutex
	scriptDir string
	worker    *worker
}

type worker struct {
	proc  *Process
	lines *bufio.Reader
	enc   *json.Encoder
}

// NewService creates a transcription service with the given configuration.
func NewService(cfg Config, logger *slog.Logger) *Service {
	return &Service{
		cfg:     cfg.withDefaults(),
		logger:  logging.NewComponentLogger(logger, "whisper"),
		starter: execStarter,
	}
}

// WithStarter replaces the process launcher (for testing).
func (s *Service) WithStarter(starter Starter) {
	if starter != nil {
		s.starter = starter
	}
}

// WithCUDACheck overrides GPU detection (for testing).
func (s *Service) WithCUDACheck(check func(ctx context.Context) bool) {
	s.cudaCheck = check
}

// Model returns the configured model name for logging and documents.
func (s *Service) Model() string {
	return s.cfg.Model
}

// Device returns the resolved device and compute type.
func (s *Service) Device(ctx context.Context) (string, string) {
	s.deviceOnce.Do(func() {
		s.device, s.computeType = s.resolveDevice(ctx)
	})
	return s.device, s.computeType
}

func (s *Service) resolveDevice(ctx context.Context) (string, string) {
	device := strings.ToLower(strings.TrimSpace(s.cfg.Device))
	computeType := s.cfg.ComputeType
	if device == CUDADevice || device == AutoDevice {
		if s.cudaAvailable(ctx) {
			return CUDADevice, computeType
		}
		if device == CUDADevice {
			logging.WarnWithContext(s.logger, "GPU not found; using CPU", "cuda_unavailable",
				logging.String(logging.FieldErrorHint, "install NVIDIA drivers and a CUDA-enabled CTranslate2 to use the GPU"),
				logging.String(logging.FieldImpact, "transcription runs on CPU and is slower"),
			)
		}
		device = CPUDevice
	}
	if device == CPUDevice && strings.Contains(computeType, "float16") {
		s.logger.Info("compute type not supported on cpu; downgrading",
			logging.String("requested", computeType),
			logging.String("compute_type", CPUComputeType),
		)
		computeType = CPUComputeType
	}
	return device, computeType
}

func (s *Service) cudaAvailable(ctx context.Context) bool {
	if s.cudaCheck != nil {
		return s.cudaCheck(ctx)
	}
	return deps.CUDAAvailable(ctx, nil)
}

// Transcribe sends audioPath to the helper and returns ordered segments. The
// first call starts the helper and loads the model; the timeout covers that
// load. A timeout, cancellation or helper crash stops the helper, and the
// next call starts a fresh one.
func (s *Service) Transcribe(ctx context.Context, audioPath string, req Request) (Result, error) {
	if strings.TrimSpace(audioPath) == "" {
		return Result{}, services.Wrap(services.ErrValidation, "transcribe", "", "audio path required", nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	script, err := s.ensureScript()
	if err != nil {
		return Result{}, services.Wrap(services.ErrConfiguration, "transcribe", "prepare helper", "", err)
	}

	out, err := os.CreateTemp(filepath.Dir(script), "result-*.json")
	if err != nil {
		return Result{}, services.Wrap(services.ErrTransient, "transcribe", "prepare output", "", err)
	}
	outPath := out.Name()
	out.Close()
	defer os.Remove(outPath)

	w, err := s.ensureWorker(ctx, script)
	if err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, "transcribe", "start faster-whisper", "", err)
	}

	runCtx := ctx
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	s.logger.Debug("sending audio to transcription helper",
		logging.String(logging.FieldAudio, audioPath),
	)
	resp, err := w.roundTrip(runCtx, helperRequest{
		Audio:         audioPath,
		Output:        outPath,
		InitialPrompt: strings.TrimSpace(req.Prompt),
	})
	if err != nil {
		if ctxErr := runCtx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w: %w", err, ctxErr)
		}
		if waitErr := s.stopWorker(); waitErr != nil {
			err = fmt.Errorf("%w: %w", err, waitErr)
		}
		return Result{}, services.Wrap(services.ErrExternalTool, "transcribe", "faster-whisper", filepath.Base(audioPath), err)
	}
	if resp.Error != "" {
		return Result{}, services.Wrap(services.ErrExternalTool, "transcribe", "faster-whisper", filepath.Base(audioPath), errors.New(resp.Error))
	}

	result, err := loadResult(outPath)
	if err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, "transcribe", "decode helper output", "", err)
	}
	return result, nil
}

// ensureWorker returns the running helper, starting it when needed. The
// caller holds s.mu.
func (s *Service) ensureWorker(ctx context.Context, script string) (*worker, error) {
	if s.worker != nil {
		return s.worker, nil
	}
	device, computeType := s.Device(ctx)
	name, args := s.command(script, device, computeType)
	s.logger.Info("starting transcription helper",
		logging.String("command", name),
		logging.String("model", s.cfg.Model),
		logging.String("device", device),
		logging.String("compute_type", computeType),
	)
	proc, err := s.starter(name, args...)
	if err != nil {
		return nil, err
	}
	enc := json.NewEncoder(proc.Stdin)
	enc.SetEscapeHTML(false)
	s.worker = &worker{
		proc:  proc,
		lines: bufio.NewReader(proc.Stdout),
		enc:   enc,
	}
	return s.worker, nil
}

// stopWorker kills the helper and waits for it. The caller holds s.mu.
func (s *Service) stopWorker() error {
	w := s.worker
	if w == nil {
		return nil
	}
	s.worker = nil
	_ = w.proc.Kill()
	return w.proc.Wait()
}

type roundTripResult struct {
	resp helperResponse
	err  error
}

func (w *worker) roundTrip(ctx context.Context, req helperRequest) (helperResponse, error) {
	if err := w.enc.Encode(req); err != nil {
		return helperResponse{}, fmt.Errorf("send request: %w", err)
	}
	done := make(chan roundTripResult, 1)
	go func() {
		resp, err := w.readResponse()
		done <- roundTripResult{resp: resp, err: err}
	}()
	select {
	case r := <-done:
		return r.resp, r.err
	case <-ctx.Done():
		_ = w.proc.Kill()
		<-done
		return helperResponse{}, ctx.Err()
	}
}

// readResponse skips anything on stdout that is not a JSON object.
func (w *worker) readResponse() (helperResponse, error) {
	for {
		line, err := w.lines.ReadBytes('\n')
		line = bytes.TrimSpace(line)
		if len(line) > 0 && line[0] == '{' {
			var resp helperResponse
			if jerr := json.Unmarshal(line, &resp); jerr != nil {
				return helperResponse{}, fmt.Errorf("parse helper response: %w", jerr)
			}
			return resp, nil
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return helperResponse{}, errHelperExited
			}
			return helperResponse{}, err
		}
	}
}

// command builds the serve-mode invocation for the configured launcher.
func (s *Service) command(script, device, computeType string) (string, []string) {
	helperArgs := []string{
		script,
		"--serve",
		"--model", s.cfg.Model,
		"--device", device,
		"--compute_type", computeType,
		"--beam_size", strconv.Itoa(s.cfg.BeamSize),
		"--language", s.cfg.Language,
	}
	if s.cfg.ModelCacheDir != "" {
		helperArgs = append(helperArgs, "--download_root", s.cfg.ModelCacheDir)
	}

	if s.cfg.Launcher == LauncherUV {
		args := append([]string{"run", "--with", FasterWhisperPkg, "python"}, helperArgs...)
		return UVCommand, args
	}
	return s.cfg.Python, helperArgs
}

func execStarter(name string, args ...string) (*Process, error) {
	cmd := exec.Command(name, args...) //nolint:gosec
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("%s stdin: %w", name, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%s stdout: %w", name, err)
	}
	stderr := &tailBuffer{limit: 64 << 10}
	cmd.Stderr = stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return &Process{
		Stdin:  stdin,
		Stdout: stdout,
		Wait: func() error {
			if err := cmd.Wait(); err != nil {
				return fmt.Errorf("%s: %w: %s", name, err, tail(stderr.String(), 20))
			}
			return nil
		},
		Kill: func() error {
			if cmd.Process == nil {
				return nil
			}
			return cmd.Process.Kill()
		},
	}, nil
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	mu    sync.Mutex
	buf   []byte
	limit int
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.limit; over > 0 {
		b.buf = b.buf[over:]
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}

func (s *Service) ensureScript() (string, error) {
	if s.scriptDir == "" {
		dir, err := os.MkdirTemp("", "recogni-whisper-")
		if err != nil {
			return "", fmt.Errorf("create helper dir: %w", err)
		}
		s.scriptDir = dir
	}
	path := filepath.Join(s.scriptDir, helperScriptName)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	if err := os.WriteFile(path, helperScript, 0o755); err != nil {
		return "", fmt.Errorf("write helper script: %w", err)
	}
	return path, nil
}

// Close stops the helper and removes its temp directory. The helper exits on
// its own once stdin closes; it is killed if it has not within a grace period.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	if w := s.worker; w != nil {
		s.worker = nil
		_ = w.proc.Stdin.Close()
		waited := make(chan error, 1)
		go func() { waited <- w.proc.Wait() }()
		select {
		case err := <-waited:
			if err != nil {
				errs = append(errs, err)
			}
		case <-time.After(closeGrace):
			_ = w.proc.Kill()
			<-waited
		}
	}
	if s.scriptDir != "" {
		if err := os.RemoveAll(s.scriptDir); err != nil {
			errs = append(errs, err)
		}
		s.scriptDir = ""
	}
	return errors.Join(errs...)
}

func loadResult(path string) (Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return Result{}, errors.New("helper produced no output")
	}
	var payload helperOutput
	if err := json.Unmarshal(data, &payload); err != nil {
		return Result{}, fmt.Errorf("parse helper json: %w", err)
	}
	segments := make([]transcript.Segment, 0, len(payload.Segments))
	for _, seg := range payload.Segments {
		segments = append(segments, transcript.Segment{
			Start: seg.Start,
			End:   seg.End,
			Text:  seg.Text,
		})
	}
	return Result{
		Language: payload.Language,
		Duration: payload.Duration,
		Segments: transcript.Renumber(segments),
	}, nil
}

func tail(output string, lines int) string {
	parts := strings.Split(strings.TrimSpace(output), "\n")
	if len(parts) > lines {
		parts = parts[len(parts)-lines:]
	}
	return strings.Join(parts, "\n")
}
