package whisper_test

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"recogni/internal/services"
	"recogni/internal/services/whisper"
)

type fakeRequest struct {
	Audio         string `json:"audio"`
	Output        string `json:"output"`
	InitialPrompt string `json:"initial_prompt"`
}

// fakeReply decides what the fake helper does with one request.
type fakeReply struct {
	payload string
	errMsg  string
	crash   string
	hang    bool
}

type fakeHelper struct {
	t      *testing.T
	handle func(fakeRequest) fakeReply

	mu       sync.Mutex
	starts   []call
	requests []fakeRequest
	done     []chan struct{}
}

type call struct {
	name string
	args []string
}

func newFakeHelper(t *testing.T, handle func(fakeRequest) fakeReply) *fakeHelper {
	return &fakeHelper{t: t, handle: handle}
}

func replyWith(payload string) func(fakeRequest) fakeReply {
	return func(fakeRequest) fakeReply { return fakeReply{payload: payload} }
}

func (f *fakeHelper) start(name string, args ...string) (*whisper.Process, error) {
	inR, inW := io.Pipe()
	outR, outW := io.Pipe()
	done := make(chan struct{})
	killed := make(chan struct{})

	f.mu.Lock()
	f.starts = append(f.starts, call{name: name, args: append([]string(nil), args...)})
	f.done = append(f.done, done)
	f.mu.Unlock()

	var (
		errMu   sync.Mutex
		waitErr error
	)
	setErr := func(err error) {
		errMu.Lock()
		defer errMu.Unlock()
		if waitErr == nil {
			waitErr = err
		}
	}
	var killOnce sync.Once
	kill := func() error {
		killOnce.Do(func() {
			setErr(errors.New("signal: killed"))
			close(killed)
			_ = outW.Close()
			_ = inR.Close()
		})
		return nil
	}

	go func() {
		defer close(done)
		defer outW.Close()
		scanner := bufio.NewScanner(inR)
		for scanner.Scan() {
			var req fakeRequest
			if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
				f.t.Errorf("decode request %q: %v", scanner.Text(), err)
				return
			}
			f.mu.Lock()
			f.requests = append(f.requests, req)
			f.mu.Unlock()

			reply := f.handle(req)
			switch {
			case reply.hang:
				<-killed
				return
			case reply.crash != "":
				setErr(fmt.Errorf("exit status 1: %s", reply.crash))
				return
			case reply.errMsg != "":
				fmt.Fprintf(outW, "{\"output\":%q,\"error\":%q}\n", req.Output, reply.errMsg)
			default:
				if err := os.WriteFile(req.Output, []byte(reply.payload), 0o644); err != nil {
					f.t.Errorf("write fake output: %v", err)
				}
				fmt.Fprintln(outW, "loading model...")
				fmt.Fprintf(outW, "{\"output\":%q}\n", req.Output)
			}
		}
	}()

	return &whisper.Process{
		Stdin:  inW,
		Stdout: outR,
		Wait: func() error {
			<-done
			errMu.Lock()
			defer errMu.Unlock()
			return waitErr
		},
		Kill: kill,
	}, nil
}

func (f *fakeHelper) snapshot() ([]call, []fakeRequest) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.starts...), append([]fakeRequest(nil), f.requests...)
}

func argValue(args []string, flag string) string {
	for i := 0; i+1 < len(args); i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}

func hasArg(args []string, flag string) bool {
	for _, arg := range args {
		if arg == flag {
			return true
		}
	}
	return false
}

const samplePayload = `{"language":"pt","duration":6.0,"segments":[
	{"start":0.0,"end":3.0,"text":" obrigado pelo atendimento"},
	{"start":3.0,"end":6.0,"text":" de nada, boa tarde"}]}`

func newService(t *testing.T, cfg whisper.Config, helper *fakeHelper) *whisper.Service {
	t.Helper()
	svc := whisper.NewService(cfg, nil)
	svc.WithCUDACheck(func(context.Context) bool { return true })
	svc.WithStarter(helper.start)
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func TestTranscribeBuildsServeCommand(t *testing.T) {
	helper := newFakeHelper(t, replyWith(samplePayload))
	svc := newService(t, whisper.Config{Model: "large-v3", Device: "cuda", ComputeType: "int8_float16", BeamSize: 5, Language: "pt", Python: "/usr/bin/python3"}, helper)

	result, err := svc.Transcribe(context.Background(), "/calls/a.wav", whisper.Request{Prompt: "Essa é uma ligação."})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	starts, requests := helper.snapshot()
	if len(starts) != 1 || starts[0].name != "/usr/bin/python3" {
		t.Fatalf("unexpected starts: %#v", starts)
	}
	args := starts[0].args
	if !strings.HasSuffix(args[0], ".py") || !hasArg(args, "--serve") {
		t.Fatalf("expected helper script in serve mode, got %v", args)
	}
	want := map[string]string{
		"--model":        "large-v3",
		"--device":       "cuda",
		"--compute_type": "int8_float16",
		"--beam_size":    "5",
		"--language":     "pt",
	}
	for flag, value := range want {
		if got := argValue(args, flag); got != value {
			t.Fatalf("%s = %q, want %q", flag, got, value)
		}
	}
	if hasArg(args, "--audio") || hasArg(args, "--initial_prompt") {
		t.Fatalf("per-file values belong in the request, got %v", args)
	}
	if len(requests) != 1 || requests[0].Audio != "/calls/a.wav" || requests[0].InitialPrompt != "Essa é uma ligação." {
		t.Fatalf("unexpected requests: %#v", requests)
	}

	if result.Language != "pt" || result.Duration != 6.0 {
		t.Fatalf("unexpected result header: %+v", result)
	}
	if len(result.Segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(result.Segments))
	}
	second := result.Segments[1]
	if second.Order != 1 || second.Start != 3.0 || second.End != 6.0 || second.Text != " de nada, boa tarde" {
		t.Fatalf("unexpected segment: %+v", second)
	}
}

func TestTranscribeReusesHelperAcrossFiles(t *testing.T) {
	helper := newFakeHelper(t, replyWith(samplePayload))
	svc := newService(t, whisper.Config{Device: "cpu"}, helper)

	files := []string{"a.wav", "b.wav", "c.wav"}
	for _, audio := range files {
		if _, err := svc.Transcribe(context.Background(), audio, whisper.Request{}); err != nil {
			t.Fatalf("Transcribe(%s): %v", audio, err)
		}
	}
	starts, requests := helper.snapshot()
	if len(starts) != 1 {
		t.Fatalf("expected one helper process for %d files, got %d", len(files), len(starts))
	}
	if len(requests) != len(files) {
		t.Fatalf("expected %d requests, got %d", len(files), len(requests))
	}
	for i, audio := range files {
		if requests[i].Audio != audio {
			t.Fatalf("request %d audio = %q, want %q", i, requests[i].Audio, audio)
		}
	}
}

func TestTranscribeFallsBackToCPU(t *testing.T) {
	helper := newFakeHelper(t, replyWith(`{"segments":[]}`))
	svc := whisper.NewService(whisper.Config{Device: "cuda", ComputeType: "int8_float16"}, nil)
	gpuChecks := 0
	svc.WithCUDACheck(func(context.Context) bool { gpuChecks++; return false })
	svc.WithStarter(helper.start)
	t.Cleanup(func() { _ = svc.Close() })

	for i := 0; i < 2; i++ {
		if _, err := svc.Transcribe(context.Background(), "a.wav", whisper.Request{}); err != nil {
			t.Fatalf("Transcribe: %v", err)
		}
	}
	if gpuChecks != 1 {
		t.Fatalf("expected a single GPU check, got %d", gpuChecks)
	}
	starts, requests := helper.snapshot()
	args := starts[0].args
	if argValue(args, "--device") != "cpu" || argValue(args, "--compute_type") != "int8" {
		t.Fatalf("expected cpu/int8, got %v", args)
	}
	if requests[0].InitialPrompt != "" {
		t.Fatalf("expected no prompt, got %q", requests[0].InitialPrompt)
	}
}

func TestTranscribeUVLauncher(t *testing.T) {
	helper := newFakeHelper(t, replyWith(`{"segments":[]}`))
	svc := newService(t, whisper.Config{Device: "cpu", ComputeType: "float32", Launcher: whisper.LauncherUV, ModelCacheDir: "/models"}, helper)

	if _, err := svc.Transcribe(context.Background(), "a.wav", whisper.Request{}); err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	starts, _ := helper.snapshot()
	got := starts[0]
	if got.name != "uv" || strings.Join(got.args[:4], " ") != "run --with faster-whisper python" {
		t.Fatalf("unexpected uv invocation: %s %v", got.name, got.args)
	}
	if argValue(got.args, "--compute_type") != "float32" || argValue(got.args, "--download_root") != "/models" {
		t.Fatalf("unexpected args: %v", got.args)
	}
}

func TestTranscribeFileErrorKeepsHelper(t *testing.T) {
	helper := newFakeHelper(t, func(req fakeRequest) fakeReply {
		if strings.Contains(req.Audio, "broken") {
			return fakeReply{errMsg: "RuntimeError: could not decode audio"}
		}
		return fakeReply{payload: samplePayload}
	})
	svc := newService(t, whisper.Config{Device: "cpu"}, helper)

	_, err := svc.Transcribe(context.Background(), "broken.wav", whisper.Request{})
	if !errors.Is(err, services.ErrExternalTool) || !strings.Contains(err.Error(), "could not decode audio") {
		t.Fatalf("expected helper error, got %v", err)
	}
	if _, err := svc.Transcribe(context.Background(), "ok.wav", whisper.Request{}); err != nil {
		t.Fatalf("Transcribe after file error: %v", err)
	}
	if starts, _ := helper.snapshot(); len(starts) != 1 {
		t.Fatalf("a file error must not restart the helper, got %d starts", len(starts))
	}
}

func TestTranscribeHelperCrashRestarts(t *testing.T) {
	crashed := false
	helper := newFakeHelper(t, func(fakeRequest) fakeReply {
		if !crashed {
			crashed = true
			return fakeReply{crash: "Traceback\nRuntimeError: CUDA out of memory"}
		}
		return fakeReply{payload: samplePayload}
	})
	svc := newService(t, whisper.Config{Device: "cpu"}, helper)

	_, err := svc.Transcribe(context.Background(), "a.wav", whisper.Request{})
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	if !strings.Contains(err.Error(), "CUDA out of memory") {
		t.Fatalf("expected helper output in error, got %v", err)
	}
	if _, err := svc.Transcribe(context.Background(), "b.wav", whisper.Request{}); err != nil {
		t.Fatalf("Transcribe after crash: %v", err)
	}
	if starts, _ := helper.snapshot(); len(starts) != 2 {
		t.Fatalf("expected a restart after the crash, got %d starts", len(starts))
	}
}

func TestTranscribeTimeout(t *testing.T) {
	helper := newFakeHelper(t, func(fakeRequest) fakeReply { return fakeReply{hang: true} })
	svc := newService(t, whisper.Config{Device: "cpu", Timeout: 10 * time.Millisecond}, helper)

	_, err := svc.Transcribe(context.Background(), "a.wav", whisper.Request{})
	if services.Kind(err) != "timeout" {
		t.Fatalf("expected timeout classification, got %q (%v)", services.Kind(err), err)
	}
}

func TestTranscribeCanceled(t *testing.T) {
	helper := newFakeHelper(t, func(fakeRequest) fakeReply { return fakeReply{hang: true} })
	svc := newService(t, whisper.Config{Device: "cpu"}, helper)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(10*time.Millisecond, cancel)
	_, err := svc.Transcribe(ctx, "a.wav", whisper.Request{})
	if services.Kind(err) != "canceled" {
		t.Fatalf("expected canceled classification, got %q (%v)", services.Kind(err), err)
	}
}

func TestTranscribeRejectsEmptyOutput(t *testing.T) {
	helper := newFakeHelper(t, replyWith(""))
	svc := newService(t, whisper.Config{Device: "cpu"}, helper)
	if _, err := svc.Transcribe(context.Background(), "a.wav", whisper.Request{}); err == nil {
		t.Fatal("expected error for empty helper output")
	}
	if _, err := svc.Transcribe(context.Background(), " ", whisper.Request{}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCloseStopsHelperAndRemovesScript(t *testing.T) {
	helper := newFakeHelper(t, replyWith(`{"segments":[]}`))
	svc := whisper.NewService(whisper.Config{Device: "cpu"}, nil)
	svc.WithStarter(helper.start)
	if _, err := svc.Transcribe(context.Background(), "a.wav", whisper.Request{}); err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	starts, _ := helper.snapshot()
	script := starts[0].args[0]
	if _, err := os.Stat(script); err != nil {
		t.Fatalf("expected script on disk: %v", err)
	}
	if err := svc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	select {
	case <-helper.done[0]:
	default:
		t.Fatal("expected helper to exit after Close")
	}
	if _, err := os.Stat(script); !os.IsNotExist(err) {
		t.Fatalf("expected script removed, stat err=%v", err)
	}
}
