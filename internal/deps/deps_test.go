package deps

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Optional", Command: "another-missing-binary", Optional: true},
		{Name: "Blank"},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Detail != "" {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary with detail, got %#v", results[1])
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}
	if results[3].Detail != "command not configured" {
		t.Fatalf("unexpected detail for blank command: %q", results[3].Detail)
	}

	missing := Missing(results)
	if len(missing) != 2 || missing[0].Name != "Missing" || missing[1].Name != "Blank" {
		t.Fatalf("unexpected missing set: %#v", missing)
	}
}

func TestDetectCUDA(t *testing.T) {
	run := func(_ context.Context, name string, args ...string) ([]byte, error) {
		if name != "nvidia-smi" || len(args) != 1 || args[0] != "-L" {
			t.Fatalf("unexpected command %s %v", name, args)
		}
		return []byte("GPU 0: NVIDIA A10 (UUID: GPU-1234)\nGPU 1: Tesla T4 (UUID: GPU-5678)\n"), nil
	}
	gpus := DetectCUDA(context.Background(), run)
	if len(gpus) != 2 || gpus[0].Name != "NVIDIA A10" || gpus[1].Index != "1" {
		t.Fatalf("unexpected gpus: %#v", gpus)
	}
	if !CUDAAvailable(context.Background(), run) {
		t.Fatal("expected CUDA available")
	}
}

func TestDetectCUDAFailure(t *testing.T) {
	run := func(context.Context, string, ...string) ([]byte, error) {
		return []byte("NVIDIA-SMI has failed"), errors.New("exit status 9")
	}
	if CUDAAvailable(context.Background(), run) {
		t.Fatal("expected CUDA unavailable when detection fails")
	}
	if gpus := parseGPUList("No devices were found\n"); len(gpus) != 0 {
		t.Fatalf("expected no gpus, got %#v", gpus)
	}
}

func TestCheckPythonModule(t *testing.T) {
	ok := func(_ context.Context, name string, args ...string) ([]byte, error) {
		if name != "python3" || args[1] != "import faster_whisper" {
			t.Fatalf("unexpected invocation %s %v", name, args)
		}
		return nil, nil
	}
	if status := CheckPythonModule(context.Background(), ok, "python3", "faster_whisper"); !status.Available {
		t.Fatalf("expected module available: %#v", status)
	}

	fail := func(context.Context, string, ...string) ([]byte, error) {
		return []byte("Traceback (most recent call last):\nModuleNotFoundError: No module named 'faster_whisper'\n"), errors.New("exit status 1")
	}
	status := CheckPythonModule(context.Background(), fail, "python3", "faster_whisper")
	if status.Available || status.Detail != "ModuleNotFoundError: No module named 'faster_whisper'" {
		t.Fatalf("unexpected status: %#v", status)
	}
}
