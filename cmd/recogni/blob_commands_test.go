package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"recogni/internal/testsupport"
)

func TestBlobUploadListCatDelete(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithLocalBlob())
	testsupport.WriteText(t, filepath.Join(env.cfg.Paths.OutputDir, "a.json"), `{"a":1}`)
	testsupport.WriteText(t, filepath.Join(env.cfg.Paths.OutputDir, "b.json"), `{"b":2}`)
	testsupport.WriteText(t, filepath.Join(env.cfg.Paths.OutputDir, "skip.txt"), "x")

	out, _, err := runCLI(t, []string{"blob", "upload-dir"}, env.configPath)
	if err != nil {
		t.Fatalf("upload-dir: %v", err)
	}
	requireContains(t, out, "Uploaded: 2  Skipped: 0  Failed: 0")

	out, _, err = runCLI(t, []string{"blob", "upload-dir"}, env.configPath)
	if err != nil {
		t.Fatalf("second upload-dir: %v", err)
	}
	requireContains(t, out, "Uploaded: 0  Skipped: 2")

	out, _, err = runCLI(t, []string{"blob", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	requireContains(t, out, "a.json")
	requireContains(t, out, "b.json")
	if strings.Contains(out, "skip.txt") {
		t.Fatalf("non-matching file uploaded: %s", out)
	}

	out, _, err = runCLI(t, []string{"blob", "cat", "a.json"}, env.configPath)
	if err != nil {
		t.Fatalf("cat: %v", err)
	}
	if out != `{"a":1}` {
		t.Fatalf("cat output = %q", out)
	}

	if _, _, err := runCLI(t, []string{"blob", "delete", "a.json"}, env.configPath); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, _, err := runCLI(t, []string{"blob", "cat", "a.json"}, env.configPath); err == nil {
		t.Fatal("expected cat of deleted blob to fail")
	}
}

func TestBlobDownloadAllSkipsExisting(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithLocalBlob())
	src := filepath.Join(env.baseDir, "src")
	testsupport.WriteFile(t, filepath.Join(src, "one.wav"), 8)
	testsupport.WriteFile(t, filepath.Join(src, "two.wav"), 8)

	out, _, err := runCLI(t, []string{"blob", "--container", "audio", "upload-dir", src}, env.configPath)
	if err != nil {
		t.Fatalf("upload-dir: %v", err)
	}
	requireContains(t, out, "Uploaded: 2")

	testsupport.WriteText(t, filepath.Join(env.cfg.Paths.DownloadDir, "one.wav"), "local")
	out, _, err = runCLI(t, []string{"blob", "--container", "audio", "download-all"}, env.configPath)
	if err != nil {
		t.Fatalf("download-all: %v", err)
	}
	requireContains(t, out, "Downloaded: 1  Skipped: 1")

	data, err := os.ReadFile(filepath.Join(env.cfg.Paths.DownloadDir, "one.wav"))
	if err != nil || string(data) != "local" {
		t.Fatalf("existing local file should be kept: %q, %v", data, err)
	}
	if _, err := os.Stat(filepath.Join(env.cfg.Paths.DownloadDir, "two.wav")); err != nil {
		t.Fatalf("two.wav not downloaded: %v", err)
	}
}

func TestBlobDownloadSingle(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithLocalBlob())
	file := filepath.Join(env.baseDir, "doc.json")
	testsupport.WriteText(t, file, "{}")
	if _, _, err := runCLI(t, []string{"blob", "upload", file}, env.configPath); err != nil {
		t.Fatalf("upload: %v", err)
	}

	dest := filepath.Join(env.baseDir, "dest")
	out, _, err := runCLI(t, []string{"blob", "download", "doc.json", "--dest", dest}, env.configPath)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	requireContains(t, out, filepath.Join(dest, "doc.json"))
}

func TestBlobIngestUploadsJSONAndLogs(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithLocalBlob())
	testsupport.WriteText(t, filepath.Join(env.cfg.Paths.OutputDir, "a.json"), "{}")
	testsupport.WriteText(t, filepath.Join(env.cfg.Paths.LogDir, "transcription_20240101_000000.log"), "line\n")

	out, _, err := runCLI(t, []string{"blob", "ingest"}, env.configPath)
	if err != nil {
		t.Fatalf("ingest: %v\n%s", err, out)
	}
	requireContains(t, out, "[json] Uploaded: 1")
	requireContains(t, out, "[logs] Uploaded: 1")

	out, _, err = runCLI(t, []string{"blob", "list", "--container", "logs"}, env.configPath)
	if err != nil {
		t.Fatalf("list logs: %v", err)
	}
	requireContains(t, out, "transcription_20240101_000000.log")
}

func TestBlobRequiresProvider(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"blob", "list"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "blob.provider") {
		t.Fatalf("expected blob.provider error, got %v", err)
	}
}

func TestBlobRejectsUnknownContainer(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithLocalBlob())
	if _, _, err := runCLI(t, []string{"blob", "list", "--container", "video"}, env.configPath); err == nil {
		t.Fatal("expected unknown container kind to fail")
	}
}
