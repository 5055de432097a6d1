package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"recogni/internal/config"
	"recogni/internal/testsupport"
	"recogni/internal/textutil"
)

func TestCheckReportsReadyHelper(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithSQLiteDocStore())

	out, _, err := runCLI(t, []string{"check"}, env.configPath)
	if err != nil {
		t.Fatalf("check: %v\n%s", err, out)
	}
	requireContains(t, out, "== Dependencies ==")
	requireContains(t, out, "[OK] Ready (command: "+filepath.Join(env.baseDir, "bin", "python3")+")")
	requireContains(t, out, "Python module faster_whisper:")
	requireContains(t, out, "sqlite (reachable)")
	requireContains(t, out, "Output directory:")
	requireContains(t, out, "== Metrics ==")
	requireContains(t, out, "[INFO] 9 roots, top ")
	requireContains(t, out, "[INFO] "+textutil.RootPattern("por favor"))
}

func TestCheckFailsWhenLauncherMissing(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.Transcription.Launcher = config.LauncherUV
	writeTestConfig(t, env.configPath, env.cfg)
	t.Setenv("PATH", filepath.Join(env.baseDir, "bin"))

	out, _, err := runCLI(t, []string{"check"}, env.configPath)
	if err == nil {
		t.Fatal("expected check to fail without uv")
	}
	requireContains(t, out, "[ERROR]")
	requireContains(t, out, "Missing dependencies:")
	if strings.Contains(out, "faster_whisper") {
		t.Fatalf("python module check should not run for uv: %s", out)
	}
}

func TestTranscribeFailsFastWithoutLauncher(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.Transcription.Python = "python-does-not-exist"
	writeTestConfig(t, env.configPath, env.cfg)
	audio := filepath.Join(env.baseDir, "call.wav")
	testsupport.WriteFile(t, audio, 16)

	if _, _, err := runCLI(t, []string{"transcribe", audio}, env.configPath); err == nil {
		t.Fatal("expected missing interpreter to fail the run")
	}
	if _, err := os.Stat(filepath.Join(env.cfg.Paths.OutputDir, "call.json")); !os.IsNotExist(err) {
		t.Fatalf("no JSON expected, stat err = %v", err)
	}
}
