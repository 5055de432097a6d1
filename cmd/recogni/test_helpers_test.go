package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"recogni/internal/config"
	"recogni/internal/testsupport"
)

const helperPayload = `{"language":"pt","duration":6.0,"segments":[
{"start":0.0,"end":3.0,"text":" obrigado pelo atendimento"},
{"start":3.0,"end":6.0,"text":" de nada, boa tarde"}]}`

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	for _, key := range []string{
		config.EnvStorageAccountKey,
		config.EnvContainerAudios,
		config.EnvContainerJSON,
		config.EnvContainerLogs,
		config.EnvCosmosEndpoint,
		config.EnvCosmosKey,
		config.EnvAWSRegion,
		"AWS_DEFAULT_REGION",
		config.EnvS3Bucket,
		config.EnvGCSBucket,
		config.EnvGCSCredentials,
		config.EnvNtfyTopic,
	} {
		t.Setenv(key, "")
	}

	cfg := testsupport.NewConfig(t, opts...)
	base := testsupport.BaseDir(cfg)
	t.Setenv("HOME", filepath.Join(base, "home"))
	installHelperStub(t, base)

	configPath := filepath.Join(base, "recogni.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{cfg: cfg, configPath: configPath, baseDir: base}
}

// installHelperStub puts a python3 on PATH that answers the transcription
// helper protocol. In --serve mode it reads one JSON request per line,
// writes helperPayload to the request output and replies, or replies with
// an error for audio paths containing "broken". Other invocations exit 0.
func installHelperStub(t *testing.T, base string) {
	t.Helper()
	binDir := filepath.Join(base, "bin")
	script := "#!/bin/sh\n" +
		"case \" $* \" in *\" --serve \"*) ;; *) exit 0;; esac\n" +
		"while IFS= read -r line; do\n" +
		"  out=$(printf '%s\\n' \"$line\" | sed -n 's/.*\"output\":\"\\([^\"]*\\)\".*/\\1/p')\n" +
		"  audio=$(printf '%s\\n' \"$line\" | sed -n 's/.*\"audio\":\"\\([^\"]*\\)\".*/\\1/p')\n" +
		"  case \"$audio\" in\n" +
		"    *broken*) printf '{\"output\":\"%s\",\"error\":\"decode failed\"}\\n' \"$out\"; continue;;\n" +
		"  esac\n" +
		"  cat > \"$out\" <<'JSON'\n" + helperPayload + "\nJSON\n" +
		"  printf '{\"output\":\"%s\"}\\n' \"$out\"\n" +
		"done\n"
	testsupport.WriteText(t, filepath.Join(binDir, "python3"), script)
	if err := os.Chmod(filepath.Join(binDir, "python3"), 0o755); err != nil {
		t.Fatalf("chmod stub: %v", err)
	}
	t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	var buf bytes.Buffer
	if err := cfg.Encode(&buf, true); err != nil {
		t.Fatalf("encode config: %v", err)
	}
	testsupport.WriteText(t, path, buf.String())
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--env-file", ""}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
