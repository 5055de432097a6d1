package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains local directory configuration.
type Paths struct {
	OutputDir   string `toml:"output_dir"`
	LogDir      string `toml:"log_dir"`
	DownloadDir string `toml:"download_dir"`
}

// Transcription contains faster-whisper invocation settings.
type Transcription struct {
	Model          string `toml:"model"`
	BeamSize       int    `toml:"beam_size"`
	Device         string `toml:"device"`
	ComputeType    string `toml:"compute_type"`
	Language       string `toml:"language"`
	Prompt         string `toml:"prompt"`
	AudioExtension string `toml:"audio_extension"`
	Launcher       string `toml:"launcher"`
	Python         string `toml:"python"`
	ModelCacheDir  string `toml:"model_cache_dir"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// MagicPhrase is one configured courtesy phrase. Pattern is optional.
type MagicPhrase struct {
	Root    string `toml:"root"`
	Pattern string `toml:"pattern"`
}

// Metrics contains metrics engine settings.
type Metrics struct {
	TopN         int           `toml:"top_n"`
	MagicPhrases []MagicPhrase `toml:"magic_phrases"`
}

// Containers names the blob containers (or bucket prefixes) per file kind.
type Containers struct {
	Audio string `toml:"audio"`
	JSON  string `toml:"json"`
	Logs  string `toml:"logs"`
}

// Blob contains blob store configuration.
type Blob struct {
	Provider         string     `toml:"provider"`
	ConnectionString string     `toml:"connection_string"`
	AccountName      string     `toml:"account_name"`
	AccountKey       string     `toml:"account_key"`
	Region           string     `toml:"region"`
	Bucket           string     `toml:"bucket"`
	Endpoint         string     `toml:"endpoint"`
	CredentialsFile  string     `toml:"credentials_file"`
	LocalDir         string     `toml:"local_dir"`
	Containers       Containers `toml:"containers"`
}

// DocStore contains document store configuration.
type DocStore struct {
	Provider   string `toml:"provider"`
	Endpoint   string `toml:"endpoint"`
	Key        string `toml:"key"`
	Database   string `toml:"database"`
	Container  string `toml:"container"`
	SQLitePath string `toml:"sqlite_path"`
}

// Notifications contains ntfy settings. An empty topic disables delivery.
type Notifications struct {
	NtfyTopic             string `toml:"ntfy_topic"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	File          bool   `toml:"file"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for recogni.
//
// Configuration sections by subsystem:
//   - Paths: output, log and download directories
//   - Transcription: model, device and helper launcher
//   - Metrics: top-N size and the courtesy phrase table
//   - Blob: provider credentials and container names
//   - DocStore: cosmos or sqlite document persistence
//   - Notifications: ntfy run summaries
//   - Logging: log format, level, and per-run log files
type Config struct {
	Paths         Paths         `toml:"paths"`
	Transcription Transcription `toml:"transcription"`
	Metrics       Metrics       `toml:"metrics"`
	Blob          Blob          `toml:"blob"`
	DocStore      DocStore      `toml:"docstore"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("recogni.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the output and log directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.OutputDir}
	if c.Logging.File {
		dirs = append(dirs, c.Paths.LogDir)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// TranscriptionTimeout returns the per-file helper timeout; zero means none.
func (c *Config) TranscriptionTimeout() time.Duration {
	if c.Transcription.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.Transcription.TimeoutSeconds) * time.Second
}

// BlobEnabled reports whether a blob provider is configured.
func (c *Config) BlobEnabled() bool {
	return c.Blob.Provider != "" && c.Blob.Provider != ProviderNone
}

// DocStoreEnabled reports whether a document store provider is configured.
func (c *Config) DocStoreEnabled() bool {
	return c.DocStore.Provider != "" && c.DocStore.Provider != ProviderNone
}

// NotificationsEnabled reports whether an ntfy topic is configured.
func (c *Config) NotificationsEnabled() bool {
	return c.Notifications.NtfyTopic != ""
}

// Container returns the configured container name for kind ("audio", "json"
// or "logs").
func (c *Config) Container(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "audio", "audios":
		return c.Blob.Containers.Audio, nil
	case "json":
		return c.Blob.Containers.JSON, nil
	case "logs", "log":
		return c.Blob.Containers.Logs, nil
	default:
		return "", fmt.Errorf("unknown container kind %q (want audio, json or logs)", kind)
	}
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode writes cfg as TOML. Secrets are masked unless reveal is set.
func (c *Config) Encode(w io.Writer, reveal bool) error {
	out := *c
	if !reveal {
		out.Blob.ConnectionString = mask(out.Blob.ConnectionString)
		out.Blob.AccountKey = mask(out.Blob.AccountKey)
		out.DocStore.Key = mask(out.DocStore.Key)
	}
	enc := toml.NewEncoder(w)
	enc.SetIndentTables(true)
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "********"
}
