package config

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"recogni/internal/language"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTranscription(); err != nil {
		return err
	}
	if err := c.validateMetrics(); err != nil {
		return err
	}
	if err := c.validateBlob(); err != nil {
		return err
	}
	if err := c.validateDocStore(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateTranscription() error {
	t := c.Transcription
	switch t.Device {
	case DeviceCUDA, DeviceCPU, "auto":
	default:
		return fmt.Errorf("transcription.device must be cuda, cpu or auto (got %q)", t.Device)
	}
	switch t.Launcher {
	case LauncherPython, LauncherUV:
	default:
		return fmt.Errorf("transcription.launcher must be python or uv (got %q)", t.Launcher)
	}
	if _, err := language.Code(t.Language); err != nil {
		return fmt.Errorf("transcription.language: %w", err)
	}
	if t.BeamSize > 50 {
		return fmt.Errorf("transcription.beam_size must be between 1 and 50 (got %d)", t.BeamSize)
	}
	return nil
}

func (c *Config) validateMetrics() error {
	if c.Metrics.TopN > 1000 {
		return fmt.Errorf("metrics.top_n must be between 1 and 1000 (got %d)", c.Metrics.TopN)
	}
	seen := make(map[string]struct{}, len(c.Metrics.MagicPhrases))
	for i, phrase := range c.Metrics.MagicPhrases {
		if phrase.Root == "" {
			return fmt.Errorf("metrics.magic_phrases[%d].root must be set", i)
		}
		key := strings.ToLower(phrase.Root)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("metrics.magic_phrases: duplicate root %q", phrase.Root)
		}
		seen[key] = struct{}{}
		if phrase.Pattern != "" {
			if _, err := regexp.Compile(phrase.Pattern); err != nil {
				return fmt.Errorf("metrics.magic_phrases[%d].pattern: %w", i, err)
			}
		}
	}
	return nil
}

func (c *Config) validateBlob() error {
	b := c.Blob
	switch b.Provider {
	case ProviderNone:
		return nil
	case ProviderAzure:
		if b.ConnectionString == "" && (b.AccountName == "" || b.AccountKey == "") {
			return errors.New("blob.connection_string (or STORAGE_ACCOUNT_KEY) or blob.account_name + blob.account_key is required for azure")
		}
	case ProviderS3:
		if b.Region == "" && b.Endpoint == "" {
			return errors.New("blob.region (or AWS_REGION) is required for s3")
		}
	case ProviderGCS:
	case ProviderLocal:
		if b.LocalDir == "" {
			return errors.New("blob.local_dir is required for the local provider")
		}
	default:
		return fmt.Errorf("blob.provider must be azure, s3, gcs, local or none (got %q)", b.Provider)
	}
	if b.Containers.Audio == "" || b.Containers.JSON == "" || b.Containers.Logs == "" {
		return errors.New("blob.containers.audio, json and logs must be set")
	}
	return nil
}

func (c *Config) validateDocStore() error {
	d := c.DocStore
	switch d.Provider {
	case ProviderNone:
	case ProviderCosmos:
		if d.Endpoint == "" || d.Key == "" {
			return errors.New("docstore.endpoint and docstore.key (or COSMOS_ENDPOINT and COSMOS_KEY) are required for cosmos")
		}
	case ProviderSQLite:
		if d.SQLitePath == "" {
			return errors.New("docstore.sqlite_path must be set")
		}
	default:
		return fmt.Errorf("docstore.provider must be cosmos, sqlite or none (got %q)", d.Provider)
	}
	return nil
}

func (c *Config) validateNotifications() error {
	topic := c.Notifications.NtfyTopic
	if topic == "" {
		return nil
	}
	parsed, err := url.Parse(topic)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("notifications.ntfy_topic must be an http(s) URL (got %q)", topic)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error (got %q)", c.Logging.Level)
	}
}
