package config

import (
	"fmt"
	"strings"

	"recogni/internal/language"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTranscription()
	c.normalizeMetrics()
	if err := c.normalizeBlob(); err != nil {
		return err
	}
	if err := c.normalizeDocStore(); err != nil {
		return err
	}
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.DownloadDir) == "" {
		c.Paths.DownloadDir = defaultDownloadDir
	}
	if c.Paths.DownloadDir, err = expandPath(c.Paths.DownloadDir); err != nil {
		return fmt.Errorf("paths.download_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeTranscription() {
	t := &c.Transcription
	t.Model = strings.TrimSpace(t.Model)
	if t.Model == "" {
		t.Model = defaultModel
	}
	if t.BeamSize <= 0 {
		t.BeamSize = defaultBeamSize
	}
	t.Device = strings.ToLower(strings.TrimSpace(t.Device))
	if t.Device == "" {
		t.Device = defaultDevice
	}
	t.ComputeType = strings.ToLower(strings.TrimSpace(t.ComputeType))
	if t.ComputeType == "" {
		t.ComputeType = defaultComputeType
	}
	t.Language = strings.ToLower(strings.TrimSpace(t.Language))
	if t.Language == "" {
		t.Language = defaultLanguage
	}
	if code, err := language.Code(t.Language); err == nil {
		t.Language = code
	}
	t.AudioExtension = strings.ToLower(strings.TrimSpace(t.AudioExtension))
	if t.AudioExtension == "" {
		t.AudioExtension = defaultAudioExtension
	}
	if !strings.HasPrefix(t.AudioExtension, ".") {
		t.AudioExtension = "." + t.AudioExtension
	}
	t.Launcher = strings.ToLower(strings.TrimSpace(t.Launcher))
	if t.Launcher == "" {
		t.Launcher = defaultLauncher
	}
	t.Python = strings.TrimSpace(t.Python)
	if t.Python == "" {
		t.Python = defaultPython
	}
	if t.ModelCacheDir != "" {
		if expanded, err := expandPath(t.ModelCacheDir); err == nil {
			t.ModelCacheDir = expanded
		}
	}
	if t.TimeoutSeconds < 0 {
		t.TimeoutSeconds = 0
	}
}

func (c *Config) normalizeMetrics() {
	if c.Metrics.TopN <= 0 {
		c.Metrics.TopN = defaultTopN
	}
	phrases := c.Metrics.MagicPhrases[:0]
	for _, phrase := range c.Metrics.MagicPhrases {
		phrase.Root = strings.TrimSpace(phrase.Root)
		phrase.Pattern = strings.TrimSpace(phrase.Pattern)
		if phrase.Root == "" && phrase.Pattern == "" {
			continue
		}
		phrases = append(phrases, phrase)
	}
	c.Metrics.MagicPhrases = phrases
}

func (c *Config) normalizeBlob() error {
	b := &c.Blob
	b.Provider = strings.ToLower(strings.TrimSpace(b.Provider))
	if b.Provider == "" {
		b.Provider = defaultBlobProvider
	}

	lookupEnv(&b.ConnectionString, EnvStorageAccountKey)
	lookupEnv(&b.Containers.Audio, EnvContainerAudios)
	lookupEnv(&b.Containers.JSON, EnvContainerJSON)
	lookupEnv(&b.Containers.Logs, EnvContainerLogs)
	lookupEnv(&b.Region, EnvAWSRegion, "AWS_DEFAULT_REGION")
	switch b.Provider {
	case ProviderS3:
		lookupEnv(&b.Bucket, EnvS3Bucket)
	case ProviderGCS:
		lookupEnv(&b.Bucket, EnvGCSBucket)
		lookupEnv(&b.CredentialsFile, EnvGCSCredentials)
	}

	b.ConnectionString = strings.TrimSpace(b.ConnectionString)
	b.AccountName = strings.TrimSpace(b.AccountName)
	b.AccountKey = strings.TrimSpace(b.AccountKey)
	b.Region = strings.TrimSpace(b.Region)
	b.Bucket = strings.TrimSpace(b.Bucket)
	b.Endpoint = strings.TrimSpace(b.Endpoint)
	b.Containers.Audio = strings.TrimSpace(b.Containers.Audio)
	b.Containers.JSON = strings.TrimSpace(b.Containers.JSON)
	b.Containers.Logs = strings.TrimSpace(b.Containers.Logs)
	if b.Containers.Audio == "" {
		b.Containers.Audio = defaultContainerAudio
	}
	if b.Containers.JSON == "" {
		b.Containers.JSON = defaultContainerJSON
	}
	if b.Containers.Logs == "" {
		b.Containers.Logs = defaultContainerLogs
	}

	var err error
	if b.CredentialsFile, err = expandPath(strings.TrimSpace(b.CredentialsFile)); err != nil {
		return fmt.Errorf("blob.credentials_file: %w", err)
	}
	if b.LocalDir, err = expandPath(strings.TrimSpace(b.LocalDir)); err != nil {
		return fmt.Errorf("blob.local_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeDocStore() error {
	d := &c.DocStore
	d.Provider = strings.ToLower(strings.TrimSpace(d.Provider))
	if d.Provider == "" {
		d.Provider = defaultDocStoreProvider
	}
	lookupEnv(&d.Endpoint, EnvCosmosEndpoint)
	lookupEnv(&d.Key, EnvCosmosKey)
	d.Endpoint = strings.TrimSpace(d.Endpoint)
	d.Key = strings.TrimSpace(d.Key)
	d.Database = strings.TrimSpace(d.Database)
	if d.Database == "" {
		d.Database = defaultCosmosDatabase
	}
	d.Container = strings.TrimSpace(d.Container)
	if d.Container == "" {
		d.Container = defaultCosmosContainer
	}
	if strings.TrimSpace(d.SQLitePath) == "" {
		d.SQLitePath = defaultSQLitePath
	}
	var err error
	if d.SQLitePath, err = expandPath(d.SQLitePath); err != nil {
		return fmt.Errorf("docstore.sqlite_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeNotifications() {
	n := &c.Notifications
	lookupEnv(&n.NtfyTopic, EnvNtfyTopic)
	n.NtfyTopic = strings.TrimSpace(n.NtfyTopic)
	if n.RequestTimeoutSeconds <= 0 {
		n.RequestTimeoutSeconds = defaultNtfyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
