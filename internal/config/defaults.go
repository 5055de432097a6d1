package config

const (
	defaultConfigPath       = "~/.config/recogni/config.toml"
	defaultOutputDir        = "json_files"
	defaultLogDir           = "logs"
	defaultDownloadDir      = "audios"
	defaultModel            = "large-v3"
	defaultBeamSize         = 5
	defaultDevice           = DeviceCUDA
	defaultComputeType      = "int8_float16"
	defaultLanguage         = "pt"
	defaultPrompt           = "Essa é uma transcrição de uma ligação para avaliação de NPS da empresa TOTVS."
	defaultAudioExtension   = ".wav"
	defaultLauncher         = LauncherPython
	defaultPython           = "python3"
	defaultTopN             = 10
	defaultBlobProvider     = ProviderNone
	defaultContainerAudio   = "audios"
	defaultContainerJSON    = "json"
	defaultContainerLogs    = "logs"
	defaultDocStoreProvider = ProviderNone
	defaultCosmosDatabase   = "transcriptions-db"
	defaultCosmosContainer  = "container-result-transcription"
	defaultSQLitePath       = "~/.local/share/recogni/documents.db"
	defaultNtfyTimeout      = 10
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultLogRetentionDays = 30
)

// Provider and option names accepted in configuration.
const (
	ProviderNone   = "none"
	ProviderAzure  = "azure"
	ProviderS3     = "s3"
	ProviderGCS    = "gcs"
	ProviderLocal  = "local"
	ProviderCosmos = "cosmos"
	ProviderSQLite = "sqlite"

	DeviceCUDA = "cuda"
	DeviceCPU  = "cpu"

	LauncherPython = "python"
	LauncherUV     = "uv"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir:   defaultOutputDir,
			LogDir:      defaultLogDir,
			DownloadDir: defaultDownloadDir,
		},
		Transcription: Transcription{
			Model:          defaultModel,
			BeamSize:       defaultBeamSize,
			Device:         defaultDevice,
			ComputeType:    defaultComputeType,
			Language:       defaultLanguage,
			Prompt:         defaultPrompt,
			AudioExtension: defaultAudioExtension,
			Launcher:       defaultLauncher,
			Python:         defaultPython,
		},
		Metrics: Metrics{
			TopN: defaultTopN,
		},
		Blob: Blob{
			Provider: defaultBlobProvider,
		},
		DocStore: DocStore{
			Provider:   defaultDocStoreProvider,
			Database:   defaultCosmosDatabase,
			Container:  defaultCosmosContainer,
			SQLitePath: defaultSQLitePath,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNtfyTimeout,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			File:          true,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
