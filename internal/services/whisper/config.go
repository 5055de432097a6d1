package whisper

import "time"

// Config captures runtime settings for faster-whisper.
type Config struct {
	// Model is the faster-whisper model name or path (e.g. "large-v3").
	Model string
	// Device is "cuda", "cpu" or "auto".
	Device string
	// ComputeType is the CTranslate2 quantisation (e.g. "int8_float16").
	ComputeType string
	BeamSize    int
	Language    string
	// Launcher selects how the helper is started: "python" or "uv".
	Launcher string
	// Python is the interpreter used by the python launcher.
	Python string
	// ModelCacheDir is passed as the model download root when set.
	ModelCacheDir string
	// Timeout bounds one helper invocation; zero disables it.
	Timeout time.Duration
}

// Defaults applied when Config fields are empty.
const (
	DefaultModel       = "large-v3"
	DefaultComputeType = "int8_float16"
	DefaultBeamSize    = 5
	DefaultLanguage    = "pt"
	DefaultPython      = "python3"
	CPUDevice          = "cpu"
	CUDADevice         = "cuda"
	AutoDevice         = "auto"
	CPUComputeType     = "int8"
	LauncherPython     = "python"
	LauncherUV         = "uv"
	UVCommand          = "uv"
	FasterWhisperPkg   = "faster-whisper"
	helperScriptName   = "recogni_faster_whisper.py"
)

func (c Config) withDefaults() Config {
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.Device == "" {
		c.Device = CUDADevice
	}
	if c.ComputeType == "" {
		c.ComputeType = DefaultComputeType
	}
	if c.BeamSize <= 0 {
		c.BeamSize = DefaultBeamSize
	}
	if c.Language == "" {
		c.Language = DefaultLanguage
	}
	if c.Launcher == "" {
		c.Launcher = LauncherPython
	}
	if c.Python == "" {
		c.Python = DefaultPython
	}
	return c
}
