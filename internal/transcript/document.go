package transcript

import (
	"path/filepath"
	"strings"
)

// Document is the persisted unit for one audio file.
type Document struct {
	Prompt        string    `json:"prompt"`
	Model         string    `json:"model,omitempty"`
	AudioPath     string    `json:"audio_path"`
	Transcription []Segment `json:"transcription"`
	Metrics       Metrics   `json:"metrics"`
}

// JSONName returns the output file name for an audio path: the base name with
// its extension replaced by ".json".
func JSONName(audioPath string) string {
	base := filepath.Base(audioPath)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".json"
}
