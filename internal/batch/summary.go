package batch

import (
	"time"

	"recogni/internal/transcript"
)

// Status is the final state of one audio file.
type Status string

const (
	StatusProcessed Status = "processed"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// Pipeline steps, used in logs and failure reports.
const (
	StepTranscribe = "transcribe"
	StepWrite      = "write"
	StepStore      = "store"
	StepUpload     = "upload"
)

// FileOutcome records what happened to one audio file.
type FileOutcome struct {
	Audio    string
	JSONPath string
	Status   Status
	// Step and Err describe the step that failed the file.
	Step string
	Err  error
	// StoreErr and UploadErr do not fail the file; the JSON is already written.
	StoreErr   error
	UploadErr  error
	DocumentID string
	Uploaded   bool
	Metrics    transcript.Metrics
	Elapsed    time.Duration
}

// Summary aggregates a batch run.
type Summary struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Processed  int
	Failed     int
	Skipped    int
	// StoreFailures and UploadFailures count processed files whose optional
	// persistence steps failed.
	StoreFailures  int
	UploadFailures int
	Files          []FileOutcome
}

func (s *Summary) add(outcome FileOutcome) {
	s.Files = append(s.Files, outcome)
	switch outcome.Status {
	case StatusProcessed:
		s.Processed++
	case StatusFailed:
		s.Failed++
	case StatusSkipped:
		s.Skipped++
	}
	if outcome.StoreErr != nil {
		s.StoreFailures++
	}
	if outcome.UploadErr != nil {
		s.UploadFailures++
	}
}

// HasFailures reports whether any file or optional step failed.
func (s Summary) HasFailures() bool {
	return s.Failed > 0 || s.StoreFailures > 0 || s.UploadFailures > 0
}
