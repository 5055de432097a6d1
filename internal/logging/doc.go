// Package logging assembles structured slog loggers for recogni.
//
// It owns the console and JSON handlers, the per-run transcription log file,
// and context helpers that tag every line with the run ID and the audio file
// being processed. NewNop provides a silent logger for tests and wiring code
// that cannot fail.
package logging
