// Package language normalizes the transcription language setting to the
// two-letter code faster-whisper expects.
package language
