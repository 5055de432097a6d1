// Package logs finds and tails the per-run transcription logs.
//
// Run logs are named transcription_<YYYYmmdd_HHMMSS>.log inside the configured
// log directory. RunLogs lists them newest first, Tail reads the last N lines
// of one and Follow polls it for appended lines until the context ends.
package logs
