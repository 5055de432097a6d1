// Package services holds shared error markers for the external integrations
// (transcription helper, blob and document stores).
//
// Wrap tags a failure with a marker and the step it happened in; Kind maps the
// marker back to a short label used in log event types and the run summary.
package services
