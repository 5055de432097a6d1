// Package transcript defines the transcription document persisted for every
// audio file and its JSON encoding.
//
// A Document bundles the prompt, model, source audio path, the ordered
// segments returned by the speech-to-text engine, and the metrics record.
// Documents are written once as UTF-8 JSON with four-space indentation and
// literal (unescaped) non-ASCII text.
package transcript
