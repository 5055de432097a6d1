// Package whisper runs faster-whisper transcription through an embedded python
// helper.
//
// The helper is written to a private temp directory on first use and invoked
// once per audio file, either directly with a python interpreter or through
// `uv run --with faster-whisper`. It writes its results to a JSON file that the
// service decodes into ordered transcript segments.
//
// Device selection happens once per Service: a cuda request on a host without
// a visible GPU falls back to cpu, and float16 compute types are downgraded to
// int8 because the cpu backend cannot run them.
package whisper
