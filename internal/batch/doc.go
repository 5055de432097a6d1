// Package batch runs the per-file transcription pipeline over one audio file
// or a directory of them.
//
// Each file goes through transcribe, analyze and write, then optionally store
// (document store) and upload (blob store). Files are processed sequentially
// and a failure in one file never stops the batch: the failing step is
// logged with the audio path and recorded in the Summary. Two runs targeting
// the same output directory are serialized by a lock file.
package batch
