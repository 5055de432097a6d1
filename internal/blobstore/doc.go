// Package blobstore moves audio, transcription JSON and log files between the
// local disk and a blob container.
//
// A Store addresses exactly one container. Azure Blob Storage containers map
// one to one; on S3 and Cloud Storage a container is either a bucket of the
// same name or, when blob.bucket is set, a key prefix inside that bucket. The
// local provider keeps each container as a directory, which is what tests and
// air-gapped installs use.
//
// The bulk helpers (DownloadAll, UploadDir, UploadFiles) never stop on a
// single file: failures are logged and collected in the TransferReport.
package blobstore
