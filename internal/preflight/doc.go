// Package preflight provides readiness checks for the transcription helper,
// local directories and the configured blob and document stores.
//
// These checks run in two contexts:
//   - "recogni transcribe" calls CheckLauncher before touching any audio so a
//     missing interpreter fails the run instead of every file.
//   - "recogni check" calls CheckSystemDeps and RunAll to display readiness.
//
// Store checks only run when the corresponding provider is configured.
package preflight
