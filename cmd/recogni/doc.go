// Package main hosts the recogni CLI entrypoint and command graph.
//
// The Cobra command tree covers batch transcription (also reachable by passing
// an audio path straight to the root command), metrics inspection of written
// JSON documents, blob container transfers, document store ingestion and
// configuration scaffolding. Configuration, .env loading and logger setup are
// resolved once per invocation in commandContext so subcommands only wire the
// internal packages together.
package main
