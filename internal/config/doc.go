// Package config loads, normalizes, and validates recogni configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, loads an optional .env file, and honours
// environment fallbacks such as STORAGE_ACCOUNT_KEY and COSMOS_ENDPOINT. The
// Config type is passed explicitly to every collaborator (transcriber, metrics
// engine, blob store, document store) at construction time.
package config
