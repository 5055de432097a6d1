package preflight

import (
	"context"

	"recogni/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the directory and store checks for the given config. The
// log directory is only checked when run log files are enabled, and store
// checks only run when a provider is configured.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir)}
	if cfg.Logging.File {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	}

	if cfg.BlobEnabled() {
		for _, kind := range []string{"audio", "json", "logs"} {
			container, err := cfg.Container(kind)
			if err != nil {
				results = append(results, Result{Name: "Blob " + kind, Detail: err.Error()})
				continue
			}
			results = append(results, CheckBlobContainer(ctx, "Blob "+kind, cfg.Blob, container))
		}
	}

	if cfg.DocStoreEnabled() {
		results = append(results, CheckDocStore(ctx, cfg.DocStore))
	}

	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
