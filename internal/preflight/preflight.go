package preflight

import (
	"context"

	"creatorpack/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// Endpoint checks only run when YouTube lookups are enabled.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDataDir(cfg.Paths.DataDir, cfg.MinFreeBytes()),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}

	if cfg.YouTube.LookupEnabled {
		results = append(results,
			CheckEndpoint(ctx, "YouTube oEmbed", cfg.YouTube.OembedURL),
			CheckEndpoint(ctx, "YouTube captions", cfg.YouTube.TimedTextURL),
		)
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
