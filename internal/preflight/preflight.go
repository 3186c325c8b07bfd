package preflight

import (
	"context"
	"path/filepath"

	"tagwarden/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string `json:"name"`
	Passed   bool   `json:"passed"`
	Optional bool   `json:"optional,omitempty"`
	Detail   string `json:"detail"`
}

// RunAll executes the checks a mutating run depends on.
func RunAll(_ context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Tags directory", cfg.Paths.TagsDir),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckDirectoryAccess("Backup directory", cfg.Paths.BackupDir),
	}
	if dir := filepath.Dir(cfg.Paths.ManifestPath); dir != cfg.Paths.StateDir {
		results = append(results, CheckDirectoryAccess("Manifest directory", dir))
	}
	return results
}

// Failed returns the required checks that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed && !r.Optional {
			out = append(out, r)
		}
	}
	return out
}
