package workflow

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"tagwarden/internal/components"
	"tagwarden/internal/history"
	"tagwarden/internal/licensing"
	"tagwarden/internal/logging"
	"tagwarden/internal/manifest"
)

// HiddenPlugin is one unlicensed Audio Unit in the hide report.
type HiddenPlugin struct {
	Component string `json:"component"`
	Name      string `json:"name"`
	Tagset    string `json:"tagset"`
}

// HideReport is the JSON report written by hide.
type HideReport struct {
	ComponentsDirs  []string       `json:"components_dirs"`
	Profile         string         `json:"profile"`
	TagsDir         string         `json:"tags_dir"`
	Unlicensed      []HiddenPlugin `json:"unlicensed"`
	UnlicensedCount int            `json:"unlicensed_count"`
}

// HideOptions controls Hide.
type HideOptions struct {
	Profile    string
	Apply      bool
	NoBackup   bool
	ReportPath string
}

// HideResult summarizes a hide run.
type HideResult struct {
	Report     HideReport          `json:"report"`
	ReportPath string              `json:"report_path,omitempty"`
	Apply      bool                `json:"apply"`
	RunID      string              `json:"run_id,omitempty"`
	Backup     string              `json:"backup,omitempty"`
	Manifest   string              `json:"manifest,omitempty"`
	Hidden     int                 `json:"hidden"`
	Unchanged  int                 `json:"unchanged"`
	Skipped    []string            `json:"skipped,omitempty"`
	Plan       []manifest.PlanItem `json:"plan,omitempty"`
}

// Hide marks the tagsets of unlicensed Audio Units hidden. Without Apply it
// only reports. With Apply it snapshots the Tags directory (unless NoBackup),
// writes the hide markers and folds the prior states into the hide manifest.
func (s *Service) Hide(ctx context.Context, opts HideOptions) (*HideResult, error) {
	if opts.Apply {
		release, err := s.acquireLock()
		if err != nil {
			return nil, err
		}
		defer release()
	}
	var result *HideResult
	err := s.record(ctx, "hide", !opts.Apply, func(ctx context.Context, runID string) (history.Outcome, error) {
		var err error
		result, err = s.hide(ctx, runID, opts)
		if err != nil {
			return history.Outcome{}, err
		}
		return history.Outcome{Affected: result.Hidden, Manifest: result.Manifest, Backup: result.Backup}, nil
	})
	return result, err
}

func (s *Service) hide(ctx context.Context, runID string, opts HideOptions) (*HideResult, error) {
	logger := logging.WithContext(ctx, s.logger)
	if err := s.requireTagsDir(); err != nil {
		return nil, err
	}
	set, err := licensing.LoadProfile(opts.Profile, s.matcher.Rules(), s.cfg.Matching.ProfileLineFilter)
	if err != nil {
		if errors.Is(err, licensing.ErrNoAuthorizations) {
			logging.WarnWithContext(logger, "no authorizations found in profile", "profile_empty",
				logging.String("profile", opts.Profile),
				logging.String(logging.FieldErrorHint, "export the profile from UA Connect via Help > Save System Profile"),
				logging.String(logging.FieldImpact, "nothing hidden"),
			)
		}
		return nil, err
	}

	comps, err := s.scanner(s.cfg.Matching.ComponentFilter).Scan(ctx, s.cfg.Paths.ComponentsDirs)
	if err != nil {
		return nil, err
	}
	unlicensed := make([]components.Component, 0)
	for _, c := range comps {
		match := s.matcher.Match(c.Normalized, set)
		if !match.Matched {
			unlicensed = append(unlicensed, c)
		}
	}
	slices.SortFunc(unlicensed, func(a, b components.Component) int {
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})

	result := &HideResult{
		Apply: opts.Apply,
		Report: HideReport{
			ComponentsDirs:  s.cfg.Paths.ComponentsDirs,
			Profile:         opts.Profile,
			TagsDir:         s.cfg.Paths.TagsDir,
			Unlicensed:      make([]HiddenPlugin, 0, len(unlicensed)),
			UnlicensedCount: len(unlicensed),
		},
	}
	targets := make([]manifest.Target, 0, len(unlicensed))
	for _, c := range unlicensed {
		key := c.StableKey()
		result.Report.Unlicensed = append(result.Report.Unlicensed, HiddenPlugin{Component: c.Path, Name: c.Name, Tagset: key})
		targets = append(targets, manifest.Target{Key: key, Name: c.Name})
	}
	logger.Info("unlicensed components resolved",
		logging.Int("components", len(comps)),
		logging.Int("unlicensed", len(unlicensed)),
	)
	if len(unlicensed) == 0 {
		return result, nil
	}

	if opts.ReportPath != "" {
		if err := WriteJSON(opts.ReportPath, result.Report); err != nil {
			return nil, err
		}
		result.ReportPath = opts.ReportPath
	}

	mutator := s.mutator()
	if !opts.Apply {
		plan, err := mutator.Plan(targets)
		if err != nil {
			return nil, err
		}
		result.Plan = plan
		return result, nil
	}

	if !opts.NoBackup {
		snap, err := s.snapshot(ctx)
		if err != nil {
			return nil, fmt.Errorf("backup before hide: %w", err)
		}
		result.Backup = snap.Path
	}

	applied, err := mutator.Apply(ctx, targets, manifest.SetHide(), manifest.Operation("hide"), manifest.RunID(runID))
	if err != nil {
		var partial *manifest.PartialError
		if errors.As(err, &partial) {
			logging.ErrorWithContext(logger, "hide aborted mid-batch", "hide_partial",
				logging.Int("written", partial.Written),
				logging.Error(partial.Err),
				logging.String(logging.FieldErrorHint, "restore the Tags directory from the backup taken before this run"),
				logging.String(logging.FieldImpact, "some tagsets hidden without a manifest entry"),
			)
		}
		return nil, err
	}
	result.RunID = runID
	result.Hidden = len(applied.Entries)
	result.Unchanged = applied.Unchanged
	result.Skipped = applied.Skipped

	if len(applied.Entries) > 0 {
		path := s.cfg.Paths.ManifestPath
		existing, found, err := manifest.Load(path)
		if err != nil {
			return nil, fmt.Errorf("load existing manifest: %w", err)
		}
		if found {
			existing.Merge(applied)
			applied = existing
		}
		if err := manifest.Save(path, applied); err != nil {
			return nil, err
		}
		result.Manifest = path
	}
	logger.Info("hide applied",
		logging.Int("hidden", result.Hidden),
		logging.Int("unchanged", result.Unchanged),
		logging.String("manifest", result.Manifest),
	)
	return result, nil
}

// ClearOptions controls Clear.
type ClearOptions struct {
	Apply bool
	// All clears every tagset in the directory instead of only the scanned
	// components.
	All bool
}

// ClearResult summarizes a clear run.
type ClearResult struct {
	Apply   bool `json:"apply"`
	All     bool `json:"all"`
	Cleared int  `json:"cleared"`
}

// Clear removes the hide marker from the scanned components' tagsets, or
// from every tagset with All. It keeps no manifest and is idempotent.
func (s *Service) Clear(ctx context.Context, opts ClearOptions) (*ClearResult, error) {
	if opts.Apply {
		release, err := s.acquireLock()
		if err != nil {
			return nil, err
		}
		defer release()
	}
	result := &ClearResult{Apply: opts.Apply, All: opts.All}
	err := s.record(ctx, "clear", !opts.Apply, func(ctx context.Context, _ string) (history.Outcome, error) {
		if err := s.requireTagsDir(); err != nil {
			return history.Outcome{}, err
		}
		var keys []string
		if !opts.All {
			comps, err := s.scanner(s.cfg.Matching.ComponentFilter).Scan(ctx, s.cfg.Paths.ComponentsDirs)
			if err != nil {
				return history.Outcome{}, err
			}
			keys = make([]string, 0, len(comps))
			for _, c := range comps {
				keys = append(keys, c.StableKey())
			}
		}
		cleared, err := s.mutator().Clear(ctx, keys, !opts.Apply)
		result.Cleared = cleared
		return history.Outcome{Affected: cleared}, err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RestoreManifest undoes the edits recorded in a manifest. An empty path
// selects the hide manifest.
func (s *Service) RestoreManifest(ctx context.Context, path string, dryRun bool) (manifest.RestoreResult, error) {
	if path == "" {
		path = s.cfg.Paths.ManifestPath
	}
	if !dryRun {
		release, err := s.acquireLock()
		if err != nil {
			return manifest.RestoreResult{}, err
		}
		defer release()
	}
	var result manifest.RestoreResult
	err := s.record(ctx, "restore", dryRun, func(ctx context.Context, _ string) (history.Outcome, error) {
		var err error
		result, err = manifest.Restore(ctx, path, manifest.RestoreOptions{DryRun: dryRun}, logging.WithContext(ctx, s.logger))
		return history.Outcome{Affected: result.Deleted + result.Rewritten, Manifest: path}, err
	})
	return result, err
}
