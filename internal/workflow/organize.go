package workflow

import (
	"context"
	"fmt"

	"tagwarden/internal/history"
	"tagwarden/internal/logging"
	"tagwarden/internal/manifest"
	"tagwarden/internal/organizer"
)

// OrganizeOptions controls Organize.
type OrganizeOptions struct {
	MappingPath     string
	Apply           bool
	MergeTags       bool
	NoBackup        bool
	DiagnoseVendors []string
	ReportPath      string
}

// OrganizeResult summarizes an organize run.
type OrganizeResult struct {
	Report     organizer.Report   `json:"report"`
	ReportPath string             `json:"report_path,omitempty"`
	Diagnose   []organizer.Result `json:"diagnose"`
	RunID      string             `json:"run_id,omitempty"`
	Backup     string             `json:"backup,omitempty"`
	Manifest   string             `json:"manifest,omitempty"`
	Written    int                `json:"written"`
}

// Organize assigns a category to every installed Audio Unit. With Apply it
// snapshots the Tags directory, rewrites the category databases and tags
// every existing tagset, and saves a manifest that restore can replay.
func (s *Service) Organize(ctx context.Context, opts OrganizeOptions) (*OrganizeResult, error) {
	if opts.Apply {
		release, err := s.acquireLock()
		if err != nil {
			return nil, err
		}
		defer release()
	}
	var result *OrganizeResult
	err := s.record(ctx, "organize", !opts.Apply, func(ctx context.Context, runID string) (history.Outcome, error) {
		var err error
		result, err = s.organize(ctx, runID, opts)
		if err != nil {
			return history.Outcome{}, err
		}
		return history.Outcome{Affected: result.Written, Manifest: result.Manifest, Backup: result.Backup}, nil
	})
	return result, err
}

func (s *Service) organize(ctx context.Context, runID string, opts OrganizeOptions) (*OrganizeResult, error) {
	logger := logging.WithContext(ctx, s.logger)
	mappingPath := opts.MappingPath
	if mappingPath == "" {
		mappingPath = s.cfg.Organize.MappingPath
	}
	mapping, err := organizer.LoadMapping(mappingPath)
	if err != nil {
		return nil, err
	}
	org := organizer.New(mapping, s.logger)

	comps, err := s.scanner("").Scan(ctx, s.cfg.Paths.ComponentsDirs)
	if err != nil {
		return nil, err
	}
	plan := org.Plan(comps)
	result := &OrganizeResult{Diagnose: plan.Diagnose(opts.DiagnoseVendors)}

	var missing []organizer.Missing
	if opts.Apply {
		if err := s.requireTagsDir(); err != nil {
			return nil, err
		}
		if !opts.NoBackup {
			snap, err := s.snapshot(ctx)
			if err != nil {
				return nil, fmt.Errorf("backup before organize: %w", err)
			}
			result.Backup = snap.Path
		}
		applied, err := org.Apply(ctx, s.mutator(), plan, organizer.ApplyOptions{MergeTags: opts.MergeTags, RunID: runID})
		if err != nil {
			return nil, err
		}
		missing = applied.Missing
		result.RunID = runID
		result.Written = len(applied.Manifest.Entries)
		if result.Written > 0 {
			path := s.reportPath(fmt.Sprintf("organize-manifest-%s.json", s.timestamp()))
			if err := manifest.Save(path, applied.Manifest); err != nil {
				return nil, err
			}
			result.Manifest = path
		}
		logger.Info("organize applied",
			logging.Int("written", result.Written),
			logging.Int("missing_tagsets", len(missing)),
			logging.String("manifest", result.Manifest),
		)
	}

	result.Report = org.NewReport(plan, s.cfg.Paths.ComponentsDirs, s.cfg.Paths.TagsDir, opts.Apply, missing)
	result.Report.Manifest = result.Manifest
	if opts.ReportPath != "" {
		if err := WriteJSON(opts.ReportPath, result.Report); err != nil {
			return nil, err
		}
		result.ReportPath = opts.ReportPath
	}
	logger.Info("organize plan ready",
		logging.Int("plugins", len(plan.Results)),
		logging.Int("fallback", len(plan.Fallback)),
		logging.Int("excluded", len(plan.Excluded)),
	)
	return result, nil
}
