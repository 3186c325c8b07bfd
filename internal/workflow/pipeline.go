package workflow

import (
	"context"
	"errors"
	"fmt"

	"tagwarden/internal/history"
	"tagwarden/internal/logging"
	"tagwarden/internal/organizer"
)

// ErrProfileRequired indicates the pipeline needs a system profile for the
// hide step.
var ErrProfileRequired = errors.New("system profile required unless the hide step is skipped")

// Pipeline step names as they appear in the summary.
const (
	StepHide        = "hide"
	StepHideSkipped = "hide (skipped)"
	StepTags        = "tags"
	StepExport      = "export"
	StepMap         = "map"
	StepOrganize    = "organize"
)

// PipelineOptions controls Pipeline.
type PipelineOptions struct {
	Profile   string
	Apply     bool
	SkipHide  bool
	MergeTags bool
	MaxBytes  int
	Tool      string
}

// PipelineSummary is the workflow report.
type PipelineSummary struct {
	Apply            bool                `json:"apply"`
	FallbackMatches  []organizer.Result  `json:"fallback_matches,omitempty"`
	GeneratedMapping string              `json:"generated_mapping,omitempty"`
	InitialBackup    string              `json:"initial_backup,omitempty"`
	MissingTagsets   []organizer.Missing `json:"missing_tagsets,omitempty"`
	Steps            []string            `json:"steps"`
	ReportPath       string              `json:"-"`
}

// Pipeline runs backup, hide, tags, export, map and organize in order. A dry
// run takes no backup, hides nothing and stops once the mapping has been
// generated. The summary is written to workflow-<timestamp>.json even when a
// step fails part way.
func (s *Service) Pipeline(ctx context.Context, opts PipelineOptions) (*PipelineSummary, error) {
	if !opts.SkipHide && opts.Profile == "" {
		return nil, ErrProfileRequired
	}
	if opts.Apply {
		release, err := s.acquireLock()
		if err != nil {
			return nil, err
		}
		defer release()
	}

	stamp := s.timestamp()
	summary := &PipelineSummary{
		Apply:      opts.Apply,
		Steps:      []string{},
		ReportPath: s.reportPath(fmt.Sprintf("workflow-%s.json", stamp)),
	}
	err := s.record(ctx, "workflow", !opts.Apply, func(ctx context.Context, runID string) (history.Outcome, error) {
		affected, err := s.pipeline(ctx, runID, stamp, opts, summary)
		return history.Outcome{Affected: affected, Backup: summary.InitialBackup}, err
	})
	if werr := WriteJSON(summary.ReportPath, summary); werr != nil {
		return summary, errors.Join(err, werr)
	}
	s.logger.Info("workflow report written", logging.String("report", summary.ReportPath))
	return summary, err
}

func (s *Service) pipeline(ctx context.Context, runID, stamp string, opts PipelineOptions, summary *PipelineSummary) (int, error) {
	logger := logging.WithContext(ctx, s.logger)
	affected := 0

	if opts.Apply {
		if err := s.requireTagsDir(); err != nil {
			return 0, err
		}
		snap, err := s.snapshot(ctx)
		if err != nil {
			return 0, fmt.Errorf("initial backup: %w", err)
		}
		summary.InitialBackup = snap.Path
		logger.Info("initial backup created", logging.String("backup", snap.Path))
	} else {
		logger.Info("dry run: no backup created")
	}

	if opts.SkipHide {
		summary.Steps = append(summary.Steps, StepHideSkipped)
	} else {
		hidden, err := s.hide(ctx, runID, HideOptions{
			Profile:    opts.Profile,
			Apply:      opts.Apply,
			NoBackup:   true,
			ReportPath: s.reportPath(fmt.Sprintf("hide-report-%s.json", stamp)),
		})
		if err != nil {
			return affected, fmt.Errorf("hide step: %w", err)
		}
		affected += hidden.Hidden
		summary.Steps = append(summary.Steps, StepHide)
	}

	tags, err := s.Tags(ctx, false)
	if err != nil {
		return affected, fmt.Errorf("tags step: %w", err)
	}
	if err := WriteJSON(s.reportPath("logic-tags.json"), tags); err != nil {
		return affected, fmt.Errorf("tags step: %w", err)
	}
	summary.Steps = append(summary.Steps, StepTags)

	export, err := s.Export(ctx, ExportOptions{MaxBytes: opts.MaxBytes})
	if err != nil {
		return affected, fmt.Errorf("export step: %w", err)
	}
	summary.Steps = append(summary.Steps, StepExport)

	generated, err := s.generate(ctx, MapOptions{InputPath: export.Path, Tool: opts.Tool})
	if err != nil {
		return affected, fmt.Errorf("map step: %w", err)
	}
	summary.Steps = append(summary.Steps, StepMap)
	summary.GeneratedMapping = generated.OutputPath

	if !opts.Apply {
		logger.Info("dry run complete; review the generated mapping and rerun with --apply",
			logging.String("generated_mapping", generated.OutputPath))
		return affected, nil
	}

	organized, err := s.organize(ctx, runID, OrganizeOptions{
		MappingPath: generated.OutputPath,
		Apply:       true,
		MergeTags:   opts.MergeTags,
		NoBackup:    true,
		ReportPath:  s.reportPath(fmt.Sprintf("plugin-organizer-report-%s.json", stamp)),
	})
	if err != nil {
		return affected, fmt.Errorf("organize step: %w", err)
	}
	affected += organized.Written
	summary.Steps = append(summary.Steps, StepOrganize)
	summary.FallbackMatches = organized.Report.FallbackMatches
	summary.MissingTagsets = organized.Report.MissingTagsets
	if n := len(summary.FallbackMatches); n > 0 {
		logger.Info("uncategorized plug-ins fell back", logging.Int("count", n))
	}
	if n := len(summary.MissingTagsets); n > 0 {
		logger.Info("tagsets missing", logging.Int("count", n))
	}
	return affected, nil
}
