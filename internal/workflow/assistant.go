package workflow

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"tagwarden/internal/assistant"
	"tagwarden/internal/fileutil"
	"tagwarden/internal/history"
	"tagwarden/internal/logging"
)

// DefaultExportName is the export file written under the reports directory.
const DefaultExportName = "au-plugins.json"

// ExportOptions controls Export.
type ExportOptions struct {
	OutputPath string
	MaxBytes   int
}

// ExportResult summarizes an export.
type ExportResult struct {
	Path  string                `json:"path"`
	Stats assistant.ExportStats `json:"stats"`
}

// Export writes the plug-in inventory for the AI mapping step.
func (s *Service) Export(ctx context.Context, opts ExportOptions) (*ExportResult, error) {
	if opts.OutputPath == "" {
		opts.OutputPath = s.reportPath(DefaultExportName)
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = s.cfg.Assistant.MaxBytes
	}
	comps, err := s.scanner("").Scan(ctx, s.cfg.Paths.ComponentsDirs)
	if err != nil {
		return nil, err
	}
	export, stats, err := assistant.BuildExport(s.store, comps, s.cfg.Paths.ComponentsDirs, s.cfg.Organize.MappingPath, s.logger)
	if err != nil {
		return nil, err
	}
	data, stats, err := assistant.Encode(export, opts.MaxBytes, stats)
	if err != nil {
		return nil, err
	}
	if stats.Trimmed {
		logging.WarnWithContext(s.logger, "export trimmed to size limit", "export_trimmed",
			logging.Int("exported", stats.Exported),
			logging.Int("found", stats.Found),
			logging.Int("max_bytes", opts.MaxBytes),
			logging.String(logging.FieldErrorHint, "raise assistant.max_bytes to include every plug-in"),
			logging.String(logging.FieldImpact, "the generated mapping may miss plug-ins"),
		)
	}
	if err := os.MkdirAll(filepath.Dir(opts.OutputPath), 0o755); err != nil {
		return nil, fmt.Errorf("create export directory: %w", err)
	}
	if err := fileutil.WriteFileAtomic(opts.OutputPath, data, 0o644); err != nil {
		return nil, err
	}
	s.logger.Info("export written",
		logging.String("output", opts.OutputPath),
		logging.Int("plugins", stats.Exported),
		logging.Int("bytes", stats.Bytes),
	)
	return &ExportResult{Path: opts.OutputPath, Stats: stats}, nil
}

// MapOptions controls Map.
type MapOptions struct {
	InputPath  string
	OutputPath string
	Tool       string
}

// Map asks the configured AI tools for a category mapping.
func (s *Service) Map(ctx context.Context, opts MapOptions) (*assistant.Generated, error) {
	var generated *assistant.Generated
	err := s.record(ctx, "map", false, func(ctx context.Context, _ string) (history.Outcome, error) {
		var err error
		generated, err = s.generate(ctx, opts)
		if generated == nil {
			return history.Outcome{}, err
		}
		return history.Outcome{Affected: len(generated.Keys)}, err
	})
	return generated, err
}

func (s *Service) generate(ctx context.Context, opts MapOptions) (*assistant.Generated, error) {
	if opts.InputPath == "" {
		opts.InputPath = s.reportPath(DefaultExportName)
	}
	if opts.OutputPath == "" {
		opts.OutputPath = s.cfg.Organize.GeneratedMappingPath
	}
	input, err := os.ReadFile(opts.InputPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("export not found: %s (run export first)", opts.InputPath)
		}
		return nil, fmt.Errorf("read export: %w", err)
	}
	gen := assistant.NewGenerator(s.cfg, logging.WithContext(ctx, s.logger))
	generated, err := gen.Generate(ctx, input, opts.Tool, opts.OutputPath)
	if errors.Is(err, assistant.ErrNoToolSucceeded) || errors.Is(err, assistant.ErrNoToolAvailable) {
		logging.WarnWithContext(s.logger, "mapping generation failed", "assistant_failed",
			logging.String("input", opts.InputPath),
			logging.String("prompt", s.cfg.Assistant.PromptPath),
			logging.String(logging.FieldErrorHint, "run the prompt manually with the export as input"),
			logging.String(logging.FieldImpact, "no generated mapping"),
		)
	}
	return generated, err
}
