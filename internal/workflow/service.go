package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"tagwarden/internal/backup"
	"tagwarden/internal/components"
	"tagwarden/internal/config"
	"tagwarden/internal/fileutil"
	"tagwarden/internal/history"
	"tagwarden/internal/licensing"
	"tagwarden/internal/logging"
	"tagwarden/internal/manifest"
	"tagwarden/internal/tagset"
)

// ErrTagsDirNotFound indicates the configured Logic Tags directory is absent.
var ErrTagsDirNotFound = errors.New("tags directory not found")

// Service runs operations against the configured Tags directory.
type Service struct {
	cfg     *config.Config
	logger  *slog.Logger
	history *history.Store
	store   *tagset.Store
	backups *backup.Manager
	matcher *licensing.Matcher
	now     func() time.Time
}

// New constructs a service. hist may be nil, in which case runs are not
// recorded.
func New(cfg *config.Config, hist *history.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{
		cfg:     cfg,
		logger:  logging.NewComponentLogger(logger, "workflow"),
		history: hist,
		store:   tagset.NewStore(cfg.Paths.TagsDir),
		backups: backup.NewManager(cfg, logger),
		matcher: licensing.NewMatcherFromConfig(cfg.Matching, logger),
		now:     time.Now,
	}
}

// Backups exposes the snapshot manager.
func (s *Service) Backups() *backup.Manager {
	return s.backups
}

// Store exposes the tagset store.
func (s *Service) Store() *tagset.Store {
	return s.store
}

// Matcher exposes the configured license matcher.
func (s *Service) Matcher() *licensing.Matcher {
	return s.matcher
}

func (s *Service) mutator() *manifest.Mutator {
	return manifest.NewMutator(s.store, s.logger)
}

func (s *Service) scanner(filter string) *components.Scanner {
	return components.NewScanner(s.matcher.Rules(), filter, s.logger)
}

func (s *Service) requireTagsDir() error {
	info, err := os.Stat(s.cfg.Paths.TagsDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrTagsDirNotFound, s.cfg.Paths.TagsDir)
		}
		return fmt.Errorf("stat tags directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrTagsDirNotFound, s.cfg.Paths.TagsDir)
	}
	return nil
}

func (s *Service) timestamp() string {
	return s.now().Format("20060102150405")
}

// reportPath places name under the reports directory.
func (s *Service) reportPath(name string) string {
	return filepath.Join(s.cfg.Paths.ReportsDir, name)
}

// record wraps a run in a history row. Ledger failures are logged and never
// fail the operation itself.
func (s *Service) record(ctx context.Context, operation string, dryRun bool, fn func(ctx context.Context, runID string) (history.Outcome, error)) error {
	runID := uuid.NewString()
	ctx = logging.WithOperation(logging.WithRunID(ctx, runID), operation)
	logger := logging.WithContext(ctx, s.logger)

	if s.history != nil {
		if _, err := s.history.Begin(ctx, runID, operation, dryRun); err != nil {
			logging.WarnWithContext(logger, "history unavailable", "history_begin_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "run will not appear in history"),
			)
		}
	}

	outcome, err := fn(ctx, runID)
	outcome.Err = err

	if s.history != nil {
		if ferr := s.history.Finish(context.WithoutCancel(ctx), runID, outcome); ferr != nil {
			logging.WarnWithContext(logger, "history update failed", "history_finish_failed",
				logging.Error(ferr),
				logging.String(logging.FieldImpact, "run status may be stale in history"),
			)
		}
	}
	return err
}

// snapshot copies the Tags directory and prunes old snapshots per the
// retention setting.
func (s *Service) snapshot(ctx context.Context) (backup.Snapshot, error) {
	snap, err := s.backups.Snapshot(ctx, s.cfg.Paths.TagsDir)
	if err != nil {
		return backup.Snapshot{}, err
	}
	if keep := s.cfg.Backup.Keep; keep > 0 {
		if _, err := s.backups.Prune(ctx, keep); err != nil {
			logging.WarnWithContext(s.logger, "backup pruning failed", "backup_prune_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "older snapshots kept"),
			)
		}
	}
	return snap, nil
}

// WriteJSON writes v as indented JSON, creating parent directories.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}
	return fileutil.WriteFileAtomic(path, append(data, '\n'), 0o644)
}
