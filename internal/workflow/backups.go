package workflow

import (
	"context"

	"tagwarden/internal/backup"
	"tagwarden/internal/history"
	"tagwarden/internal/logging"
)

// CreateBackup snapshots the Tags directory.
func (s *Service) CreateBackup(ctx context.Context) (backup.Snapshot, error) {
	release, err := s.acquireLock()
	if err != nil {
		return backup.Snapshot{}, err
	}
	defer release()

	var snap backup.Snapshot
	err = s.record(ctx, "backup", false, func(ctx context.Context, _ string) (history.Outcome, error) {
		if err := s.requireTagsDir(); err != nil {
			return history.Outcome{}, err
		}
		var err error
		snap, err = s.snapshot(ctx)
		return history.Outcome{Affected: snap.Files, Backup: snap.Path}, err
	})
	return snap, err
}

// RestoreBackup replaces the Tags directory with the snapshot at path.
func (s *Service) RestoreBackup(ctx context.Context, path string) error {
	release, err := s.acquireLock()
	if err != nil {
		return err
	}
	defer release()

	return s.record(ctx, "backup-restore", false, func(ctx context.Context, _ string) (history.Outcome, error) {
		if err := s.backups.RestoreFromSnapshot(ctx, path, s.cfg.Paths.TagsDir); err != nil {
			return history.Outcome{Backup: path}, err
		}
		logging.WithContext(ctx, s.logger).Info("tags restored from backup", logging.String("backup", path))
		return history.Outcome{Backup: path}, nil
	})
}

// LatestBackup returns the newest snapshot path.
func (s *Service) LatestBackup() (string, error) {
	snap, err := s.backups.Latest()
	if err != nil {
		return "", err
	}
	return snap.Path, nil
}
