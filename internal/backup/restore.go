package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"tagwarden/internal/config"
	"tagwarden/internal/fileutil"
	"tagwarden/internal/logging"
)

// RestoreFromSnapshot replaces targetDir with a copy of snapshotPath.
func (m *Manager) RestoreFromSnapshot(ctx context.Context, snapshotPath, targetDir string) error {
	info, err := os.Stat(snapshotPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrSnapshotNotFound, snapshotPath)
		}
		return fmt.Errorf("inspect snapshot: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrSnapshotNotFound, snapshotPath)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	targetDir = filepath.Clean(targetDir)
	staging := targetDir + ".restore-tmp"
	if err := os.RemoveAll(staging); err != nil {
		return fmt.Errorf("clear stale restore dir: %w", err)
	}
	if _, err := fileutil.CopyTree(snapshotPath, staging, m.verify); err != nil {
		_ = os.RemoveAll(staging)
		return fmt.Errorf("copy snapshot: %w", err)
	}

	previous := targetDir + ".restore-old"
	_ = os.RemoveAll(previous)
	hadTarget := true
	if err := os.Rename(targetDir, previous); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			_ = os.RemoveAll(staging)
			return fmt.Errorf("move current tags directory aside: %w", err)
		}
		hadTarget = false
	}
	if err := os.Rename(staging, targetDir); err != nil {
		if hadTarget {
			_ = os.Rename(previous, targetDir)
		}
		_ = os.RemoveAll(staging)
		return fmt.Errorf("swap restored tags directory: %w", err)
	}
	if hadTarget {
		if err := os.RemoveAll(previous); err != nil {
			logging.WarnWithContext(m.logger, "failed to remove replaced tags directory", "backup_cleanup_failed",
				logging.String("path", previous),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "delete the directory manually"),
				logging.String(logging.FieldImpact, "disk space held by the old copy"),
			)
		}
	}

	m.logger.InfoContext(ctx, "backup restored",
		logging.String("backup", snapshotPath),
		logging.String("target", targetDir),
	)
	return nil
}

// Resolve maps a user argument to a snapshot path. The argument may be a
// 1-based index into the newest-first listing, a snapshot name under the
// backup root, or a filesystem path.
func (m *Manager) Resolve(arg string) (string, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return "", errors.New("backup name or path is required")
	}

	if n, err := strconv.Atoi(arg); err == nil {
		snaps, err := m.List()
		if err != nil {
			return "", err
		}
		if n < 1 || n > len(snaps) {
			return "", fmt.Errorf("backup %d out of range (%d backups exist)", n, len(snaps))
		}
		return snaps[len(snaps)-n].Path, nil
	}

	if !strings.ContainsRune(arg, filepath.Separator) && !strings.HasPrefix(arg, "~") {
		candidate := filepath.Join(m.root, arg)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate, nil
		}
	}

	path, err := config.ExpandPath(arg)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrSnapshotNotFound, arg)
		}
		return "", fmt.Errorf("inspect backup %q: %w", path, err)
	}
	return path, nil
}
