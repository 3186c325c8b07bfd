package manifest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"tagwarden/internal/fileutil"
	"tagwarden/internal/logging"
)

// Restore actions.
const (
	ActionDelete     = "delete"
	ActionRewrite    = "rewrite"
	ActionSkipAbsent = "skip-absent"
)

// RestoreAction describes what Restore did, or would do, to one record.
type RestoreAction struct {
	Action    string `json:"action"`
	RecordKey string `json:"record_key"`
	Path      string `json:"path"`
}

// RestoreResult summarizes a restore.
type RestoreResult struct {
	Manifest  string          `json:"manifest"`
	Found     bool            `json:"found"`
	RunID     string          `json:"run_id,omitempty"`
	DryRun    bool            `json:"dry_run"`
	Actions   []RestoreAction `json:"actions"`
	Deleted   int             `json:"deleted"`
	Rewritten int             `json:"rewritten"`
	Absent    int             `json:"absent"`
}

// RestoreOptions controls Restore.
type RestoreOptions struct {
	DryRun bool
	// Keep leaves the manifest in place after a successful restore.
	Keep bool
}

// Restore undoes the mutations recorded in the manifest at path. A missing
// manifest is a no-op. After a full apply the manifest is removed.
func Restore(ctx context.Context, path string, opts RestoreOptions, logger *slog.Logger) (RestoreResult, error) {
	logger = logging.NewComponentLogger(logger, "manifest")
	result := RestoreResult{Manifest: path, DryRun: opts.DryRun, Actions: []RestoreAction{}}

	m, found, err := Load(path)
	if err != nil {
		return result, err
	}
	if !found {
		logger.Info("no manifest found; nothing to restore", logging.String("manifest", path))
		return result, nil
	}
	result.Found = true
	result.RunID = m.RunID

	for i := len(m.Entries) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		entry := m.Entries[i]
		action, err := restoreEntry(entry, opts.DryRun)
		if err != nil {
			return result, err
		}
		result.Actions = append(result.Actions, RestoreAction{Action: action, RecordKey: entry.RecordKey, Path: entry.Path})
		switch action {
		case ActionDelete:
			result.Deleted++
		case ActionRewrite:
			result.Rewritten++
		case ActionSkipAbsent:
			result.Absent++
		}
	}

	if opts.DryRun {
		return result, nil
	}
	if !opts.Keep {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return result, fmt.Errorf("remove manifest: %w", err)
		}
	}
	logger.Info("manifest restored",
		logging.String("manifest", path),
		logging.String(logging.FieldRunID, m.RunID),
		logging.Int("rewritten", result.Rewritten),
		logging.Int("deleted", result.Deleted),
		logging.Int("absent", result.Absent),
	)
	return result, nil
}

func restoreEntry(entry Entry, dryRun bool) (string, error) {
	if !entry.Existed {
		if _, err := os.Lstat(entry.Path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return ActionSkipAbsent, nil
			}
			return "", fmt.Errorf("stat %s: %w", entry.Path, err)
		}
		if dryRun {
			return ActionDelete, nil
		}
		if err := os.Remove(entry.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("delete %s: %w", entry.Path, err)
		}
		return ActionDelete, nil
	}

	data, err := entry.PriorBytes()
	if err != nil {
		return "", err
	}
	if dryRun {
		return ActionRewrite, nil
	}
	mode := os.FileMode(0o644)
	if info, err := os.Stat(entry.Path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := fileutil.WriteFileAtomic(entry.Path, data, mode); err != nil {
		return "", fmt.Errorf("rewrite %s: %w", entry.Path, err)
	}
	return ActionRewrite, nil
}
