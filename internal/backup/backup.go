package backup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"tagwarden/internal/config"
	"tagwarden/internal/fileutil"
	"tagwarden/internal/logging"
)

const timestampLayout = "20060102150405"

var (
	// ErrNoBackups is returned by Latest when the backup root holds no snapshot.
	ErrNoBackups = errors.New("no backups found")
	// ErrSnapshotNotFound is returned when a restore source does not exist.
	ErrSnapshotNotFound = errors.New("backup snapshot not found")
	// ErrInsufficientSpace is returned when the backup volume cannot hold a snapshot.
	ErrInsufficientSpace = errors.New("insufficient free space for backup")
)

// statfsFunc allows tests to stub filesystem stats.
type statfsFunc func(path string) (total uint64, free uint64, err error)

// Snapshot describes one completed backup.
type Snapshot struct {
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	CreatedAt time.Time `json:"created_at"`
	Files     int       `json:"files"`
	Bytes     int64     `json:"bytes"`
}

// Manager creates, lists and restores Tags snapshots under one root.
type Manager struct {
	root         string
	label        string
	verify       bool
	minFreeRatio float64
	logger       *slog.Logger
	statfs       statfsFunc
	now          func() time.Time
}

// NewManager builds a manager from the backup configuration.
func NewManager(cfg *config.Config, logger *slog.Logger) *Manager {
	label := strings.TrimSpace(cfg.Backup.Label)
	if label == "" {
		label = "Tags"
	}
	return &Manager{
		root:         cfg.Paths.BackupDir,
		label:        label,
		verify:       cfg.Backup.Verify,
		minFreeRatio: cfg.Backup.MinFreeRatio,
		logger:       logging.NewComponentLogger(logger, "backup"),
		statfs:       realStatfs,
		now:          time.Now,
	}
}

// Root returns the directory holding snapshots.
func (m *Manager) Root() string {
	return m.root
}

func (m *Manager) prefix() string {
	return m.label + "-backup-"
}

// Snapshot copies sourceDir into a new snapshot and returns it.
func (m *Manager) Snapshot(ctx context.Context, sourceDir string) (Snapshot, error) {
	info, err := os.Stat(sourceDir)
	if err != nil {
		return Snapshot{}, fmt.Errorf("inspect source %q: %w", sourceDir, err)
	}
	if !info.IsDir() {
		return Snapshot{}, fmt.Errorf("source %q is not a directory", sourceDir)
	}
	if err := os.MkdirAll(m.root, 0o755); err != nil {
		return Snapshot{}, fmt.Errorf("create backup root: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}

	size, err := fileutil.TreeSize(sourceDir)
	if err != nil {
		return Snapshot{}, fmt.Errorf("measure source: %w", err)
	}
	if err := m.checkSpace(size.Bytes); err != nil {
		return Snapshot{}, err
	}

	createdAt := m.now()
	name, err := m.nextName(createdAt)
	if err != nil {
		return Snapshot{}, err
	}
	staging := filepath.Join(m.root, "."+name+".partial")
	if err := os.RemoveAll(staging); err != nil {
		return Snapshot{}, fmt.Errorf("clear stale staging dir: %w", err)
	}

	stats, err := fileutil.CopyTree(sourceDir, staging, m.verify)
	if err != nil {
		_ = os.RemoveAll(staging)
		return Snapshot{}, fmt.Errorf("copy tags directory: %w", err)
	}
	final := filepath.Join(m.root, name)
	if err := os.Rename(staging, final); err != nil {
		_ = os.RemoveAll(staging)
		return Snapshot{}, fmt.Errorf("finalize snapshot: %w", err)
	}

	snap := Snapshot{Name: name, Path: final, CreatedAt: createdAt, Files: stats.Files, Bytes: stats.Bytes}
	m.logger.InfoContext(ctx, "backup created",
		logging.String("backup", final),
		logging.String("source", sourceDir),
		logging.Int("files", stats.Files),
		logging.Int64("bytes", stats.Bytes),
	)
	return snap, nil
}

func (m *Manager) nextName(at time.Time) (string, error) {
	base := m.prefix() + at.Format(timestampLayout)
	name := base
	for i := 1; ; i++ {
		_, err := os.Lstat(filepath.Join(m.root, name))
		if errors.Is(err, os.ErrNotExist) {
			return name, nil
		}
		if err != nil {
			return "", fmt.Errorf("inspect backup name: %w", err)
		}
		name = fmt.Sprintf("%s-%d", base, i)
	}
}

func (m *Manager) checkSpace(needed int64) error {
	total, free, err := m.statfs(m.root)
	if err != nil {
		return fmt.Errorf("statfs backup root: %w", err)
	}
	if uint64(needed) > free {
		return fmt.Errorf("%w: need %d bytes, %d free on %s", ErrInsufficientSpace, needed, free, m.root)
	}
	if total > 0 && m.minFreeRatio > 0 {
		ratio := float64(free-uint64(needed)) / float64(total)
		if ratio < m.minFreeRatio {
			return fmt.Errorf("%w: snapshot would leave %.1f%% free, floor is %.1f%%",
				ErrInsufficientSpace, ratio*100, m.minFreeRatio*100)
		}
	}
	return nil
}

// List returns completed snapshots oldest first.
func (m *Manager) List() ([]Snapshot, error) {
	entries, err := os.ReadDir(m.root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list backups: %w", err)
	}
	prefix := m.prefix()
	var out []Snapshot
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() || !strings.HasPrefix(name, prefix) {
			continue
		}
		snap := Snapshot{Name: name, Path: filepath.Join(m.root, name)}
		stamp := strings.TrimPrefix(name, prefix)
		if len(stamp) >= len(timestampLayout) {
			if at, err := time.ParseInLocation(timestampLayout, stamp[:len(timestampLayout)], time.Local); err == nil {
				snap.CreatedAt = at
			}
		}
		if stats, err := fileutil.TreeSize(snap.Path); err == nil {
			snap.Files = stats.Files
			snap.Bytes = stats.Bytes
		}
		out = append(out, snap)
	}
	sort.Slice(out, func(i, j int) bool { return snapshotLess(out[i].Name, out[j].Name) })
	return out, nil
}

// snapshotLess orders names by timestamp, then by collision suffix.
func snapshotLess(a, b string) bool {
	stampA, seqA := splitSuffix(a)
	stampB, seqB := splitSuffix(b)
	if stampA != stampB {
		return stampA < stampB
	}
	return seqA < seqB
}

func splitSuffix(name string) (string, int) {
	i := strings.LastIndex(name, "-")
	if i < 0 {
		return name, 0
	}
	seq, err := strconv.Atoi(name[i+1:])
	if err != nil || len(name[i+1:]) == len(timestampLayout) {
		return name, 0
	}
	return name[:i], seq
}

// Latest returns the newest snapshot.
func (m *Manager) Latest() (Snapshot, error) {
	snaps, err := m.List()
	if err != nil {
		return Snapshot{}, err
	}
	if len(snaps) == 0 {
		return Snapshot{}, fmt.Errorf("%w in %s", ErrNoBackups, m.root)
	}
	return snaps[len(snaps)-1], nil
}

// Prune removes the oldest snapshots so at most keep remain. keep <= 0
// disables pruning.
func (m *Manager) Prune(ctx context.Context, keep int) ([]Snapshot, error) {
	if keep <= 0 {
		return nil, nil
	}
	snaps, err := m.List()
	if err != nil {
		return nil, err
	}
	var removed []Snapshot
	for len(snaps) > keep {
		oldest := snaps[0]
		if err := os.RemoveAll(oldest.Path); err != nil {
			return removed, fmt.Errorf("remove %q: %w", oldest.Path, err)
		}
		m.logger.InfoContext(ctx, "pruned backup", logging.String("backup", oldest.Path))
		removed = append(removed, oldest)
		snaps = snaps[1:]
	}
	return removed, nil
}
