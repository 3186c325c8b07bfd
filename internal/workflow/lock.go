package workflow

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"tagwarden/internal/logging"
)

// ErrLocked indicates another process is mutating the Tags directory.
var ErrLocked = errors.New("another tagwarden run holds the Tags lock")

// acquireLock takes the exclusive Tags lock without blocking. The returned
// function releases it.
func (s *Service) acquireLock() (func(), error) {
	path := s.cfg.LockPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, ErrLocked
	}
	s.logger.Debug("tags lock acquired", logging.String("lock", path))
	return func() {
		if err := lock.Unlock(); err != nil {
			s.logger.Warn("failed to release tags lock", logging.Error(err))
		}
	}, nil
}
