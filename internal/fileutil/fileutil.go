// Package fileutil holds the copy and atomic-write primitives shared by the
// tagset store, the manifest writer, and directory snapshots.
package fileutil

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// CopyFileMode streams src to dst, setting the given file mode on dst.
func CopyFileMode(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

// CopyFileVerified streams src to dst with SHA256 + size integrity verification.
// dst receives the source permissions. Removes dst on mismatch.
func CopyFileVerified(src, dst string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}
	srcSize := srcInfo.Size()

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, srcInfo.Mode().Perm())
	if err != nil {
		return err
	}
	defer func() {
		_ = out.Close()
	}()

	srcHasher := sha256.New()
	dstHasher := sha256.New()
	tee := io.TeeReader(in, srcHasher)
	multi := io.MultiWriter(out, dstHasher)

	written, err := io.Copy(multi, tee)
	if err != nil {
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	if written != srcSize {
		_ = os.Remove(dst)
		return fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", srcSize, written)
	}

	if !bytes.Equal(srcHasher.Sum(nil), dstHasher.Sum(nil)) {
		_ = os.Remove(dst)
		return fmt.Errorf("copy hash mismatch: file corrupted during copy")
	}

	return nil
}

// WriteFileAtomic writes data to a temp file beside path and renames it into
// place, so readers see either the old or the new content.
func WriteFileAtomic(path string, data []byte, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create parent directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, mode); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath) // cleanup on failure
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// TreeStats summarizes a directory tree.
type TreeStats struct {
	Files int
	Dirs  int
	Bytes int64
}

// TreeSize walks root and totals regular file sizes.
func TreeSize(root string) (TreeStats, error) {
	var stats TreeStats
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root {
				stats.Dirs++
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		stats.Files++
		stats.Bytes += info.Size()
		return nil
	})
	return stats, err
}

// ErrUnsupportedFile is returned when a tree contains something other than
// regular files, directories, and symlinks.
var ErrUnsupportedFile = errors.New("unsupported file type")

// CopyTree copies every directory, regular file, and symlink under src into
// dst, which must not exist yet. With verify set, files are copied with
// CopyFileVerified.
func CopyTree(src, dst string, verify bool) (TreeStats, error) {
	var stats TreeStats
	info, err := os.Stat(src)
	if err != nil {
		return stats, fmt.Errorf("stat source tree: %w", err)
	}
	if !info.IsDir() {
		return stats, fmt.Errorf("copy tree: %s is not a directory", src)
	}
	if err := os.Mkdir(dst, info.Mode().Perm()|0o700); err != nil {
		return stats, fmt.Errorf("create destination tree: %w", err)
	}

	err = filepath.WalkDir(src, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		target := filepath.Join(dst, rel)
		switch mode := d.Type(); {
		case mode.IsDir():
			dirInfo, err := d.Info()
			if err != nil {
				return err
			}
			stats.Dirs++
			return os.Mkdir(target, dirInfo.Mode().Perm()|0o700)
		case mode&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(link, target)
		case mode.IsRegular():
			fileInfo, err := d.Info()
			if err != nil {
				return err
			}
			if verify {
				err = CopyFileVerified(path, target)
			} else {
				err = CopyFileMode(path, target, fileInfo.Mode().Perm())
			}
			if err != nil {
				return fmt.Errorf("copy %s: %w", rel, err)
			}
			stats.Files++
			stats.Bytes += fileInfo.Size()
			return nil
		default:
			return fmt.Errorf("%w: %s", ErrUnsupportedFile, rel)
		}
	})
	return stats, err
}
