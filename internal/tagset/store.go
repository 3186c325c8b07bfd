package tagset

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"tagwarden/internal/fileutil"
)

const (
	// Extension is the file suffix of per-plug-in records.
	Extension = ".tagset"
	// PropertiesFile stores the category sorting order.
	PropertiesFile = "MusicApps.properties"
	// TagpoolFile stores the category pool.
	TagpoolFile = "MusicApps.tagpool"
)

// ErrDatabaseMissing indicates MusicApps.properties or MusicApps.tagpool is absent.
var ErrDatabaseMissing = errors.New("logic tag database file missing")

// Store addresses records inside one Tags directory. Keys are either a
// tagset stable key or one of the MusicApps database file names.
type Store struct {
	dir string
}

// NewStore returns a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the Tags directory.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the file backing key.
func (s *Store) Path(key string) string {
	if key == PropertiesFile || key == TagpoolFile {
		return filepath.Join(s.dir, key)
	}
	return filepath.Join(s.dir, key+Extension)
}

// ReadRaw returns the exact bytes of a record and whether it exists.
func (s *Store) ReadRaw(key string) ([]byte, bool, error) {
	data, err := os.ReadFile(s.Path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read %s: %w", key, err)
	}
	return data, true, nil
}

// Load decodes a record. A missing record yields an empty record in XML format.
func (s *Store) Load(key string) (Record, Format, bool, error) {
	data, exists, err := s.ReadRaw(key)
	if err != nil || !exists {
		return Record{}, FormatXML, false, err
	}
	record, format, err := Decode(data)
	if err != nil {
		return nil, 0, true, fmt.Errorf("decode %s: %w", key, err)
	}
	return record, format, true, nil
}

// Save encodes and atomically writes a record.
func (s *Store) Save(key string, record Record, format Format) error {
	data, err := Encode(record, format)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.WriteRaw(key, data)
}

// WriteRaw atomically replaces a record with data, keeping its permissions.
func (s *Store) WriteRaw(key string, data []byte) error {
	path := s.Path(key)
	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := fileutil.WriteFileAtomic(path, data, mode); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// Remove deletes a record. Removing an absent record is not an error.
func (s *Store) Remove(key string) error {
	if err := os.Remove(s.Path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

// Keys lists the stable keys of every tagset, sorted.
func (s *Store) Keys() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read tags directory: %w", err)
	}
	var keys []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, Extension) || strings.HasPrefix(name, ".") {
			continue
		}
		keys = append(keys, strings.TrimSuffix(name, Extension))
	}
	slices.Sort(keys)
	return keys, nil
}
