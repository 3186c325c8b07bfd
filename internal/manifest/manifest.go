package manifest

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tagwarden/internal/fileutil"
	"tagwarden/internal/tagset"
)

// Entry captures one record's state before a mutation.
type Entry struct {
	RecordKey string `json:"record_key"`
	Path      string `json:"path"`
	Existed   bool   `json:"existed"`
	Prior     string `json:"prior,omitempty"`
}

// PriorBytes decodes the captured record bytes.
func (e Entry) PriorBytes() ([]byte, error) {
	if !e.Existed {
		return nil, nil
	}
	data, err := base64.StdEncoding.DecodeString(e.Prior)
	if err != nil {
		return nil, fmt.Errorf("decode prior bytes for %s: %w", e.RecordKey, err)
	}
	return data, nil
}

// Manifest is the ordered record of one mutation run.
type Manifest struct {
	RunID     string    `json:"run_id"`
	CreatedAt time.Time `json:"created_at"`
	Operation string    `json:"operation"`
	TagsDir   string    `json:"tags_dir"`
	Entries   []Entry   `json:"entries"`
	Unchanged int       `json:"unchanged,omitempty"`
	Skipped   []string  `json:"skipped,omitempty"`
}

// Keys returns the record keys in entry order.
func (m *Manifest) Keys() []string {
	keys := make([]string, 0, len(m.Entries))
	for _, entry := range m.Entries {
		keys = append(keys, entry.RecordKey)
	}
	return keys
}

// Merge folds next into m. A record already captured keeps its earliest
// prior state so restoring still reaches the state before the first run.
func (m *Manifest) Merge(next *Manifest) {
	if next == nil {
		return
	}
	seen := make(map[string]struct{}, len(m.Entries))
	for _, entry := range m.Entries {
		seen[entry.Path] = struct{}{}
	}
	for _, entry := range next.Entries {
		if _, ok := seen[entry.Path]; ok {
			continue
		}
		seen[entry.Path] = struct{}{}
		m.Entries = append(m.Entries, entry)
	}
	m.RunID = next.RunID
	m.CreatedAt = next.CreatedAt
}

type legacyEntry struct {
	TagsetPath string `json:"tagset_path"`
	Existed    string `json:"existed"`
	PlistB64   string `json:"plist_b64"`
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Load reads a manifest. The boolean is false when no manifest exists. The
// older list form [{"tagset_path","existed","plist_b64"}] is also accepted.
func Load(path string) (*Manifest, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read manifest: %w", err)
	}
	data = bytes.TrimSpace(bytes.TrimPrefix(data, utf8BOM))
	if len(data) == 0 {
		return &Manifest{}, true, nil
	}

	if data[0] == '[' {
		var legacy []legacyEntry
		if err := json.Unmarshal(data, &legacy); err != nil {
			return nil, true, fmt.Errorf("parse manifest: %w", err)
		}
		m := &Manifest{Operation: "hide"}
		for _, item := range legacy {
			existed := strings.EqualFold(strings.TrimSpace(item.Existed), "true")
			entry := Entry{
				RecordKey: strings.TrimSuffix(filepath.Base(item.TagsetPath), tagset.Extension),
				Path:      item.TagsetPath,
				Existed:   existed,
			}
			if existed {
				entry.Prior = item.PlistB64
			}
			if m.TagsDir == "" {
				m.TagsDir = filepath.Dir(item.TagsetPath)
			}
			m.Entries = append(m.Entries, entry)
		}
		return m, true, nil
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, true, fmt.Errorf("parse manifest: %w", err)
	}
	return &m, true, nil
}

// Save writes the manifest atomically.
func Save(path string, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	data = append(data, '\n')
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}
