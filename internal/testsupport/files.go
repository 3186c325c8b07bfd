package testsupport

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"howett.net/plist"
)

// AudioComponent is one AudioComponents entry of a fake bundle.
type AudioComponent struct {
	Name         string
	Type         string
	Subtype      string
	Manufacturer string
}

// WriteComponent creates <dir>/<bundle>/Contents/Info.plist describing the
// given audio components and returns the bundle path.
func WriteComponent(t testing.TB, dir, bundle string, entries ...AudioComponent) string {
	t.Helper()

	components := make([]map[string]any, 0, len(entries))
	for _, entry := range entries {
		components = append(components, map[string]any{
			"name":         entry.Name,
			"type":         entry.Type,
			"subtype":      entry.Subtype,
			"manufacturer": entry.Manufacturer,
			"version":      uint64(1),
		})
	}
	info := map[string]any{
		"CFBundleIdentifier": "com.uaudio.components." + bundle,
		"CFBundleName":       bundle,
		"AudioComponents":    components,
	}
	data, err := plist.MarshalIndent(info, plist.XMLFormat, "\t")
	if err != nil {
		t.Fatalf("marshal info plist: %v", err)
	}
	bundlePath := filepath.Join(dir, bundle)
	WriteBytes(t, filepath.Join(bundlePath, "Contents", "Info.plist"), data)
	return bundlePath
}

// WriteTagset writes a tagset plist in the requested format and returns its path.
func WriteTagset(t testing.TB, tagsDir, key string, record map[string]any, format int) string {
	t.Helper()

	data, err := plist.Marshal(record, format)
	if err != nil {
		t.Fatalf("marshal tagset: %v", err)
	}
	path := filepath.Join(tagsDir, key+".tagset")
	WriteBytes(t, path, data)
	return path
}

// ReadTagset decodes a tagset plist.
func ReadTagset(t testing.TB, path string) map[string]any {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read tagset %s: %v", path, err)
	}
	record := map[string]any{}
	if _, err := plist.Unmarshal(data, &record); err != nil {
		t.Fatalf("decode tagset %s: %v", path, err)
	}
	return record
}

// WriteBytes writes data, creating parent directories.
func WriteBytes(t testing.TB, path string, data []byte) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// SnapshotTree returns every regular file under root keyed by slash-separated
// relative path.
func SnapshotTree(t testing.TB, root string) map[string]string {
	t.Helper()

	out := map[string]string{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		out[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	if err != nil {
		t.Fatalf("snapshot %s: %v", root, err)
	}
	return out
}
