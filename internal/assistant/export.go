package assistant

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"tagwarden/internal/components"
	"tagwarden/internal/logging"
	"tagwarden/internal/tagset"
)

// ExportPlugin is one Audio Unit in the inventory.
type ExportPlugin struct {
	AUType        string `json:"au_type"`
	BundleID      string `json:"bundle_id"`
	BundleName    string `json:"bundle_name"`
	ComponentPath string `json:"component_path"`
	Manufacturer  string `json:"manufacturer"`
	Name          string `json:"name"`
	Subtype       string `json:"subtype"`
	Tagset        string `json:"tagset"`
}

// Export is the inventory handed to the AI tool.
type Export struct {
	Categories     tagset.Categories `json:"categories"`
	ComponentsDirs []string          `json:"components_dirs"`
	CurrentMapping any               `json:"current_mapping"`
	GeneratedAt    string            `json:"generated_at"`
	Plugins        []ExportPlugin    `json:"plugins"`
	TagsDir        string            `json:"tags_dir"`
}

// ExportStats summarizes an export.
type ExportStats struct {
	Found    int  `json:"found"`
	Hidden   int  `json:"hidden"`
	Exported int  `json:"exported"`
	Bytes    int  `json:"bytes"`
	Trimmed  bool `json:"trimmed"`
}

// BuildExport assembles the inventory. Components whose tagset is hidden are
// left out; a missing mapping exports as an empty object.
func BuildExport(store *tagset.Store, comps []components.Component, componentsDirs []string, mappingPath string, logger *slog.Logger) (*Export, ExportStats, error) {
	logger = logging.NewComponentLogger(logger, "assistant")
	cats, err := exportCategories(store)
	if err != nil {
		return nil, ExportStats{}, err
	}

	hidden := map[string]struct{}{}
	if usage, skipped, err := store.Usage(); err == nil {
		for _, u := range usage {
			if u.Hidden {
				hidden[u.Tagset] = struct{}{}
			}
		}
		if skipped > 0 {
			logger.Debug("undecodable tagsets ignored", logging.Int("count", skipped))
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, ExportStats{}, err
	}

	stats := ExportStats{Found: len(comps)}
	plugins := make([]ExportPlugin, 0, len(comps))
	for _, c := range comps {
		key := c.StableKey()
		if _, ok := hidden[key]; ok {
			stats.Hidden++
			continue
		}
		plugins = append(plugins, ExportPlugin{
			AUType:        c.Type,
			BundleID:      c.BundleID,
			BundleName:    c.BundleName,
			ComponentPath: c.Path,
			Manufacturer:  c.Manufacturer,
			Name:          c.Name,
			Subtype:       c.Subtype,
			Tagset:        key,
		})
	}
	if stats.Hidden > 0 {
		logger.Info("filtered hidden tagsets", logging.Int("removed", stats.Hidden))
	}

	mapping, err := loadCurrentMapping(mappingPath)
	if err != nil {
		return nil, ExportStats{}, err
	}

	export := &Export{
		Categories:     cats,
		ComponentsDirs: componentsDirs,
		CurrentMapping: mapping,
		GeneratedAt:    time.Now().Format("2006-01-02T15:04:05"),
		Plugins:        plugins,
		TagsDir:        store.Dir(),
	}
	stats.Exported = len(plugins)
	return export, stats, nil
}

func exportCategories(store *tagset.Store) (tagset.Categories, error) {
	cats := tagset.Categories{Sorting: []string{}, Tagpool: []string{}}
	props, _, exists, err := store.Load(tagset.PropertiesFile)
	if err != nil {
		return cats, err
	}
	if exists {
		cats.Sorting = props.Strings("sorting")
	}
	pool, _, exists, err := store.Load(tagset.TagpoolFile)
	if err != nil {
		return cats, err
	}
	if exists {
		cats.Tagpool = pool.NamedKeys()
	}
	return cats, nil
}

func loadCurrentMapping(path string) (any, error) {
	if path == "" {
		return map[string]any{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("read mapping: %w", err)
	}
	var mapping any
	if err := json.Unmarshal(data, &mapping); err != nil {
		return nil, fmt.Errorf("parse mapping %s: %w", path, err)
	}
	return mapping, nil
}

// Encode renders the export as indented JSON no larger than maxBytes where
// possible. The plug-in list shrinks to 80% per step until it fits; if one
// entry still does not fit, a final cut halves the last list. The returned
// stats reflect the encoded document.
func Encode(export *Export, maxBytes int, stats ExportStats) ([]byte, ExportStats, error) {
	data, err := encodeExport(export)
	if err != nil {
		return nil, stats, err
	}
	if maxBytes > 0 && len(data) > maxBytes {
		stats.Trimmed = true
		all := export.Plugins
		trimmed := all
		for len(trimmed) > 0 {
			n := max(1, int(float64(len(trimmed))*0.8))
			shrunk := n < len(trimmed)
			trimmed = trimmed[:n]
			export.Plugins = trimmed
			if data, err = encodeExport(export); err != nil {
				return nil, stats, err
			}
			if len(data) <= maxBytes || !shrunk {
				break
			}
		}
		if len(data) > maxBytes && len(trimmed) > 1 {
			export.Plugins = trimmed[:len(trimmed)/2]
			if data, err = encodeExport(export); err != nil {
				return nil, stats, err
			}
		}
	}
	stats.Exported = len(export.Plugins)
	stats.Bytes = len(data)
	return data, stats, nil
}

func encodeExport(export *Export) ([]byte, error) {
	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode export: %w", err)
	}
	return data, nil
}
