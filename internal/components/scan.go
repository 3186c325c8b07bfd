package components

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"howett.net/plist"

	"tagwarden/internal/logging"
	"tagwarden/internal/textutil"
)

type infoPlist struct {
	BundleIdentifier string           `plist:"CFBundleIdentifier"`
	BundleName       string           `plist:"CFBundleName"`
	AudioComponents  []audioComponent `plist:"AudioComponents"`
}

type audioComponent struct {
	Name         string `plist:"name"`
	Type         any    `plist:"type"`
	Subtype      any    `plist:"subtype"`
	Manufacturer any    `plist:"manufacturer"`
}

// Scanner enumerates plug-in bundles.
type Scanner struct {
	rules  textutil.Rules
	filter string
	logger *slog.Logger
}

// NewScanner builds a scanner. Entries are kept when filter is empty, when the
// lowercased component name contains it, or when the bundle file name starts
// with it.
func NewScanner(rules textutil.Rules, filter string, logger *slog.Logger) *Scanner {
	return &Scanner{
		rules:  rules,
		filter: strings.ToLower(strings.TrimSpace(filter)),
		logger: logging.NewComponentLogger(logger, "components"),
	}
}

// Scan reads every *.component bundle in dirs. Missing directories are
// skipped and unreadable Info.plist files are logged and skipped.
func (s *Scanner) Scan(ctx context.Context, dirs []string) ([]Component, error) {
	var out []Component
	for _, dir := range dirs {
		bundles, err := listBundles(dir, ".component")
		if err != nil {
			return nil, err
		}
		for _, bundle := range bundles {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			found, err := s.readBundle(bundle)
			if err != nil {
				logging.WarnWithContext(s.logger, "skipping unreadable component", "component_decode_failed",
					logging.String("component", bundle),
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "reinstall the plug-in or remove the broken bundle"),
					logging.String(logging.FieldImpact, "plug-in is not checked"),
				)
				continue
			}
			out = append(out, found...)
		}
	}
	slices.SortStableFunc(out, func(a, b Component) int {
		if c := strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)); c != 0 {
			return c
		}
		return strings.Compare(a.StableKey(), b.StableKey())
	})
	return out, nil
}

func (s *Scanner) readBundle(bundle string) ([]Component, error) {
	infoPath := filepath.Join(bundle, "Contents", "Info.plist")
	data, err := os.ReadFile(infoPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read info plist: %w", err)
	}
	var info infoPlist
	if _, err := plist.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("decode info plist %s: %w", infoPath, err)
	}

	bundleFile := strings.ToLower(filepath.Base(bundle))
	var out []Component
	for _, entry := range info.AudioComponents {
		if !s.keep(entry.Name, bundleFile) {
			continue
		}
		auType, okType := fourCC(entry.Type)
		subtype, okSub := fourCC(entry.Subtype)
		manufacturer, okMfr := fourCC(entry.Manufacturer)
		if !okType || !okSub || !okMfr {
			s.logger.Debug("audio component missing codes", logging.String("component", bundle), logging.String("name", entry.Name))
			continue
		}
		out = append(out, Component{
			Name:         entry.Name,
			Normalized:   s.rules.Normalize(entry.Name),
			Path:         bundle,
			Type:         auType,
			Subtype:      subtype,
			Manufacturer: manufacturer,
			BundleID:     info.BundleIdentifier,
			BundleName:   info.BundleName,
			Format:       FormatAU,
		})
	}
	return out, nil
}

func (s *Scanner) keep(name, bundleFile string) bool {
	if s.filter == "" {
		return true
	}
	return strings.Contains(strings.ToLower(name), s.filter) || strings.HasPrefix(bundleFile, s.filter)
}

// Installed is one plug-in grouped across formats.
type Installed struct {
	Name       string   `json:"name"`
	Normalized string   `json:"normalized"`
	Formats    []string `json:"formats"`
	Paths      []string `json:"paths"`
}

// FormatList joins the formats for display.
func (i Installed) FormatList() string {
	return strings.Join(i.Formats, ", ")
}

var bundleExtensions = []string{".component", ".vst", ".vst3", ".aaxplugin"}

// ScanBundles lists plug-in bundles whose file name starts with the filter and
// groups them by normalized name. The result is sorted by display name.
func (s *Scanner) ScanBundles(ctx context.Context, dirs []string) ([]Installed, error) {
	grouped := make(map[string]*Installed)
	for _, dir := range dirs {
		bundles, err := listBundles(dir, bundleExtensions...)
		if err != nil {
			return nil, err
		}
		for _, bundle := range bundles {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			base := filepath.Base(bundle)
			if s.filter != "" && !strings.HasPrefix(strings.ToLower(base), s.filter) {
				continue
			}
			stem := strings.TrimSuffix(base, filepath.Ext(base))
			normalized := s.rules.Normalize(stem)
			if normalized == "" {
				continue
			}
			entry, ok := grouped[normalized]
			if !ok {
				entry = &Installed{Name: stem, Normalized: normalized}
				grouped[normalized] = entry
			}
			if !slices.Contains(entry.Paths, bundle) {
				entry.Paths = append(entry.Paths, bundle)
			}
			format := FormatForPath(bundle)
			if !slices.Contains(entry.Formats, format) {
				entry.Formats = append(entry.Formats, format)
			}
		}
	}

	out := make([]Installed, 0, len(grouped))
	for _, entry := range grouped {
		slices.Sort(entry.Formats)
		out = append(out, *entry)
	}
	slices.SortFunc(out, func(a, b Installed) int {
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
	return out, nil
}

func listBundles(dir string, extensions ...string) ([]string, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read plug-in directory %s: %w", dir, err)
	}
	var out []string
	for _, entry := range entries {
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if !slices.Contains(extensions, ext) {
			continue
		}
		out = append(out, filepath.Join(dir, entry.Name()))
	}
	return out, nil
}
