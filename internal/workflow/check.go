package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"tagwarden/internal/components"
	"tagwarden/internal/licensing"
	"tagwarden/internal/logging"
)

// View selects which plug-ins a check report shows.
type View string

const (
	ViewUnlicensed View = "unlicensed"
	ViewLicensed   View = "licensed"
	ViewAll        View = "all"
)

// ParseView validates a --show value. Empty selects ViewUnlicensed.
func ParseView(value string) (View, error) {
	switch View(strings.ToLower(strings.TrimSpace(value))) {
	case "", ViewUnlicensed:
		return ViewUnlicensed, nil
	case ViewLicensed:
		return ViewLicensed, nil
	case ViewAll:
		return ViewAll, nil
	}
	return "", fmt.Errorf("unknown view %q (expected all, licensed or unlicensed)", value)
}

// PluginStatus is the license verdict for one installed plug-in.
type PluginStatus struct {
	Name          string                 `json:"name"`
	Normalized    string                 `json:"normalized"`
	Formats       []string               `json:"formats"`
	Path          string                 `json:"path,omitempty"`
	Licensed      bool                   `json:"licensed"`
	Strategy      licensing.Strategy     `json:"strategy,omitempty"`
	Authorization string                 `json:"authorization,omitempty"`
	Suggestions   []licensing.Suggestion `json:"suggestions,omitempty"`
}

// FormatList joins the formats for display.
func (p PluginStatus) FormatList() string {
	return strings.Join(p.Formats, ", ")
}

// CheckOptions controls Check.
type CheckOptions struct {
	Profile string
	// Suggest is the number of near-miss authorizations listed per
	// unlicensed plug-in. Zero disables suggestions.
	Suggest int
}

// CheckResult is the license report.
type CheckResult struct {
	Profile        string         `json:"profile"`
	ScannedDirs    []string       `json:"scanned_dirs"`
	Authorizations int            `json:"authorizations"`
	Installed      int            `json:"installed"`
	Licensed       []PluginStatus `json:"licensed"`
	Unlicensed     []PluginStatus `json:"unlicensed"`
}

// ListInstalled lists the plug-in bundles under the plug-in roots whose file
// name starts with the component filter, grouped across formats.
func (s *Service) ListInstalled(ctx context.Context) ([]components.Installed, error) {
	return s.scanner(s.cfg.Matching.ComponentFilter).ScanBundles(ctx, s.cfg.Paths.PluginDirs)
}

// Check compares installed plug-in bundles with the authorizations in a
// system profile. With nothing installed the profile is not read and an
// empty result is returned.
func (s *Service) Check(ctx context.Context, opts CheckOptions) (*CheckResult, error) {
	result := &CheckResult{
		Profile:     opts.Profile,
		ScannedDirs: s.cfg.Paths.PluginDirs,
		Licensed:    []PluginStatus{},
		Unlicensed:  []PluginStatus{},
	}
	installed, err := s.ListInstalled(ctx)
	if err != nil {
		return nil, err
	}
	result.Installed = len(installed)
	if len(installed) == 0 {
		s.logger.Info("no plug-ins found in the scanned directories")
		return result, nil
	}

	set, err := licensing.LoadProfile(opts.Profile, s.matcher.Rules(), s.cfg.Matching.ProfileLineFilter)
	if err != nil {
		if errors.Is(err, licensing.ErrNoAuthorizations) {
			logging.WarnWithContext(s.logger, "no authorizations found in profile", "profile_empty",
				logging.String("profile", opts.Profile),
				logging.String(logging.FieldErrorHint, "export the profile from UA Connect via Help > Save System Profile"),
				logging.String(logging.FieldImpact, "licenses not checked"),
			)
		}
		return nil, err
	}
	result.Authorizations = set.Len()

	for _, item := range installed {
		match := s.matcher.Match(item.Normalized, set)
		status := PluginStatus{
			Name:          item.Name,
			Normalized:    item.Normalized,
			Formats:       item.Formats,
			Licensed:      match.Matched,
			Strategy:      match.Strategy,
			Authorization: match.Authorization,
		}
		if len(item.Paths) > 0 {
			status.Path = item.Paths[0]
		}
		if match.Matched {
			result.Licensed = append(result.Licensed, status)
			continue
		}
		if opts.Suggest > 0 {
			status.Suggestions = s.matcher.Suggest(item.Normalized, set, opts.Suggest)
		}
		result.Unlicensed = append(result.Unlicensed, status)
	}
	s.logger.Info("license check complete",
		logging.Int("installed", result.Installed),
		logging.Int("licensed", len(result.Licensed)),
		logging.Int("unlicensed", len(result.Unlicensed)),
	)
	return result, nil
}

func matchSuffix(p PluginStatus) string {
	if p.Strategy == licensing.StrategyNone {
		return ""
	}
	return fmt.Sprintf(" [%s: %s]", p.Strategy, p.Authorization)
}

// RenderCheck writes the console form of a check result.
func RenderCheck(w io.Writer, r *CheckResult, view View) {
	if r.Installed == 0 {
		fmt.Fprintln(w, "No plug-ins found. Scanned directories:")
		for _, dir := range r.ScannedDirs {
			fmt.Fprintf(w, "  - %s\n", dir)
		}
		return
	}
	switch view {
	case ViewAll:
		fmt.Fprintln(w, "=== Plug-in License Check ===")
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Profile: %s\n", r.Profile)
		fmt.Fprintf(w, "Licensed plug-ins found in profile: %d\n", r.Authorizations)
		fmt.Fprintf(w, "Installed plug-ins: %d\n\n", r.Installed)
		if len(r.Licensed) > 0 {
			fmt.Fprintf(w, "✓ Licensed (%d):\n", len(r.Licensed))
			for _, p := range r.Licensed {
				fmt.Fprintf(w, "    %s (%s)%s\n", p.Name, p.FormatList(), matchSuffix(p))
			}
			fmt.Fprintln(w)
		}
		if len(r.Unlicensed) > 0 {
			fmt.Fprintf(w, "✗ Unlicensed (%d):\n", len(r.Unlicensed))
			for _, p := range r.Unlicensed {
				fmt.Fprintf(w, "    %s (%s)\n", p.Name, p.FormatList())
				renderSuggestions(w, p, "        ")
			}
		}
	case ViewLicensed:
		if len(r.Licensed) == 0 {
			fmt.Fprintln(w, "No licensed plug-ins found installed.")
			return
		}
		fmt.Fprintf(w, "Licensed plug-ins (%d):\n\n", len(r.Licensed))
		for _, p := range r.Licensed {
			fmt.Fprintf(w, "  ✓ %s (%s)%s\n", p.Name, p.FormatList(), matchSuffix(p))
		}
	default:
		if len(r.Unlicensed) == 0 {
			fmt.Fprintln(w, "All installed plug-ins are licensed! ✓")
			fmt.Fprintf(w, "(%d plug-ins checked)\n", len(r.Licensed))
			return
		}
		fmt.Fprintf(w, "Unlicensed plug-ins (%d):\n\n", len(r.Unlicensed))
		for _, p := range r.Unlicensed {
			fmt.Fprintf(w, "  ✗ %s (%s)\n", p.Name, p.FormatList())
			renderSuggestions(w, p, "      ")
		}
		fmt.Fprintf(w, "\nTotal: %d unlicensed out of %d installed\n", len(r.Unlicensed), r.Installed)
	}
}

func renderSuggestions(w io.Writer, p PluginStatus, indent string) {
	if len(p.Suggestions) == 0 {
		return
	}
	names := make([]string, 0, len(p.Suggestions))
	for _, s := range p.Suggestions {
		names = append(names, s.Authorization)
	}
	fmt.Fprintf(w, "%sclosest authorizations: %s\n", indent, strings.Join(names, "; "))
}

// WriteCheckReport writes the detailed text report.
func WriteCheckReport(path string, r *CheckResult) error {
	var b strings.Builder
	b.WriteString("Plug-in License Report\n")
	b.WriteString(strings.Repeat("=", 50) + "\n\n")
	fmt.Fprintf(&b, "Profile: %s\n", r.Profile)
	fmt.Fprintf(&b, "Licensed in profile: %d\n", r.Authorizations)
	fmt.Fprintf(&b, "Installed: %d\n", r.Installed)
	fmt.Fprintf(&b, "Licensed & installed: %d\n", len(r.Licensed))
	fmt.Fprintf(&b, "Unlicensed: %d\n\n", len(r.Unlicensed))

	b.WriteString("Licensed Plugins:\n")
	b.WriteString(strings.Repeat("-", 30) + "\n")
	for _, p := range r.Licensed {
		fmt.Fprintf(&b, "  ✓ %s (%s)%s\n", p.Name, p.FormatList(), matchSuffix(p))
	}
	b.WriteString("\nUnlicensed Plugins:\n")
	b.WriteString(strings.Repeat("-", 30) + "\n")
	for _, p := range r.Unlicensed {
		fmt.Fprintf(&b, "  ✗ %s (%s)\n", p.Name, p.FormatList())
		if p.Path != "" {
			fmt.Fprintf(&b, "      Path: %s\n", p.Path)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
