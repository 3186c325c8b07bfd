package organizer

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"time"

	"tagwarden/internal/components"
	"tagwarden/internal/logging"
	"tagwarden/internal/manifest"
	"tagwarden/internal/tagset"
)

// Missing identifies a component whose tagset does not exist.
type Missing struct {
	BundleID string `json:"bundle_id"`
	Name     string `json:"name"`
	Tagset   string `json:"tagset"`
}

// Plan is the set of category decisions for a scan.
type Plan struct {
	Results  []Result `json:"results"`
	Fallback []Result `json:"fallback_matches"`
	Excluded []Result `json:"excluded"`
}

// Plan categorizes every component.
func (o *Organizer) Plan(comps []components.Component) Plan {
	plan := Plan{Results: []Result{}, Fallback: []Result{}, Excluded: []Result{}}
	fallback := o.mapping.Fallback()
	for _, c := range comps {
		result := o.Categorize(c)
		plan.Results = append(plan.Results, result)
		switch {
		case result.Excluded:
			plan.Excluded = append(plan.Excluded, result)
		case result.Category == fallback:
			plan.Fallback = append(plan.Fallback, result)
		}
	}
	return plan
}

// Diagnose returns fallback matches, optionally limited to vendors, sorted by
// vendor then name.
func (p Plan) Diagnose(vendors []string) []Result {
	filters := map[string]struct{}{}
	for _, v := range vendors {
		if v = normalize(v); v != "" {
			filters[v] = struct{}{}
		}
	}
	var out []Result
	for _, r := range p.Fallback {
		if len(filters) > 0 {
			if _, ok := filters[normalize(r.Vendor)]; !ok {
				continue
			}
		}
		out = append(out, r)
	}
	slices.SortStableFunc(out, func(a, b Result) int {
		return cmp.Or(strings.Compare(a.Vendor, b.Vendor), strings.Compare(a.Name, b.Name))
	})
	return out
}

// ApplyOptions controls Apply.
type ApplyOptions struct {
	MergeTags bool
	RunID     string
}

// Applied reports what Apply wrote.
type Applied struct {
	Manifest *manifest.Manifest
	Missing  []Missing
}

// Apply rewrites the category order in MusicApps.properties and
// MusicApps.tagpool and tags every existing, non-excluded tagset. Missing
// tagsets are reported and never created.
func (o *Organizer) Apply(ctx context.Context, mutator *manifest.Mutator, plan Plan, opts ApplyOptions) (Applied, error) {
	categories := o.mapping.Categories
	changes := []manifest.Change{
		{Target: manifest.Target{Key: tagset.PropertiesFile, Name: "category order"}, Mutate: manifest.SetSorting(categories)},
		{Target: manifest.Target{Key: tagset.TagpoolFile, Name: "category pool"}, Mutate: manifest.SetTagpool(categories)},
	}
	byKey := make(map[string]Result, len(plan.Results))
	for _, r := range plan.Results {
		if _, ok := byKey[r.Tagset]; !ok {
			byKey[r.Tagset] = r
		}
	}
	for _, r := range plan.Results {
		if r.Excluded {
			continue
		}
		decided := byKey[r.Tagset]
		if decided.Excluded {
			continue
		}
		changes = append(changes, manifest.Change{
			Target: manifest.Target{Key: r.Tagset, Name: r.Name},
			Mutate: manifest.SetTags(decided.Category, opts.MergeTags),
		})
	}

	m, err := mutator.ApplyChanges(ctx, changes,
		manifest.Operation("organize"),
		manifest.RunID(opts.RunID),
		manifest.ExistingOnly(),
	)
	if err != nil {
		return Applied{}, err
	}

	applied := Applied{Manifest: m, Missing: []Missing{}}
	for _, key := range m.Skipped {
		if key == tagset.PropertiesFile || key == tagset.TagpoolFile {
			logging.WarnWithContext(o.logger, "category database missing", "tag_database_missing",
				logging.String(logging.FieldRecordKey, key),
				logging.String(logging.FieldErrorHint, "open Logic once so it creates its tag databases"),
				logging.String(logging.FieldImpact, "category list not updated"),
			)
			continue
		}
		r := byKey[key]
		applied.Missing = append(applied.Missing, Missing{BundleID: r.BundleID, Name: r.Name, Tagset: key})
	}
	return applied, nil
}

// Report is the organize JSON report.
type Report struct {
	Apply            bool      `json:"apply"`
	ComponentsDirs   []string  `json:"components_dirs"`
	Excluded         []Result  `json:"excluded"`
	FallbackCategory string    `json:"fallback_category"`
	FallbackMatches  []Result  `json:"fallback_matches"`
	GeneratedAt      string    `json:"generated_at"`
	Manifest         string    `json:"manifest,omitempty"`
	MissingTagsets   []Missing `json:"missing_tagsets"`
	Results          []Result  `json:"results"`
	TagsDir          string    `json:"tags_dir"`
}

// NewReport assembles the report for a plan.
func (o *Organizer) NewReport(plan Plan, componentsDirs []string, tagsDir string, apply bool, missing []Missing) Report {
	if missing == nil {
		missing = []Missing{}
	}
	return Report{
		Apply:            apply,
		ComponentsDirs:   componentsDirs,
		Excluded:         plan.Excluded,
		FallbackCategory: o.mapping.Fallback(),
		FallbackMatches:  plan.Fallback,
		GeneratedAt:      time.Now().Format("2006-01-02T15:04:05"),
		MissingTagsets:   missing,
		Results:          plan.Results,
		TagsDir:          tagsDir,
	}
}
