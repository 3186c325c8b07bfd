package organizer_test

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"howett.net/plist"

	"tagwarden/internal/components"
	"tagwarden/internal/logging"
	"tagwarden/internal/manifest"
	"tagwarden/internal/organizer"
	"tagwarden/internal/tagset"
	"tagwarden/internal/testsupport"
)

const mappingJSON = `{
  "categories": ["EQ", "Dynamics", "Other"],
  "vendor_aliases": {"com.uaudio": "Universal Audio", "fabfilter": "FabFilter", "uad": "Wrong Vendor"},
  "exclude": [{"vendor": "FabFilter", "pattern": "^Micro$"}],
  "overrides": [{"name": "Pro-Q 3", "category": "EQ"}],
  "vendor_rules": {"Universal Audio": [{"pattern": "1176|LA-2A", "category": "Dynamics"}]},
  "rules": [{"pattern": "\\bEQ\\b", "category": "EQ"}]
}`

func component(name, bundleID, subtype string) components.Component {
	return components.Component{Name: name, BundleID: bundleID, Type: "aufx", Subtype: subtype, Manufacturer: "Test"}
}

func loadMapping(t *testing.T, name, body string) *organizer.Mapping {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	testsupport.WriteBytes(t, path, []byte(body))
	m, err := organizer.LoadMapping(path)
	if err != nil {
		t.Fatalf("LoadMapping: %v", err)
	}
	return m
}

func TestCategorize(t *testing.T) {
	o := organizer.New(loadMapping(t, "mapping.json", mappingJSON), logging.NewNop())

	tests := []struct {
		name     string
		in       components.Component
		category string
		vendor   string
		excluded bool
	}{
		{"vendor rule", component("UAD: 1176 Rev A", "com.uaudio.1176", "u176"), "Dynamics", "Universal Audio", false},
		{"global rule", component("Pultec EQ", "com.uaudio.pultec", "pltc"), "EQ", "Universal Audio", false},
		{"override by cleaned name", component("FabFilter: Pro-Q 3", "com.fabfilter.ProQ3", "FQ3p"), "EQ", "FabFilter", false},
		{"exclusion", component("FabFilter: Micro", "com.fabfilter.Micro", "FMcr"), "", "FabFilter", true},
		{"fallback", component("Mystery Box", "org.example.box", "mbox"), "Other", "", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := o.Categorize(tc.in)
			if got.Category != tc.category || got.Vendor != tc.vendor || got.Excluded != tc.excluded {
				t.Fatalf("Categorize = %+v", got)
			}
			if got.Tagset != tc.in.StableKey() {
				t.Fatalf("tagset = %s", got.Tagset)
			}
		})
	}
}

func TestVendorAliasOrderIsFileOrder(t *testing.T) {
	m := loadMapping(t, "mapping.json", mappingJSON)
	want := []string{"com.uaudio", "fabfilter", "uad"}
	var got []string
	for _, a := range m.VendorAliases {
		got = append(got, a.Match)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("aliases = %v", got)
	}
}

func TestLoadMappingYAML(t *testing.T) {
	m := loadMapping(t, "mapping.yaml", `
categories: [EQ, Reverb]
vendor_aliases:
  zeta: Zeta Audio
  alpha: Alpha Audio
rules:
  - pattern: verb
    category: Reverb
fallback_category: Misc
`)
	if m.Fallback() != "Misc" || len(m.Rules) != 1 {
		t.Fatalf("unexpected mapping %+v", m)
	}
	if m.VendorAliases[0].Match != "zeta" || m.VendorAliases[1].Vendor != "Alpha Audio" {
		t.Fatalf("alias order lost: %+v", m.VendorAliases)
	}
	o := organizer.New(m, logging.NewNop())
	if got := o.Categorize(component("Plate Verb", "", "plvb")); got.Category != "Reverb" {
		t.Fatalf("Categorize = %+v", got)
	}
}

func TestLoadMappingErrors(t *testing.T) {
	if _, err := organizer.LoadMapping(filepath.Join(t.TempDir(), "none.json")); !errors.Is(err, organizer.ErrMappingNotFound) {
		t.Fatalf("expected ErrMappingNotFound, got %v", err)
	}
	path := filepath.Join(t.TempDir(), "bad.json")
	testsupport.WriteBytes(t, path, []byte(`{"rules":[{"pattern":"(","category":"EQ"}]}`))
	if _, err := organizer.LoadMapping(path); err == nil {
		t.Fatal("expected invalid pattern error")
	}
}

func TestStripVendorPrefix(t *testing.T) {
	tests := []struct{ name, vendor, want string }{
		{"UAD: 1176", "UAD", "1176"},
		{"  fabfilter - Pro-Q 3", "FabFilter", "Pro-Q 3"},
		{"Pro-Q 3", "FabFilter", "Pro-Q 3"},
		{"A.B: x", "A.B", "x"},
		{"AxB: x", "A.B", "AxB: x"},
		{"UAD: 1176", "", "UAD: 1176"},
	}
	for _, tc := range tests {
		if got := organizer.StripVendorPrefix(tc.name, tc.vendor); got != tc.want {
			t.Fatalf("StripVendorPrefix(%q,%q) = %q, want %q", tc.name, tc.vendor, got, tc.want)
		}
	}
}

func TestPlanAndDiagnose(t *testing.T) {
	o := organizer.New(loadMapping(t, "mapping.json", mappingJSON), logging.NewNop())
	plan := o.Plan([]components.Component{
		component("Zeta Thing", "org.zeta", "zeta"),
		component("UAD: Alpha Thing", "com.uaudio.alpha", "alph"),
		component("FabFilter: Micro", "com.fabfilter.Micro", "FMcr"),
	})
	if len(plan.Results) != 3 || len(plan.Fallback) != 2 || len(plan.Excluded) != 1 {
		t.Fatalf("unexpected plan %+v", plan)
	}
	all := plan.Diagnose(nil)
	if all[0].Name != "Zeta Thing" || all[1].Vendor != "Universal Audio" {
		t.Fatalf("unexpected order %+v", all)
	}
	only := plan.Diagnose([]string{"universal   AUDIO"})
	if len(only) != 1 || only[0].Name != "UAD: Alpha Thing" {
		t.Fatalf("vendor filter failed: %+v", only)
	}
}

func TestApplyWritesCategoriesAndIsRestorable(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteBytes(t, filepath.Join(dir, tagset.PropertiesFile), mustPlist(t, map[string]any{"sorting": []any{"Old"}, "keep": "me"}))
	testsupport.WriteBytes(t, filepath.Join(dir, tagset.TagpoolFile), mustPlist(t, map[string]any{"": uint64(3), "Old": uint64(0)}))

	present := component("Pultec EQ", "com.uaudio.pultec", "pltc")
	absent := component("UAD: 1176", "com.uaudio.1176", "u176")
	testsupport.WriteTagset(t, dir, present.StableKey(), map[string]any{"tags": map[string]any{"Legacy": "user"}}, plist.BinaryFormat)
	before := testsupport.SnapshotTree(t, dir)

	o := organizer.New(loadMapping(t, "mapping.json", mappingJSON), logging.NewNop())
	plan := o.Plan([]components.Component{present, absent})
	mutator := manifest.NewMutator(tagset.NewStore(dir), logging.NewNop())
	applied, err := o.Apply(context.Background(), mutator, plan, organizer.ApplyOptions{MergeTags: true})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(applied.Missing) != 1 || applied.Missing[0].Tagset != absent.StableKey() {
		t.Fatalf("missing = %+v", applied.Missing)
	}

	record := testsupport.ReadTagset(t, filepath.Join(dir, present.StableKey()+".tagset"))
	tags := record["tags"].(map[string]any)
	if tags["EQ"] != "user" || tags["Legacy"] != "user" {
		t.Fatalf("merge failed: %v", tags)
	}
	props := testsupport.ReadTagset(t, filepath.Join(dir, tagset.PropertiesFile))
	if !reflect.DeepEqual(props["sorting"], []any{"EQ", "Dynamics", "Other"}) || props["keep"] != "me" {
		t.Fatalf("properties = %v", props)
	}
	pool := testsupport.ReadTagset(t, filepath.Join(dir, tagset.TagpoolFile))
	if _, ok := pool["Old"]; ok || pool[""] != uint64(3) || len(pool) != 4 {
		t.Fatalf("tagpool = %v", pool)
	}

	path := filepath.Join(t.TempDir(), "organize.json")
	if err := manifest.Save(path, applied.Manifest); err != nil {
		t.Fatal(err)
	}
	if _, err := manifest.Restore(context.Background(), path, manifest.RestoreOptions{}, logging.NewNop()); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if after := testsupport.SnapshotTree(t, dir); !reflect.DeepEqual(before, after) {
		t.Fatalf("organize not reversible")
	}
}

func TestApplyReplacesTagsWithoutMerge(t *testing.T) {
	dir := t.TempDir()
	c := component("Pultec EQ", "com.uaudio.pultec", "pltc")
	testsupport.WriteTagset(t, dir, c.StableKey(), map[string]any{"tags": map[string]any{"Legacy": "user"}}, plist.XMLFormat)

	o := organizer.New(loadMapping(t, "mapping.json", mappingJSON), logging.NewNop())
	mutator := manifest.NewMutator(tagset.NewStore(dir), logging.NewNop())
	if _, err := o.Apply(context.Background(), mutator, o.Plan([]components.Component{c}), organizer.ApplyOptions{}); err != nil {
		t.Fatal(err)
	}
	record := testsupport.ReadTagset(t, filepath.Join(dir, c.StableKey()+".tagset"))
	if !reflect.DeepEqual(record["tags"], map[string]any{"EQ": "user"}) {
		t.Fatalf("tags = %v", record["tags"])
	}
}

func mustPlist(t *testing.T, v map[string]any) []byte {
	t.Helper()
	data, err := plist.Marshal(v, plist.XMLFormat)
	if err != nil {
		t.Fatal(err)
	}
	return data
}
