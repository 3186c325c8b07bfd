package assistant_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"howett.net/plist"

	"tagwarden/internal/assistant"
	"tagwarden/internal/components"
	"tagwarden/internal/logging"
	"tagwarden/internal/tagset"
	"tagwarden/internal/testsupport"
)

func plugin(name, subtype string) components.Component {
	return components.Component{
		Name:         name,
		Path:         "/Library/Audio/Plug-Ins/Components/" + name + ".component",
		Type:         "aufx",
		Subtype:      subtype,
		Manufacturer: "Test",
		BundleID:     "com.test." + strings.ToLower(subtype),
		BundleName:   name,
	}
}

func TestBuildExportSkipsHiddenAndReadsCategories(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	tags := cfg.Paths.TagsDir
	visible := plugin("Visible EQ", "veq1")
	hidden := plugin("Hidden Comp", "hcp1")
	testsupport.WriteTagset(t, tags, hidden.StableKey(), map[string]any{"hide": ""}, plist.XMLFormat)
	testsupport.WriteTagset(t, tags, visible.StableKey(), map[string]any{"tags": map[string]any{"EQ": ""}}, plist.BinaryFormat)
	testsupport.WriteBytes(t, filepath.Join(tags, tagset.PropertiesFile), mustPlist(t, map[string]any{"sorting": []any{"EQ", "Dynamics"}}))
	testsupport.WriteBytes(t, filepath.Join(tags, tagset.TagpoolFile), mustPlist(t, map[string]any{"Dynamics": 1, "EQ": 2, "": 0}))
	testsupport.WriteBytes(t, cfg.Organize.MappingPath, []byte(`{"categories":["EQ"]}`))

	store := tagset.NewStore(tags)
	export, stats, err := assistant.BuildExport(store, []components.Component{visible, hidden}, cfg.Paths.ComponentsDirs, cfg.Organize.MappingPath, logging.NewNop())
	if err != nil {
		t.Fatalf("BuildExport: %v", err)
	}
	if stats.Found != 2 || stats.Hidden != 1 || stats.Exported != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if len(export.Plugins) != 1 || export.Plugins[0].Tagset != visible.StableKey() {
		t.Fatalf("unexpected plugins %+v", export.Plugins)
	}
	if got := export.Categories.Sorting; !slices.Equal(got, []string{"EQ", "Dynamics"}) {
		t.Fatalf("sorting = %v", got)
	}
	if got := export.Categories.Tagpool; !slices.Equal(got, []string{"Dynamics", "EQ"}) {
		t.Fatalf("tagpool = %v", got)
	}
	mapping, ok := export.CurrentMapping.(map[string]any)
	if !ok || mapping["categories"] == nil {
		t.Fatalf("current mapping not loaded: %#v", export.CurrentMapping)
	}

	data, _, err := assistant.Encode(export, 0, stats)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode export: %v", err)
	}
	for _, key := range []string{"categories", "components_dirs", "current_mapping", "generated_at", "plugins", "tags_dir"} {
		if _, ok := decoded[key]; !ok {
			t.Fatalf("export missing %q", key)
		}
	}
}

func TestBuildExportWithoutDatabases(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := tagset.NewStore(cfg.Paths.TagsDir)
	export, _, err := assistant.BuildExport(store, nil, nil, filepath.Join(t.TempDir(), "absent.json"), logging.NewNop())
	if err != nil {
		t.Fatalf("BuildExport: %v", err)
	}
	if export.Categories.Sorting == nil || export.Categories.Tagpool == nil {
		t.Fatalf("categories should encode as empty lists: %+v", export.Categories)
	}
	if m, ok := export.CurrentMapping.(map[string]any); !ok || len(m) != 0 {
		t.Fatalf("missing mapping should export as {}: %#v", export.CurrentMapping)
	}
}

func TestEncodeTrimsToBudget(t *testing.T) {
	tests := []struct {
		name    string
		plugins int
		budget  int
	}{
		{name: "fits", plugins: 3, budget: 1 << 20},
		{name: "trims", plugins: 200, budget: 8000},
		{name: "tiny budget terminates", plugins: 50, budget: 10},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			export := &assistant.Export{Categories: tagset.Categories{Sorting: []string{}, Tagpool: []string{}}}
			for i := range tc.plugins {
				p := plugin("Plugin", "p"+strings.Repeat("x", i%3))
				export.Plugins = append(export.Plugins, assistant.ExportPlugin{Name: p.Name, Tagset: p.StableKey(), ComponentPath: p.Path})
			}
			data, stats, err := assistant.Encode(export, tc.budget, assistant.ExportStats{Found: tc.plugins})
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			if stats.Bytes != len(data) {
				t.Fatalf("stats bytes %d != %d", stats.Bytes, len(data))
			}
			if tc.name == "fits" {
				if stats.Trimmed || stats.Exported != tc.plugins {
					t.Fatalf("unexpected trim %+v", stats)
				}
				return
			}
			if !stats.Trimmed || stats.Exported >= tc.plugins {
				t.Fatalf("expected trimming, got %+v", stats)
			}
			if tc.name == "trims" && len(data) > tc.budget {
				t.Fatalf("encoded %d bytes, budget %d", len(data), tc.budget)
			}
		})
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		wantKey string
		wantErr bool
	}{
		{name: "plain", output: `{"rules": []}`, wantKey: "rules"},
		{name: "wrapped in prose", output: "Here you go:\n```json\n{\"categories\": [\"EQ\"]}\n```\nDone.", wantKey: "categories"},
		{name: "none", output: "sorry", wantErr: true},
		{name: "broken", output: "{ not json }", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := assistant.ExtractJSON(tc.output)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ExtractJSON: %v", err)
			}
			if _, ok := got[tc.wantKey]; !ok {
				t.Fatalf("missing %q in %v", tc.wantKey, got)
			}
		})
	}
}

func TestLoadPromptFallsBackToBuiltin(t *testing.T) {
	prompt, err := assistant.LoadPrompt(filepath.Join(t.TempDir(), "missing.md"), []byte(`{"plugins":[]}`))
	if err != nil {
		t.Fatalf("LoadPrompt: %v", err)
	}
	if strings.Contains(prompt, assistant.InputPlaceholder) || !strings.Contains(prompt, `{"plugins":[]}`) {
		t.Fatalf("placeholder not substituted")
	}

	custom := filepath.Join(t.TempDir(), "prompt.md")
	testsupport.WriteBytes(t, custom, []byte("map this: {{INPUT_JSON}}"))
	prompt, err = assistant.LoadPrompt(custom, []byte("X"))
	if err != nil {
		t.Fatalf("LoadPrompt: %v", err)
	}
	if prompt != "map this: X" {
		t.Fatalf("prompt = %q", prompt)
	}
}

func TestCandidatesRejectsUnknownForcedTool(t *testing.T) {
	if _, err := assistant.Candidates(nil, "gemini"); !errors.Is(err, assistant.ErrUnknownTool) {
		t.Fatalf("expected ErrUnknownTool, got %v", err)
	}
}

func TestGenerateWritesMapping(t *testing.T) {
	cfg := testsupport.NewConfig(t,
		testsupport.WithAssistantTools("claude"),
		testsupport.WithStubbedBinaries("Sure!\n{\"rules\": [], \"categories\": [\"EQ\"]}\nThanks", "claude"),
	)
	out := filepath.Join(cfg.Paths.ReportsDir, "mapping.json")
	gen := assistant.NewGenerator(cfg, logging.NewNop())
	result, err := gen.Generate(context.Background(), []byte(`{}`), "", out)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if result.Tool != "claude" || !slices.Equal(result.Keys, []string{"categories", "rules"}) {
		t.Fatalf("unexpected result %+v", result)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read mapping: %v", err)
	}
	if !strings.HasPrefix(string(data), "{\n  \"categories\"") {
		t.Fatalf("mapping not indented with sorted keys:\n%s", data)
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.ReportsDir, "ai-output-claude.txt")); err != nil {
		t.Fatalf("raw output not saved: %v", err)
	}
}

func TestGenerateFallsThroughFailingTool(t *testing.T) {
	cfg := testsupport.NewConfig(t,
		testsupport.WithAssistantTools("opencode", "claude"),
		testsupport.WithStubbedBinaries(`{"rules": []}`, "claude"),
	)
	binDir := filepath.Join(testsupport.BaseDir(cfg), "bin")
	testsupport.WriteBytes(t, filepath.Join(binDir, "opencode"), []byte("#!/bin/sh\ncat >/dev/null\necho boom >&2\nexit 3\n"))
	if err := os.Chmod(filepath.Join(binDir, "opencode"), 0o755); err != nil {
		t.Fatalf("chmod: %v", err)
	}

	gen := assistant.NewGenerator(cfg, logging.NewNop())
	result, err := gen.Generate(context.Background(), []byte(`{}`), "", filepath.Join(cfg.Paths.ReportsDir, "m.json"))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if result.Tool != "claude" || len(result.Attempts) != 2 {
		t.Fatalf("unexpected result %+v", result)
	}
	if first := result.Attempts[0]; first.ExitCode != 3 || first.Error != "boom" {
		t.Fatalf("unexpected first attempt %+v", first)
	}
}

func TestGenerateNoJSONFails(t *testing.T) {
	cfg := testsupport.NewConfig(t,
		testsupport.WithAssistantTools("claude"),
		testsupport.WithStubbedBinaries("I cannot help with that.", "claude"),
	)
	gen := assistant.NewGenerator(cfg, logging.NewNop())
	_, err := gen.Generate(context.Background(), []byte(`{}`), "claude", filepath.Join(cfg.Paths.ReportsDir, "m.json"))
	if !errors.Is(err, assistant.ErrNoToolSucceeded) {
		t.Fatalf("expected ErrNoToolSucceeded, got %v", err)
	}
}

func TestRunnerStatesAndOutput(t *testing.T) {
	runner := assistant.NewRunner(5*time.Second, time.Second, logging.NewNop())
	var states []assistant.State
	runner.OnState(func(s assistant.State) { states = append(states, s) })

	result, err := runner.Run(context.Background(), []string{"/bin/sh", "-c", "cat; echo err >&2; exit 2"}, "hello")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Stdout != "hello" || result.Stderr != "err\n" || result.ExitCode != 2 {
		t.Fatalf("unexpected result %+v", result)
	}
	want := []assistant.State{assistant.StateSpawned, assistant.StateStreaming, assistant.StateDraining, assistant.StateExited}
	if !slices.Equal(states, want) {
		t.Fatalf("states = %v, want %v", states, want)
	}
}

func TestRunnerDrainTimeoutWithLingeringChild(t *testing.T) {
	runner := assistant.NewRunner(10*time.Second, 200*time.Millisecond, logging.NewNop())
	started := time.Now()
	result, err := runner.Run(context.Background(), []string{"/bin/sh", "-c", "echo partial; sleep 5 &"}, "")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.DrainTimedOut {
		t.Fatalf("expected drain timeout, got %+v", result)
	}
	if result.Stdout != "partial\n" {
		t.Fatalf("stdout = %q", result.Stdout)
	}
	if elapsed := time.Since(started); elapsed > 3*time.Second {
		t.Fatalf("run blocked on lingering child for %s", elapsed)
	}
}

func TestRunnerRunTimeout(t *testing.T) {
	runner := assistant.NewRunner(100*time.Millisecond, 100*time.Millisecond, logging.NewNop())
	result, err := runner.Run(context.Background(), []string{"/bin/sh", "-c", "exec sleep 5"}, "")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.TimedOut || result.ExitCode == 0 {
		t.Fatalf("expected timeout, got %+v", result)
	}
}

func mustPlist(t *testing.T, v any) []byte {
	t.Helper()
	data, err := plist.Marshal(v, plist.XMLFormat)
	if err != nil {
		t.Fatalf("marshal plist: %v", err)
	}
	return data
}
