package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/gofrs/flock"

	"tagwarden/internal/components"
	"tagwarden/internal/history"
	"tagwarden/internal/licensing"
	"tagwarden/internal/testsupport"
	"tagwarden/internal/workflow"
)

func TestListInstalledFormats(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"list-installed"}, env.configPath)
	if err != nil {
		t.Fatalf("list-installed: %v", err)
	}
	requireContains(t, out, "UAD Pultec EQP-1A")
	requireContains(t, out, "2 plug-ins installed")

	out, _, err = runCLI(t, []string{"list-installed", "--format", "json"}, env.configPath)
	if err != nil {
		t.Fatalf("list-installed json: %v", err)
	}
	var installed []components.Installed
	if err := json.Unmarshal([]byte(out), &installed); err != nil {
		t.Fatalf("decode json: %v\n%s", err, out)
	}
	if len(installed) != 2 || installed[0].Name != "UAD Neve 1073" {
		t.Fatalf("unexpected listing %+v", installed)
	}

	if _, _, err := runCLI(t, []string{"list-installed", "--format", "xml"}, env.configPath); err == nil {
		t.Fatal("expected unknown format to fail")
	}
}

func TestCheckViews(t *testing.T) {
	env := setupCLITestEnv(t)

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{name: "default", args: []string{"check", env.profile}, want: []string{"Unlicensed plug-ins (1)", "✗ UAD Neve 1073"}},
		{name: "licensed", args: []string{"check", env.profile, "--show", "licensed"}, want: []string{"✓ UAD Pultec EQP-1A"}},
		{name: "all", args: []string{"check", env.profile, "--show", "all"}, want: []string{"Licensed plug-ins found in profile: 1", "✗ Unlicensed (1)"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := runCLI(t, tt.args, env.configPath)
			if err != nil {
				t.Fatalf("check: %v", err)
			}
			for _, want := range tt.want {
				requireContains(t, out, want)
			}
		})
	}

	if _, _, err := runCLI(t, []string{"check", env.profile, "--show", "some"}, env.configPath); err == nil {
		t.Fatal("expected invalid view to fail")
	}
}

func TestCheckJSONAndReport(t *testing.T) {
	env := setupCLITestEnv(t)
	report := filepath.Join(env.baseDir, "check.txt")

	out, _, err := runCLI(t, []string{"check", env.profile, "--json", "--report", report}, env.configPath)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	var result workflow.CheckResult
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if len(result.Licensed) != 1 || len(result.Unlicensed) != 1 || result.Authorizations != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	data, err := os.ReadFile(report)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	requireContains(t, string(data), "UAD Neve 1073")
}

func TestCheckWithoutAuthorizationsExplains(t *testing.T) {
	env := setupCLITestEnv(t)
	empty := filepath.Join(env.baseDir, "empty.txt")
	testsupport.WriteBytes(t, empty, []byte("UAD Neve 1073: Demo not started\n"))

	_, stderr, err := runCLI(t, []string{"check", empty}, env.configPath)
	if !errors.Is(err, licensing.ErrNoAuthorizations) {
		t.Fatalf("expected ErrNoAuthorizations, got %v", err)
	}
	requireContains(t, stderr, "lists no authorized UAD plug-ins")
}

func TestHideApplyRestoreAndHistory(t *testing.T) {
	env := setupCLITestEnv(t)
	neveTagset := filepath.Join(env.cfg.Paths.TagsDir, tagsetKey(neve)+".tagset")
	before, err := os.ReadFile(neveTagset)
	if err != nil {
		t.Fatalf("read tagset: %v", err)
	}

	out, _, err := runCLI(t, []string{"hide", env.profile}, env.configPath)
	if err != nil {
		t.Fatalf("hide dry run: %v", err)
	}
	requireContains(t, out, "Unlicensed Audio Units: 1")
	requireContains(t, out, "will hide")
	requireContains(t, out, "Dry run")

	out, _, err = runCLI(t, []string{"hide", env.profile, "--apply"}, env.configPath)
	if err != nil {
		t.Fatalf("hide apply: %v", err)
	}
	requireContains(t, out, "Hidden: 1")
	requireContains(t, out, "Manifest: "+env.cfg.Paths.ManifestPath)
	if record := testsupport.ReadTagset(t, neveTagset); record["hide"] == nil {
		t.Fatalf("expected hide marker, got %v", record)
	}

	out, _, err = runCLI(t, []string{"restore"}, env.configPath)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	requireContains(t, out, "1 rewritten")
	after, err := os.ReadFile(neveTagset)
	if err != nil {
		t.Fatalf("read tagset: %v", err)
	}
	if string(before) != string(after) {
		t.Fatal("restore did not reproduce the original tagset bytes")
	}

	out, _, err = runCLI(t, []string{"history", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	var runs []history.Run
	if err := json.Unmarshal([]byte(out), &runs); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	ops := make([]string, 0, len(runs))
	for _, run := range runs {
		ops = append(ops, run.Operation)
	}
	if !slices.Equal(ops, []string{"restore", "hide", "hide"}) {
		t.Fatalf("unexpected history %v", ops)
	}
	if !runs[2].DryRun || runs[1].DryRun || runs[1].Affected != 1 {
		t.Fatalf("unexpected hide runs %+v", runs[1:])
	}

	out, _, err = runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history table: %v", err)
	}
	requireContains(t, out, "restore")
	requireContains(t, out, "succeeded")
}

func TestHideRespectsLock(t *testing.T) {
	env := setupCLITestEnv(t)
	lock := flock.New(env.cfg.LockPath())
	if err := os.MkdirAll(filepath.Dir(env.cfg.LockPath()), 0o755); err != nil {
		t.Fatalf("mkdir state: %v", err)
	}
	locked, err := lock.TryLock()
	if err != nil || !locked {
		t.Fatalf("take lock: %v", err)
	}
	defer lock.Unlock()

	if _, _, err := runCLI(t, []string{"hide", env.profile, "--apply"}, env.configPath); !errors.Is(err, workflow.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
}

func TestClearCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"hide", env.profile, "--apply", "--no-backup"}, env.configPath); err != nil {
		t.Fatalf("hide apply: %v", err)
	}

	steps := []struct {
		args []string
		want string
	}{
		{args: []string{"clear"}, want: "Would clear 1 hide markers"},
		{args: []string{"clear", "--apply"}, want: "Cleared 1 hide markers"},
		{args: []string{"clear", "--apply"}, want: "Cleared 0 hide markers"},
	}
	for _, step := range steps {
		out, _, err := runCLI(t, step.args, env.configPath)
		if err != nil {
			t.Fatalf("%v: %v", step.args, err)
		}
		requireContains(t, out, step.want)
	}
}

func TestBackupCommands(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"backup", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("backup list: %v", err)
	}
	requireContains(t, out, "No backups")

	out, _, err = runCLI(t, []string{"backup", "create"}, env.configPath)
	if err != nil {
		t.Fatalf("backup create: %v", err)
	}
	requireContains(t, out, "Backup created: ")

	out, _, err = runCLI(t, []string{"backup", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("backup list: %v", err)
	}
	requireContains(t, out, "Tags-backup-")

	neveTagset := filepath.Join(env.cfg.Paths.TagsDir, tagsetKey(neve)+".tagset")
	if err := os.Remove(neveTagset); err != nil {
		t.Fatalf("remove tagset: %v", err)
	}
	out, _, err = runCLI(t, []string{"backup", "restore", "1"}, env.configPath)
	if err != nil {
		t.Fatalf("backup restore: %v", err)
	}
	requireContains(t, out, "Tags directory restored from")
	if _, err := os.Stat(neveTagset); err != nil {
		t.Fatalf("tagset not restored: %v", err)
	}

	failures := []struct {
		args []string
		want string
	}{
		{args: []string{"backup", "restore"}, want: "choose exactly one"},
		{args: []string{"backup", "restore", "1", "--latest"}, want: "choose exactly one"},
		{args: []string{"backup", "restore", "--pick"}, want: "--pick needs an interactive terminal"},
	}
	for _, f := range failures {
		_, _, err := runCLI(t, f.args, env.configPath)
		if err == nil {
			t.Fatalf("%v: expected error", f.args)
		}
		requireContains(t, err.Error(), f.want)
	}
}

func TestTagsCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"tags", "--json", "--include-tagsets"}, env.configPath)
	if err != nil {
		t.Fatalf("tags: %v", err)
	}
	var result workflow.TagsResult
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("decode tags: %v", err)
	}
	if !slices.Equal(result.Categories.Sorting, []string{"Favorites"}) || len(result.Tagsets) != 1 {
		t.Fatalf("unexpected tags %+v", result)
	}

	output := filepath.Join(env.baseDir, "tags.json")
	out, _, err = runCLI(t, []string{"tags", "--output", output}, env.configPath)
	if err != nil {
		t.Fatalf("tags output: %v", err)
	}
	requireContains(t, out, "Wrote 1 categories")
	if _, err := os.Stat(output); err != nil {
		t.Fatalf("tags file missing: %v", err)
	}
}

const testMapping = `{"categories": ["EQ", "Other"], "rules": [{"pattern": "pultec", "category": "EQ"}], "fallback_category": "Other"}`

func TestOrganizeDryRunAndDiagnose(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteBytes(t, env.cfg.Organize.MappingPath, []byte(testMapping))
	before := testsupport.SnapshotTree(t, env.cfg.Paths.TagsDir)

	out, _, err := runCLI(t, []string{"organize"}, env.configPath)
	if err != nil {
		t.Fatalf("organize: %v", err)
	}
	requireContains(t, out, "Categorized 2 plug-ins: 1 fell back to \"Other\"")
	requireContains(t, out, "EQ")
	requireContains(t, out, "Dry run")

	out, _, err = runCLI(t, []string{"organize", "--diagnose"}, env.configPath)
	if err != nil {
		t.Fatalf("organize diagnose: %v", err)
	}
	requireContains(t, out, "UAD Neve 1073")

	after := testsupport.SnapshotTree(t, env.cfg.Paths.TagsDir)
	if len(before) != len(after) {
		t.Fatal("dry-run organize changed the Tags directory")
	}
	for path, sum := range before {
		if after[path] != sum {
			t.Fatalf("dry-run organize changed %s", path)
		}
	}
}

func TestExportCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	output := filepath.Join(env.baseDir, "export.json")

	out, _, err := runCLI(t, []string{"export", "--output", output}, env.configPath)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	requireContains(t, out, "Exported 2 of 2 plug-ins")
	if _, err := os.Stat(output); err != nil {
		t.Fatalf("export missing: %v", err)
	}
}

func TestWorkflowDryRun(t *testing.T) {
	env := setupCLITestEnv(t,
		testsupport.WithAssistantTools("claude"),
		testsupport.WithStubbedBinaries(testMapping, "claude"),
	)

	out, _, err := runCLI(t, []string{"workflow", env.profile}, env.configPath)
	if err != nil {
		t.Fatalf("workflow: %v", err)
	}
	requireContains(t, out, "== Workflow ==")
	requireContains(t, out, "map:")
	requireContains(t, out, env.cfg.Organize.GeneratedMappingPath)
	requireContains(t, out, "Dry run")

	if _, _, err := runCLI(t, []string{"workflow"}, env.configPath); !errors.Is(err, workflow.ErrProfileRequired) {
		t.Fatalf("expected ErrProfileRequired, got %v", err)
	}
}

func TestStatusCommand(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithAssistantTools("claude"), testsupport.WithStubbedBinaries("{}", "claude"))

	out, _, err := runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "== Directories ==")
	requireContains(t, out, "Tags directory:")
	requireContains(t, out, "1 of 1 available")
	requireContains(t, out, env.configPath)
}

func TestLogsFiltersByRun(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteBytes(t, env.cfg.LogPath(), []byte(
		"2026-01-02T03:04:05Z INFO  [hide aaaa1111] workflow: hide applied hidden=1\n"+
			"2026-01-02T03:05:05Z INFO  [organize bbbb2222] workflow: organize applied written=2\n"))

	out, _, err := runCLI(t, []string{"logs", "--run", "bbbb"}, env.configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	requireContains(t, out, "organize applied")
	if strings.Contains(out, "hide applied") {
		t.Fatalf("unexpected line from another run: %q", out)
	}

	out, _, err = runCLI(t, []string{"logs", "-n", "1"}, env.configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	requireContains(t, out, "organize applied")
}
