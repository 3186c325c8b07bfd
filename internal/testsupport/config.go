package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"tagwarden/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The Tags directory exists; component and plug-in roots point at empty
// directories under the same base.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.TagsDir = filepath.Join(base, "Tags")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.BackupDir = filepath.Join(base, "backups")
	cfgVal.Paths.ReportsDir = filepath.Join(base, "reports")
	cfgVal.Paths.ManifestPath = filepath.Join(base, "state", "hidden-tagsets.json")
	cfgVal.Paths.ComponentsDirs = []string{filepath.Join(base, "Components")}
	cfgVal.Paths.PluginDirs = []string{filepath.Join(base, "Components"), filepath.Join(base, "VST3")}
	cfgVal.Organize.MappingPath = filepath.Join(base, "plugin_mapping.json")
	cfgVal.Organize.GeneratedMappingPath = filepath.Join(base, "reports", "plugin_mapping.generated.json")
	cfgVal.Assistant.PromptPath = filepath.Join(base, "prompt.md")
	cfgVal.Backup.MinFreeRatio = 0

	for _, dir := range []string{cfgVal.Paths.TagsDir, cfgVal.Paths.ComponentsDirs[0]} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithoutCanonicalSubstring selects the strict matcher.
func WithoutCanonicalSubstring() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Matching.CanonicalSubstring = false
	}
}

// WithAssistantTools restricts the assistant tool order.
func WithAssistantTools(tools ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Assistant.Tools = tools
	}
}

// WithStubbedBinaries writes executables for the provided names and prepends
// them to PATH. Each stub prints body to stdout.
func WithStubbedBinaries(body string, names ...string) ConfigOption {
	return func(b *configBuilder) {
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\ncat >/dev/null\ncat <<'TAGWARDEN_EOF'\n" + body + "\nTAGWARDEN_EOF\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
