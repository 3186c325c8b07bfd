package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"
	"howett.net/plist"

	"tagwarden/internal/components"
	"tagwarden/internal/config"
	"tagwarden/internal/tagset"
	"tagwarden/internal/testsupport"
)

const profileText = `UA System Profile
-----------------
UAD Pultec EQP-1A: Authorized for all devices
UAD Neve 1073: Demo not started
`

var (
	pultec = testsupport.AudioComponent{Name: "UAD Pultec EQP-1A", Type: "aufx", Subtype: "Pul1", Manufacturer: "UADx"}
	neve   = testsupport.AudioComponent{Name: "UAD Neve 1073", Type: "aufx", Subtype: "N173", Manufacturer: "UADx"}
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	profile    string
	baseDir    string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	t.Setenv("TAGWARDEN_TAGS_DIR", "")
	cfg := testsupport.NewConfig(t, opts...)
	base := testsupport.BaseDir(cfg)
	t.Setenv("HOME", filepath.Join(base, "home"))

	componentsDir := cfg.Paths.ComponentsDirs[0]
	testsupport.WriteComponent(t, componentsDir, "UAD Pultec EQP-1A.component", pultec)
	testsupport.WriteComponent(t, componentsDir, "UAD Neve 1073.component", neve)

	tags := cfg.Paths.TagsDir
	testsupport.WriteBytes(t, filepath.Join(tags, tagset.PropertiesFile), encodePlist(t, map[string]any{"sorting": []any{"Favorites"}}))
	testsupport.WriteBytes(t, filepath.Join(tags, tagset.TagpoolFile), encodePlist(t, map[string]any{"Favorites": 1}))
	testsupport.WriteTagset(t, tags, tagsetKey(neve), map[string]any{"tags": map[string]any{"Favorites": "user"}}, plist.BinaryFormat)

	profile := filepath.Join(base, "profile.txt")
	testsupport.WriteBytes(t, profile, []byte(profileText))

	configPath := filepath.Join(base, "tagwarden.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{cfg: cfg, configPath: configPath, profile: profile, baseDir: base}
}

func tagsetKey(c testsupport.AudioComponent) string {
	return components.Component{Type: c.Type, Subtype: c.Subtype, Manufacturer: c.Manufacturer}.StableKey()
}

func encodePlist(t *testing.T, v any) []byte {
	t.Helper()
	data, err := plist.MarshalIndent(v, plist.XMLFormat, "\t")
	if err != nil {
		t.Fatalf("marshal plist: %v", err)
	}
	return data
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(&bytes.Buffer{})
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
