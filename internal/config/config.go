package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	TagsDir        string   `toml:"tags_dir"`
	BackupDir      string   `toml:"backup_dir"`
	StateDir       string   `toml:"state_dir"`
	ReportsDir     string   `toml:"reports_dir"`
	ManifestPath   string   `toml:"manifest_path"`
	ComponentsDirs []string `toml:"components_dirs"`
	PluginDirs     []string `toml:"plugin_dirs"`
}

// Matching contains the rule tables used to normalize and compare plug-in names.
// Empty lists fall back to the built-in tables.
type Matching struct {
	Vendor              string   `toml:"vendor"`
	Qualifier           string   `toml:"qualifier"`
	ProductPrefixes     []string `toml:"product_prefixes"`
	Extensions          []string `toml:"extensions"`
	BaseStopwords       []string `toml:"base_stopwords"`
	DescriptorStopwords []string `toml:"descriptor_stopwords"`
	CollectionKeywords  []string `toml:"collection_keywords"`
	CanonicalSubstring  bool     `toml:"canonical_substring"`
	ProfileLineFilter   string   `toml:"profile_line_filter"`
	ComponentFilter     string   `toml:"component_filter"`
}

// Backup contains configuration for full Tags directory snapshots.
type Backup struct {
	Label        string  `toml:"label"`
	Verify       bool    `toml:"verify"`
	MinFreeRatio float64 `toml:"min_free_ratio"`
	Keep         int     `toml:"keep"`
}

// Organize contains configuration for category assignment.
type Organize struct {
	MappingPath          string `toml:"mapping_path"`
	GeneratedMappingPath string `toml:"generated_mapping_path"`
}

// Assistant contains configuration for AI mapping generation.
type Assistant struct {
	Tools               []string `toml:"tools"`
	PromptPath          string   `toml:"prompt_path"`
	MaxBytes            int      `toml:"max_bytes"`
	DrainTimeoutSeconds int      `toml:"drain_timeout_seconds"`
	RunTimeoutSeconds   int      `toml:"run_timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for tagwarden.
//
// Configuration sections:
//   - Paths: Logic Tags directory, backups, state, reports and plug-in roots
//   - Matching: name normalization and stopword tables
//   - Backup: snapshot label, verification and retention
//   - Organize: category mapping files
//   - Assistant: external AI tool invocation
//   - Logging: log format and level
type Config struct {
	Paths     Paths     `toml:"paths"`
	Matching  Matching  `toml:"matching"`
	Backup    Backup    `toml:"backup"`
	Organize  Organize  `toml:"organize"`
	Assistant Assistant `toml:"assistant"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/tagwarden/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("tagwarden.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories tagwarden owns. The Tags directory
// belongs to Logic and is never created here.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.BackupDir, c.Paths.ReportsDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LockPath returns the file used to serialize mutating runs against the Tags directory.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "tags.lock")
}

// HistoryPath returns the SQLite run ledger location.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// LogPath returns the log file written alongside console output.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.StateDir, "tagwarden.log")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
