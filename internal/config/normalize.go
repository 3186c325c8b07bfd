package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeMatching()
	c.normalizeBackup()
	if err := c.normalizeOrganize(); err != nil {
		return err
	}
	if err := c.normalizeAssistant(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if value, ok := os.LookupEnv("TAGWARDEN_TAGS_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.TagsDir = strings.TrimSpace(value)
	}
	var err error
	if c.Paths.TagsDir, err = expandPath(c.Paths.TagsDir); err != nil {
		return fmt.Errorf("paths.tags_dir: %w", err)
	}
	if c.Paths.BackupDir, err = expandPath(c.Paths.BackupDir); err != nil {
		return fmt.Errorf("paths.backup_dir: %w", err)
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.ReportsDir, err = expandPath(c.Paths.ReportsDir); err != nil {
		return fmt.Errorf("paths.reports_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ManifestPath) == "" {
		c.Paths.ManifestPath = filepath.Join(c.Paths.StateDir, defaultManifestName)
	}
	if c.Paths.ManifestPath, err = expandPath(c.Paths.ManifestPath); err != nil {
		return fmt.Errorf("paths.manifest_path: %w", err)
	}
	if c.Paths.ComponentsDirs, err = expandList(c.Paths.ComponentsDirs); err != nil {
		return fmt.Errorf("paths.components_dirs: %w", err)
	}
	if c.Paths.PluginDirs, err = expandList(c.Paths.PluginDirs); err != nil {
		return fmt.Errorf("paths.plugin_dirs: %w", err)
	}
	return nil
}

func (c *Config) normalizeMatching() {
	c.Matching.Vendor = strings.ToLower(strings.TrimSpace(c.Matching.Vendor))
	c.Matching.Qualifier = strings.ToLower(strings.TrimSpace(c.Matching.Qualifier))
	c.Matching.ProductPrefixes = trimList(c.Matching.ProductPrefixes, false)
	c.Matching.Extensions = trimList(c.Matching.Extensions, true)
	c.Matching.BaseStopwords = trimList(c.Matching.BaseStopwords, true)
	c.Matching.DescriptorStopwords = trimList(c.Matching.DescriptorStopwords, true)
	c.Matching.CollectionKeywords = trimList(c.Matching.CollectionKeywords, true)
	c.Matching.ProfileLineFilter = strings.ToLower(strings.TrimSpace(c.Matching.ProfileLineFilter))
	c.Matching.ComponentFilter = strings.ToLower(strings.TrimSpace(c.Matching.ComponentFilter))
	for i, ext := range c.Matching.Extensions {
		if !strings.HasPrefix(ext, ".") {
			c.Matching.Extensions[i] = "." + ext
		}
	}
}

func (c *Config) normalizeBackup() {
	c.Backup.Label = strings.TrimSpace(c.Backup.Label)
	if c.Backup.Label == "" {
		c.Backup.Label = defaultBackupLabel
	}
	if c.Backup.Keep < 0 {
		c.Backup.Keep = 0
	}
}

func (c *Config) normalizeOrganize() error {
	var err error
	if c.Organize.MappingPath, err = expandPath(strings.TrimSpace(c.Organize.MappingPath)); err != nil {
		return fmt.Errorf("organize.mapping_path: %w", err)
	}
	if strings.TrimSpace(c.Organize.GeneratedMappingPath) == "" {
		c.Organize.GeneratedMappingPath = defaultGeneratedMapping
	}
	if c.Organize.GeneratedMappingPath, err = expandPath(c.Organize.GeneratedMappingPath); err != nil {
		return fmt.Errorf("organize.generated_mapping_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeAssistant() error {
	c.Assistant.Tools = trimList(c.Assistant.Tools, true)
	if len(c.Assistant.Tools) == 0 {
		c.Assistant.Tools = append([]string(nil), defaultAssistantTools...)
	}
	var err error
	if c.Assistant.PromptPath, err = expandPath(strings.TrimSpace(c.Assistant.PromptPath)); err != nil {
		return fmt.Errorf("assistant.prompt_path: %w", err)
	}
	if c.Assistant.MaxBytes == 0 {
		c.Assistant.MaxBytes = defaultAssistantMaxBytes
	}
	if c.Assistant.DrainTimeoutSeconds == 0 {
		c.Assistant.DrainTimeoutSeconds = defaultAssistantDrainTimout
	}
	if c.Assistant.RunTimeoutSeconds == 0 {
		c.Assistant.RunTimeoutSeconds = defaultAssistantRunTimeout
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func expandList(values []string) ([]string, error) {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		expanded, err := expandPath(value)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[expanded]; ok {
			continue
		}
		seen[expanded] = struct{}{}
		out = append(out, expanded)
	}
	return out, nil
}

func trimList(values []string, lower bool) []string {
	var out []string
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if lower {
			value = strings.ToLower(value)
		}
		out = append(out, value)
	}
	return out
}
