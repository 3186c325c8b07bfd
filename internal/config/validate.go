package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateBackup(); err != nil {
		return err
	}
	if err := c.validateAssistant(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.TagsDir) == "" {
		return errors.New("paths.tags_dir must be set (or export TAGWARDEN_TAGS_DIR)")
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		return errors.New("paths.state_dir must be set")
	}
	if strings.TrimSpace(c.Paths.BackupDir) == "" {
		return errors.New("paths.backup_dir must be set")
	}
	// Snapshots copy and replace the whole Tags tree.
	if within(c.Paths.TagsDir, c.Paths.BackupDir) {
		return fmt.Errorf("paths.backup_dir must be outside paths.tags_dir (%s)", c.Paths.TagsDir)
	}
	if within(c.Paths.TagsDir, c.Paths.StateDir) {
		return fmt.Errorf("paths.state_dir must be outside paths.tags_dir (%s)", c.Paths.TagsDir)
	}
	return nil
}

// within reports whether path equals root or sits below it.
func within(root, path string) bool {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

func (c *Config) validateBackup() error {
	if strings.ContainsAny(c.Backup.Label, `/\`) {
		return fmt.Errorf("backup.label must not contain path separators, got %q", c.Backup.Label)
	}
	if c.Backup.MinFreeRatio < 0 || c.Backup.MinFreeRatio >= 1 {
		return errors.New("backup.min_free_ratio must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateAssistant() error {
	if c.Assistant.MaxBytes < 1024 {
		return errors.New("assistant.max_bytes must be at least 1024")
	}
	if c.Assistant.DrainTimeoutSeconds < 0 {
		return errors.New("assistant.drain_timeout_seconds must be non-negative")
	}
	if c.Assistant.RunTimeoutSeconds < 0 {
		return errors.New("assistant.run_timeout_seconds must be non-negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error, got %q", c.Logging.Level)
	}
}
