package config

const (
	defaultTagsDir              = "~/Music/Audio Music Apps/Databases/Tags"
	defaultBackupDir            = "~/.local/share/tagwarden/backups"
	defaultStateDir             = "~/.local/share/tagwarden"
	defaultReportsDir           = "./reports"
	defaultManifestName         = "hidden-tagsets.json"
	defaultVendor               = "universal audio"
	defaultQualifier            = "uad"
	defaultProfileLineFilter    = "uad"
	defaultComponentFilter      = "uad"
	defaultBackupLabel          = "Tags"
	defaultBackupMinFreeRatio   = 0.05
	defaultMappingPath          = "~/.config/tagwarden/plugin_mapping.json"
	defaultGeneratedMapping     = "./plugin_mapping.generated.json"
	defaultPromptPath           = "~/.config/tagwarden/prompts/plugin_mapping_prompt.md"
	defaultAssistantMaxBytes    = 100000
	defaultAssistantDrainTimout = 10
	defaultAssistantRunTimeout  = 900
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

var (
	defaultComponentsDirs = []string{
		"/Library/Audio/Plug-Ins/Components",
		"~/Library/Audio/Plug-Ins/Components",
	}
	defaultPluginDirs = []string{
		"/Library/Audio/Plug-Ins/Components",
		"/Library/Audio/Plug-Ins/VST/Universal Audio",
		"/Library/Audio/Plug-Ins/VST3/Universal Audio",
		"/Library/Application Support/Avid/Audio/Plug-Ins/Universal Audio",
	}
	defaultAssistantTools = []string{"copilot", "claude", "codex", "opencode"}
)

// Default returns a Config populated with repository defaults. Matching tables are
// left empty so the built-in vocabularies apply unless a config file overrides them.
func Default() Config {
	return Config{
		Paths: Paths{
			TagsDir:        defaultTagsDir,
			BackupDir:      defaultBackupDir,
			StateDir:       defaultStateDir,
			ReportsDir:     defaultReportsDir,
			ComponentsDirs: append([]string(nil), defaultComponentsDirs...),
			PluginDirs:     append([]string(nil), defaultPluginDirs...),
		},
		Matching: Matching{
			Vendor:             defaultVendor,
			Qualifier:          defaultQualifier,
			CanonicalSubstring: true,
			ProfileLineFilter:  defaultProfileLineFilter,
			ComponentFilter:    defaultComponentFilter,
		},
		Backup: Backup{
			Label:        defaultBackupLabel,
			Verify:       true,
			MinFreeRatio: defaultBackupMinFreeRatio,
		},
		Organize: Organize{
			MappingPath:          defaultMappingPath,
			GeneratedMappingPath: defaultGeneratedMapping,
		},
		Assistant: Assistant{
			Tools:               append([]string(nil), defaultAssistantTools...),
			PromptPath:          defaultPromptPath,
			MaxBytes:            defaultAssistantMaxBytes,
			DrainTimeoutSeconds: defaultAssistantDrainTimout,
			RunTimeoutSeconds:   defaultAssistantRunTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
