package organizer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultFallbackCategory is used when a mapping names none.
const DefaultFallbackCategory = "Other"

// ErrMappingNotFound is returned when the mapping file does not exist.
var ErrMappingNotFound = errors.New("mapping not found")

// Alias maps a substring seen in a plug-in's identity to a vendor name.
type Alias struct {
	Match  string
	Vendor string
}

// Aliases keeps the file order of the vendor_aliases object; the first
// matching alias wins.
type Aliases []Alias

// UnmarshalJSON decodes an object while preserving key order.
func (a *Aliases) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*a = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("vendor_aliases: expected object")
	}
	var out Aliases
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)
		var vendor string
		if err := dec.Decode(&vendor); err != nil {
			return fmt.Errorf("vendor_aliases[%q]: %w", key, err)
		}
		out = append(out, Alias{Match: key, Vendor: vendor})
	}
	*a = out
	return nil
}

// UnmarshalYAML decodes a mapping node while preserving key order.
func (a *Aliases) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("vendor_aliases: expected mapping at line %d", node.Line)
	}
	out := make(Aliases, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		out = append(out, Alias{Match: node.Content[i].Value, Vendor: node.Content[i+1].Value})
	}
	*a = out
	return nil
}

// Selector matches plug-ins by any combination of fields. Every field that
// is set must match.
type Selector struct {
	Name     string `json:"name,omitempty" yaml:"name,omitempty"`
	BundleID string `json:"bundle_id,omitempty" yaml:"bundle_id,omitempty"`
	Vendor   string `json:"vendor,omitempty" yaml:"vendor,omitempty"`
	Pattern  string `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Category string `json:"category,omitempty" yaml:"category,omitempty"`

	pattern *regexp.Regexp
}

// Rule assigns Category to names matching Pattern.
type Rule struct {
	Pattern  string `json:"pattern" yaml:"pattern"`
	Category string `json:"category" yaml:"category"`

	pattern *regexp.Regexp
}

// Mapping is the category configuration consumed by the organizer.
type Mapping struct {
	Categories       []string          `json:"categories" yaml:"categories"`
	VendorAliases    Aliases           `json:"vendor_aliases" yaml:"vendor_aliases"`
	Exclude          []Selector        `json:"exclude" yaml:"exclude"`
	Overrides        []Selector        `json:"overrides" yaml:"overrides"`
	VendorRules      map[string][]Rule `json:"vendor_rules" yaml:"vendor_rules"`
	Rules            []Rule            `json:"rules" yaml:"rules"`
	FallbackCategory string            `json:"fallback_category" yaml:"fallback_category"`
}

// LoadMapping reads a mapping. Files ending in .yaml or .yml are parsed as
// YAML; everything else as JSON.
func LoadMapping(path string) (*Mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMappingNotFound, path)
		}
		return nil, fmt.Errorf("read mapping: %w", err)
	}
	var mapping Mapping
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &mapping)
	default:
		err = json.Unmarshal(data, &mapping)
	}
	if err != nil {
		return nil, fmt.Errorf("parse mapping %s: %w", path, err)
	}
	if err := mapping.compile(); err != nil {
		return nil, fmt.Errorf("mapping %s: %w", path, err)
	}
	return &mapping, nil
}

// Fallback returns the fallback category.
func (m *Mapping) Fallback() string {
	if strings.TrimSpace(m.FallbackCategory) == "" {
		return DefaultFallbackCategory
	}
	return m.FallbackCategory
}

func (m *Mapping) compile() error {
	for i := range m.Exclude {
		if err := m.Exclude[i].compile(); err != nil {
			return fmt.Errorf("exclude[%d]: %w", i, err)
		}
	}
	for i := range m.Overrides {
		if err := m.Overrides[i].compile(); err != nil {
			return fmt.Errorf("overrides[%d]: %w", i, err)
		}
		if strings.TrimSpace(m.Overrides[i].Category) == "" {
			return fmt.Errorf("overrides[%d]: category is required", i)
		}
	}
	for vendor, rules := range m.VendorRules {
		if err := compileRules(rules); err != nil {
			return fmt.Errorf("vendor_rules[%q]: %w", vendor, err)
		}
	}
	if err := compileRules(m.Rules); err != nil {
		return fmt.Errorf("rules: %w", err)
	}
	return nil
}

func (s *Selector) compile() error {
	if s.Pattern == "" {
		return nil
	}
	re, err := regexp.Compile("(?i)" + s.Pattern)
	if err != nil {
		return fmt.Errorf("pattern %q: %w", s.Pattern, err)
	}
	s.pattern = re
	return nil
}

func compileRules(rules []Rule) error {
	for i := range rules {
		if rules[i].Pattern == "" || rules[i].Category == "" {
			continue
		}
		re, err := regexp.Compile("(?i)" + rules[i].Pattern)
		if err != nil {
			return fmt.Errorf("[%d] pattern %q: %w", i, rules[i].Pattern, err)
		}
		rules[i].pattern = re
	}
	return nil
}
