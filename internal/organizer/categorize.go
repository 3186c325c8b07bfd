package organizer

import (
	"log/slog"
	"regexp"
	"strings"

	"tagwarden/internal/components"
	"tagwarden/internal/logging"
)

func normalize(text string) string {
	return strings.ToLower(strings.Join(strings.Fields(text), " "))
}

// Result is the category decision for one component.
type Result struct {
	BundleID string `json:"bundle_id"`
	Category string `json:"category,omitempty"`
	Excluded bool   `json:"excluded"`
	Name     string `json:"name"`
	Tagset   string `json:"tagset"`
	Vendor   string `json:"vendor,omitempty"`
}

// Organizer categorizes components against one mapping.
type Organizer struct {
	mapping *Mapping
	logger  *slog.Logger
}

// New builds an organizer.
func New(mapping *Mapping, logger *slog.Logger) *Organizer {
	return &Organizer{mapping: mapping, logger: logging.NewComponentLogger(logger, "organizer")}
}

// Mapping returns the loaded mapping.
func (o *Organizer) Mapping() *Mapping {
	return o.mapping
}

// DetectVendor returns the vendor of the first alias found in the bundle id,
// bundle name, plug-in name or manufacturer code.
func (o *Organizer) DetectVendor(c components.Component) string {
	var candidates []string
	for _, value := range []string{c.BundleID, c.BundleName, c.Name, c.Manufacturer} {
		if value != "" {
			candidates = append(candidates, normalize(value))
		}
	}
	for _, alias := range o.mapping.VendorAliases {
		needle := normalize(alias.Match)
		if needle == "" {
			continue
		}
		for _, candidate := range candidates {
			if strings.Contains(candidate, needle) {
				return alias.Vendor
			}
		}
	}
	return ""
}

// StripVendorPrefix removes a leading "Vendor:" or "Vendor -" from name.
func StripVendorPrefix(name, vendor string) string {
	if vendor == "" {
		return name
	}
	re := regexp.MustCompile(`(?i)^\s*` + regexp.QuoteMeta(vendor) + `\s*[:\-]\s*`)
	return re.ReplaceAllString(name, "")
}

func (s Selector) matches(c components.Component, vendor, cleaned string) bool {
	if s.Name != "" && normalize(cleaned) != normalize(s.Name) {
		return false
	}
	if s.BundleID != "" && normalize(c.BundleID) != normalize(s.BundleID) {
		return false
	}
	if s.Vendor != "" && (vendor == "" || normalize(vendor) != normalize(s.Vendor)) {
		return false
	}
	if s.pattern != nil && !s.pattern.MatchString(cleaned) {
		return false
	}
	return true
}

func matchRules(name string, rules []Rule) string {
	for _, rule := range rules {
		if rule.pattern == nil {
			continue
		}
		if rule.pattern.MatchString(name) {
			return rule.Category
		}
	}
	return ""
}

// Categorize decides the category for c. Exclusions win, then overrides,
// then the detected vendor's rules, then global rules, then the fallback.
func (o *Organizer) Categorize(c components.Component) Result {
	vendor := o.DetectVendor(c)
	cleaned := StripVendorPrefix(c.Name, vendor)
	result := Result{
		BundleID: c.BundleID,
		Name:     c.Name,
		Tagset:   c.StableKey(),
		Vendor:   vendor,
	}

	for _, exclusion := range o.mapping.Exclude {
		if exclusion.matches(c, vendor, cleaned) {
			result.Excluded = true
			o.logDecision(result, "excluded")
			return result
		}
	}
	for _, override := range o.mapping.Overrides {
		if override.matches(c, vendor, cleaned) {
			result.Category = override.Category
			o.logDecision(result, "override")
			return result
		}
	}
	if vendor != "" {
		if category := matchRules(cleaned, o.mapping.VendorRules[vendor]); category != "" {
			result.Category = category
			o.logDecision(result, "vendor_rule")
			return result
		}
	}
	if category := matchRules(cleaned, o.mapping.Rules); category != "" {
		result.Category = category
		o.logDecision(result, "rule")
		return result
	}
	result.Category = o.mapping.Fallback()
	o.logDecision(result, "fallback")
	return result
}

func (o *Organizer) logDecision(result Result, reason string) {
	attrs := logging.DecisionAttrs("category", result.Category, reason)
	attrs = append(attrs, logging.String("plugin", result.Name), logging.String(logging.FieldRecordKey, result.Tagset))
	o.logger.Debug("category decision", logging.Args(attrs...)...)
}
