package textutil

import (
	"regexp"
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// spaceClass matches every Unicode white space rune, not only ASCII.
const spaceClass = `[\s\p{Z}\x{1c}-\x{1f}\x{85}]`

var whitespacePattern = regexp.MustCompile(spaceClass + `+`)

var (
	defaultVendor     = "universal audio"
	defaultQualifier  = "uad"
	defaultPrefixes   = []string{"uad-2", "uadx", "uad"}
	defaultExtensions = []string{".component", ".vst", ".vst3", ".aaxplugin"}
)

// RuleConfig describes a normalization rule table. Empty fields use the defaults.
type RuleConfig struct {
	Vendor     string
	Qualifier  string
	Prefixes   []string
	Extensions []string
}

// Rules is an immutable normalization rule table.
type Rules struct {
	vendor     *regexp.Regexp
	prefixes   []string
	extensions []string
}

// DefaultRules returns the built-in rule table.
func DefaultRules() Rules {
	return NewRules(RuleConfig{})
}

// NewRules compiles a rule table. Prefixes are tried longest first so "uad-2"
// is never half-stripped as "uad".
func NewRules(cfg RuleConfig) Rules {
	vendor := strings.ToLower(strings.TrimSpace(cfg.Vendor))
	if vendor == "" {
		vendor = defaultVendor
	}
	qualifier := strings.ToLower(strings.TrimSpace(cfg.Qualifier))
	if qualifier == "" {
		qualifier = defaultQualifier
	}
	prefixes := lowerAll(cfg.Prefixes)
	if len(prefixes) == 0 {
		prefixes = slices.Clone(defaultPrefixes)
	}
	slices.SortStableFunc(prefixes, func(a, b string) int { return len(b) - len(a) })
	extensions := lowerAll(cfg.Extensions)
	if len(extensions) == 0 {
		extensions = slices.Clone(defaultExtensions)
	}
	slices.SortStableFunc(extensions, func(a, b string) int { return len(b) - len(a) })

	vendorWords := strings.Fields(regexp.QuoteMeta(vendor))
	pattern := `(?i)^` + spaceClass + `*` + strings.Join(vendorWords, spaceClass+`+`) +
		`(` + spaceClass + `*\(` + spaceClass + `*` + regexp.QuoteMeta(qualifier) + `[^)]*\))?` +
		spaceClass + `*:` + spaceClass + `*`
	return Rules{
		vendor:     regexp.MustCompile(pattern),
		prefixes:   prefixes,
		extensions: extensions,
	}
}

// Normalize canonicalizes a name with the default rules.
func Normalize(raw string) string {
	return defaultRules.Normalize(raw)
}

var defaultRules = DefaultRules()

// Normalize trims the name, strips a container extension, a vendor clause and
// a product-line prefix, collapses whitespace, and lowercases. The strip steps
// repeat until nothing changes, which keeps Normalize idempotent.
func (r Rules) Normalize(raw string) string {
	name := strings.TrimSpace(norm.NFC.String(raw))
	for {
		next := r.stripOnce(name)
		if next == name {
			break
		}
		name = next
	}
	name = whitespacePattern.ReplaceAllString(name, " ")
	return norm.NFC.String(strings.ToLower(name))
}

func (r Rules) stripOnce(name string) string {
	name = r.stripExtension(name)
	if loc := r.vendor.FindStringIndex(name); loc != nil {
		name = strings.TrimSpace(name[loc[1]:])
	}
	return r.stripPrefix(name)
}

func (r Rules) stripExtension(name string) string {
	lower := strings.ToLower(name)
	for _, ext := range r.extensions {
		if strings.HasSuffix(lower, ext) {
			return strings.TrimSpace(name[:len(name)-len(ext)])
		}
	}
	return name
}

func (r Rules) stripPrefix(name string) string {
	lower := strings.ToLower(name)
	for _, prefix := range r.prefixes {
		if !strings.HasPrefix(lower, prefix) {
			continue
		}
		rest := name[len(prefix):]
		if rest == "" {
			continue
		}
		first := []rune(rest)[0]
		if !unicode.IsSpace(first) {
			continue
		}
		return strings.TrimSpace(rest)
	}
	return name
}

func lowerAll(values []string) []string {
	var out []string
	for _, value := range values {
		value = strings.ToLower(strings.TrimSpace(value))
		if value != "" {
			out = append(out, value)
		}
	}
	return out
}
