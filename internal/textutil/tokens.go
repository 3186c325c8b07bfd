package textutil

import (
	"regexp"
	"slices"
	"strings"
)

// tokenSplitPattern matches non-alphanumeric character sequences for tokenization.
var tokenSplitPattern = regexp.MustCompile(`[^a-z0-9]+`)

// TokenSet is an unordered set of lowercase alphanumeric tokens.
type TokenSet map[string]struct{}

// NewTokenSet builds a set from the given tokens, skipping empty ones.
func NewTokenSet(tokens ...string) TokenSet {
	set := make(TokenSet, len(tokens))
	for _, token := range tokens {
		if token != "" {
			set[token] = struct{}{}
		}
	}
	return set
}

// Tokenize normalizes the name with the default rules and splits it into tokens.
func Tokenize(name string) TokenSet {
	return defaultRules.Tokenize(name)
}

// Tokenize normalizes the name and splits it on every run of characters
// outside [a-z0-9].
func (r Rules) Tokenize(name string) TokenSet {
	return SplitTokens(r.Normalize(name))
}

// SplitTokens splits an already normalized name.
func SplitTokens(normalized string) TokenSet {
	return NewTokenSet(tokenSplitPattern.Split(normalized, -1)...)
}

// Contains reports whether token is in the set.
func (s TokenSet) Contains(token string) bool {
	_, ok := s[token]
	return ok
}

// Empty reports whether the set has no tokens.
func (s TokenSet) Empty() bool {
	return len(s) == 0
}

// Minus returns the tokens of s absent from every other set.
func (s TokenSet) Minus(others ...TokenSet) TokenSet {
	out := make(TokenSet, len(s))
	for token := range s {
		excluded := false
		for _, other := range others {
			if other.Contains(token) {
				excluded = true
				break
			}
		}
		if !excluded {
			out[token] = struct{}{}
		}
	}
	return out
}

// Intersect returns the tokens present in both sets.
func (s TokenSet) Intersect(other TokenSet) TokenSet {
	out := make(TokenSet)
	for token := range s {
		if other.Contains(token) {
			out[token] = struct{}{}
		}
	}
	return out
}

// Union returns the tokens present in either set.
func (s TokenSet) Union(other TokenSet) TokenSet {
	out := make(TokenSet, len(s)+len(other))
	for token := range s {
		out[token] = struct{}{}
	}
	for token := range other {
		out[token] = struct{}{}
	}
	return out
}

// SubsetOf reports whether every token of s is in other. The empty set is a
// subset of everything.
func (s TokenSet) SubsetOf(other TokenSet) bool {
	for token := range s {
		if !other.Contains(token) {
			return false
		}
	}
	return true
}

// Equal reports whether both sets hold the same tokens.
func (s TokenSet) Equal(other TokenSet) bool {
	return len(s) == len(other) && s.SubsetOf(other)
}

// AllNumeric reports whether the set is non-empty and every token is numeric.
func (s TokenSet) AllNumeric() bool {
	if len(s) == 0 {
		return false
	}
	for token := range s {
		if !IsNumeric(token) {
			return false
		}
	}
	return true
}

// Sorted returns the tokens in lexicographic order.
func (s TokenSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for token := range s {
		out = append(out, token)
	}
	slices.Sort(out)
	return out
}

// String renders the sorted tokens separated by spaces.
func (s TokenSet) String() string {
	return strings.Join(s.Sorted(), " ")
}

// IsNumeric reports whether token is non-empty and made only of ASCII digits.
func IsNumeric(token string) bool {
	if token == "" {
		return false
	}
	for i := 0; i < len(token); i++ {
		if token[i] < '0' || token[i] > '9' {
			return false
		}
	}
	return true
}

// Canonical drops every character outside [a-z0-9] from a normalized name.
func Canonical(normalized string) string {
	return tokenSplitPattern.ReplaceAllString(normalized, "")
}

// SanitizeToken converts a string to a lowercase filesystem-safe token.
// Letters are lowercased, digits and hyphens/underscores are kept, everything
// else becomes an underscore. Returns "unknown" for empty input.
func SanitizeToken(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	var b strings.Builder
	for _, r := range strings.ToLower(value) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), "_-")
	if out == "" {
		return "unknown"
	}
	return out
}
