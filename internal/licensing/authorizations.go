package licensing

import (
	"slices"
	"strings"
)

// AuthorizationSet is an immutable, sorted, de-duplicated list of normalized
// authorized names.
type AuthorizationSet struct {
	names []string
}

// NewAuthorizationSet builds a set from normalized names. Blank names are dropped.
func NewAuthorizationSet(names ...string) AuthorizationSet {
	out := make([]string, 0, len(names))
	for _, name := range names {
		if strings.TrimSpace(name) != "" {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return AuthorizationSet{names: slices.Compact(out)}
}

// Contains reports whether the normalized name is authorized verbatim.
func (s AuthorizationSet) Contains(name string) bool {
	_, found := slices.BinarySearch(s.names, name)
	return found
}

// Len returns the number of authorizations.
func (s AuthorizationSet) Len() int {
	return len(s.names)
}

// Names returns a copy of the sorted names.
func (s AuthorizationSet) Names() []string {
	return slices.Clone(s.names)
}
