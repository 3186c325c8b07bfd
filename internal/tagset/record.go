package tagset

import (
	"maps"
	"slices"
	"strings"

	"howett.net/plist"
)

const (
	// HideKey marks a plug-in hidden in Logic's plug-in manager.
	HideKey = "hide"
	// TagsKey holds the category dictionary of a tagset.
	TagsKey = "tags"
	// UserTag is the value Logic stores for user-assigned categories.
	UserTag = "user"
)

// Format is a property list encoding.
type Format int

const (
	FormatXML    = Format(plist.XMLFormat)
	FormatBinary = Format(plist.BinaryFormat)
)

// Record is one decoded property list dictionary.
type Record map[string]any

// Clone copies the record and its tags dictionary.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	maps.Copy(out, r)
	if tags, ok := r[TagsKey].(map[string]any); ok {
		out[TagsKey] = maps.Clone(tags)
	}
	return out
}

// Hidden reports whether the hide marker is present.
func (r Record) Hidden() bool {
	_, ok := r[HideKey]
	return ok
}

// TagMap returns the tags dictionary, or nil when absent or malformed.
func (r Record) TagMap() map[string]any {
	tags, _ := r[TagsKey].(map[string]any)
	return tags
}

// Tags returns the category names, sorted case-insensitively.
func (r Record) Tags() []string {
	return sortedKeys(r.TagMap())
}

// Decode parses a property list in any encoding.
func Decode(data []byte) (Record, Format, error) {
	record := Record{}
	format, err := plist.Unmarshal(data, &record)
	if err != nil {
		return nil, 0, err
	}
	if format != plist.BinaryFormat {
		format = plist.XMLFormat
	}
	return record, Format(format), nil
}

// Encode serializes a record. Unknown formats fall back to XML.
func Encode(record Record, format Format) ([]byte, error) {
	if format == FormatBinary {
		return plist.Marshal(map[string]any(record), int(FormatBinary))
	}
	return plist.MarshalIndent(map[string]any(record), plist.XMLFormat, "\t")
}

func sortedKeys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for key := range m {
		if key != "" {
			out = append(out, key)
		}
	}
	slices.SortFunc(out, func(a, b string) int {
		if c := strings.Compare(strings.ToLower(a), strings.ToLower(b)); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})
	return out
}

// Strings returns the string items of a list value, or an empty list.
func (r Record) Strings(key string) []string {
	return stringList(r[key])
}

// NamedKeys returns the non-empty top-level keys in byte order.
func (r Record) NamedKeys() []string {
	out := make([]string, 0, len(r))
	for key := range r {
		if key != "" {
			out = append(out, key)
		}
	}
	slices.Sort(out)
	return out
}
