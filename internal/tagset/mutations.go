package tagset

// WithHide returns a copy of r carrying the hide marker.
func WithHide(r Record) Record {
	out := r.Clone()
	out[HideKey] = ""
	return out
}

// WithoutHide returns a copy of r without the hide marker.
func WithoutHide(r Record) Record {
	out := r.Clone()
	delete(out, HideKey)
	return out
}

// WithCategory assigns category as a user tag. With merge unset the existing
// tags are replaced; a malformed tags value is always replaced.
func WithCategory(r Record, category string, merge bool) Record {
	out := r.Clone()
	tags := out.TagMap()
	if tags == nil || !merge {
		tags = map[string]any{}
	}
	tags[category] = UserTag
	out[TagsKey] = tags
	return out
}

// WithSorting replaces the category sorting order of MusicApps.properties.
func WithSorting(r Record, categories []string) Record {
	out := r.Clone()
	sorting := make([]any, 0, len(categories))
	for _, category := range categories {
		sorting = append(sorting, category)
	}
	out["sorting"] = sorting
	return out
}

// WithTagpool replaces every named category of MusicApps.tagpool, keeping
// the unnamed entry Logic stores under "".
func WithTagpool(r Record, categories []string) Record {
	out := Record{}
	if value, ok := r[""]; ok {
		out[""] = value
	}
	for _, category := range categories {
		out[category] = 0
	}
	return out
}
