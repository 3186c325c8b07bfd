package workflow

import (
	"context"
	"fmt"
	"io"
	"strings"

	"tagwarden/internal/logging"
	"tagwarden/internal/tagset"
)

// TagsResult lists Logic's categories and, optionally, per-tagset usage.
type TagsResult struct {
	Categories tagset.Categories `json:"categories"`
	TagsDir    string            `json:"tags_dir"`
	Tagsets    []tagset.Usage    `json:"tagsets,omitempty"`
}

// Tags reads the category databases. Undecodable tagsets are left out of the
// usage listing.
func (s *Service) Tags(ctx context.Context, includeTagsets bool) (*TagsResult, error) {
	if err := s.requireTagsDir(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cats, err := s.store.Categories()
	if err != nil {
		return nil, err
	}
	result := &TagsResult{Categories: cats, TagsDir: s.cfg.Paths.TagsDir}
	if includeTagsets {
		usage, skipped, err := s.store.Usage()
		if err != nil {
			return nil, err
		}
		if skipped > 0 {
			s.logger.Info("undecodable tagsets left out of usage", logging.Int("count", skipped))
		}
		result.Tagsets = usage
	}
	return result, nil
}

// RenderTags writes the console form of a tags listing.
func RenderTags(w io.Writer, r *TagsResult) {
	fmt.Fprintln(w, "Categories in sorting order:")
	for _, c := range r.Categories.Sorting {
		fmt.Fprintf(w, "- %s\n", c)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Categories in tagpool:")
	for _, c := range r.Categories.Tagpool {
		fmt.Fprintf(w, "- %s\n", c)
	}
	if r.Tagsets == nil {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Tagset usage:")
	for _, u := range r.Tagsets {
		tags := "(none)"
		if len(u.Tags) > 0 {
			tags = strings.Join(u.Tags, ", ")
		}
		fmt.Fprintf(w, "- %s: %s\n", u.Tagset, tags)
	}
}
