package tagset

import (
	"fmt"
	"slices"
)

// Categories lists the categories Logic knows about.
type Categories struct {
	Sorting []string `json:"sorting"`
	Tagpool []string `json:"tagpool"`
}

// Usage lists the categories assigned to one tagset.
type Usage struct {
	Tagset string   `json:"tagset"`
	Tags   []string `json:"tags"`
	Hidden bool     `json:"hidden,omitempty"`
}

// Categories reads the sorting order and the non-empty tagpool keys.
func (s *Store) Categories() (Categories, error) {
	props, err := s.loadDatabase(PropertiesFile)
	if err != nil {
		return Categories{}, err
	}
	pool, err := s.loadDatabase(TagpoolFile)
	if err != nil {
		return Categories{}, err
	}
	return Categories{
		Sorting: stringList(props["sorting"]),
		Tagpool: sortedKeys(pool),
	}, nil
}

// Usage decodes every tagset and reports its tags. Undecodable records are
// skipped and counted.
func (s *Store) Usage() ([]Usage, int, error) {
	keys, err := s.Keys()
	if err != nil {
		return nil, 0, err
	}
	out := make([]Usage, 0, len(keys))
	skipped := 0
	for _, key := range keys {
		record, _, _, err := s.Load(key)
		if err != nil {
			skipped++
			continue
		}
		out = append(out, Usage{Tagset: key, Tags: record.Tags(), Hidden: record.Hidden()})
	}
	return out, skipped, nil
}

func (s *Store) loadDatabase(name string) (Record, error) {
	record, _, exists, err := s.Load(name)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrDatabaseMissing, s.Path(name))
	}
	return record, nil
}

func stringList(value any) []string {
	items, ok := value.([]any)
	if !ok {
		if list, ok := value.([]string); ok {
			return slices.Clone(list)
		}
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
