package licensing

import (
	"slices"
	"strings"

	"github.com/sahilm/fuzzy"
)

// Suggestion is a near-miss authorization for an unmatched plug-in.
type Suggestion struct {
	Authorization string `json:"authorization"`
	Score         int    `json:"score"`
}

// Suggest ranks authorizations that resemble name. It is diagnostic only and
// never influences Match. The whole name is tried first, then each core token,
// and scores are summed per authorization.
func (m *Matcher) Suggest(name string, set AuthorizationSet, limit int) []Suggestion {
	if limit <= 0 || set.Len() == 0 {
		return nil
	}
	normalized := m.rules.Normalize(name)
	if normalized == "" {
		return nil
	}

	scores := make(map[string]int)
	accumulate := func(pattern string) {
		for _, match := range fuzzy.Find(pattern, set.names) {
			scores[match.Str] += match.Score + len(match.MatchedIndexes)
		}
	}
	accumulate(normalized)
	core := m.rules.Tokenize(normalized).Minus(m.vocab.Base, m.vocab.Descriptor)
	for _, token := range core.Sorted() {
		if len(token) < 2 {
			continue
		}
		accumulate(token)
	}

	out := make([]Suggestion, 0, len(scores))
	for authorization, score := range scores {
		out = append(out, Suggestion{Authorization: authorization, Score: score})
	}
	slices.SortFunc(out, func(a, b Suggestion) int {
		if a.Score != b.Score {
			return b.Score - a.Score
		}
		return strings.Compare(a.Authorization, b.Authorization)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
