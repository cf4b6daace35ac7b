package match

import (
	"slices"

	"github.com/sells-group/servicearea/internal/registry"
)

// MaxSuggestions caps every suggestion list.
const MaxSuggestions = 5

// Suggestion is a street offered when no match is confident enough.
type Suggestion struct {
	Street string `json:"street" yaml:"street"`
	Score  int    `json:"score" yaml:"score"`
}

type scored struct {
	street string
	score  int
}

// Suggest ranks the registry keys scoring at least minScore against key.
// Results are ordered by descending score (insertion order on ties), carry
// each display name once, and hold at most limit entries. A limit outside
// 1..MaxSuggestions means MaxSuggestions.
func (m *Matcher) Suggest(key string, reg *registry.Registry, minScore, limit int) []Suggestion {
	if limit <= 0 || limit > MaxSuggestions {
		limit = MaxSuggestions
	}

	var candidates []scored
	for e := range reg.Entries() {
		s := m.strategy.Score(key, e.Key)
		if s >= minScore {
			candidates = append(candidates, scored{street: e.Street.DisplayName(), score: s})
		}
	}

	slices.SortStableFunc(candidates, func(a, b scored) int {
		return b.score - a.score
	})

	out := make([]Suggestion, 0, limit)
	seen := make(map[string]bool, limit)
	for _, c := range candidates {
		if seen[c.street] {
			continue
		}
		seen[c.street] = true
		out = append(out, Suggestion{Street: c.street, Score: c.score})
		if len(out) == limit {
			break
		}
	}
	return out
}
