package match

import (
	"github.com/sells-group/servicearea/internal/registry"
)

// Result is the best-scoring registry entry for a query key.
type Result struct {
	Key   string
	Score int
	Entry *registry.Entry
}

// Matcher scores query keys against registry keys with one strategy.
type Matcher struct {
	strategy Strategy
}

// New creates a Matcher. A zero Strategy means Ratio.
func New(s Strategy) *Matcher {
	if s.Score == nil {
		s = Ratio
	}
	return &Matcher{strategy: s}
}

// Strategy returns the matcher's strategy.
func (m *Matcher) Strategy() Strategy {
	return m.strategy
}

// Score compares two normalized keys.
func (m *Matcher) Score(a, b string) int {
	return m.strategy.Score(a, b)
}

// BestMatch returns the highest-scoring key in reg. Keys are visited in
// insertion order and only a strictly higher score replaces the current
// best, so the earliest key wins ties. It reports false for an empty registry.
func (m *Matcher) BestMatch(key string, reg *registry.Registry) (Result, bool) {
	best := Result{Score: -1}
	for e := range reg.Entries() {
		s := m.strategy.Score(key, e.Key)
		if s > best.Score {
			best = Result{Key: e.Key, Score: s, Entry: e}
			if s == 100 {
				break
			}
		}
	}
	if best.Entry == nil {
		return Result{}, false
	}
	return best, true
}
