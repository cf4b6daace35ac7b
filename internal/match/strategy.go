// Package match scores normalized street keys against a registry and ranks
// suggestions.
package match

import (
	"math"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	"github.com/agnivade/levenshtein"
	"github.com/rotisserie/eris"
)

// Strategy is a named similarity function. Scores are integers in [0, 100];
// every strategy is symmetric and scores identical strings 100.
type Strategy struct {
	Name  string
	Score func(a, b string) int
}

// Built-in strategies.
var (
	Ratio       = Strategy{Name: "ratio", Score: ratio}
	TokenSet    = Strategy{Name: "token_set", Score: tokenSet}
	JaroWinkler = Strategy{Name: "jaro_winkler", Score: jaroWinkler}
)

var strategies = map[string]Strategy{
	Ratio.Name:       Ratio,
	TokenSet.Name:    TokenSet,
	JaroWinkler.Name: JaroWinkler,
}

// StrategyNames lists the names StrategyByName accepts.
func StrategyNames() []string {
	return []string{Ratio.Name, TokenSet.Name, JaroWinkler.Name}
}

// StrategyByName resolves a configured strategy. Empty means ratio.
func StrategyByName(name string) (Strategy, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return Ratio, nil
	}
	s, ok := strategies[name]
	if !ok {
		return Strategy{}, eris.Errorf("match: unknown strategy %q", name)
	}
	return s, nil
}

// ratio is the normalized Levenshtein similarity over runes.
func ratio(a, b string) int {
	if a == b {
		return 100
	}
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	d := levenshtein.ComputeDistance(a, b)
	return int(math.Round(100 * (1 - float64(d)/float64(longest))))
}

// tokenSet compares the shared tokens and each side's leftovers, so word
// order and repeated words do not matter.
func tokenSet(a, b string) int {
	ta, tb := tokenBag(a), tokenBag(b)
	if len(ta) == 0 || len(tb) == 0 {
		if len(ta) == len(tb) {
			return 100
		}
		return 0
	}

	var common, onlyA, onlyB []string
	for tok := range ta {
		if tb[tok] {
			common = append(common, tok)
		} else {
			onlyA = append(onlyA, tok)
		}
	}
	for tok := range tb {
		if !ta[tok] {
			onlyB = append(onlyB, tok)
		}
	}
	slices.Sort(common)
	slices.Sort(onlyA)
	slices.Sort(onlyB)

	t0 := strings.Join(common, " ")
	t1 := strings.TrimSpace(t0 + " " + strings.Join(onlyA, " "))
	t2 := strings.TrimSpace(t0 + " " + strings.Join(onlyB, " "))

	return max(ratio(t0, t1), ratio(t0, t2), ratio(t1, t2))
}

func tokenBag(s string) map[string]bool {
	fields := strings.Fields(s)
	bag := make(map[string]bool, len(fields))
	for _, f := range fields {
		bag[f] = true
	}
	return bag
}

var jw = metrics.NewJaroWinkler()

// jaroWinkler scales Jaro-Winkler similarity to [0, 100]. Arguments are put
// in a fixed order first because greedy Jaro matching is order dependent.
func jaroWinkler(a, b string) int {
	if a == b {
		return 100
	}
	if a == "" || b == "" {
		return 0
	}
	if b < a {
		a, b = b, a
	}
	return int(math.Round(100 * strutil.Similarity(a, b, jw)))
}
