package registry

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/servicearea/internal/address"
)

// Variant derives an alternative lookup key from a street's spaced key.
// An empty result means the variant does not apply.
type Variant struct {
	Name   string
	Derive func(spaced string) string
}

// Built-in variants.
var (
	Spaced  = Variant{Name: "spaced", Derive: func(k string) string { return k }}
	Compact = Variant{Name: "compact", Derive: address.Compact}
	Base    = Variant{Name: "base", Derive: address.Base}
)

// DefaultVariants is spaced, compact, base.
func DefaultVariants() []Variant {
	return []Variant{Spaced, Compact, Base}
}

var knownVariants = map[string]Variant{
	Spaced.Name:  Spaced,
	Compact.Name: Compact,
	Base.Name:    Base,
}

// VariantNames lists the names VariantsByName accepts.
func VariantNames() []string {
	return []string{Spaced.Name, Compact.Name, Base.Name}
}

// VariantsByName resolves configured variant names, dropping duplicates.
func VariantsByName(names []string) ([]Variant, error) {
	if len(names) == 0 {
		return DefaultVariants(), nil
	}
	seen := make(map[string]bool, len(names))
	out := make([]Variant, 0, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		v, ok := knownVariants[n]
		if !ok {
			return nil, eris.Errorf("registry: unknown variant %q", n)
		}
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, v)
	}
	return out, nil
}
