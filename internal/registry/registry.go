// Package registry indexes the serviced-street feed under normalized keys.
package registry

import (
	"iter"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/servicearea/internal/address"
)

// Registry maps normalized keys to serviced streets. It is immutable once
// built and safe for concurrent readers.
type Registry struct {
	normalizer *address.Normalizer
	variants   []Variant
	entries    map[string]*Entry
	order      []*Entry
	streets    []*Street
}

// BuildStats summarizes a Build.
type BuildStats struct {
	Rows       int `json:"rows" yaml:"rows"`
	Indexed    int `json:"indexed" yaml:"indexed"`
	Skipped    int `json:"skipped" yaml:"skipped"`
	Streets    int `json:"streets" yaml:"streets"`
	Keys       int `json:"keys" yaml:"keys"`
	Collisions int `json:"collisions" yaml:"collisions"`
}

// BuildOption configures Build.
type BuildOption func(*Registry)

// WithNormalizer sets the normalizer used for feed rows and queries.
func WithNormalizer(n *address.Normalizer) BuildOption {
	return func(r *Registry) {
		r.normalizer = n
	}
}

// WithVariants sets the key variants to index.
func WithVariants(vs []Variant) BuildOption {
	return func(r *Registry) {
		r.variants = vs
	}
}

// Build indexes rows. Rows without a street or service entity are skipped.
// Rows whose spaced keys agree become segments of one street. Keys are
// indexed variant by variant, in row order; when two streets derive the same
// key, the street indexed first keeps it.
func Build(rows []Row, opts ...BuildOption) (*Registry, BuildStats) {
	r := &Registry{
		normalizer: address.NewNormalizer(),
		variants:   DefaultVariants(),
	}
	for _, opt := range opts {
		opt(r)
	}

	stats := BuildStats{Rows: len(rows)}
	byKey := make(map[string]*Street)

	for _, row := range rows {
		street := strings.TrimSpace(row.Street)
		entity := strings.TrimSpace(row.ServiceEntity)
		if street == "" || entity == "" {
			stats.Skipped++
			zap.L().Debug("registry: skipping incomplete row",
				zap.Int("line", row.Line),
				zap.String("street", street),
				zap.String("service_entity", entity),
			)
			continue
		}

		key := r.normalizer.Normalize(street)
		if key == "" {
			stats.Skipped++
			zap.L().Debug("registry: skipping row with empty key",
				zap.Int("line", row.Line),
				zap.String("street", street),
			)
			continue
		}

		st, ok := byKey[key]
		if !ok {
			st = &Street{key: key, displayName: street}
			byKey[key] = st
			r.streets = append(r.streets, st)
		}

		rec := Record{DisplayName: street, ServiceEntity: entity, Line: row.Line}
		if row.Range != nil {
			hr := NewHouseRange(row.Range.Start, row.Range.End)
			rec.Range = &hr
		}
		st.segments = append(st.segments, rec)
		stats.Indexed++
	}

	r.entries = make(map[string]*Entry, len(r.streets)*len(r.variants))
	for _, v := range r.variants {
		for _, st := range r.streets {
			k := v.Derive(st.key)
			if k == "" {
				continue
			}
			if existing, ok := r.entries[k]; ok {
				if existing.Street != st {
					stats.Collisions++
					zap.L().Debug("registry: key already taken",
						zap.String("key", k),
						zap.String("variant", v.Name),
						zap.String("street", st.displayName),
						zap.String("owner", existing.Street.displayName),
					)
				}
				continue
			}
			e := &Entry{Key: k, Variant: v.Name, Street: st}
			r.entries[k] = e
			r.order = append(r.order, e)
		}
	}

	stats.Streets = len(r.streets)
	stats.Keys = len(r.order)
	return r, stats
}

// Normalize canonicalizes raw exactly as feed rows were.
func (r *Registry) Normalize(raw string) string {
	return r.normalizer.Normalize(raw)
}

// Lookup returns the entry indexed under key.
func (r *Registry) Lookup(key string) (*Entry, bool) {
	e, ok := r.entries[key]
	return e, ok
}

// Entries yields every entry in insertion order.
func (r *Registry) Entries() iter.Seq[*Entry] {
	return slices.Values(r.order)
}

// Keys returns every indexed key in insertion order.
func (r *Registry) Keys() []string {
	keys := make([]string, len(r.order))
	for i, e := range r.order {
		keys[i] = e.Key
	}
	return keys
}

// Streets returns the serviced streets in feed order.
func (r *Registry) Streets() []*Street {
	return slices.Clone(r.streets)
}

// Len returns the number of indexed keys.
func (r *Registry) Len() int {
	return len(r.order)
}

// StreetCount returns the number of distinct streets.
func (r *Registry) StreetCount() int {
	return len(r.streets)
}
