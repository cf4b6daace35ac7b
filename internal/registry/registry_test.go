package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/servicearea/internal/address"
)

func rng(a, b int) *HouseRange {
	r := HouseRange{Start: a, End: b}
	return &r
}

func TestBuild_IndexesVariants(t *testing.T) {
	reg, stats := Build([]Row{
		{Street: "Kemp Boulevard", ServiceEntity: "Downtown", Line: 2},
		{Street: "Maplewood Ave", ServiceEntity: "Sunrise", Line: 3},
	})

	assert.Equal(t, BuildStats{Rows: 2, Indexed: 2, Streets: 2, Keys: 6}, stats)
	assert.Equal(t, []string{
		"kemp blvd", "maplewood ave",
		"kempblvd", "maplewoodave",
		"kemp", "maplewood",
	}, reg.Keys())

	e, ok := reg.Lookup("kempblvd")
	require.True(t, ok)
	assert.Equal(t, "compact", e.Variant)
	assert.Equal(t, "Kemp Boulevard", e.Street.DisplayName())
	assert.Equal(t, "kemp blvd", e.Street.Key())
}

func TestBuild_SkipsIncompleteRows(t *testing.T) {
	reg, stats := Build([]Row{
		{Street: "", ServiceEntity: "Downtown"},
		{Street: "Kemp Blvd", ServiceEntity: "  "},
		{Street: "...", ServiceEntity: "Downtown"},
		{Street: "Taft Blvd", ServiceEntity: "Sunrise"},
	})
	assert.Equal(t, 4, stats.Rows)
	assert.Equal(t, 3, stats.Skipped)
	assert.Equal(t, 1, stats.Indexed)
	assert.Equal(t, 1, reg.StreetCount())
}

func TestBuild_SameStreetBecomesSegments(t *testing.T) {
	reg, stats := Build([]Row{
		{Street: "Kemp Blvd", ServiceEntity: "Downtown", Range: rng(1, 999)},
		{Street: "KEMP BOULEVARD", ServiceEntity: "Sunrise", Range: rng(2000, 1000)},
	})
	assert.Equal(t, 1, stats.Streets)
	assert.Equal(t, 2, stats.Indexed)

	e, ok := reg.Lookup("kemp blvd")
	require.True(t, ok)
	segs := e.Street.Segments()
	require.Len(t, segs, 2)
	assert.Equal(t, "Downtown", segs[0].ServiceEntity)
	assert.Equal(t, HouseRange{Start: 1000, End: 2000}, *segs[1].Range, "reversed bounds are swapped")
	assert.Equal(t, "Kemp Blvd", e.Street.DisplayName())
	assert.True(t, e.Street.Ranged())
}

func TestBuild_FirstStreetKeepsCollidingKey(t *testing.T) {
	reg, stats := Build([]Row{
		{Street: "Kemp Blvd", ServiceEntity: "Downtown"},
		{Street: "Kemp St", ServiceEntity: "Sunrise"},
		{Street: "Kemp", ServiceEntity: "Noon"},
	})

	assert.Equal(t, 2, stats.Collisions)
	e, ok := reg.Lookup("kemp")
	require.True(t, ok)
	assert.Equal(t, "Kemp", e.Street.DisplayName(), "a spaced key outranks another street's base key")
	assert.Equal(t, "spaced", e.Variant)
}

func TestBuild_CustomVariantsAndNormalizer(t *testing.T) {
	reg, stats := Build(
		[]Row{{Street: "Kemp Boulevard", ServiceEntity: "Downtown"}},
		WithVariants([]Variant{Spaced}),
		WithNormalizer(address.NewNormalizer(address.WithSuffixAbbreviation(false))),
	)
	assert.Equal(t, 1, stats.Keys)
	assert.Equal(t, []string{"kemp boulevard"}, reg.Keys())
	assert.Equal(t, "kemp boulevard", reg.Normalize("KEMP  Boulevard"))
}

func TestRegistry_EntriesInInsertionOrder(t *testing.T) {
	reg, _ := Build([]Row{
		{Street: "B Street", ServiceEntity: "x"},
		{Street: "A Street", ServiceEntity: "y"},
	}, WithVariants([]Variant{Spaced}))

	var keys []string
	for e := range reg.Entries() {
		keys = append(keys, e.Key)
	}
	assert.Equal(t, []string{"b st", "a st"}, keys)
	assert.Equal(t, 2, reg.Len())
	assert.Len(t, reg.Streets(), 2)
}

func TestRegistry_Empty(t *testing.T) {
	reg, stats := Build(nil)
	assert.Zero(t, stats.Keys)
	assert.Zero(t, reg.Len())
	_, ok := reg.Lookup("")
	assert.False(t, ok)
}

func TestHouseRange(t *testing.T) {
	r := NewHouseRange(500, 100)
	assert.Equal(t, HouseRange{Start: 100, End: 500}, r)
	assert.True(t, r.Contains(100))
	assert.True(t, r.Contains(500))
	assert.False(t, r.Contains(501))
	assert.False(t, r.Contains(99))
}

func TestVariantsByName(t *testing.T) {
	vs, err := VariantsByName([]string{"Compact", "spaced", "compact"})
	require.NoError(t, err)
	require.Len(t, vs, 2)
	assert.Equal(t, "compact", vs[0].Name)
	assert.Equal(t, "spaced", vs[1].Name)

	vs, err = VariantsByName(nil)
	require.NoError(t, err)
	assert.Len(t, vs, 3)

	_, err = VariantsByName([]string{"soundex"})
	require.Error(t, err)
	assert.Equal(t, []string{"spaced", "compact", "base"}, VariantNames())
}
