package geocode

import (
	"context"
	"errors"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memCache struct {
	entries map[string]*Address
	getErr  error
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string]*Address)}
}

func (m *memCache) Get(_ context.Context, key string) (*Address, bool, error) {
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	addr, ok := m.entries[key]
	return addr, ok, nil
}

func (m *memCache) Put(_ context.Context, key string, addr *Address) error {
	m.entries[key] = addr
	return nil
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, CacheKey("2300 Kemp Blvd"), CacheKey("  2300   KEMP blvd "))
	assert.NotEqual(t, CacheKey("2300 Kemp Blvd"), CacheKey("2301 Kemp Blvd"))
	assert.Len(t, CacheKey("x"), 64)
}

func TestCachedClient_CachesHits(t *testing.T) {
	inner := &stubProvider{name: "nominatim", addr: &Address{Road: "Kemp Boulevard"}}
	c := NewCachedClient(inner, newMemCache())

	for range 3 {
		addr, err := c.Geocode(context.Background(), "2300 Kemp Blvd")
		require.NoError(t, err)
		assert.Equal(t, "Kemp Boulevard", addr.Road)
	}
	assert.Equal(t, 1, inner.calls)
}

func TestCachedClient_CachesNotFound(t *testing.T) {
	inner := &stubProvider{name: "nominatim", err: ErrNotFound}
	c := NewCachedClient(inner, newMemCache())

	for range 2 {
		_, err := c.Geocode(context.Background(), "nowhere")
		assert.True(t, errors.Is(err, ErrNotFound))
	}
	assert.Equal(t, 1, inner.calls)
}

func TestCachedClient_DoesNotCacheErrors(t *testing.T) {
	inner := &stubProvider{name: "nominatim", err: eris.New("boom")}
	cache := newMemCache()
	c := NewCachedClient(inner, cache)

	for range 2 {
		_, err := c.Geocode(context.Background(), "Kemp")
		require.Error(t, err)
	}
	assert.Equal(t, 2, inner.calls)
	assert.Empty(t, cache.entries)
}

func TestCachedClient_BypassesBrokenCache(t *testing.T) {
	inner := &stubProvider{name: "nominatim", addr: &Address{Road: "Kemp Boulevard"}}
	cache := newMemCache()
	cache.getErr = eris.New("disk full")

	addr, err := NewCachedClient(inner, cache).Geocode(context.Background(), "Kemp")
	require.NoError(t, err)
	assert.Equal(t, "Kemp Boulevard", addr.Road)
}
