package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/servicearea/pkg/geocode"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "cache.db"), time.Hour)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestSQLiteStore_PutGet(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	_, hit, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, hit)

	addr := &geocode.Address{HouseNumber: "2300", Road: "Kemp Boulevard", City: "Wichita Falls", State: "Texas", Source: "nominatim"}
	require.NoError(t, s.Put(ctx, "k1", addr))

	got, hit, err := s.Get(ctx, "k1")
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, addr, got)
}

func TestSQLiteStore_NegativeEntry(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "nowhere", nil))
	got, hit, err := s.Get(ctx, "nowhere")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Nil(t, got)
}

func TestSQLiteStore_PutOverwrites(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "k", nil))
	require.NoError(t, s.Put(ctx, "k", &geocode.Address{Road: "Taft Boulevard"}))

	got, hit, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, "Taft Boulevard", got.Road)
}

func TestSQLiteStore_ExpiryAndPurge(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.nowFunc = func() time.Time { return base }
	require.NoError(t, s.Put(ctx, "old", &geocode.Address{Road: "Kemp Boulevard"}))
	s.nowFunc = func() time.Time { return base.Add(30 * time.Minute) }
	require.NoError(t, s.Put(ctx, "fresh", &geocode.Address{Road: "Taft Boulevard"}))

	s.nowFunc = func() time.Time { return base.Add(time.Hour) }
	_, hit, err := s.Get(ctx, "old")
	require.NoError(t, err)
	assert.False(t, hit, "expired entries are not served")

	n, err := s.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, hit, err = s.Get(ctx, "fresh")
	require.NoError(t, err)
	assert.True(t, hit)
}
