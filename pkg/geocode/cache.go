package geocode

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Cache stores geocode results by key. A nil address records that the
// query was not found.
type Cache interface {
	Get(ctx context.Context, key string) (addr *Address, hit bool, err error)
	Put(ctx context.Context, key string, addr *Address) error
}

// CacheKey returns the SHA-256 hex of the folded query.
func CacheKey(query string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(query)), " ")
	h := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("%x", h)
}

// CachedClient consults a Cache before delegating to the wrapped Client.
// Found and not-found answers are cached; provider errors are not. Cache
// failures are logged and bypassed.
type CachedClient struct {
	next  Client
	cache Cache
}

// NewCachedClient wraps next with cache.
func NewCachedClient(next Client, cache Cache) *CachedClient {
	return &CachedClient{next: next, cache: cache}
}

// Geocode implements Client.
func (c *CachedClient) Geocode(ctx context.Context, query string) (*Address, error) {
	key := CacheKey(query)

	addr, hit, err := c.cache.Get(ctx, key)
	switch {
	case err != nil:
		zap.L().Warn("geocode cache read failed", zap.Error(err))
	case hit:
		zap.L().Debug("geocode cache hit", zap.String("key", key[:12]), zap.Bool("found", addr != nil))
		if addr == nil {
			return nil, ErrNotFound
		}
		return addr, nil
	}

	addr, err = c.next.Geocode(ctx, query)
	switch {
	case errors.Is(err, ErrNotFound):
		c.store(ctx, key, nil)
		return nil, err
	case err != nil:
		return nil, err
	}
	c.store(ctx, key, addr)
	return addr, nil
}

func (c *CachedClient) store(ctx context.Context, key string, addr *Address) {
	if err := c.cache.Put(ctx, key, addr); err != nil {
		zap.L().Warn("geocode cache write failed", zap.Error(err))
	}
}
