// Package store persists geocode results so repeated lookups skip the
// provider. SQLite, Postgres and bbolt backends share one interface.
package store

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/servicearea/internal/db"
	"github.com/sells-group/servicearea/pkg/geocode"
)

// Drivers accepted by Open.
const (
	DriverNone     = "none"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverBolt     = "bolt"
)

// DefaultTTL is used when Config.TTL is zero.
const DefaultTTL = 7 * 24 * time.Hour

// Cache is a geocode result cache with expiry.
type Cache interface {
	geocode.Cache

	// Purge deletes expired entries and returns how many were removed.
	Purge(ctx context.Context) (int64, error)

	Migrate(ctx context.Context) error
	Close() error
}

// Config selects and configures a backend.
type Config struct {
	Driver      string        `mapstructure:"driver" yaml:"driver"`
	DatabaseURL string        `mapstructure:"database_url" yaml:"database_url"`
	TTL         time.Duration `mapstructure:"-" yaml:"-"`
	Pool        db.PoolConfig `mapstructure:"pool" yaml:"pool"`
}

// Drivers lists the names Open accepts.
func Drivers() []string {
	return []string{DriverNone, DriverSQLite, DriverPostgres, DriverBolt}
}

// Open returns the configured cache, migrated and ready. Driver "none" (or
// empty) returns a nil Cache and no error.
func Open(ctx context.Context, cfg Config) (Cache, error) {
	var (
		c   Cache
		err error
	)
	switch strings.ToLower(cfg.Driver) {
	case "", DriverNone:
		return nil, nil
	case DriverSQLite:
		c, err = NewSQLite(orDefault(cfg.DatabaseURL, "servicearea.db"), cfg.TTL)
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, eris.New("store: postgres requires database_url")
		}
		c, err = NewPostgres(ctx, cfg.DatabaseURL, cfg.TTL, &cfg.Pool)
	case DriverBolt:
		c, err = NewBolt(orDefault(cfg.DatabaseURL, "servicearea.bolt"), cfg.TTL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := c.Migrate(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func ttlOrDefault(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return DefaultTTL
	}
	return ttl
}

// encodeAddress serializes addr for storage; nil (not found) stays nil.
func encodeAddress(addr *geocode.Address) ([]byte, error) {
	if addr == nil {
		return nil, nil
	}
	b, err := json.Marshal(addr)
	if err != nil {
		return nil, eris.Wrap(err, "store: marshal address")
	}
	return b, nil
}

func decodeAddress(b []byte) (*geocode.Address, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var addr geocode.Address
	if err := json.Unmarshal(b, &addr); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal address")
	}
	return &addr, nil
}
