package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/servicearea/internal/db"
	"github.com/sells-group/servicearea/pkg/geocode"
)

const postgresCacheTable = "public.geocode_cache"

var postgresUpsert = func() string {
	sql, err := db.UpsertSQL(db.UpsertConfig{
		Table:        postgresCacheTable,
		Columns:      []string{"id", "query_hash", "address", "cached_at", "expires_at"},
		ConflictKeys: []string{"query_hash"},
		UpdateCols:   []string{"address", "cached_at", "expires_at"},
	})
	if err != nil {
		panic(err)
	}
	return sql
}()

// PostgresStore implements Cache using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	ttl     time.Duration
	nowFunc func() time.Time
}

// NewPostgres connects to Postgres and returns a PostgresStore.
func NewPostgres(ctx context.Context, connString string, ttl time.Duration, poolCfg *db.PoolConfig) (*PostgresStore, error) {
	pool, err := db.Connect(ctx, connString, poolCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	return &PostgresStore{pool: pool, ttl: ttlOrDefault(ttl), nowFunc: time.Now}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS public.geocode_cache (
	id         TEXT PRIMARY KEY,
	query_hash TEXT NOT NULL UNIQUE,
	address    JSONB,
	cached_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_geocode_cache_expires_at ON public.geocode_cache(expires_at);
`

// Migrate creates the cache table.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

// Close closes the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// Get implements geocode.Cache.
func (s *PostgresStore) Get(ctx context.Context, key string) (*geocode.Address, bool, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT address FROM public.geocode_cache WHERE query_hash = $1 AND expires_at > $2`,
		key, s.nowFunc().UTC(),
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, eris.Wrap(err, "postgres: get cached address")
	}
	addr, err := decodeAddress(raw)
	if err != nil {
		return nil, false, err
	}
	return addr, true, nil
}

// Put implements geocode.Cache.
func (s *PostgresStore) Put(ctx context.Context, key string, addr *geocode.Address) error {
	b, err := encodeAddress(addr)
	if err != nil {
		return err
	}
	now := s.nowFunc().UTC()
	_, err = s.pool.Exec(ctx, postgresUpsert,
		uuid.New().String(), key, b, now, now.Add(s.ttl),
	)
	return eris.Wrap(err, "postgres: put cached address")
}

// Purge implements Cache.
func (s *PostgresStore) Purge(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM public.geocode_cache WHERE expires_at <= $1`,
		s.nowFunc().UTC(),
	)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: purge expired")
	}
	return tag.RowsAffected(), nil
}
