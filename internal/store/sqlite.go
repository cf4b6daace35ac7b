package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/servicearea/pkg/geocode"
)

// SQLiteStore implements Cache using modernc.org/sqlite.
type SQLiteStore struct {
	db      *sql.DB
	ttl     time.Duration
	nowFunc func() time.Time
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string, ttl time.Duration) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db, ttl: ttlOrDefault(ttl), nowFunc: time.Now}, nil
}

// Expiry is stored as unix seconds so comparisons do not depend on the
// driver's time formatting.
const sqliteMigration = `
CREATE TABLE IF NOT EXISTS geocode_cache (
	id         TEXT PRIMARY KEY,
	query_hash TEXT NOT NULL UNIQUE,
	address    TEXT,
	cached_at  INTEGER NOT NULL,
	expires_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_geocode_cache_expires_at ON geocode_cache(expires_at);
`

// Migrate creates the cache table.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Get implements geocode.Cache.
func (s *SQLiteStore) Get(ctx context.Context, key string) (*geocode.Address, bool, error) {
	var raw sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT address FROM geocode_cache WHERE query_hash = ? AND expires_at > ?`,
		key, s.nowFunc().Unix(),
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrap(err, "sqlite: get cached address")
	}
	if !raw.Valid {
		return nil, true, nil
	}
	addr, err := decodeAddress([]byte(raw.String))
	if err != nil {
		return nil, false, err
	}
	return addr, true, nil
}

// Put implements geocode.Cache.
func (s *SQLiteStore) Put(ctx context.Context, key string, addr *geocode.Address) error {
	b, err := encodeAddress(addr)
	if err != nil {
		return err
	}
	var value sql.NullString
	if b != nil {
		value = sql.NullString{String: string(b), Valid: true}
	}

	now := s.nowFunc()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO geocode_cache (id, query_hash, address, cached_at, expires_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (query_hash) DO UPDATE SET
			address = excluded.address,
			cached_at = excluded.cached_at,
			expires_at = excluded.expires_at`,
		uuid.New().String(), key, value, now.Unix(), now.Add(s.ttl).Unix(),
	)
	return eris.Wrap(err, "sqlite: put cached address")
}

// Purge implements Cache.
func (s *SQLiteStore) Purge(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM geocode_cache WHERE expires_at <= ?`,
		s.nowFunc().Unix(),
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: purge expired")
	}
	n, err := res.RowsAffected()
	return n, eris.Wrap(err, "sqlite: rows affected")
}
