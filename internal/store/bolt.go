package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	bolt "go.etcd.io/bbolt"

	"github.com/sells-group/servicearea/pkg/geocode"
)

var bucketGeocode = []byte("geocode_cache")

// boltEntry is the JSON value stored under each query hash.
type boltEntry struct {
	Address   *geocode.Address `json:"address"`
	CachedAt  int64            `json:"cached_at"`
	ExpiresAt int64            `json:"expires_at"`
}

// BoltStore implements Cache in an embedded bbolt file.
type BoltStore struct {
	db      *bolt.DB
	ttl     time.Duration
	nowFunc func() time.Time
}

// NewBolt opens (or creates) a bbolt database at path.
func NewBolt(path string, ttl time.Duration) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, eris.Wrap(err, "bolt: open")
	}
	return &BoltStore{db: db, ttl: ttlOrDefault(ttl), nowFunc: time.Now}, nil
}

// Migrate creates the bucket.
func (s *BoltStore) Migrate(_ context.Context) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketGeocode)
		return err
	})
	return eris.Wrap(err, "bolt: migrate")
}

// Close closes the database file.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Get implements geocode.Cache.
func (s *BoltStore) Get(_ context.Context, key string) (*geocode.Address, bool, error) {
	var (
		e   boltEntry
		hit bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketGeocode)
		if b == nil {
			return nil
		}
		v := b.Get([]byte(key))
		if v == nil {
			return nil
		}
		if err := json.Unmarshal(v, &e); err != nil {
			return eris.Wrap(err, "unmarshal entry")
		}
		hit = e.ExpiresAt > s.nowFunc().Unix()
		return nil
	})
	if err != nil {
		return nil, false, eris.Wrap(err, "bolt: get cached address")
	}
	if !hit {
		return nil, false, nil
	}
	return e.Address, true, nil
}

// Put implements geocode.Cache.
func (s *BoltStore) Put(_ context.Context, key string, addr *geocode.Address) error {
	now := s.nowFunc()
	v, err := json.Marshal(boltEntry{Address: addr, CachedAt: now.Unix(), ExpiresAt: now.Add(s.ttl).Unix()})
	if err != nil {
		return eris.Wrap(err, "bolt: marshal entry")
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketGeocode)
		if err != nil {
			return err
		}
		return b.Put([]byte(key), v)
	})
	return eris.Wrap(err, "bolt: put cached address")
}

// Purge implements Cache.
func (s *BoltStore) Purge(_ context.Context) (int64, error) {
	now := s.nowFunc().Unix()
	var n int64
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketGeocode)
		if b == nil {
			return nil
		}
		var expired [][]byte
		err := b.ForEach(func(k, v []byte) error {
			var e boltEntry
			if err := json.Unmarshal(v, &e); err != nil || e.ExpiresAt <= now {
				expired = append(expired, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range expired {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		n = int64(len(expired))
		return nil
	})
	if err != nil {
		return 0, eris.Wrap(err, "bolt: purge expired")
	}
	return n, nil
}
