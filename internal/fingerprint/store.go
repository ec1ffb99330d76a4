package fingerprint

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/boltdb/bolt"
	"github.com/jmank88/nuts"
	"github.com/pkg/errors"
)

var fingerprintsBucket = []byte("fingerprints")
var generationKey = []byte("generation")

// Store persists one Record per unit key across invocations, backed by
// a single BoltDB file.
type Store struct {
	db *bolt.DB
}

// Open opens (creating if absent) the fingerprint database under dir.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "creating fingerprint cache directory %q", dir)
	}
	path := filepath.Join(dir, "fingerprints.db")
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "opening fingerprint database %q", path)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(fingerprintsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "initializing fingerprint bucket")
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return errors.Wrap(s.db.Close(), "closing fingerprint database")
}

// Get returns the last Record stored for key, or nil if there is none.
func (s *Store) Get(key string) (*Record, error) {
	var rec *Record
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(fingerprintsBucket)
		v := b.Get([]byte(key))
		if v == nil {
			return nil
		}
		var r Record
		if err := json.Unmarshal(v, &r); err != nil {
			return errors.Wrapf(err, "decoding fingerprint record for %q", key)
		}
		rec = &r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Put records rec for key, and bumps the store's generation counter —
// a single monotonic nuts-encoded sequence number recording how many
// writes the store has ever taken, not a per-entry timestamp. A
// fingerprint store only ever needs the single latest Record per unit,
// never a history of past ones, so one counter suffices for
// cache-statistics purposes without per-entry bucketing.
func (s *Store) Put(key string, rec Record) error {
	encoded, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrapf(err, "encoding fingerprint record for %q", key)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(fingerprintsBucket)
		if err := b.Put([]byte(key), encoded); err != nil {
			return err
		}
		return bumpGeneration(b)
	})
}

func bumpGeneration(b *bolt.Bucket) error {
	var gen uint64
	if v := b.Get(generationKey); v != nil {
		gen = decodeGeneration(v)
	}
	gen++
	k := make(nuts.Key, nuts.KeyLen(gen))
	k.Put(gen)
	return b.Put(generationKey, k)
}

func decodeGeneration(v []byte) uint64 {
	var gen uint64
	for _, b := range v {
		gen = gen<<8 | uint64(b)
	}
	return gen
}

// Generation returns how many Put calls the store has ever completed,
// for cache-statistics reporting.
func (s *Store) Generation() (uint64, error) {
	var gen uint64
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(fingerprintsBucket)
		if v := b.Get(generationKey); v != nil {
			gen = decodeGeneration(v)
		}
		return nil
	})
	return gen, err
}
