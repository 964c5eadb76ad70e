package bookmark

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	bolt "go.etcd.io/bbolt"
)

var bookmarksBucket = []byte("bookmarks")

// BoltStore files bookmarks in a single bbolt database, one key per
// stream+partition.
type BoltStore struct {
	db *bolt.DB
}

func OpenBoltStore(cfg Config) (*BoltStore, error) {
	dir := cfg.Dir
	if dir == "" {
		dir = "."
	}
	path := filepath.Join(dir, "bookmarks.db")

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening bookmark database at %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bookmarksBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	log.Debug().Str("path", path).Msg("opened bolt bookmark store")
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Get(streamName, partition string) (time.Time, bool, error) {
	if s.db == nil {
		return time.Time{}, false, ErrStoreClosed
	}

	var raw []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bookmarksBucket).Get(storeKey(streamName, partition))
		if v != nil {
			raw = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return time.Time{}, false, err
	}
	if raw == nil {
		return time.Time{}, false, nil
	}
	t, err := decodeValue(raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("decoding bookmark for %s: %w", streamName, err)
	}
	return t, true, nil
}

func (s *BoltStore) Set(streamName, partition string, value time.Time) error {
	if s.db == nil {
		return ErrStoreClosed
	}

	raw, err := encodeValue(value)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bookmarksBucket).Put(storeKey(streamName, partition), raw)
	})
}

func (s *BoltStore) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
