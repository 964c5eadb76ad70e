package bookmark

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"

	"github.com/mkale/resttap/internal/logger"
)

// BadgerStore files bookmarks in a badger database. The in-memory mode is
// what the tests use; deployments point Dir at a persistent volume.
type BadgerStore struct {
	mu     sync.RWMutex
	db     *badger.DB
	logger zerolog.Logger
}

func OpenBadgerStore(cfg Config) (*BadgerStore, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		dir := cfg.Dir
		if dir == "" {
			dir = "/tmp/resttap-bookmarks"
		}
		opts = badger.DefaultOptions(dir)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger bookmark store: %w", err)
	}
	newLogger := logger.GetLogger("bookmarks")
	newLogger.Debug().Bool("in_memory", cfg.InMemory).Str("dir", cfg.Dir).Msg("opened badger bookmark store")
	return &BadgerStore{db: db, logger: newLogger}, nil
}

func (s *BadgerStore) Get(streamName, partition string) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return time.Time{}, false, ErrStoreClosed
	}

	var raw []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(storeKey(streamName, partition))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	t, err := decodeValue(raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("decoding bookmark for %s: %w", streamName, err)
	}
	return t, true, nil
}

func (s *BadgerStore) Set(streamName, partition string, value time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return ErrStoreClosed
	}

	raw, err := encodeValue(value)
	if err != nil {
		return err
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(storeKey(streamName, partition), raw)
	})
	if err != nil {
		s.logger.Err(err).Str("stream", streamName).Msg("err setting bookmark")
		return err
	}
	return nil
}

func (s *BadgerStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
