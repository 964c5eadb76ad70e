// Package bookmark persists the per-stream high-water mark the engine
// resumes from. The storage format is private to each backend; the engine
// only ever sees the narrow Store interface.
package bookmark

import (
	"errors"
	"time"
)

var ErrStoreClosed = errors.New("bookmark store is closed")

// Store is the persistence boundary for bookmarks. Partition scopes a
// bookmark under a parent resource id (child streams); parentless streams
// pass an empty partition.
type Store interface {
	// Get returns the stored value and whether one exists.
	Get(streamName, partition string) (time.Time, bool, error)
	Set(streamName, partition string, value time.Time) error
	Close() error
}

type Config struct {
	Dir      string
	InMemory bool
}

// New builds a store for the configured backend type.
func New(backend string, cfg Config) (Store, error) {
	switch backend {
	case "", "memory":
		return NewMemoryStore(), nil
	case "bolt":
		return OpenBoltStore(cfg)
	case "badger":
		return OpenBadgerStore(cfg)
	default:
		return nil, errors.New("error unsupported bookmark backend type: " + backend)
	}
}

// storeKey is the composite key a backend files a bookmark under.
func storeKey(streamName, partition string) []byte {
	if partition == "" {
		return []byte(streamName)
	}
	return []byte(streamName + "/" + partition)
}
