package kv

import (
	"sync"

	"restkv/internal/logging"
	"restkv/internal/store"
)

var logger = logging.For("kv")

// Partition names inside the embedded store.
var (
	TokenBucket = []byte("token")
	ValueBucket = []byte("values")
)

// DB is the shared store handle. Readers hold the lock in shared mode for
// the duration of a single store call, writers in exclusive mode. Checks
// that precede a write (token existence, key syntax) are done under a
// separate acquisition, so concurrent writers to the same key race and the
// last one to take the lock wins.
type DB struct {
	mu sync.RWMutex
	st store.Store
}

// NewDB wraps st. The caller keeps ownership of st and closes it.
func NewDB(st store.Store) *DB {
	return &DB{st: st}
}

func (d *DB) view(fn func(st store.Store) error) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return fn(d.st)
}

func (d *DB) update(fn func(st store.Store) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return fn(d.st)
}
