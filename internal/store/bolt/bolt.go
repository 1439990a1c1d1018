package bolt

import (
	"bytes"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	bolt "go.etcd.io/bbolt"

	"restkv/internal/logging"
)

var logger = logging.For("store")

// Options controls how the database file is opened.
type Options struct {
	// ReadOnly opens the file with a shared lock; every Set fails.
	ReadOnly bool
	// NoSync skips the fsync on each commit and leaves durability to the
	// background flusher, which syncs every FlushInterval. Unsafe: bbolt
	// writes the meta page without ordering it after the data pages, so a
	// power loss between flushes can leave a corrupt file, not merely lose
	// the latest writes. Off by default.
	NoSync        bool
	FlushInterval time.Duration
	// Timeout bounds the wait for the file lock. Zero waits forever.
	Timeout time.Duration
}

// Store implements store.Store using bbolt (embedded B+ tree).
type Store struct {
	db *bolt.DB

	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
	flushes   atomic.Uint64 // periodic syncs performed by flushLoop
}

// Open creates or opens a bbolt database at the given path with default options.
func Open(path string) (*Store, error) {
	return OpenWithOptions(path, Options{})
}

// OpenWithOptions creates or opens a bbolt database at the given path.
func OpenWithOptions(path string, opts Options) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{
		Timeout:  opts.Timeout,
		ReadOnly: opts.ReadOnly,
		NoSync:   opts.NoSync,
	})
	if err != nil {
		return nil, fmt.Errorf("opening bolt db: %w", err)
	}
	s := &Store{db: db, done: make(chan struct{})}
	if opts.NoSync && !opts.ReadOnly && opts.FlushInterval > 0 {
		s.wg.Add(1)
		go s.flushLoop(opts.FlushInterval)
	}
	return s, nil
}

// EnsureBuckets creates the named buckets if they are missing.
// It is a no-op on a read-only store.
func (s *Store) EnsureBuckets(names ...[]byte) error {
	if s.db.IsReadOnly() {
		return nil
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range names {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("creating bucket %s: %w", name, err)
			}
		}
		return nil
	})
}

func (s *Store) flushLoop(interval time.Duration) {
	defer s.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := s.db.Sync(); err != nil {
				logger.Warn("periodic flush failed", "err", err)
				continue
			}
			s.flushes.Add(1)
		case <-s.done:
			return
		}
	}
}

func (s *Store) Get(bucket, key []byte) ([]byte, error) {
	var val []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		v := b.Get(key)
		if v != nil {
			val = make([]byte, len(v))
			copy(val, v)
		}
		return nil
	})
	return val, err
}

func (s *Store) Set(bucket, key, value []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucket)
		if err != nil {
			return fmt.Errorf("creating bucket: %w", err)
		}
		return b.Put(key, value)
	})
}

func (s *Store) Has(bucket, key []byte) (bool, error) {
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		found = b.Get(key) != nil
		return nil
	})
	return found, err
}

func (s *Store) ForEach(bucket []byte, fn func(key, value []byte) error) error {
	return s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		return b.ForEach(fn)
	})
}

func (s *Store) ForEachPrefix(bucket, prefix []byte, fn func(key, value []byte) error) error {
	return s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			if err := fn(k, v); err != nil {
				return err
			}
		}
		return nil
	})
}

// Close stops the flusher, performs a final sync and closes the file.
func (s *Store) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		s.wg.Wait()
		if !s.db.IsReadOnly() {
			if syncErr := s.db.Sync(); syncErr != nil {
				logger.Warn("final flush failed", "err", syncErr)
			}
		}
		err = s.db.Close()
	})
	return err
}
