package kv

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"restkv/internal/store"
	boltstore "restkv/internal/store/bolt"
)

var errInjected = errors.New("injected failure")

func tempStore(t *testing.T) *boltstore.Store {
	t.Helper()
	st, err := boltstore.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func newService(t *testing.T, opts Options) *Service {
	t.Helper()
	return New(tempStore(t), opts)
}

// faultyStore wraps a real store and fails selected operations.
type faultyStore struct {
	store.Store
	failReads  bool
	failWrites bool
	failIterOn string
}

func (f *faultyStore) Get(bucket, key []byte) ([]byte, error) {
	if f.failReads {
		return nil, errInjected
	}
	return f.Store.Get(bucket, key)
}

func (f *faultyStore) Has(bucket, key []byte) (bool, error) {
	if f.failReads {
		return false, errInjected
	}
	return f.Store.Has(bucket, key)
}

func (f *faultyStore) ForEachPrefix(bucket, prefix []byte, fn func(k, v []byte) error) error {
	if f.failReads {
		return errInjected
	}
	return f.Store.ForEachPrefix(bucket, prefix, fn)
}

func (f *faultyStore) Set(bucket, key, value []byte) error {
	if f.failWrites {
		return errInjected
	}
	return f.Store.Set(bucket, key, value)
}

func (f *faultyStore) ForEach(bucket []byte, fn func(k, v []byte) error) error {
	if f.failIterOn == string(bucket) {
		return errInjected
	}
	return f.Store.ForEach(bucket, fn)
}

// repeatReader yields its pattern forever.
type repeatReader struct {
	pattern []byte
	pos     int
}

func (r *repeatReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = r.pattern[r.pos%len(r.pattern)]
		r.pos++
	}
	return len(p), nil
}

// fixedBytes returns n copies of b.
func fixedBytes(b byte, n int) []byte {
	return bytes.Repeat([]byte{b}, n)
}
