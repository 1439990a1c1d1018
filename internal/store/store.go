package store

// Store is an abstract key-value storage interface backed by buckets.
// The implementation uses bbolt; callers only rely on bucket-scoped
// get/set/contains/iterate with read-after-write visibility.
type Store interface {
	Get(bucket, key []byte) ([]byte, error)
	Set(bucket, key, value []byte) error
	Has(bucket, key []byte) (bool, error)
	// ForEach visits every entry in the bucket in byte order.
	ForEach(bucket []byte, fn func(key, value []byte) error) error
	// ForEachPrefix visits only entries whose key starts with prefix, in byte order.
	ForEachPrefix(bucket, prefix []byte, fn func(key, value []byte) error) error
	Close() error
}
