package kv

import (
	"strings"
	"unicode/utf8"

	"restkv/internal/store"
)

// Values stores client values in ValueBucket under "<token>-<key>". Tokens
// never contain '-', so the token prefix keeps tenants apart in one flat
// keyspace.
type Values struct {
	db     *DB
	tokens *Registry
	keys   KeyValidator
}

// NewValues creates a value store that checks tokens against tokens.
func NewValues(db *DB, tokens *Registry, keys KeyValidator) *Values {
	return &Values{db: db, tokens: tokens, keys: keys}
}

func valueKey(token, key string) []byte {
	return []byte(token + "-" + key)
}

// Read returns the value stored for (token, key).
func (v *Values) Read(token, key string) (string, error) {
	if !v.tokens.Exists(token) {
		return "", ErrUnauthorized
	}
	var val []byte
	err := v.db.view(func(st store.Store) error {
		var err error
		val, err = st.Get(ValueBucket, valueKey(token, key))
		return err
	})
	if err != nil {
		return "", storageError("read value", err)
	}
	if val == nil {
		return "", ErrNotFound
	}
	return string(val), nil
}

// Write stores raw under (token, key), replacing any previous value.
func (v *Values) Write(token, key string, raw []byte) error {
	if !v.tokens.Exists(token) {
		return ErrUnauthorized
	}
	if !v.keys.Valid(key) {
		return ErrInvalidKey
	}
	if !utf8.Valid(raw) {
		return ErrInvalidValue
	}
	err := v.db.update(func(st store.Store) error {
		return st.Set(ValueBucket, valueKey(token, key), raw)
	})
	if err != nil {
		return storageError("write value", err)
	}
	return nil
}

// ListKeys returns the keys written under token in store byte order,
// i.e. sorted, not in insertion order. Only the token's own key range is
// scanned.
func (v *Values) ListKeys(token string) ([]string, error) {
	if !v.tokens.Exists(token) {
		return nil, ErrUnauthorized
	}
	prefix := valueKey(token, "")
	keys := []string{}
	err := v.db.view(func(st store.Store) error {
		return st.ForEachPrefix(ValueBucket, prefix, func(k, _ []byte) error {
			keys = append(keys, string(k[len(prefix):]))
			return nil
		})
	})
	if err != nil {
		return nil, storageError("list keys", err)
	}
	return keys, nil
}

// FormatKeys renders keys as "[a, b, c]".
func FormatKeys(keys []string) string {
	return "[" + strings.Join(keys, ", ") + "]"
}
