package kv

import (
	"crypto/rand"
	"fmt"
	"io"
	"sync/atomic"

	"restkv/internal/store"
)

// Token format: TokenLen characters drawn from tokenAlphabet.
const (
	TokenLen      = 8
	tokenAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// Largest multiple of len(tokenAlphabet) that fits in a byte; bytes at
	// or above it are discarded so every character is equally likely.
	tokenByteLimit = 256 - 256%len(tokenAlphabet)

	DefaultMaxAttempts = 16
)

var tokenMarker = []byte("1")

// Registry tracks issued access tokens in TokenBucket. A token is valid iff
// its marker key "token-<token>" is present. Tokens are never revoked.
type Registry struct {
	db          *DB
	random      io.Reader
	maxAttempts int
	failOpen    bool

	fallbacks atomic.Uint64
}

// NewRegistry creates a registry over db. random defaults to crypto/rand.
func NewRegistry(db *DB, opts Options) *Registry {
	r := &Registry{
		db:          db,
		random:      opts.Random,
		maxAttempts: opts.MaxAttempts,
		failOpen:    opts.FailOpen,
	}
	if r.random == nil {
		r.random = rand.Reader
	}
	if r.maxAttempts < 1 {
		r.maxAttempts = DefaultMaxAttempts
	}
	return r
}

func markerKey(token string) []byte {
	return []byte("token-" + token)
}

// Exists reports whether token has been issued. When the store cannot be
// read the answer is the configured fail-open policy (true by default);
// every such decision is logged and counted in FallbackCount.
func (r *Registry) Exists(token string) bool {
	var found bool
	err := r.db.view(func(st store.Store) error {
		var err error
		found, err = st.Has(TokenBucket, markerKey(token))
		return err
	})
	if err != nil {
		r.fallbacks.Add(1)
		logger.Warn("token lookup failed, applying fallback policy",
			"err", err, "assume_exists", r.failOpen)
		return r.failOpen
	}
	return found
}

// FallbackCount is the number of Exists calls answered by the fail-open
// or fail-closed policy rather than by the store.
func (r *Registry) FallbackCount() uint64 {
	return r.fallbacks.Load()
}

// Register persists the marker for token. A non-nil error means the token
// must not be handed out.
func (r *Registry) Register(token string) error {
	err := r.db.update(func(st store.Store) error {
		return st.Set(TokenBucket, markerKey(token), tokenMarker)
	})
	if err != nil {
		return storageError("register token", err)
	}
	return nil
}

// GenerateUnique draws random tokens until one is not yet registered. It
// gives up after the configured number of attempts. The returned token is
// not registered; see Issue.
func (r *Registry) GenerateUnique() (string, error) {
	for i := 0; i < r.maxAttempts; i++ {
		candidate, err := r.randomToken()
		if err != nil {
			return "", fmt.Errorf("generating token: %w", err)
		}
		if !r.Exists(candidate) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w after %d attempts", ErrTokenSpaceExhausted, r.maxAttempts)
}

// Issue generates and registers a new token.
func (r *Registry) Issue() (string, error) {
	token, err := r.GenerateUnique()
	if err != nil {
		return "", err
	}
	if err := r.Register(token); err != nil {
		return "", err
	}
	return token, nil
}

func (r *Registry) randomToken() (string, error) {
	out := make([]byte, 0, TokenLen)
	buf := make([]byte, TokenLen*2)
	for len(out) < TokenLen {
		if _, err := io.ReadFull(r.random, buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if int(b) >= tokenByteLimit {
				continue
			}
			out = append(out, tokenAlphabet[int(b)%len(tokenAlphabet)])
			if len(out) == TokenLen {
				break
			}
		}
	}
	return string(out), nil
}
