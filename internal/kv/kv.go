// Package kv is the token-scoped storage core: token issuance, namespaced
// reads and writes, key listing and stats over one shared store.
package kv

import (
	"io"

	"restkv/internal/store"
)

// Options tunes the core.
type Options struct {
	// MaxAttempts bounds GenerateUnique. Zero means DefaultMaxAttempts.
	MaxAttempts int
	// FailOpen makes Exists report true when the store cannot be read.
	FailOpen bool
	// SubstringKeys selects KeyValidator.SubstringMatch.
	SubstringKeys bool
	// Random is the token entropy source. Nil means crypto/rand.
	Random io.Reader
}

// DefaultOptions returns the production settings.
func DefaultOptions() Options {
	return Options{
		MaxAttempts: DefaultMaxAttempts,
		FailOpen:    true,
	}
}

// Service bundles the core components over a single guarded store handle.
type Service struct {
	Tokens *Registry
	Values *Values
	Stats  *StatsReporter
}

// New wires the core components around st.
func New(st store.Store, opts Options) *Service {
	db := NewDB(st)
	tokens := NewRegistry(db, opts)
	return &Service{
		Tokens: tokens,
		Values: NewValues(db, tokens, KeyValidator{SubstringMatch: opts.SubstringKeys}),
		Stats:  NewStatsReporter(db),
	}
}
