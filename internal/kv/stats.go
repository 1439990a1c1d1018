package kv

import (
	"fmt"

	"restkv/internal/store"
)

// Stats holds aggregate entry counts.
type Stats struct {
	Tokens int
	Values int
}

func (s Stats) String() string {
	return fmt.Sprintf("serving %d access token, %d k-v pairs", s.Tokens, s.Values)
}

// StatsReporter counts entries in both partitions.
type StatsReporter struct {
	db *DB
}

func NewStatsReporter(db *DB) *StatsReporter {
	return &StatsReporter{db: db}
}

// Stats counts both partitions by iterating them. A partition that cannot
// be read counts as 0; the other count is still reported.
func (r *StatsReporter) Stats() Stats {
	var s Stats
	_ = r.db.view(func(st store.Store) error {
		s.Tokens = count(st, TokenBucket)
		s.Values = count(st, ValueBucket)
		return nil
	})
	return s
}

func count(st store.Store, bucket []byte) int {
	n := 0
	err := st.ForEach(bucket, func(_, _ []byte) error {
		n++
		return nil
	})
	if err != nil {
		logger.Warn("counting bucket failed", "bucket", string(bucket), "err", err)
		return 0
	}
	return n
}
