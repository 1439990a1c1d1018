package kv

import (
	"errors"
	"fmt"
)

// Failure kinds returned by the core. The HTTP layer collapses all of them
// into an empty response; they stay distinct here for logging and tests.
var (
	ErrNotFound            = errors.New("not found")
	ErrUnauthorized        = errors.New("unknown access token")
	ErrInvalidKey          = errors.New("invalid key")
	ErrInvalidValue        = errors.New("value is not valid UTF-8 text")
	ErrStorage             = errors.New("storage failure")
	ErrTokenSpaceExhausted = errors.New("no unused token found")
)

func storageError(op string, err error) error {
	logger.Warn("storage failure", "op", op, "err", err)
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}
