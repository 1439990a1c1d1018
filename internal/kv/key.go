package kv

import "regexp"

// MaxKeyLen is the longest logical key a client may use.
const MaxKeyLen = 100

var (
	keyPattern    = regexp.MustCompile(`^[0-9a-zA-Z]{1,100}$`)
	keyRunPattern = regexp.MustCompile(`[0-9a-zA-Z]{1,100}`)
)

// KeyValidator decides which client-supplied keys are acceptable.
// The zero value requires the whole key to be 1-100 alphanumerics.
type KeyValidator struct {
	// SubstringMatch accepts any key that merely contains an alphanumeric
	// run, e.g. "a!" or a 150-character key. Kept for stores written by
	// older deployments that validated this way.
	SubstringMatch bool
}

// Valid reports whether key is acceptable.
func (v KeyValidator) Valid(key string) bool {
	if v.SubstringMatch {
		return keyRunPattern.MatchString(key)
	}
	return keyPattern.MatchString(key)
}

// IsValidKey applies the default full-match rule.
func IsValidKey(key string) bool {
	return KeyValidator{}.Valid(key)
}
