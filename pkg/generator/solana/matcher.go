package solana

import (
	"strings"
)

// Matcher handles pattern matching for Solana addresses.
// Solana addresses are Base58-encoded and case-sensitive.
type Matcher struct {
	prefix string
	suffix string
}

// NewMatcher creates a new Solana address matcher.
func NewMatcher(prefix, suffix string) *Matcher {
	return &Matcher{
		prefix: prefix,
		suffix: suffix,
	}
}

// Matches checks if a Solana address starts with the prefix and ends with the suffix.
// An address shorter than both patterns together never matches, so the prefix and
// suffix cannot overlap.
func (m *Matcher) Matches(address string) bool {
	if len(address) < len(m.prefix)+len(m.suffix) {
		return false
	}
	return strings.HasPrefix(address, m.prefix) && strings.HasSuffix(address, m.suffix)
}
