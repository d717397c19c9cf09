package solana

import (
	"strings"

	"github.com/Amr-9/SolHunter/pkg/generator"
)

// Base58 alphabet (Bitcoin/Solana style - excludes 0, O, I, l)
const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

// MaxAddressLen is the longest base58 encoding of a 32-byte public key.
const MaxAddressLen = 44

// ValidatePattern checks a prefix/suffix pair before any device is touched.
// The prefix is checked before the suffix and the first bad character wins.
func ValidatePattern(prefix, suffix string) error {
	if prefix == "" && suffix == "" {
		return generator.ErrEmptyPattern
	}
	if err := validateField("prefix", prefix, 0); err != nil {
		return err
	}
	return validateField("suffix", suffix, len(prefix))
}

func validateField(field, pattern string, reserved int) error {
	pos := 0
	for _, c := range pattern {
		if !strings.ContainsRune(base58Alphabet, c) {
			return &generator.InvalidPatternError{Field: field, Char: c, Pos: pos}
		}
		pos++
	}

	// Patterns are pure base58 at this point, so len() counts characters.
	if reserved+len(pattern) > MaxAddressLen {
		return &generator.InvalidPatternError{Field: field, Pos: MaxAddressLen}
	}
	return nil
}

// IsValidBase58 checks if a string contains only valid Base58 characters.
// Base58 excludes: 0 (zero), O (uppercase o), I (uppercase i), l (lowercase L)
func IsValidBase58(s string) bool {
	return len(InvalidBase58Chars(s)) == 0
}

// InvalidBase58Chars returns any invalid Base58 characters in the input.
// Useful for providing helpful error messages to users.
func InvalidBase58Chars(s string) []rune {
	var invalid []rune
	for _, c := range s {
		if !strings.ContainsRune(base58Alphabet, c) {
			invalid = append(invalid, c)
		}
	}
	return invalid
}
