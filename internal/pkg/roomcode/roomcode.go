// Package roomcode generates short human-shareable room join codes.
package roomcode

import (
	"crypto/rand"
	"fmt"
)

// Alphabet excludes I, O, 1 and 0 so codes read unambiguously when written
// down or spoken aloud. It is exactly 32 characters, so reducing a random
// byte modulo its length stays uniform.
const Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Length is the number of characters in a join code.
const Length = 6

// Generate returns a new random join code. Uniqueness is not guaranteed
// here; callers must retry on a uniqueness violation at insert time.
func Generate() (string, error) {
	buf := make([]byte, Length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	for i, b := range buf {
		buf[i] = Alphabet[int(b)%len(Alphabet)]
	}
	return string(buf), nil
}

// Valid reports whether s has the shape of a join code.
func Valid(s string) bool {
	if len(s) != Length {
		return false
	}
	for _, c := range s {
		if !validChar(byte(c)) {
			return false
		}
	}
	return true
}

func validChar(c byte) bool {
	for i := 0; i < len(Alphabet); i++ {
		if Alphabet[i] == c {
			return true
		}
	}
	return false
}
