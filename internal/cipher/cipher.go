package cipher

import (
	"errors"
	"fmt"
	"strings"
)

var errNoSource = errors.New("random source required to generate a key")

// ErrInvalidKey reports a key of the wrong type, format or length, or a
// missing key where one is required.
var ErrInvalidKey = errors.New("invalid key")

// ErrInvalidInput reports input an operation cannot process, such as
// malformed binary text or an unknown pipeline step.
var ErrInvalidInput = errors.New("invalid input")

// Source supplies uniformly distributed integers in [0, n). It is satisfied
// by *math/rand/v2.Rand.
type Source interface {
	IntN(n int) int
}

// Cipher is implemented by each classical cipher family. Keys travel as
// strings; an empty key means no key was supplied.
type Cipher interface {
	// Name returns the cipher family identifier.
	Name() string

	// GenerateKey validates key and expands it to the working key for a text
	// of length runes, or synthesises one from rng when key is empty.
	GenerateKey(key string, length int, rng Source) (string, error)

	// Transform applies the cipher with an already generated key.
	Transform(text, key string) (string, error)

	// InverseKey returns the working key that undoes Transform with key.
	InverseKey(key string, length int) (string, error)
}

// Encrypt generates the working key for text and applies c. The key that
// was used is returned so the caller can decrypt later.
func Encrypt(c Cipher, text, key string, rng Source) (string, string, error) {
	if key == "" && rng == nil {
		return "", "", errNoSource
	}
	used, err := c.GenerateKey(key, runeCount(text), rng)
	if err != nil {
		return "", "", err
	}
	out, err := c.Transform(text, used)
	if err != nil {
		return "", "", err
	}
	return out, used, nil
}

// Decrypt reverses Encrypt. A missing key is an error.
func Decrypt(c Cipher, text, key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("%w: %s decryption requires a key", ErrInvalidKey, c.Name())
	}
	inverse, err := c.InverseKey(key, runeCount(text))
	if err != nil {
		return "", err
	}
	return c.Transform(text, inverse)
}

const alphabetSize = 26

func isLower(r rune) bool { return r >= 'a' && r <= 'z' }

func isUpper(r rune) bool { return r >= 'A' && r <= 'Z' }

func isLetter(r rune) bool { return isLower(r) || isUpper(r) }

// shiftLetter rotates an ASCII letter by shift positions within its case.
// Other runes are returned unchanged.
func shiftLetter(r rune, shift int) rune {
	var base rune
	switch {
	case isLower(r):
		base = 'a'
	case isUpper(r):
		base = 'A'
	default:
		return r
	}
	return base + rune(mod(int(r-base)+shift, alphabetSize))
}

func mod(a, n int) int {
	m := a % n
	if m < 0 {
		m += n
	}
	return m
}

func runeCount(s string) int {
	return len([]rune(s))
}

// validateAlphabetic rejects keys containing anything but ASCII letters.
func validateAlphabetic(name, key string) error {
	for _, r := range key {
		if !isLetter(r) {
			return fmt.Errorf("%w: %s key must contain only letters, found %q", ErrInvalidKey, name, r)
		}
	}
	return nil
}

// randomLowercase draws length letters uniformly from a-z.
func randomLowercase(length int, rng Source) string {
	var sb strings.Builder
	sb.Grow(length)
	for i := 0; i < length; i++ {
		sb.WriteRune('a' + rune(rng.IntN(alphabetSize)))
	}
	return sb.String()
}

// keyShift converts a lowercase key character to its shift amount.
func keyShift(k rune) int {
	return int(k - 'a')
}
