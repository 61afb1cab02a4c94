package cipher

import (
	"fmt"
	"strings"
)

// vernamFiller pads a key that is one character short of the text.
const vernamFiller = "a"

// Vernam XORs the alphabet offset of every character with the matching key
// character. It is an involution: encrypting twice with the same key
// restores the input.
type Vernam struct{}

var _ Cipher = Vernam{}

func (Vernam) Name() string { return "vernam" }

// GenerateKey accepts an alphabetic key of at least length-1 characters,
// pads it with one filler letter and truncates it to length.
func (v Vernam) GenerateKey(key string, length int, rng Source) (string, error) {
	if key == "" {
		return randomLowercase(length, rng), nil
	}
	if err := validateAlphabetic(v.Name(), key); err != nil {
		return "", err
	}
	runes := []rune(strings.ToLower(key) + vernamFiller)
	if len(runes)-1 < length-1 {
		return "", fmt.Errorf("%w: %s key must be at least %d characters, got %d",
			ErrInvalidKey, v.Name(), length-1, len(runes)-1)
	}
	if length < 0 {
		length = 0
	}
	return string(runes[:length]), nil
}

func (v Vernam) Transform(text, key string) (string, error) {
	stream := []rune(key)
	var sb strings.Builder
	sb.Grow(len(text))
	k := 0
	for _, r := range text {
		if k >= len(stream) {
			return "", fmt.Errorf("%w: %s key stream shorter than text", ErrInvalidKey, v.Name())
		}
		sb.WriteRune(xorRune(r, keyShift(stream[k])))
		k++
	}
	return sb.String(), nil
}

// InverseKey returns the working key itself; XOR undoes itself.
func (v Vernam) InverseKey(key string, length int) (string, error) {
	if key == "" {
		return "", fmt.Errorf("%w: %s key is required", ErrInvalidKey, v.Name())
	}
	return v.GenerateKey(key, length, nil)
}

// xorRune XORs the offset of r within its 32-rune block with x. Uppercase
// letters live in the block starting at 'A', lowercase letters in the one
// starting at 'a'; both blocks are closed under XOR with values below 32, so
// the transform is reversible. Newlines and runes outside both blocks pass
// through unchanged, so spaces and punctuation survive and no rune can be
// mapped onto a newline.
func xorRune(r rune, x int) rune {
	var base rune
	switch {
	case r == '\n':
		return r
	case r >= 'a' && r < 'a'+32:
		base = 'a'
	case r >= 'A' && r < 'A'+32:
		base = 'A'
	default:
		return r
	}
	return base + ((r - base) ^ rune(x))
}

// VernamEncrypt encrypts text with key, or a random key when key is empty,
// and returns the key that was used.
func VernamEncrypt(text, key string, rng Source) (string, string, error) {
	return Encrypt(Vernam{}, text, key, rng)
}

// VernamDecrypt reverses VernamEncrypt.
func VernamDecrypt(text, key string) (string, error) {
	return Decrypt(Vernam{}, text, key)
}
