package cipher

import (
	"fmt"
	"strings"
)

// Vigenere shifts each letter by the matching character of a key stream that
// is aligned with text positions, letters or not.
type Vigenere struct{}

var _ Cipher = Vigenere{}

func (Vigenere) Name() string { return "vigenere" }

// GenerateKey lowercases key and repeats it to exactly length characters.
// Without a key a random lowercase stream of that length is drawn.
func (v Vigenere) GenerateKey(key string, length int, rng Source) (string, error) {
	if key == "" {
		return randomLowercase(length, rng), nil
	}
	if err := validateAlphabetic(v.Name(), key); err != nil {
		return "", err
	}
	return cycleKey(strings.ToLower(key), length), nil
}

func (v Vigenere) Transform(text, key string) (string, error) {
	stream := []rune(key)
	var sb strings.Builder
	sb.Grow(len(text))
	k := 0
	for _, r := range text {
		if isLetter(r) {
			if k >= len(stream) {
				return "", fmt.Errorf("%w: %s key stream shorter than text", ErrInvalidKey, v.Name())
			}
			r = shiftLetter(r, keyShift(stream[k]))
		}
		sb.WriteRune(r)
		k++
	}
	return sb.String(), nil
}

// InverseKey replaces every key character by its additive inverse mod 26.
func (v Vigenere) InverseKey(key string, length int) (string, error) {
	if key == "" {
		return "", fmt.Errorf("%w: %s key is required", ErrInvalidKey, v.Name())
	}
	stream, err := v.GenerateKey(key, length, nil)
	if err != nil {
		return "", err
	}
	inverse := []rune(stream)
	for i, k := range inverse {
		inverse[i] = 'a' + rune(mod(-keyShift(k), alphabetSize))
	}
	return string(inverse), nil
}

func cycleKey(key string, length int) string {
	if length <= 0 {
		return ""
	}
	repeated := strings.Repeat(key, length/len(key)+1)
	return repeated[:length]
}

// VigenereEncrypt encrypts text with key, or a random key stream when key is
// empty, and returns the stream that was used.
func VigenereEncrypt(text, key string, rng Source) (string, string, error) {
	return Encrypt(Vigenere{}, text, key, rng)
}

// VigenereDecrypt reverses VigenereEncrypt.
func VigenereDecrypt(text, key string) (string, error) {
	return Decrypt(Vigenere{}, text, key)
}
