package cipher

import (
	"fmt"
	"strconv"
	"strings"
)

// Caesar shifts every ASCII letter by a fixed offset, preserving case.
type Caesar struct{}

var _ Cipher = Caesar{}

func (Caesar) Name() string { return "caesar" }

// GenerateKey parses a decimal shift and reduces it mod 26. Without a key a
// shift in [1, 25] is drawn from rng.
func (Caesar) GenerateKey(key string, _ int, rng Source) (string, error) {
	if strings.TrimSpace(key) == "" {
		if rng == nil {
			return "", errNoSource
		}
		return strconv.Itoa(rng.IntN(alphabetSize-1) + 1), nil
	}
	shift, err := parseShift(key)
	if err != nil {
		return "", err
	}
	return strconv.Itoa(shift), nil
}

func (Caesar) Transform(text, key string) (string, error) {
	shift, err := parseShift(key)
	if err != nil {
		return "", err
	}
	return shiftText(text, shift), nil
}

func (Caesar) InverseKey(key string, _ int) (string, error) {
	shift, err := parseShift(key)
	if err != nil {
		return "", err
	}
	return strconv.Itoa(mod(alphabetSize-shift, alphabetSize)), nil
}

// AutoDecrypt recovers the plaintext without the key by choosing the shift
// whose letter distribution is closest to English.
func (Caesar) AutoDecrypt(text string) string {
	shift, _ := BestShift(text)
	return shiftText(text, shift)
}

func parseShift(key string) (int, error) {
	shift, err := strconv.Atoi(strings.TrimSpace(key))
	if err != nil {
		return 0, fmt.Errorf("%w: caesar key must be an integer, got %q", ErrInvalidKey, key)
	}
	return mod(shift, alphabetSize), nil
}

func shiftText(text string, shift int) string {
	if shift == 0 {
		return text
	}
	var sb strings.Builder
	sb.Grow(len(text))
	for _, r := range text {
		sb.WriteRune(shiftLetter(r, shift))
	}
	return sb.String()
}

// ShiftEncrypt encrypts text with the given shift, or a random one when key
// is nil, and returns the shift that was used.
func ShiftEncrypt(text string, key *int, rng Source) (string, int, error) {
	var k string
	if key != nil {
		k = strconv.Itoa(*key)
	}
	out, used, err := Encrypt(Caesar{}, text, k, rng)
	if err != nil {
		return "", 0, err
	}
	shift, _ := strconv.Atoi(used)
	return out, shift, nil
}

// ShiftDecrypt reverses ShiftEncrypt.
func ShiftDecrypt(text string, key int) string {
	return shiftText(text, mod(alphabetSize-mod(key, alphabetSize), alphabetSize))
}

// ShiftAutoDecrypt breaks a shift cipher by frequency analysis.
func ShiftAutoDecrypt(text string) string {
	return Caesar{}.AutoDecrypt(text)
}
