package stego

import (
	"fmt"
	"strconv"
)

// BitString is the 8-character binary form of a channel value, most
// significant bit first.
type BitString string

// High returns the four most significant bits.
func (b BitString) High() string { return string(b[:4]) }

// Low returns the four least significant bits.
func (b BitString) Low() string { return string(b[4:]) }

// IntToBin renders v as an 8-bit binary string.
func IntToBin(v uint8) BitString {
	return BitString(fmt.Sprintf("%08b", v))
}

// BinToInt parses an 8-bit binary string.
func BinToInt(b BitString) (uint8, error) {
	if len(b) != 8 {
		return 0, fmt.Errorf("bit string must be 8 characters, got %d", len(b))
	}
	v, err := strconv.ParseUint(string(b), 2, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid bit string %q: %w", string(b), err)
	}
	return uint8(v), nil
}
