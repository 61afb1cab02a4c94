package stego

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBitStringRoundTrip(t *testing.T) {
	for v := 0; v <= 255; v++ {
		b := IntToBin(uint8(v))
		require.Len(t, string(b), 8)
		got, err := BinToInt(b)
		require.NoError(t, err)
		require.Equal(t, uint8(v), got)
	}
}

func TestIntToBin(t *testing.T) {
	assert.Equal(t, BitString("00000000"), IntToBin(0))
	assert.Equal(t, BitString("11110000"), IntToBin(240))
	assert.Equal(t, BitString("00000101"), IntToBin(5))

	b := IntToBin(0xA5)
	assert.Equal(t, "1010", b.High())
	assert.Equal(t, "0101", b.Low())
}

func TestBinToIntRejectsMalformed(t *testing.T) {
	tests := []struct {
		name  string
		input BitString
	}{
		{"short", "0101"},
		{"long", "010101010"},
		{"non-binary", "0101012a"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BinToInt(tt.input)
			assert.Error(t, err)
		})
	}
}
