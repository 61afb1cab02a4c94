package stego

import (
	"errors"
	"fmt"
)

// ErrSizeMismatch is returned by Merge when the payload does not fit inside
// the carrier.
var ErrSizeMismatch = errors.New("payload larger than carrier")

// Merge hides payload in the low nibble of every carrier channel. Carrier
// positions outside the payload receive a zero nibble.
func Merge(carrier, payload *PixelGrid) (*PixelGrid, error) {
	if carrier == nil || payload == nil {
		return nil, errors.New("carrier and payload are required")
	}
	if payload.Width > carrier.Width || payload.Height > carrier.Height {
		return nil, fmt.Errorf("%w: payload %dx%d, carrier %dx%d",
			ErrSizeMismatch, payload.Width, payload.Height, carrier.Width, carrier.Height)
	}

	out := NewPixelGrid(carrier.Width, carrier.Height)
	for y := 0; y < carrier.Height; y++ {
		for x := 0; x < carrier.Width; x++ {
			var hidden Pixel
			if payload.Contains(x, y) {
				hidden = payload.At(x, y)
			}
			out.Set(x, y, mergePixel(carrier.At(x, y), hidden))
		}
	}
	return out, nil
}

// Unmerge extracts the hidden image from stego. The result is cropped to the
// bounding box of non-black pixels, so trailing all-black payload rows and
// columns cannot be told apart from padding and are dropped. A grid without
// any non-black pixel is returned at full size.
func Unmerge(stego *PixelGrid) *PixelGrid {
	if stego == nil {
		return NewPixelGrid(0, 0)
	}

	out := NewPixelGrid(stego.Width, stego.Height)
	width, height := 0, 0
	for y := 0; y < stego.Height; y++ {
		for x := 0; x < stego.Width; x++ {
			p := unmergePixel(stego.At(x, y))
			out.Set(x, y, p)
			if !p.Black() {
				width = max(width, x+1)
				height = max(height, y+1)
			}
		}
	}
	if width == 0 && height == 0 {
		return out
	}
	return out.Crop(width, height)
}

func mergePixel(outer, inner Pixel) Pixel {
	return Pixel{
		R: mergeChannel(outer.R, inner.R),
		G: mergeChannel(outer.G, inner.G),
		B: mergeChannel(outer.B, inner.B),
	}
}

func unmergePixel(p Pixel) Pixel {
	return Pixel{R: p.R << 4, G: p.G << 4, B: p.B << 4}
}

// mergeChannel keeps the high nibble of outer and stores the high nibble of
// inner below it.
func mergeChannel(outer, inner uint8) uint8 {
	return outer&0xF0 | inner>>4
}
