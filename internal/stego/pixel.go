// Package stego hides one image inside the low bit planes of another and
// recovers it again.
//
// The carrier keeps its four most significant bits per channel; the four
// most significant bits of the payload are stored in the carrier's low
// nibble. Recovery is lossy: only the payload's high nibble survives.
package stego

import (
	"image"
	"image/color"
)

// Pixel is an 8-bit RGB triple.
type Pixel struct {
	R, G, B uint8
}

// Black reports whether all channels are zero.
func (p Pixel) Black() bool {
	return p.R == 0 && p.G == 0 && p.B == 0
}

// PixelGrid is a Width x Height raster stored row by row.
type PixelGrid struct {
	Width  int
	Height int
	Pix    []Pixel
}

// NewPixelGrid returns a black grid of the given size.
func NewPixelGrid(width, height int) *PixelGrid {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &PixelGrid{
		Width:  width,
		Height: height,
		Pix:    make([]Pixel, width*height),
	}
}

// NewUniformGrid returns a grid where every pixel equals p.
func NewUniformGrid(width, height int, p Pixel) *PixelGrid {
	g := NewPixelGrid(width, height)
	for i := range g.Pix {
		g.Pix[i] = p
	}
	return g
}

// At returns the pixel at column x, row y.
func (g *PixelGrid) At(x, y int) Pixel {
	return g.Pix[y*g.Width+x]
}

// Set stores p at column x, row y.
func (g *PixelGrid) Set(x, y int, p Pixel) {
	g.Pix[y*g.Width+x] = p
}

// Contains reports whether (x, y) lies within the grid.
func (g *PixelGrid) Contains(x, y int) bool {
	return x >= 0 && y >= 0 && x < g.Width && y < g.Height
}

// Crop returns a copy of the top-left width x height region.
func (g *PixelGrid) Crop(width, height int) *PixelGrid {
	width = min(width, g.Width)
	height = min(height, g.Height)
	out := NewPixelGrid(width, height)
	for y := 0; y < height; y++ {
		copy(out.Pix[y*width:(y+1)*width], g.Pix[y*g.Width:y*g.Width+width])
	}
	return out
}

// FromImage converts any image to a grid. Alpha is discarded.
func FromImage(img image.Image) *PixelGrid {
	b := img.Bounds()
	g := NewPixelGrid(b.Dx(), b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			g.Set(x-b.Min.X, y-b.Min.Y, Pixel{R: c.R, G: c.G, B: c.B})
		}
	}
	return g
}

// Image renders the grid as an opaque NRGBA image.
func (g *PixelGrid) Image() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, g.Width, g.Height))
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			p := g.At(x, y)
			img.SetNRGBA(x, y, color.NRGBA{R: p.R, G: p.G, B: p.B, A: 255})
		}
	}
	return img
}
