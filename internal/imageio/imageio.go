// Package imageio moves text and pixel grids between files, streams and the
// core transforms. Image format is chosen by file extension when writing and
// sniffed from the content when reading.
package imageio

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/RowanDark/decoder/internal/stego"
)

var (
	// ErrUnsupportedFormat is returned for extensions that cannot be written.
	ErrUnsupportedFormat = errors.New("unsupported image format")
	// ErrTooLarge is returned when an encoded image exceeds the size limit
	// or its header declares more pixels than may be decoded.
	ErrTooLarge = errors.New("image exceeds size limit")
	// ErrLossyFormat is returned when hidden nibbles would not survive the
	// chosen output format.
	ErrLossyFormat = errors.New("lossy image format")
)

// MaxPixels bounds the dimensions DecodeImage accepts when no byte limit is
// given.
const MaxPixels = 1 << 26

// Format names an encodable image format.
type Format string

const (
	FormatPNG  Format = "png"
	FormatBMP  Format = "bmp"
	FormatTIFF Format = "tiff"
	FormatJPEG Format = "jpeg"
)

// FormatFor picks the output format from a path's extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return FormatPNG, nil
	case ".bmp":
		return FormatBMP, nil
	case ".tif", ".tiff":
		return FormatTIFF, nil
	case ".jpg", ".jpeg":
		return FormatJPEG, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// Lossless reports whether f stores every pixel bit exactly.
func (f Format) Lossless() bool {
	return f != FormatJPEG
}

// LosslessFormatFor is FormatFor restricted to formats that keep the low
// nibbles intact, as stego output requires.
func LosslessFormatFor(path string) (Format, error) {
	f, err := FormatFor(path)
	if err != nil {
		return "", err
	}
	if !f.Lossless() {
		return "", fmt.Errorf("%w: %s would destroy hidden data, use png, bmp or tiff", ErrLossyFormat, f)
	}
	return f, nil
}

// ReadText returns the whole contents of path.
func ReadText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read text %s: %w", path, err)
	}
	return string(data), nil
}

// WriteText replaces the contents of path with text.
func WriteText(path, text string) error {
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("write text %s: %w", path, err)
	}
	return nil
}

// DecodeImage reads a PNG, JPEG, GIF, BMP, TIFF or WebP image. A positive
// maxBytes caps how much of r is consumed and also the pixel count, one
// pixel per allowed byte; otherwise MaxPixels applies. Dimensions are checked
// from the header before any pixel memory is allocated.
func DecodeImage(r io.Reader, maxBytes int64) (*stego.PixelGrid, string, error) {
	var (
		data []byte
		err  error
	)
	pixelLimit := int64(MaxPixels)
	if maxBytes > 0 {
		data, err = io.ReadAll(io.LimitReader(r, maxBytes+1))
		if err != nil {
			return nil, "", err
		}
		if int64(len(data)) > maxBytes {
			return nil, "", fmt.Errorf("%w: more than %d bytes", ErrTooLarge, maxBytes)
		}
		pixelLimit = min(pixelLimit, maxBytes)
	} else if data, err = io.ReadAll(r); err != nil {
		return nil, "", err
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, "", fmt.Errorf("decode image: invalid dimensions %dx%d", cfg.Width, cfg.Height)
	}
	if int64(cfg.Width)*int64(cfg.Height) > pixelLimit {
		return nil, "", fmt.Errorf("%w: %dx%d is more than %d pixels", ErrTooLarge, cfg.Width, cfg.Height, pixelLimit)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}
	return stego.FromImage(img), format, nil
}

// Encode writes grid to w in the given format.
func Encode(w io.Writer, grid *stego.PixelGrid, format Format) error {
	if grid == nil {
		return errors.New("nil pixel grid")
	}
	img := grid.Image()
	switch format {
	case FormatPNG:
		return png.Encode(w, img)
	case FormatBMP:
		return bmp.Encode(w, img)
	case FormatTIFF:
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	case FormatJPEG:
		return jpeg.Encode(w, img, &jpeg.Options{Quality: 100})
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// EncodePNG writes grid to w as PNG.
func EncodePNG(w io.Writer, grid *stego.PixelGrid) error {
	return Encode(w, grid, FormatPNG)
}

// ReadImage decodes the image stored at path.
func ReadImage(path string, maxBytes int64) (*stego.PixelGrid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image %s: %w", path, err)
	}
	defer f.Close()

	grid, _, err := DecodeImage(bufio.NewReader(f), maxBytes)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return grid, nil
}

// WriteImage encodes grid to path using the format implied by its extension.
func WriteImage(path string, grid *stego.PixelGrid) (err error) {
	format, err := FormatFor(path)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create image %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	bw := bufio.NewWriter(f)
	if err := Encode(bw, grid, format); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return bw.Flush()
}
