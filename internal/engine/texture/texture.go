// Package texture decodes cosmetic and skin textures into NRGBA images.
package texture

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/ftrvxmtrx/tga"
	"golang.org/x/image/webp"
)

// ErrUnsupportedFormat is returned for file extensions with no decoder.
var ErrUnsupportedFormat = errors.New("unsupported texture format")

// Extensions lists the accepted texture file extensions in lookup order.
var Extensions = []string{".png", ".tga", ".webp"}

// Decode decodes texture data. The format is chosen by the extension of
// name.
func Decode(name string, data []byte) (*image.NRGBA, error) {
	var (
		img image.Image
		err error
	)
	r := bytes.NewReader(data)
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".png":
		img, err = png.Decode(r)
	case ".tga":
		img, err = tga.Decode(r)
	case ".webp":
		img, err = webp.Decode(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(name), err)
	}
	return ToNRGBA(img), nil
}

// Load reads and decodes a texture file.
func Load(path string) (*image.NRGBA, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading texture: %w", err)
	}
	return Decode(path, data)
}

// Find returns the first existing texture file named stem plus one of
// Extensions inside dir.
func Find(dir, stem string) (string, bool) {
	for _, ext := range Extensions {
		path := filepath.Join(dir, stem+ext)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

// ToNRGBA converts img to a zero-origin *image.NRGBA. An NRGBA image that
// already starts at the origin is returned as is.
func ToNRGBA(img image.Image) *image.NRGBA {
	b := img.Bounds()
	if n, ok := img.(*image.NRGBA); ok && b.Min == (image.Point{}) {
		return n
	}
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}
