package framebuffer

import (
	"image/color"
	"testing"
)

func TestFlipRows(t *testing.T) {
	// Two rows, bottom row first as OpenGL returns them.
	pixels := []byte{
		0, 0, 255, 255, // bottom: blue
		255, 0, 0, 255, // top: red
	}
	img := FlipRows(pixels, 1, 2)

	if c := img.NRGBAAt(0, 0); c != (color.NRGBA{R: 255, A: 255}) {
		t.Errorf("top pixel = %v, want red", c)
	}
	if c := img.NRGBAAt(0, 1); c != (color.NRGBA{B: 255, A: 255}) {
		t.Errorf("bottom pixel = %v, want blue", c)
	}
}
