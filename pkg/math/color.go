package math

import "fmt"

// Color is a packed 32-bit ARGB color.
type Color uint32

// White is opaque white, the neutral vertex tint.
const White Color = 0xFFFFFFFF

// RGBA packs 8-bit channels into a Color.
func RGBA(r, g, b, a uint8) Color {
	return Color(uint32(a)<<24 | uint32(r)<<16 | uint32(g)<<8 | uint32(b))
}

// A returns the alpha channel.
func (c Color) A() uint8 { return uint8(c >> 24) }

// R returns the red channel.
func (c Color) R() uint8 { return uint8(c >> 16) }

// G returns the green channel.
func (c Color) G() uint8 { return uint8(c >> 8) }

// B returns the blue channel.
func (c Color) B() uint8 { return uint8(c) }

// WithAlpha returns c with its alpha channel replaced.
func (c Color) WithAlpha(a uint8) Color {
	return c&0x00FFFFFF | Color(a)<<24
}

// Mul multiplies two colors channel-wise, as a tint applied on top of c.
func (c Color) Mul(o Color) Color {
	mul := func(a, b uint8) uint8 { return uint8(uint16(a) * uint16(b) / 255) }
	return RGBA(mul(c.R(), o.R()), mul(c.G(), o.G()), mul(c.B(), o.B()), mul(c.A(), o.A()))
}

// Floats returns the channels normalised to [0,1] in RGBA order.
func (c Color) Floats() [4]float32 {
	return [4]float32{
		float32(c.R()) / 255,
		float32(c.G()) / 255,
		float32(c.B()) / 255,
		float32(c.A()) / 255,
	}
}

// String returns the color as #AARRGGBB.
func (c Color) String() string {
	return fmt.Sprintf("#%08X", uint32(c))
}
