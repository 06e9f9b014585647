// Package skinmask computes the per-body-part pixel masks that hide avatar
// skin covered by worn cosmetics.
//
// A Mask maps a body part to an alpha image the size of that part's region
// of the 64x64 skin layout. Any non-zero mask pixel hides the matching skin
// pixel. A part missing from the map is fully visible.
package skinmask

import (
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// Part identifies one body part region of the skin texture.
type Part int

const (
	PartHead Part = iota
	PartHat
	PartBody
	PartJacket
	PartRightArm
	PartRightSleeve
	PartLeftArm
	PartLeftSleeve
	PartRightLeg
	PartRightPants
	PartLeftLeg
	PartLeftPants
)

// Layout places a part's unfolded cube on the skin: U, V is the region's
// top-left texel and W, H, D the cube size.
type Layout struct {
	Name    string
	U, V    int
	W, H, D int
}

// Rect returns the part's region of the skin texture.
func (l Layout) Rect() image.Rectangle {
	return image.Rect(l.U, l.V, l.U+2*l.D+2*l.W, l.V+l.D+l.H)
}

var layouts = [...]Layout{
	PartHead:        {"head", 0, 0, 8, 8, 8},
	PartHat:         {"hat", 32, 0, 8, 8, 8},
	PartBody:        {"body", 16, 16, 8, 12, 4},
	PartJacket:      {"jacket", 16, 32, 8, 12, 4},
	PartRightArm:    {"right_arm", 40, 16, 4, 12, 4},
	PartRightSleeve: {"right_sleeve", 40, 32, 4, 12, 4},
	PartLeftArm:     {"left_arm", 32, 48, 4, 12, 4},
	PartLeftSleeve:  {"left_sleeve", 48, 48, 4, 12, 4},
	PartRightLeg:    {"right_leg", 0, 16, 4, 12, 4},
	PartRightPants:  {"right_pants", 0, 32, 4, 12, 4},
	PartLeftLeg:     {"left_leg", 16, 48, 4, 12, 4},
	PartLeftPants:   {"left_pants", 0, 48, 4, 12, 4},
}

// Parts lists every body part.
var Parts = func() []Part {
	ps := make([]Part, len(layouts))
	for i := range layouts {
		ps[i] = Part(i)
	}
	return ps
}()

// Layout returns the part's skin layout.
func (p Part) Layout() Layout {
	if p < 0 || int(p) >= len(layouts) {
		return Layout{}
	}
	return layouts[p]
}

// String returns the part name.
func (p Part) String() string {
	if l := p.Layout(); l.Name != "" {
		return l.Name
	}
	return fmt.Sprintf("Part(%d)", int(p))
}

// ParsePart maps a part name to a Part.
func ParsePart(name string) (Part, bool) {
	for i, l := range layouts {
		if l.Name == name {
			return Part(i), true
		}
	}
	return 0, false
}

// Mask maps body parts to their masks.
type Mask map[Part]*image.Alpha

// NewPartMask returns an all-visible mask sized for p.
func NewPartMask(p Part) *image.Alpha {
	r := p.Layout().Rect()
	return image.NewAlpha(image.Rect(0, 0, r.Dx(), r.Dy()))
}

// Hidden reports whether skin pixel (x, y) is hidden by m.
func (m Mask) Hidden(x, y int) bool {
	for p, a := range m {
		r := p.Layout().Rect()
		pt := image.Pt(x, y)
		if !pt.In(r) {
			continue
		}
		if a.AlphaAt(x-r.Min.X, y-r.Min.Y).A != 0 {
			return true
		}
	}
	return false
}

// Apply returns a copy of skin with every masked pixel cleared.
func (m Mask) Apply(skin image.Image) *image.NRGBA {
	b := skin.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), skin, b.Min, draw.Src)
	m.ApplyTo(dst)
	return dst
}

// ApplyTo clears every masked pixel of skin in place.
func (m Mask) ApplyTo(skin *image.NRGBA) {
	sb := skin.Bounds()
	for p, a := range m {
		r := p.Layout().Rect().Add(sb.Min)
		ab := a.Bounds()
		for y := ab.Min.Y; y < ab.Max.Y; y++ {
			for x := ab.Min.X; x < ab.Max.X; x++ {
				if a.AlphaAt(x, y).A == 0 {
					continue
				}
				sx, sy := r.Min.X+x, r.Min.Y+y
				if image.Pt(sx, sy).In(sb) {
					skin.SetNRGBA(sx, sy, color.NRGBA{})
				}
			}
		}
	}
}

// Read derives a mask from a skin whose hidden pixels are already fully
// transparent. Parts without transparent pixels are omitted.
func Read(skin image.Image) Mask {
	sb := skin.Bounds()
	out := make(Mask)
	for _, p := range Parts {
		r := p.Layout().Rect()
		var a *image.Alpha
		for y := r.Min.Y; y < r.Max.Y; y++ {
			for x := r.Min.X; x < r.Max.X; x++ {
				pt := image.Pt(sb.Min.X+x, sb.Min.Y+y)
				if !pt.In(sb) {
					continue
				}
				if _, _, _, alpha := skin.At(pt.X, pt.Y).RGBA(); alpha != 0 {
					continue
				}
				if a == nil {
					a = NewPartMask(p)
				}
				a.SetAlpha(x-r.Min.X, y-r.Min.Y, color.Alpha{A: 0xFF})
			}
		}
		if a != nil {
			out[p] = a
		}
	}
	return out
}

// Merge ORs masks together per part. A part contributed by a single mask
// shares that mask's image; two or more contributors are copied and
// combined.
func Merge(masks ...Mask) Mask {
	out := make(Mask)
	shared := make(map[Part]bool)
	for _, m := range masks {
		for p, a := range m {
			if a == nil {
				continue
			}
			cur, ok := out[p]
			if !ok {
				out[p] = a
				shared[p] = true
				continue
			}
			if shared[p] {
				cur = cloneAlpha(cur)
				out[p] = cur
				shared[p] = false
			}
			orInto(cur, a)
		}
	}
	return out
}

// Clone returns a deep copy of m.
func (m Mask) Clone() Mask {
	if m == nil {
		return nil
	}
	out := make(Mask, len(m))
	for p, a := range m {
		out[p] = cloneAlpha(a)
	}
	return out
}

// Equal reports whether m and o hide exactly the same pixels of every part.
func (m Mask) Equal(o Mask) bool {
	if len(m) != len(o) {
		return false
	}
	for p, a := range m {
		b, ok := o[p]
		if !ok || a.Bounds() != b.Bounds() {
			return false
		}
		ab := a.Bounds()
		for y := ab.Min.Y; y < ab.Max.Y; y++ {
			for x := ab.Min.X; x < ab.Max.X; x++ {
				if (a.AlphaAt(x, y).A != 0) != (b.AlphaAt(x, y).A != 0) {
					return false
				}
			}
		}
	}
	return true
}

// Image renders the mask onto a w x h skin-sized canvas: hidden pixels are
// white, everything else black.
func (m Mask) Image(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if m.Hidden(x, y) {
				img.SetGray(x, y, color.Gray{Y: 0xFF})
			}
		}
	}
	return img
}

func cloneAlpha(a *image.Alpha) *image.Alpha {
	c := image.NewAlpha(a.Bounds())
	copy(c.Pix, a.Pix)
	return c
}

func orInto(dst, src *image.Alpha) {
	b := dst.Bounds().Intersect(src.Bounds())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if src.AlphaAt(x, y).A != 0 {
				dst.SetAlpha(x, y, color.Alpha{A: 0xFF})
			}
		}
	}
}
