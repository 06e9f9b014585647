package skinmask

import (
	"image"
	"image/color"
)

var visible = color.Alpha{}

type faceRect struct {
	rect image.Rectangle
	// offset maps a model-space shift (x, y, z) to a texel shift (du, dv).
	offset func(x, y, z int) (int, int)
}

// faces returns the six unfolded faces of the layout relative to its
// region, in the same arrangement as box UVs: right, front, left, back,
// top, bottom.
func (l Layout) faces() [6]faceRect {
	w, h, d := l.W, l.H, l.D
	return [6]faceRect{
		{image.Rect(0, d, d, d+h), func(x, y, z int) (int, int) { return -z, y }},
		{image.Rect(d, d, d+w, d+h), func(x, y, z int) (int, int) { return x, y }},
		{image.Rect(d+w, d, 2*d+w, d+h), func(x, y, z int) (int, int) { return z, y }},
		{image.Rect(2*d+w, d, 2*d+2*w, d+h), func(x, y, z int) (int, int) { return -x, y }},
		{image.Rect(d, 0, d+w, d), func(x, y, z int) (int, int) { return x, -z }},
		{image.Rect(d+w, 0, d+2*w, d), func(x, y, z int) (int, int) { return x, z }},
	}
}

// Offset moves every part's mask as if the occluding cosmetic were
// translated by (x, y, z) model units. Each face of a part's unfolded cube
// shifts by the projection of the translation onto that face. Only the
// overlap with the face is kept; uncovered texels become visible.
func (m Mask) Offset(x, y, z int) Mask {
	out := make(Mask, len(m))
	for p, a := range m {
		l := p.Layout()
		dst := image.NewAlpha(a.Bounds())
		copy(dst.Pix, a.Pix)

		for _, f := range l.faces() {
			du, dv := f.offset(x, y, z)
			r := f.rect.Add(a.Bounds().Min)
			for py := r.Min.Y; py < r.Max.Y; py++ {
				for px := r.Min.X; px < r.Max.X; px++ {
					src := image.Pt(px-du, py-dv)
					if src.In(r) {
						dst.SetAlpha(px, py, a.AlphaAt(src.X, src.Y))
					} else {
						dst.SetAlpha(px, py, visible)
					}
				}
			}
		}
		out[p] = dst
	}
	return out
}
