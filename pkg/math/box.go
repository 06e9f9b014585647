// Package math provides the small value types shared by the cosmetics engine.
package math

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Box is an axis-aligned box in model space.
type Box struct {
	Min, Max mgl32.Vec3
}

// NewBox returns the box spanning the two corners, in any order.
func NewBox(a, b mgl32.Vec3) Box {
	return Box{
		Min: mgl32.Vec3{min(a[0], b[0]), min(a[1], b[1]), min(a[2], b[2])},
		Max: mgl32.Vec3{max(a[0], b[0]), max(a[1], b[1]), max(a[2], b[2])},
	}
}

// BoundsOf returns the smallest box containing all points.
// An empty slice yields the zero box.
func BoundsOf(points ...mgl32.Vec3) Box {
	if len(points) == 0 {
		return Box{}
	}
	b := Box{Min: points[0], Max: points[0]}
	for _, p := range points[1:] {
		b = b.Extend(p)
	}
	return b
}

// Extend returns b grown to contain p.
func (b Box) Extend(p mgl32.Vec3) Box {
	for i := 0; i < 3; i++ {
		b.Min[i] = min(b.Min[i], p[i])
		b.Max[i] = max(b.Max[i], p[i])
	}
	return b
}

// Union returns the smallest box containing both b and o.
func (b Box) Union(o Box) Box {
	return b.Extend(o.Min).Extend(o.Max)
}

// Intersect returns the overlap of b and o. The second result is false when
// the boxes do not touch. Touching boxes produce a degenerate (flat) box.
func (b Box) Intersect(o Box) (Box, bool) {
	var r Box
	for i := 0; i < 3; i++ {
		r.Min[i] = max(b.Min[i], o.Min[i])
		r.Max[i] = min(b.Max[i], o.Max[i])
		if r.Min[i] > r.Max[i] {
			return Box{}, false
		}
	}
	return r, true
}

// Contains reports whether o lies entirely inside b (boundaries included).
func (b Box) Contains(o Box) bool {
	for i := 0; i < 3; i++ {
		if o.Min[i] < b.Min[i] || o.Max[i] > b.Max[i] {
			return false
		}
	}
	return true
}

// Size returns the extent along each axis.
func (b Box) Size() mgl32.Vec3 {
	return b.Max.Sub(b.Min)
}

// Center returns the midpoint of the box.
func (b Box) Center() mgl32.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Degenerate reports whether the box has zero extent along axis i.
func (b Box) Degenerate(axis int) bool {
	return b.Min[axis] == b.Max[axis]
}

// Translate returns b moved by d.
func (b Box) Translate(d mgl32.Vec3) Box {
	return Box{Min: b.Min.Add(d), Max: b.Max.Add(d)}
}
