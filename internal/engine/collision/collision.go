// Package collision answers swept-sphere queries for physically simulated
// cosmetic parts such as capes.
package collision

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Hit describes where a move is stopped.
type Hit struct {
	// Allowed is the part of the requested offset that can be travelled.
	Allowed mgl32.Vec3
	// Normal is the unit normal of the surface that was hit.
	Normal mgl32.Vec3
}

// Provider is a collision source. Query reports whether a sphere of radius
// size at pos, moving by offset, hits anything before completing the move.
type Provider interface {
	Query(pos mgl32.Vec3, size float32, offset mgl32.Vec3) (Hit, bool)
}

// NoOp never collides.
type NoOp struct{}

// Query implements Provider.
func (NoOp) Query(mgl32.Vec3, float32, mgl32.Vec3) (Hit, bool) {
	return Hit{}, false
}

// Plane is an infinite half-space: everything behind the plane through
// Point with normal Normal is solid.
type Plane struct {
	Point  mgl32.Vec3
	Normal mgl32.Vec3
}

// NewPlane returns a plane with a normalised normal.
func NewPlane(point, normal mgl32.Vec3) Plane {
	return Plane{Point: point, Normal: normal.Normalize()}
}

// Query implements Provider. Moves parallel to or away from the plane never
// collide, nor do moves that stop short of it.
func (p Plane) Query(pos mgl32.Vec3, size float32, offset mgl32.Vec3) (Hit, bool) {
	vn := offset.Dot(p.Normal)
	if vn >= 0 {
		return Hit{}, false
	}
	dist := pos.Sub(p.Point).Dot(p.Normal) - size
	t := -dist / vn
	if t > 1 {
		return Hit{}, false
	}
	if t < 0 {
		t = 0
	}
	return Hit{Allowed: offset.Mul(t), Normal: p.Normal}, true
}

// Multi queries several providers and returns the shortest hit.
type Multi []Provider

// Query implements Provider.
func (m Multi) Query(pos mgl32.Vec3, size float32, offset mgl32.Vec3) (Hit, bool) {
	var best Hit
	found := false
	for _, p := range m {
		h, ok := p.Query(pos, size, offset)
		if !ok {
			continue
		}
		if !found || h.Allowed.Len() < best.Allowed.Len() {
			best, found = h, true
		}
	}
	return best, found
}
