// Package debug provides debug visualization and capture utilities.
package debug

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/midgard-wearables/pkg/math"
)

// WireframeVertexCount is the number of endpoints in a box wireframe (12 edges × 2).
const WireframeVertexCount = 24

// DefaultPadding is the default padding for bounds overlays.
const DefaultPadding = 0.5

// BoxWireframe returns line endpoint pairs for the edges of b grown by
// padding on all sides.
func BoxWireframe(b math.Box, padding float32) []mgl32.Vec3 {
	pad := mgl32.Vec3{padding, padding, padding}
	lo, hi := b.Min.Sub(pad), b.Max.Add(pad)

	corners := [8]mgl32.Vec3{
		{lo[0], lo[1], lo[2]}, {hi[0], lo[1], lo[2]}, {hi[0], lo[1], hi[2]}, {lo[0], lo[1], hi[2]},
		{lo[0], hi[1], lo[2]}, {hi[0], hi[1], lo[2]}, {hi[0], hi[1], hi[2]}, {lo[0], hi[1], hi[2]},
	}
	edges := [12][2]int{
		// Min-Y face
		{0, 1}, {1, 2}, {2, 3}, {3, 0},
		// Max-Y face
		{4, 5}, {5, 6}, {6, 7}, {7, 4},
		// Verticals
		{0, 4}, {1, 5}, {2, 6}, {3, 7},
	}

	out := make([]mgl32.Vec3, 0, WireframeVertexCount)
	for _, e := range edges {
		out = append(out, corners[e[0]], corners[e[1]])
	}
	return out
}

// BoxesWireframe concatenates the wireframes of several boxes.
func BoxesWireframe(boxes []math.Box, padding float32) []mgl32.Vec3 {
	out := make([]mgl32.Vec3, 0, len(boxes)*WireframeVertexCount)
	for _, b := range boxes {
		out = append(out, BoxWireframe(b, padding)...)
	}
	return out
}
