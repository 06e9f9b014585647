package glbackend

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/midgard-wearables/internal/engine/render"
	"github.com/Faultbox/midgard-wearables/pkg/math"
)

// Vertex layout: position (3), uv (2), color (4), brightness (1).
const floatsPerVertex = 10

// quadOrder splits a quad into two triangles.
var quadOrder = [6]int{0, 1, 2, 0, 2, 3}

// appendQuads expands quads into interleaved triangle vertices.
func appendQuads(buf []float32, quads []render.Quad) []float32 {
	for i := range quads {
		q := &quads[i]
		c := q.Color.Floats()
		b := brightness(q.Light)
		for _, idx := range quadOrder {
			v := q.Vertices[idx]
			buf = append(buf,
				v.Pos.X(), v.Pos.Y(), v.Pos.Z(),
				v.U, v.V,
				c[0], c[1], c[2], c[3],
				b,
			)
		}
	}
	return buf
}

// brightness maps a packed light pair to a shading factor. The darkest
// level keeps a little ambient light so unlit geometry stays visible.
func brightness(l math.Light) float32 {
	level := max(l.Sky(), l.Block())
	return 0.2 + 0.8*float32(level)/15
}

// appendLines expands line endpoint pairs with a flat color.
func appendLines(buf []float32, points []mgl32.Vec3, color math.Color) []float32 {
	c := color.Floats()
	for _, p := range points {
		buf = append(buf, p.X(), p.Y(), p.Z(), 0, 0, c[0], c[1], c[2], c[3], 1)
	}
	return buf
}
