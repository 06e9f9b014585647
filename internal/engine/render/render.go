// Package render defines the graphics capability the wearables core draws
// through. Backends own every texture handle; the core only does vertex and
// UV math and submits texture-bound batches of quads.
package render

import (
	"errors"
	"image"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/midgard-wearables/pkg/math"
)

// Backend errors.
var (
	ErrUnknownTexture = errors.New("render: unknown texture")
	ErrOutOfBounds    = errors.New("render: blit out of bounds")
	ErrEmptyTexture   = errors.New("render: empty texture")
)

// Texture is a backend-owned texture handle.
type Texture interface {
	ID() uint32
	Size() (width, height int)
}

// ReadResult is the outcome of an asynchronous texture read.
type ReadResult struct {
	Image *image.NRGBA
	Err   error
}

// Backend creates, copies and reads textures. All calls must come from the
// goroutine that owns the backend.
type Backend interface {
	CreateTexture(img *image.NRGBA) (Texture, error)
	DeleteTexture(tex Texture)
	// BlitTexture copies all of src into dst with its top-left corner at (x, y).
	BlitTexture(dst, src Texture, x, y int) error
	// ReadTexture delivers the pixels of tex on the returned channel exactly once.
	ReadTexture(tex Texture) <-chan ReadResult
}

// Vertex is a posed, textured vertex. UVs are normalised to [0, 1].
type Vertex struct {
	Pos  mgl32.Vec3
	U, V float32
}

// Quad is one textured face ready for submission.
type Quad struct {
	Vertices [4]Vertex
	Color    math.Color
	Light    math.Light
}

// Center returns the average of the quad's vertex positions.
func (q *Quad) Center() mgl32.Vec3 {
	var c mgl32.Vec3
	for _, v := range q.Vertices {
		c = c.Add(v.Pos)
	}
	return c.Mul(0.25)
}

// Depth returns the view-space distance of the quad's center along the view
// direction. Larger values are farther from the camera.
func (q *Quad) Depth(view mgl32.Mat4) float32 {
	c := view.Mul4x1(q.Center().Vec4(1))
	return -c.Z()
}

// DrawTarget accepts batches of quads bound to one texture.
type DrawTarget interface {
	Draw(tex Texture, quads []Quad)
}

// Region is a sub-rectangle of a texture in normalised coordinates.
type Region struct {
	U0, V0, U1, V1 float32
}

// FullRegion covers the whole texture.
var FullRegion = Region{0, 0, 1, 1}

// Map remaps a UV pair from the full texture into r.
func (r Region) Map(u, v float32) (float32, float32) {
	return r.U0 + u*(r.U1-r.U0), r.V0 + v*(r.V1-r.V0)
}
