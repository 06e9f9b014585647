// Package model provides the immutable Bone Model shared by every wearer of a
// cosmetic: the bone tree with its cube geometry, animation definitions and
// trigger events, plus the pose and mesh math used to draw it.
package model

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/midgard-wearables/pkg/formats"
	"github.com/Faultbox/midgard-wearables/pkg/math"
)

// Vertex is a rest-pose vertex in model space.
type Vertex struct {
	Pos  mgl32.Vec3
	U, V float32 // normalised texture coordinates

	// Ratio is the texture-space height covered per model unit of the
	// vertex's face. The clipper uses it to move V along with Y.
	Ratio float32
}

// Face is one textured quad of a cube. Vertices run top-left, top-right,
// bottom-right, bottom-left as seen from outside; faces of mirrored cubes
// are stored with that winding reversed.
type Face struct {
	Side     formats.FaceSide
	Vertices [4]Vertex
}

// Bounds returns the face's axis-aligned bounding box.
func (f *Face) Bounds() math.Box {
	return math.BoundsOf(f.Vertices[0].Pos, f.Vertices[1].Pos, f.Vertices[2].Pos, f.Vertices[3].Pos)
}

// Reversed returns the face with its vertex winding reversed.
func (f Face) Reversed() Face {
	v := f.Vertices
	f.Vertices = [4]Vertex{v[3], v[2], v[1], v[0]}
	return f
}

// Cube is an axis-aligned box with up to six faces.
type Cube struct {
	Box    math.Box
	Mirror bool
	Faces  []Face
}

// Bone is a node of the model's rigid hierarchy. Bones own their cubes and
// children; the tree never shares or cycles.
type Bone struct {
	Name     string
	Pivot    mgl32.Vec3
	Rotation mgl32.Vec3 // rest rotation in degrees
	Physics  bool
	Locators map[string]mgl32.Vec3
	Cubes    []Cube
	Children []*Bone
}

// Clone returns a deep copy of b. No vertex data, locator map or child is
// shared with the original.
func (b *Bone) Clone() *Bone {
	if b == nil {
		return nil
	}
	c := &Bone{
		Name:     b.Name,
		Pivot:    b.Pivot,
		Rotation: b.Rotation,
		Physics:  b.Physics,
	}
	if b.Locators != nil {
		c.Locators = make(map[string]mgl32.Vec3, len(b.Locators))
		for k, v := range b.Locators {
			c.Locators[k] = v
		}
	}
	if b.Cubes != nil {
		c.Cubes = make([]Cube, len(b.Cubes))
		for i, cube := range b.Cubes {
			c.Cubes[i] = Cube{Box: cube.Box, Mirror: cube.Mirror}
			if cube.Faces != nil {
				c.Cubes[i].Faces = make([]Face, len(cube.Faces))
				copy(c.Cubes[i].Faces, cube.Faces)
			}
		}
	}
	if b.Children != nil {
		c.Children = make([]*Bone, len(b.Children))
		for i, child := range b.Children {
			c.Children[i] = child.Clone()
		}
	}
	return c
}

// Walk visits b and its descendants depth-first in pre-order.
func (b *Bone) Walk(fn func(bone, parent *Bone)) {
	walk([]*Bone{b}, fn)
}

// FaceCount returns the number of faces in b and its descendants.
func (b *Bone) FaceCount() int {
	n := 0
	b.Walk(func(bone, _ *Bone) {
		for _, c := range bone.Cubes {
			n += len(c.Faces)
		}
	})
	return n
}

type frame struct {
	bone, parent *Bone
}

// walk traverses with an explicit stack. Children are pushed in reverse so
// they pop in declaration order.
func walk(roots []*Bone, fn func(bone, parent *Bone)) {
	stack := make([]frame, 0, 16)
	for i := len(roots) - 1; i >= 0; i-- {
		if roots[i] != nil {
			stack = append(stack, frame{bone: roots[i]})
		}
	}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		fn(top.bone, top.parent)
		for i := len(top.bone.Children) - 1; i >= 0; i-- {
			stack = append(stack, frame{bone: top.bone.Children[i], parent: top.bone})
		}
	}
}
