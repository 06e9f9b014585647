package model

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/midgard-wearables/internal/engine/render"
	"github.com/Faultbox/midgard-wearables/pkg/formats"
	"github.com/Faultbox/midgard-wearables/pkg/math"
)

// BuildCube creates the faces of a decoded cube. UVs are normalised by the
// texture size. Faces with no spatial area are skipped.
func BuildCube(gc *formats.GeoCube, texW, texH int) Cube {
	inflate := mgl32.Vec3{gc.Inflate, gc.Inflate, gc.Inflate}
	box := math.NewBox(gc.Origin.Sub(inflate), gc.Origin.Add(gc.Size).Add(inflate))
	cube := Cube{Box: box, Mirror: gc.Mirror}

	for _, side := range formats.AllFaceSides {
		var rect [4]float32 // u, v, width, height in texels
		if gc.BoxUV != nil {
			rect = boxUVRect(side, *gc.BoxUV, gc.Size)
		} else {
			fu, ok := gc.FaceUVs[side]
			if !ok {
				continue
			}
			rect = [4]float32{fu.UV[0], fu.UV[1], fu.Size[0], fu.Size[1]}
		}
		corners := sideCorners(side, box)
		if area(corners) == 0 {
			continue
		}
		cube.Faces = append(cube.Faces, buildFace(side, corners, rect, texW, texH, gc.Mirror))
	}
	return cube
}

// boxUVRect lays out the six faces of a box-UV cube around (u, v):
//
//	      [top ][bottom]
//	[right][front][left][back]
func boxUVRect(side formats.FaceSide, uv [2]float32, size mgl32.Vec3) [4]float32 {
	u, v := uv[0], uv[1]
	w, h, d := size[0], size[1], size[2]
	switch side {
	case formats.FaceRight:
		return [4]float32{u, v + d, d, h}
	case formats.FaceFront:
		return [4]float32{u + d, v + d, w, h}
	case formats.FaceLeft:
		return [4]float32{u + d + w, v + d, d, h}
	case formats.FaceBack:
		return [4]float32{u + 2*d + w, v + d, w, h}
	case formats.FaceTop:
		return [4]float32{u + d, v, w, d}
	default: // bottom
		return [4]float32{u + d + w, v, w, d}
	}
}

// sideCorners returns the corners of one side of box as top-left,
// top-right, bottom-right, bottom-left seen from outside. +Y is down, the
// front faces -Z and the model's right side is -X.
func sideCorners(side formats.FaceSide, b math.Box) [4]mgl32.Vec3 {
	x0, y0, z0 := b.Min[0], b.Min[1], b.Min[2]
	x1, y1, z1 := b.Max[0], b.Max[1], b.Max[2]
	switch side {
	case formats.FaceFront:
		return [4]mgl32.Vec3{{x0, y0, z0}, {x1, y0, z0}, {x1, y1, z0}, {x0, y1, z0}}
	case formats.FaceBack:
		return [4]mgl32.Vec3{{x1, y0, z1}, {x0, y0, z1}, {x0, y1, z1}, {x1, y1, z1}}
	case formats.FaceRight:
		return [4]mgl32.Vec3{{x0, y0, z1}, {x0, y0, z0}, {x0, y1, z0}, {x0, y1, z1}}
	case formats.FaceLeft:
		return [4]mgl32.Vec3{{x1, y0, z0}, {x1, y0, z1}, {x1, y1, z1}, {x1, y1, z0}}
	case formats.FaceTop:
		return [4]mgl32.Vec3{{x0, y0, z1}, {x1, y0, z1}, {x1, y0, z0}, {x0, y0, z0}}
	default: // bottom
		return [4]mgl32.Vec3{{x0, y1, z0}, {x1, y1, z0}, {x1, y1, z1}, {x0, y1, z1}}
	}
}

func area(c [4]mgl32.Vec3) float32 {
	return c[1].Sub(c[0]).Len() * c[3].Sub(c[0]).Len()
}

func buildFace(side formats.FaceSide, corners [4]mgl32.Vec3, rect [4]float32, texW, texH int, mirror bool) Face {
	u0 := rect[0] / float32(texW)
	v0 := rect[1] / float32(texH)
	u1 := (rect[0] + rect[2]) / float32(texW)
	v1 := (rect[1] + rect[3]) / float32(texH)
	if mirror {
		u0, u1 = u1, u0
	}

	var ratio float32
	if side != formats.FaceTop && side != formats.FaceBottom {
		if height := corners[3][1] - corners[0][1]; height > 0 {
			ratio = (v1 - v0) / height
		}
	}

	f := Face{
		Side: side,
		Vertices: [4]Vertex{
			{Pos: corners[0], U: u0, V: v0, Ratio: ratio},
			{Pos: corners[1], U: u1, V: v0, Ratio: ratio},
			{Pos: corners[2], U: u1, V: v1, Ratio: ratio},
			{Pos: corners[3], U: u0, V: v1, Ratio: ratio},
		},
	}
	if mirror {
		f = f.Reversed()
	}
	return f
}

// AppendQuads transforms the faces of roots by pose and appends them to dst.
// Bones missing from pose are drawn at rest.
func AppendQuads(dst []render.Quad, roots []*Bone, pose Pose, color math.Color, light math.Light) []render.Quad {
	walk(roots, func(b, _ *Bone) {
		m, ok := pose[b.Name]
		if !ok {
			m = mgl32.Ident4()
		}
		for _, c := range b.Cubes {
			for _, f := range c.Faces {
				q := render.Quad{Color: color, Light: light}
				for i, v := range f.Vertices {
					q.Vertices[i] = render.Vertex{
						Pos: mgl32.TransformCoordinate(v.Pos, m),
						U:   v.U,
						V:   v.V,
					}
				}
				dst = append(dst, q)
			}
		}
	})
	return dst
}

// Bounds returns the box enclosing every posed vertex of roots. ok is false
// when there is no geometry.
func Bounds(roots []*Bone, pose Pose) (box math.Box, ok bool) {
	walk(roots, func(b, _ *Bone) {
		m, found := pose[b.Name]
		if !found {
			m = mgl32.Ident4()
		}
		for _, c := range b.Cubes {
			for _, f := range c.Faces {
				for _, v := range f.Vertices {
					p := mgl32.TransformCoordinate(v.Pos, m)
					if !ok {
						box = math.Box{Min: p, Max: p}
						ok = true
						continue
					}
					box = box.Extend(p)
				}
			}
		}
	})
	return box, ok
}
