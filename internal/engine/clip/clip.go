// Package clip trims cosmetic geometry out of exclusion regions so that it
// does not visibly pierce the avatar.
//
// Only faces whose overlap with a region is flat along exactly one
// horizontal axis are trimmed, and only from below: the face's lower edge is
// raised to the top of the region. Faces entirely inside a region are
// dropped. Overlaps along two horizontal axes at once are left untouched.
package clip

import (
	"github.com/Faultbox/midgard-wearables/internal/engine/model"
	"github.com/Faultbox/midgard-wearables/pkg/math"
)

// Clip returns a clipped deep copy of b and its descendants. b is never
// modified. With no boxes the copy equals b.
func Clip(b *model.Bone, boxes []math.Box) *model.Bone {
	c := b.Clone()
	if len(boxes) > 0 {
		clipBone(c, boxes)
	}
	return c
}

// ClipAll clips each root.
func ClipAll(roots []*model.Bone, boxes []math.Box) []*model.Bone {
	out := make([]*model.Bone, len(roots))
	for i, r := range roots {
		out[i] = Clip(r, boxes)
	}
	return out
}

func clipBone(b *model.Bone, boxes []math.Box) {
	for i := range b.Cubes {
		cube := &b.Cubes[i]
		cube.Faces = clipFaces(cube.Faces, cube.Mirror, boxes)
	}
	for _, child := range b.Children {
		clipBone(child, boxes)
	}
}

// clipFaces keeps untouched faces in order and appends the clipped
// replacements after them.
func clipFaces(faces []model.Face, mirror bool, boxes []math.Box) []model.Face {
	kept := make([]model.Face, 0, len(faces))
	var replaced []model.Face

	for _, f := range faces {
		work := f
		if mirror {
			work = f.Reversed()
		}

		clipY, matched, dropped := lowerEdge(work.Bounds(), boxes)
		switch {
		case dropped:
			continue
		case !matched:
			kept = append(kept, f)
		default:
			out := clipFace(work, clipY)
			if mirror {
				out = out.Reversed()
			}
			replaced = append(replaced, out)
		}
	}
	return append(kept, replaced...)
}

// lowerEdge evaluates the boxes in order against a face's bounds. It returns
// the lowest Y the face may keep (+Y is down) and whether any box trims it.
// A box containing the face drops it regardless of earlier trims.
func lowerEdge(bounds math.Box, boxes []math.Box) (clipY float32, matched, dropped bool) {
	clipY = bounds.Max[1]
	for _, box := range boxes {
		inter, ok := bounds.Intersect(box)
		if !ok {
			continue
		}
		if box.Contains(bounds) {
			return 0, false, true
		}
		if !singleHorizontalAxis(inter) || inter.Degenerate(1) {
			continue
		}
		if inter.Min[1] < clipY {
			clipY = inter.Min[1]
			matched = true
		}
	}
	return clipY, matched, false
}

// singleHorizontalAxis reports whether b is flat along exactly one of X and Z.
func singleHorizontalAxis(b math.Box) bool {
	return b.Degenerate(0) != b.Degenerate(2)
}

// clipFace raises every vertex below clipY to it, moving V by the same
// distance scaled by the face's texture ratio.
func clipFace(f model.Face, clipY float32) model.Face {
	for i := range f.Vertices {
		v := &f.Vertices[i]
		if v.Pos[1] <= clipY {
			continue
		}
		v.V -= (v.Pos[1] - clipY) * v.Ratio
		v.Pos[1] = clipY
	}
	return f
}
