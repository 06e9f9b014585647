package model

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Transform is an animated offset applied on top of a bone's rest pose.
type Transform struct {
	Rotation mgl32.Vec3 // degrees, added to the rest rotation
	Position mgl32.Vec3
	Scale    mgl32.Vec3
}

// RestTransform leaves a bone at its rest pose.
var RestTransform = Transform{Scale: mgl32.Vec3{1, 1, 1}}

// Pose maps bone names to model-space matrices.
type Pose map[string]mgl32.Mat4

// LocalMatrix builds the bone's transform relative to its parent: rotate
// (Z, then Y, then X) and scale about the pivot, then translate.
func LocalMatrix(b *Bone, tr Transform) mgl32.Mat4 {
	rot := b.Rotation.Add(tr.Rotation)

	m := mgl32.Translate3D(b.Pivot[0]+tr.Position[0], b.Pivot[1]+tr.Position[1], b.Pivot[2]+tr.Position[2])
	m = m.Mul4(mgl32.HomogRotate3DZ(mgl32.DegToRad(rot[2])))
	m = m.Mul4(mgl32.HomogRotate3DY(mgl32.DegToRad(rot[1])))
	m = m.Mul4(mgl32.HomogRotate3DX(mgl32.DegToRad(rot[0])))
	m = m.Mul4(mgl32.Scale3D(tr.Scale[0], tr.Scale[1], tr.Scale[2]))
	return m.Mul4(mgl32.Translate3D(-b.Pivot[0], -b.Pivot[1], -b.Pivot[2]))
}

// BuildPose computes model-space matrices for every bone under roots.
// sample supplies each bone's animated transform.
func BuildPose(roots []*Bone, sample func(b *Bone) Transform) Pose {
	pose := make(Pose)
	walk(roots, func(b, parent *Bone) {
		parentMatrix := mgl32.Ident4()
		if parent != nil {
			parentMatrix = pose[parent.Name]
		}
		pose[b.Name] = parentMatrix.Mul4(LocalMatrix(b, sample(b)))
	})
	return pose
}

// RestPose returns the pose with every bone at rest.
func RestPose(roots []*Bone) Pose {
	return BuildPose(roots, func(*Bone) Transform { return RestTransform })
}

// Locator returns the model-space position of the named locator on b.
func (p Pose) Locator(b *Bone, name string) (mgl32.Vec3, bool) {
	offset, ok := b.Locators[name]
	if !ok {
		return mgl32.Vec3{}, false
	}
	m, ok := p[b.Name]
	if !ok {
		m = mgl32.Ident4()
	}
	return mgl32.TransformCoordinate(offset, m), true
}
