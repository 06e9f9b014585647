package model

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/midgard-wearables/internal/engine/skinmask"
	"github.com/Faultbox/midgard-wearables/pkg/formats"
	"github.com/Faultbox/midgard-wearables/pkg/math"
)

// Build errors.
var (
	ErrUnknownParent = errors.New("bone parent not found")
	ErrBoneCycle     = errors.New("bone hierarchy has a cycle")
)

// Model is a decoded cosmetic: bone tree, animations and trigger events.
// A Model is immutable once built and may be shared by any number of
// instances; wearers are tracked with Retain and Release.
type Model struct {
	Name          string
	TextureWidth  int
	TextureHeight int
	Translucent   bool

	// Exclusions are model-space regions other worn cosmetics must not occupy.
	Exclusions []math.Box

	// SkinMask hides avatar skin pixels covered by this cosmetic. Nil means
	// the cosmetic hides nothing.
	SkinMask skinmask.Mask

	Roots  []*Bone
	Events []*formats.Event

	animations map[string]*Animation
	refs       atomic.Int32
}

// Build links decoded geometry into a bone tree and attaches the decoded
// animations. anims may be nil for a static model.
func Build(geo *formats.Geometry, anims *formats.AnimationFile) (*Model, error) {
	m := &Model{
		Name:          geo.Identifier,
		TextureWidth:  geo.TextureWidth,
		TextureHeight: geo.TextureHeight,
		Translucent:   geo.Translucent,
		Exclusions:    append([]math.Box(nil), geo.Exclusions...),
		animations:    make(map[string]*Animation),
	}

	if err := checkHierarchy(geo); err != nil {
		return nil, err
	}

	byName := make(map[string]*Bone, len(geo.Bones))
	for i := range geo.Bones {
		gb := &geo.Bones[i]
		byName[gb.Name] = buildBone(gb, geo.TextureWidth, geo.TextureHeight)
	}
	for i := range geo.Bones {
		gb := &geo.Bones[i]
		b := byName[gb.Name]
		if gb.Parent == "" {
			m.Roots = append(m.Roots, b)
			continue
		}
		parent := byName[gb.Parent]
		parent.Children = append(parent.Children, b)
	}

	if anims != nil {
		for i := range anims.Animations {
			def := &anims.Animations[i]
			m.animations[def.Name] = &Animation{
				Name:     def.Name,
				Length:   def.Length,
				Bones:    def.Bones,
				Timeline: def.Timeline,
			}
		}
		m.Events = anims.Events
	}
	return m, nil
}

// checkHierarchy rejects unknown parents and parent cycles.
func checkHierarchy(geo *formats.Geometry) error {
	parents := make(map[string]string, len(geo.Bones))
	for _, b := range geo.Bones {
		parents[b.Name] = b.Parent
	}
	for _, b := range geo.Bones {
		if b.Parent != "" {
			if _, ok := parents[b.Parent]; !ok {
				return fmt.Errorf("%w: %s (parent of %s)", ErrUnknownParent, b.Parent, b.Name)
			}
		}
		seen := map[string]bool{b.Name: true}
		for p := b.Parent; p != ""; p = parents[p] {
			if seen[p] {
				return fmt.Errorf("%w: through %s", ErrBoneCycle, b.Name)
			}
			seen[p] = true
		}
	}
	return nil
}

func buildBone(gb *formats.GeoBone, texW, texH int) *Bone {
	b := &Bone{
		Name:     gb.Name,
		Pivot:    gb.Pivot,
		Rotation: gb.Rotation,
		Physics:  gb.Physics,
	}
	if len(gb.Locators) > 0 {
		b.Locators = make(map[string]mgl32.Vec3, len(gb.Locators))
		for k, v := range gb.Locators {
			b.Locators[k] = v
		}
	}
	for i := range gb.Cubes {
		b.Cubes = append(b.Cubes, BuildCube(&gb.Cubes[i], texW, texH))
	}
	return b
}

// Walk visits every bone depth-first in pre-order. Roots are visited in
// declaration order.
func (m *Model) Walk(fn func(bone, parent *Bone)) {
	walk(m.Roots, fn)
}

// Bone returns the bone with the given name.
func (m *Model) Bone(name string) (*Bone, bool) {
	var found *Bone
	m.Walk(func(b, _ *Bone) {
		if found == nil && b.Name == name {
			found = b
		}
	})
	return found, found != nil
}

// Animation returns the named animation definition. A miss is not an error.
func (m *Model) Animation(name string) (*Animation, bool) {
	a, ok := m.animations[name]
	return a, ok
}

// AnimationCount returns the number of animation definitions.
func (m *Model) AnimationCount() int { return len(m.animations) }

// EventsOf returns the trigger events of type t in declaration order.
func (m *Model) EventsOf(t formats.EventType) []*formats.Event {
	var out []*formats.Event
	for _, e := range m.Events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// CloneRoots returns deep copies of the root bones.
func (m *Model) CloneRoots() []*Bone {
	out := make([]*Bone, len(m.Roots))
	for i, r := range m.Roots {
		out[i] = r.Clone()
	}
	return out
}

// Retain records a new wearer and returns the reference count.
func (m *Model) Retain() int32 { return m.refs.Add(1) }

// Release drops a wearer and returns the remaining reference count.
func (m *Model) Release() int32 {
	n := m.refs.Add(-1)
	if n < 0 {
		m.refs.Store(0)
		return 0
	}
	return n
}

// Refs returns the current reference count.
func (m *Model) Refs() int32 { return m.refs.Load() }
