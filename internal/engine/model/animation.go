package model

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/midgard-wearables/pkg/formats"
	"github.com/Faultbox/midgard-wearables/pkg/molang"
)

// Animation is a named animation definition of a model.
type Animation struct {
	Name     string
	Length   float32 // seconds
	Bones    map[string]formats.BoneChannels
	Timeline []formats.TimelineEntry
}

// ChannelKind selects one of a bone's animated channels.
type ChannelKind int

const (
	ChannelRotation ChannelKind = iota
	ChannelPosition
	ChannelScale
)

// ChannelKinds lists every channel kind.
var ChannelKinds = [3]ChannelKind{ChannelRotation, ChannelPosition, ChannelScale}

// HasChannel reports whether the animation drives the given channel of bone.
func (a *Animation) HasChannel(bone string, kind ChannelKind) bool {
	return len(a.channel(bone, kind)) > 0
}

func (a *Animation) channel(bone string, kind ChannelKind) formats.Channel {
	chs, ok := a.Bones[bone]
	if !ok {
		return nil
	}
	switch kind {
	case ChannelRotation:
		return chs.Rotation
	case ChannelPosition:
		return chs.Position
	case ChannelScale:
		return chs.Scale
	}
	return nil
}

// Sample evaluates one channel of bone at time t (seconds). ok is false when
// the animation does not drive that channel.
func (a *Animation) Sample(bone string, kind ChannelKind, t float32, ctx molang.Context) (v mgl32.Vec3, ok bool) {
	ch := a.channel(bone, kind)
	if len(ch) == 0 {
		return mgl32.Vec3{}, false
	}
	return InterpolateKeys(ch, t, ctx), true
}

// InterpolateKeys evaluates a keyframe channel at time t, interpolating
// linearly from the previous keyframe's post value to the next keyframe's
// pre value. Times outside the keyed range hold the nearest keyframe.
func InterpolateKeys(keys formats.Channel, t float32, ctx molang.Context) mgl32.Vec3 {
	if len(keys) == 1 {
		return keys[0].Post.Eval(ctx)
	}

	// Find surrounding keyframes (keys are sorted by time)
	var prev, next int
	for i := range keys {
		if keys[i].Time > t {
			next = i
			break
		}
		prev = i
		next = i
	}

	if prev == next {
		if t < keys[0].Time {
			return keys[0].Pre.Eval(ctx)
		}
		return keys[prev].Post.Eval(ctx)
	}

	k0 := keys[prev]
	k1 := keys[next]
	f := float32(0)
	if k1.Time != k0.Time {
		f = (t - k0.Time) / (k1.Time - k0.Time)
	}
	a := k0.Post.Eval(ctx)
	b := k1.Pre.Eval(ctx)
	return a.Add(b.Sub(a).Mul(f))
}
