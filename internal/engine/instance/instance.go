// Package instance binds one shared cosmetic model to one avatar. An
// Instance owns the animation state, the posed locators and the cape
// physics of a worn cosmetic; the model itself is only referenced.
package instance

import (
	"math/rand/v2"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-wearables/internal/engine/animation"
	"github.com/Faultbox/midgard-wearables/internal/engine/clip"
	"github.com/Faultbox/midgard-wearables/internal/engine/collision"
	"github.com/Faultbox/midgard-wearables/internal/engine/model"
	"github.com/Faultbox/midgard-wearables/internal/engine/render"
	"github.com/Faultbox/midgard-wearables/internal/logger"
	"github.com/Faultbox/midgard-wearables/pkg/formats"
	"github.com/Faultbox/midgard-wearables/pkg/math"
	"github.com/Faultbox/midgard-wearables/pkg/molang"
)

// Options configures a new Instance. The zero value is usable.
type Options struct {
	// Collision is consulted by physics bones. Nil never collides.
	Collision collision.Provider
	// Rand drives event probabilities. Nil seeds a fresh source.
	Rand *rand.Rand
	// Color tints every quad. Zero means white.
	Color math.Color
}

// Instance is one worn cosmetic. Its methods must be called from the
// goroutine that drives the avatar, except CollectEvents and the
// Locator accessors.
type Instance struct {
	model     *model.Model
	state     *animation.State
	collision collision.Provider
	color     math.Color

	physics  map[string]*pendulum
	pose     model.Pose
	locators map[string]*Locator
	valid    *atomic.Bool
	closed   bool

	log *zap.Logger
}

// New binds m to a new instance and fires its equip events.
func New(m *model.Model, opts Options) *Instance {
	if opts.Collision == nil {
		opts.Collision = collision.NoOp{}
	}
	if opts.Color == 0 {
		opts.Color = math.White
	}

	valid := &atomic.Bool{}
	valid.Store(true)

	inst := &Instance{
		model:     m,
		state:     animation.NewState(resolverFor(m), opts.Rand),
		collision: opts.Collision,
		color:     opts.Color,
		locators:  make(map[string]*Locator),
		valid:     valid,
		log:       logger.Named("instance").With(zap.String("model", m.Name)),
	}
	refs := m.Retain()
	inst.bindModel()
	inst.pose = model.RestPose(m.Roots)
	inst.updateLocators()

	inst.log.Debug("instance created", zap.Int32("refs", refs))
	inst.Trigger(formats.EventEquip)
	return inst
}

func resolverFor(m *model.Model) animation.Resolver {
	return m.Animation
}

// bindModel rebuilds the per-model caches: physics bones and locator slots.
func (i *Instance) bindModel() {
	prev := i.physics
	i.physics = make(map[string]*pendulum)
	i.model.Walk(func(b, _ *model.Bone) {
		if b.Physics {
			p := newPendulum(b)
			if old, ok := prev[b.Name]; ok {
				p.angle, p.velocity = old.angle, old.velocity
			}
			i.physics[b.Name] = p
		}
		for name := range b.Locators {
			if l, ok := i.locators[name]; ok {
				l.Bone = b.Name
				continue
			}
			i.locators[name] = &Locator{Name: name, Bone: b.Name, valid: i.valid}
		}
	})
}

// Model returns the model the instance currently draws.
func (i *Instance) Model() *model.Model { return i.model }

// State returns the animation state.
func (i *Instance) State() *animation.State { return i.state }

// SwitchModel swaps the model while keeping the instance, its animation
// progress and its locators. Animations missing from m stop playing.
func (i *Instance) SwitchModel(m *model.Model) {
	if m == i.model || i.closed {
		return
	}
	old := i.model
	i.model = m
	m.Retain()
	old.Release()

	i.state.SetResolver(resolverFor(m))
	i.bindModel()
	i.pose = i.Pose(nil)
	i.updateLocators()
	i.log = logger.Named("instance").With(zap.String("model", m.Name))
	i.log.Debug("instance switched model", zap.String("from", old.Name))
}

// Trigger fires every event of type t declared by the model and returns
// how many started an animation.
func (i *Instance) Trigger(t formats.EventType) int {
	fired := 0
	for _, e := range i.model.EventsOf(t) {
		if i.state.Fire(e) {
			fired++
		}
	}
	return fired
}

// Receive is Trigger for a trigger broadcast by another cosmetic.
func (i *Instance) Receive(t formats.EventType) int {
	fired := 0
	for _, e := range i.model.EventsOf(t) {
		if i.state.Receive(e) {
			fired++
		}
	}
	return fired
}

// Update advances the instance by dt seconds: animations play, idle events
// fire when nothing is playing, physics bones swing and locators follow
// the new pose.
func (i *Instance) Update(dt float32, ctx molang.Context) {
	if i.closed {
		return
	}
	i.state.Advance(dt)
	if i.state.Phase() == animation.PhaseIdle {
		i.Trigger(formats.EventIdle)
	}
	i.stepPhysics(dt, ctx)
	i.pose = i.Pose(ctx)
	i.updateLocators()
}

// Pose evaluates the bone matrices for ctx without changing the instance.
// Calling it again with the same context yields the same pose.
func (i *Instance) Pose(ctx molang.Context) model.Pose {
	return model.BuildPose(i.model.Roots, func(b *model.Bone) model.Transform {
		tr := model.RestTransform
		if v, ok := i.state.Sample(b.Name, model.ChannelRotation, ctx); ok {
			tr.Rotation = v
		}
		if v, ok := i.state.Sample(b.Name, model.ChannelPosition, ctx); ok {
			tr.Position = v
		}
		if v, ok := i.state.Sample(b.Name, model.ChannelScale, ctx); ok {
			tr.Scale = v
		}
		if p, ok := i.physics[b.Name]; ok {
			tr.Rotation[0] += p.angle
		}
		return tr
	})
}

// CurrentPose returns the pose computed by the last Update.
func (i *Instance) CurrentPose() model.Pose { return i.pose }

// Quads appends the instance's faces in the current pose to dst, clipped
// against exclusions.
func (i *Instance) Quads(dst []render.Quad, exclusions []math.Box, light math.Light) []render.Quad {
	roots := i.model.Roots
	if len(exclusions) > 0 {
		roots = clip.ClipAll(roots, exclusions)
	}
	return model.AppendQuads(dst, roots, i.pose, i.color, light)
}

// Render draws the instance with tex into target.
func (i *Instance) Render(target render.DrawTarget, tex render.Texture, exclusions []math.Box, light math.Light) {
	quads := i.Quads(nil, exclusions, light)
	if len(quads) == 0 {
		return
	}
	target.Draw(tex, quads)
}

// Bounds returns the model-space box of the instance posed for ctx.
func (i *Instance) Bounds(ctx molang.Context) (math.Box, bool) {
	return model.Bounds(i.model.Roots, i.Pose(ctx))
}

// CollectEvents drains the pending events in arrival order.
func (i *Instance) CollectEvents() []animation.Emitted {
	return i.state.Collect()
}

// Close invalidates the locators and releases the model. Further updates
// are ignored.
func (i *Instance) Close() {
	if i.closed {
		return
	}
	i.closed = true
	i.valid.Store(false)
	refs := i.model.Release()
	i.log.Debug("instance closed", zap.Int32("refs", refs))
}

// Closed reports whether Close was called.
func (i *Instance) Closed() bool { return i.closed }
