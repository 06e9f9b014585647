package instance

import (
	gomath "math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/midgard-wearables/internal/engine/model"
	"github.com/Faultbox/midgard-wearables/pkg/molang"
)

// Pendulum tuning. Angles are degrees about the bone's X axis; positive
// swings the bone's lower end backwards (+Z).
const (
	SwingPerSpeed = 6.0  // degrees of target swing per unit of horizontal speed
	MaxSwing      = 80.0 // degrees
	Stiffness     = 40.0 // spring pull towards the target swing
	Damping       = 8.0  // velocity decay
	TipRadius     = 0.5  // collision radius of the swinging end

	// maxStep bounds one integration step so long frames stay stable.
	maxStep = float32(1.0 / 30)
)

// Query names the physics step reads from the context.
const (
	QueryVelocityX = "query.velocity_x"
	QueryVelocityZ = "query.velocity_z"
)

// QueryLifeTime is the seconds since the wearer appeared. Hosts set it;
// animation expressions read it.
const QueryLifeTime = "query.life_time"

// pendulum is the swing state of one physics bone.
type pendulum struct {
	pivot    mgl32.Vec3
	tip      mgl32.Vec3 // lower end at rest, relative to model space
	angle    float32
	velocity float32
}

// newPendulum hangs the pendulum from the bone pivot to the lowest point of
// its cubes. A bone without cubes swings a zero-length arm.
func newPendulum(b *model.Bone) *pendulum {
	p := &pendulum{pivot: b.Pivot, tip: b.Pivot}
	first := true
	for _, c := range b.Cubes {
		bottom := c.Box.Center()
		bottom[1] = c.Box.Max[1]
		if first || bottom[1] > p.tip[1] {
			p.tip = bottom
			first = false
		}
	}
	return p
}

// tipAt returns the swinging end rotated by angle degrees about the pivot.
func (p *pendulum) tipAt(angle float32) mgl32.Vec3 {
	rot := mgl32.HomogRotate3DX(mgl32.DegToRad(angle))
	return mgl32.TransformCoordinate(p.tip.Sub(p.pivot), rot).Add(p.pivot)
}

// targetSwing converts the avatar's horizontal speed into a resting swing.
func targetSwing(ctx molang.Context) float32 {
	var vx, vz float32
	if ctx != nil {
		vx, _ = ctx.Lookup(QueryVelocityX)
		vz, _ = ctx.Lookup(QueryVelocityZ)
	}
	speed := float32(gomath.Hypot(float64(vx), float64(vz)))
	return mgl32.Clamp(speed*SwingPerSpeed, 0, MaxSwing)
}

// stepPhysics integrates every pendulum by dt. A swing whose end would hit
// the collision provider stops at the contact point and loses its velocity.
func (i *Instance) stepPhysics(dt float32, ctx molang.Context) {
	if len(i.physics) == 0 || dt <= 0 {
		return
	}
	target := targetSwing(ctx)

	for remaining := dt; remaining > 0; remaining -= maxStep {
		step := min(remaining, maxStep)
		for _, p := range i.physics {
			p.step(step, target, i)
		}
	}
}

func (p *pendulum) step(dt, target float32, i *Instance) {
	accel := Stiffness*(target-p.angle) - Damping*p.velocity
	p.velocity += accel * dt
	next := mgl32.Clamp(p.angle+p.velocity*dt, -MaxSwing, MaxSwing)

	from := p.tipAt(p.angle)
	move := p.tipAt(next).Sub(from)
	if move.Len() == 0 {
		p.angle = next
		return
	}
	if hit, ok := i.collision.Query(from, TipRadius, move); ok {
		frac := hit.Allowed.Len() / move.Len()
		next = p.angle + (next-p.angle)*frac
		p.velocity = 0
	}
	p.angle = next
}
