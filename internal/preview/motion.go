package preview

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/midgard-wearables/internal/engine/instance"
	"github.com/Faultbox/midgard-wearables/pkg/molang"
)

// Motion defaults.
const (
	DefaultWalkSpeed = 4.3 // blocks per second
	DefaultAccel     = 20.0
	DefaultIdleAfter = 5.0 // seconds without movement before idle fires
)

// Motion simulates the wearer walking so cosmetics with physics bones have
// something to react to.
type Motion struct {
	Speed     float32
	Accel     float32
	IdleAfter float32

	velocity mgl32.Vec2 // x, z
	life     float32
	still    float32
	idled    bool
}

// NewMotion returns a motion with default tuning.
func NewMotion() *Motion {
	return &Motion{
		Speed:     DefaultWalkSpeed,
		Accel:     DefaultAccel,
		IdleAfter: DefaultIdleAfter,
	}
}

// Step moves the velocity toward the input direction. ax and az are axis
// inputs in [-1, 1]. It reports whether the wearer just became idle.
func (m *Motion) Step(dt, ax, az float32) (becameIdle bool) {
	m.life += dt

	target := mgl32.Vec2{ax, az}
	if l := target.Len(); l > 1 {
		target = target.Mul(1 / l)
	}
	target = target.Mul(m.Speed)

	diff := target.Sub(m.velocity)
	maxDelta := m.Accel * dt
	if l := diff.Len(); l > maxDelta {
		diff = diff.Mul(maxDelta / l)
	}
	m.velocity = m.velocity.Add(diff)

	if ax != 0 || az != 0 {
		m.still = 0
		m.idled = false
		return false
	}
	m.still += dt
	if !m.idled && m.IdleAfter > 0 && m.still >= m.IdleAfter {
		m.idled = true
		return true
	}
	return false
}

// Velocity returns the current horizontal velocity.
func (m *Motion) Velocity() mgl32.Vec2 { return m.velocity }

// Apply writes the motion queries into vars.
func (m *Motion) Apply(vars molang.Vars) {
	vars[instance.QueryVelocityX] = m.velocity[0]
	vars[instance.QueryVelocityZ] = m.velocity[1]
	vars[instance.QueryLifeTime] = m.life
}
