// Package animation runs the per-instance animation state machine: it
// decides whether trigger events fire, plays their animations with loop
// counts and priorities, chains on-complete events and queues the effects
// the outside world should react to.
package animation

import (
	gomath "math"

	"github.com/Faultbox/midgard-wearables/internal/engine/model"
	"github.com/Faultbox/midgard-wearables/pkg/formats"
)

// Unbounded is the default duration reported for animations that loop
// forever.
var Unbounded = float32(gomath.Inf(1))

// Lookup resolves an animation name to its length in seconds.
type Lookup func(name string) (length float32, ok bool)

// ModelLookup returns a Lookup over m's animations.
func ModelLookup(m *model.Model) Lookup {
	return func(name string) (float32, bool) {
		a, ok := m.Animation(name)
		if !ok {
			return 0, false
		}
		return a.Length, true
	}
}

// TotalDuration returns how long e keeps its instance busy: the animation
// length times the loop count plus the total of the chained event. An event
// that loops forever (Loops == 0) reports infinite. Missing animations count
// as zero length.
func TotalDuration(e *formats.Event, lookup Lookup, infinite float32) float32 {
	var total float32
	for ; e != nil; e = e.OnComplete {
		if e.Loops == 0 {
			return total + infinite
		}
		length, _ := lookup(e.Name)
		total += length * float32(e.Loops)
	}
	return total
}

// Emitted is an event an instance hands to the outside world. The set of
// variants is closed.
type Emitted interface {
	emitted()
}

// Sound asks the consumer to play a sound effect.
type Sound struct {
	Name   string
	Volume float32
	Pitch  float32
}

// Particle asks the consumer to spawn particles, optionally at a locator.
type Particle struct {
	Name    string
	Locator string
}

// Started reports that an animation began playing.
type Started struct {
	Animation string
	Trigger   formats.EventType
}

// Finished reports that an animation played all its loops.
type Finished struct {
	Animation string
}

// Broadcast asks the owner to forward a trigger to every other cosmetic
// worn by the same avatar.
type Broadcast struct {
	Trigger formats.EventType
}

func (Sound) emitted()     {}
func (Particle) emitted()  {}
func (Started) emitted()   {}
func (Finished) emitted()  {}
func (Broadcast) emitted() {}
