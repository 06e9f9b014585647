package animation

import (
	"math/rand/v2"
	"sync"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/midgard-wearables/internal/engine/model"
	"github.com/Faultbox/midgard-wearables/pkg/formats"
	"github.com/Faultbox/midgard-wearables/pkg/molang"
)

// Phase is the coarse state of a State.
type Phase int

const (
	// PhaseIdle: nothing is playing.
	PhaseIdle Phase = iota
	// PhasePlaying: at least one animation is playing.
	PhasePlaying
	// PhaseChaining: the last Advance finished an animation and moved on
	// to its on-complete event.
	PhaseChaining
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhasePlaying:
		return "playing"
	case PhaseChaining:
		return "chaining"
	}
	return "unknown"
}

// Resolver finds an animation definition by name.
type Resolver func(name string) (*model.Animation, bool)

type track struct {
	event     *formats.Event
	anim      *model.Animation
	elapsed   float32 // seconds into the current loop
	loop      int     // completed loops
	loopsLeft int     // 0 plays forever
	seq       uint64  // start order, later wins priority ties
}

// State is the animation state of one instance. Apart from Collect, its
// methods must be called from one goroutine.
type State struct {
	resolve  Resolver
	rng      *rand.Rand
	tracks   []*track
	attempts map[*formats.Event]int
	seq      uint64
	chained  bool

	mu      sync.Mutex
	pending []Emitted
}

// NewState returns an idle state. rng drives event probabilities; nil uses
// a randomly seeded source.
func NewState(resolve Resolver, rng *rand.Rand) *State {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &State{
		resolve:  resolve,
		rng:      rng,
		attempts: make(map[*formats.Event]int),
	}
}

// SetResolver swaps the animation source. Playing tracks whose animation no
// longer exists are dropped; the rest keep their progress.
func (s *State) SetResolver(resolve Resolver) {
	s.resolve = resolve
	kept := s.tracks[:0]
	for _, tr := range s.tracks {
		a, ok := resolve(tr.anim.Name)
		if !ok {
			continue
		}
		tr.anim = a
		kept = append(kept, tr)
	}
	for i := len(kept); i < len(s.tracks); i++ {
		s.tracks[i] = nil
	}
	s.tracks = kept
}

// Phase returns the current phase.
func (s *State) Phase() Phase {
	switch {
	case len(s.tracks) == 0:
		return PhaseIdle
	case s.chained:
		return PhaseChaining
	}
	return PhasePlaying
}

// Playing returns the names of the playing animations in start order.
func (s *State) Playing() []string {
	names := make([]string, len(s.tracks))
	for i, tr := range s.tracks {
		names[i] = tr.anim.Name
	}
	return names
}

// Fire attempts to trigger e. The first Skips attempts are suppressed; after
// that each attempt resets the skip counter and passes with probability
// Probability. A passing event starts its animation, restarting it if it is
// already playing. It reports whether an animation started.
func (s *State) Fire(e *formats.Event) bool {
	return s.fire(e, true)
}

// Receive is Fire for a trigger forwarded from another cosmetic: it never
// broadcasts again.
func (s *State) Receive(e *formats.Event) bool {
	return s.fire(e, false)
}

func (s *State) fire(e *formats.Event, broadcast bool) bool {
	if e == nil || !s.attempt(e) {
		return false
	}
	a, ok := s.resolve(e.Name)
	if !ok {
		return false
	}

	for i, tr := range s.tracks {
		if tr.anim.Name == a.Name {
			s.tracks = append(s.tracks[:i], s.tracks[i+1:]...)
			break
		}
	}
	s.seq++
	s.tracks = append(s.tracks, &track{event: e, anim: a, loopsLeft: e.Loops, seq: s.seq})

	s.emit(Started{Animation: a.Name, Trigger: e.Type})
	if broadcast && e.Target == formats.TargetAll {
		s.emit(Broadcast{Trigger: e.Type})
	}
	return true
}

func (s *State) attempt(e *formats.Event) bool {
	if n := s.attempts[e]; n < e.Skips {
		s.attempts[e] = n + 1
		return false
	}
	s.attempts[e] = 0

	switch {
	case e.Probability >= 1:
		return true
	case e.Probability <= 0:
		return false
	}
	return s.rng.Float32() < e.Probability
}

// Stop removes every track playing the named animation.
func (s *State) Stop(name string) {
	kept := s.tracks[:0]
	for _, tr := range s.tracks {
		if tr.anim.Name != name {
			kept = append(kept, tr)
		}
	}
	s.tracks = kept
}

// Advance moves every track forward by dt seconds, queueing timeline effects
// that playback crosses, finishing tracks that run out of loops and chaining
// their on-complete events.
func (s *State) Advance(dt float32) {
	s.chained = false
	if dt < 0 {
		dt = 0
	}

	var finished []*track
	kept := s.tracks[:0]
	for _, tr := range s.tracks {
		if s.advanceTrack(tr, dt) {
			finished = append(finished, tr)
			continue
		}
		kept = append(kept, tr)
	}
	s.tracks = kept

	for _, tr := range finished {
		s.emit(Finished{Animation: tr.anim.Name})
		if next := tr.event.OnComplete; next != nil {
			if s.Fire(next) {
				s.chained = true
			}
		}
	}
}

// advanceTrack reports whether the track played its last loop.
func (s *State) advanceTrack(tr *track, dt float32) bool {
	length := tr.anim.Length
	if length <= 0 {
		// Zero-length animations fire their effects once; finite loops
		// collapse into a single pass.
		if tr.loop == 0 {
			s.emitTimeline(tr, 0, 0, true)
			tr.loop = 1
		}
		return tr.loopsLeft != 0
	}

	t := tr.elapsed + dt
	for t >= length {
		s.emitTimeline(tr, tr.elapsed, length, true)
		t -= length
		tr.elapsed = 0
		tr.loop++
		if tr.loopsLeft > 0 {
			tr.loopsLeft--
			if tr.loopsLeft == 0 {
				tr.elapsed = length
				return true
			}
		}
	}
	s.emitTimeline(tr, tr.elapsed, t, false)
	tr.elapsed = t
	return false
}

// emitTimeline queues effects scheduled in [from, to), or [from, to] when
// inclusive is set. Unknown effects are never emitted.
func (s *State) emitTimeline(tr *track, from, to float32, inclusive bool) {
	for _, entry := range tr.anim.Timeline {
		if entry.Time < from || entry.Time > to || (!inclusive && entry.Time == to) {
			continue
		}
		switch fx := entry.Effect.(type) {
		case formats.SoundEffect:
			s.emit(Sound{Name: fx.Name, Volume: fx.Volume, Pitch: fx.Pitch})
		case formats.ParticleEffect:
			s.emit(Particle{Name: fx.Name, Locator: fx.Locator})
		}
	}
}

func (s *State) emit(e Emitted) {
	s.mu.Lock()
	s.pending = append(s.pending, e)
	s.mu.Unlock()
}

// Collect returns the queued events in arrival order and empties the queue.
// Each event is returned by exactly one Collect call.
func (s *State) Collect() []Emitted {
	s.mu.Lock()
	out := s.pending
	s.pending = nil
	s.mu.Unlock()
	return out
}

// Sample evaluates one channel of bone. When several playing animations
// drive the channel the highest priority wins and, among equals, the most
// recently started. ok is false when nothing drives the channel. Sample does
// not modify the state.
func (s *State) Sample(bone string, kind model.ChannelKind, ctx molang.Context) (v mgl32.Vec3, ok bool) {
	var best *track
	for _, tr := range s.tracks {
		if !tr.anim.HasChannel(bone, kind) {
			continue
		}
		if best == nil || tr.event.Priority > best.event.Priority ||
			(tr.event.Priority == best.event.Priority && tr.seq > best.seq) {
			best = tr
		}
	}
	if best == nil {
		return mgl32.Vec3{}, false
	}
	return best.anim.Sample(bone, kind, best.elapsed, molang.Layered{trackContext{best}, ctx})
}

// trackContext exposes a track's playback position to expressions.
type trackContext struct {
	tr *track
}

func (c trackContext) Lookup(name string) (float32, bool) {
	switch name {
	case "query.anim_time":
		return c.tr.elapsed, true
	case "query.anim_length":
		return c.tr.anim.Length, true
	case "query.anim_loop":
		return float32(c.tr.loop), true
	}
	return 0, false
}
