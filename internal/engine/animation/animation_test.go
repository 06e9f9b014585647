package animation

import (
	gomath "math"
	"math/rand/v2"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/midgard-wearables/internal/engine/model"
	"github.com/Faultbox/midgard-wearables/pkg/formats"
	"github.com/Faultbox/midgard-wearables/pkg/molang"
)

// rotating returns an animation that holds bone's X rotation at deg.
func rotating(name string, length float32, bone string, deg float32) *model.Animation {
	v := molang.ConstVec3(mgl32.Vec3{deg, 0, 0})
	return &model.Animation{
		Name:   name,
		Length: length,
		Bones: map[string]formats.BoneChannels{
			bone: {Rotation: formats.Channel{{Time: 0, Pre: v, Post: v}}},
		},
	}
}

func resolver(anims ...*model.Animation) Resolver {
	byName := make(map[string]*model.Animation)
	for _, a := range anims {
		byName[a.Name] = a
	}
	return func(name string) (*model.Animation, bool) {
		a, ok := byName[name]
		return a, ok
	}
}

func event(name string, loops int) *formats.Event {
	return &formats.Event{Type: formats.EventEquip, Name: name, Loops: loops, Probability: 1}
}

func seeded() *rand.Rand { return rand.New(rand.NewPCG(1, 2)) }

func TestTotalDuration(t *testing.T) {
	lengths := map[string]float32{"flap": 2, "sway": 1.5}
	lookup := func(name string) (float32, bool) {
		l, ok := lengths[name]
		return l, ok
	}

	chained := event("flap", 3)
	chained.OnComplete = event("sway", 2)

	forever := event("flap", 1)
	forever.OnComplete = event("sway", 0)

	tests := []struct {
		name     string
		event    *formats.Event
		infinite float32
		want     float32
	}{
		{"single", event("flap", 3), Unbounded, 6},
		{"chained", chained, Unbounded, 9},
		{"missing animation", event("ghost", 4), Unbounded, 0},
		{"custom sentinel", event("sway", 0), 100, 100},
		{"sentinel after chain", forever, 100, 102},
		{"nil", nil, Unbounded, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TotalDuration(tt.event, lookup, tt.infinite); got != tt.want {
				t.Errorf("TotalDuration() = %v, want %v", got, tt.want)
			}
		})
	}

	if got := TotalDuration(event("flap", 0), lookup, Unbounded); !gomath.IsInf(float64(got), 1) {
		t.Errorf("expected unbounded duration, got %v", got)
	}
}

func TestFireSkips(t *testing.T) {
	s := NewState(resolver(rotating("flap", 1, "cape", 0)), seeded())
	e := event("flap", 1)
	e.Skips = 2

	want := []bool{false, false, true, false, false, true}
	for i, w := range want {
		if got := s.Fire(e); got != w {
			t.Errorf("attempt %d fired = %v, want %v", i, got, w)
		}
	}
}

func TestFireProbability(t *testing.T) {
	e := event("flap", 1)
	e.Probability = 0.5
	e.Skips = 1

	s := NewState(resolver(rotating("flap", 1, "cape", 0)), seeded())
	oracle := seeded()

	for i := 0; i < 20; i++ {
		got := s.Fire(e)
		want := false
		if i%2 == 1 {
			// Suppressed attempts do not consume a draw.
			want = oracle.Float32() < 0.5
		}
		if got != want {
			t.Fatalf("attempt %d fired = %v, want %v", i, got, want)
		}
	}

	never := event("flap", 1)
	never.Probability = 0
	if s.Fire(never) {
		t.Error("event with probability 0 fired")
	}
}

func TestFireMissingAnimation(t *testing.T) {
	s := NewState(resolver(), seeded())
	if s.Fire(event("ghost", 1)) {
		t.Error("expected a miss to not fire")
	}
	if s.Phase() != PhaseIdle || len(s.Collect()) != 0 {
		t.Error("a miss must leave the state untouched")
	}
}

func TestLoopsAndCompletion(t *testing.T) {
	s := NewState(resolver(rotating("flap", 1, "cape", 0)), seeded())
	s.Fire(event("flap", 2))

	steps := []struct {
		dt        float32
		wantPhase Phase
	}{
		{0.5, PhasePlaying},
		{1.0, PhasePlaying},
		{0.5, PhaseIdle},
	}
	for i, step := range steps {
		s.Advance(step.dt)
		if got := s.Phase(); got != step.wantPhase {
			t.Fatalf("step %d phase = %v, want %v", i, got, step.wantPhase)
		}
	}

	got := s.Collect()
	if len(got) != 2 {
		t.Fatalf("expected Started and Finished, got %v", got)
	}
	if _, ok := got[0].(Started); !ok {
		t.Errorf("first event = %#v, want Started", got[0])
	}
	if f, ok := got[1].(Finished); !ok || f.Animation != "flap" {
		t.Errorf("second event = %#v, want Finished", got[1])
	}
	if len(s.Collect()) != 0 {
		t.Error("Collect did not empty the queue")
	}
}

func TestInfiniteLoop(t *testing.T) {
	s := NewState(resolver(rotating("sway", 0.5, "cape", 0)), seeded())
	s.Fire(event("sway", 0))
	s.Advance(100)
	if s.Phase() != PhasePlaying {
		t.Errorf("phase = %v, want playing", s.Phase())
	}
}

func TestChaining(t *testing.T) {
	s := NewState(resolver(
		rotating("flap", 1, "cape", 10),
		rotating("sway", 2, "cape", 20),
	), seeded())

	e := event("flap", 1)
	e.OnComplete = event("sway", 0)
	s.Fire(e)

	s.Advance(1)
	if s.Phase() != PhaseChaining {
		t.Fatalf("phase = %v, want chaining", s.Phase())
	}
	if p := s.Playing(); len(p) != 1 || p[0] != "sway" {
		t.Fatalf("playing = %v, want [sway]", p)
	}
	s.Advance(0.1)
	if s.Phase() != PhasePlaying {
		t.Errorf("phase = %v, want playing", s.Phase())
	}
}

func TestTimelineEffects(t *testing.T) {
	anim := rotating("flap", 1, "cape", 0)
	anim.Timeline = []formats.TimelineEntry{
		{Time: 0, Effect: formats.SoundEffect{Name: "whoosh", Volume: 1, Pitch: 1}},
		{Time: 0.5, Effect: formats.ParticleEffect{Name: "sparkle", Locator: "tip"}},
		{Time: 0.7, Effect: formats.UnknownEffect{Type: "hologram"}},
	}
	s := NewState(resolver(anim), seeded())
	s.Fire(event("flap", 2))
	s.Collect()

	steps := []struct {
		dt   float32
		want []Emitted
	}{
		{0.25, []Emitted{Sound{Name: "whoosh", Volume: 1, Pitch: 1}}},
		{0.5, []Emitted{Particle{Name: "sparkle", Locator: "tip"}}},
		{0.5, []Emitted{Sound{Name: "whoosh", Volume: 1, Pitch: 1}}},
		{0.75, []Emitted{Particle{Name: "sparkle", Locator: "tip"}, Finished{Animation: "flap"}}},
	}
	for i, step := range steps {
		s.Advance(step.dt)
		got := s.Collect()
		if len(got) != len(step.want) {
			t.Fatalf("step %d: got %v, want %v", i, got, step.want)
		}
		for j := range got {
			if got[j] != step.want[j] {
				t.Errorf("step %d event %d = %#v, want %#v", i, j, got[j], step.want[j])
			}
		}
	}
}

func TestBroadcast(t *testing.T) {
	s := NewState(resolver(rotating("flap", 1, "cape", 0)), seeded())
	e := event("flap", 1)
	e.Target = formats.TargetAll

	s.Fire(e)
	got := s.Collect()
	if len(got) != 2 || got[1] != (Broadcast{Trigger: formats.EventEquip}) {
		t.Errorf("Fire events = %v, want Started then Broadcast", got)
	}

	s.Receive(e)
	got = s.Collect()
	if len(got) != 1 {
		t.Errorf("Receive events = %v, want only Started", got)
	}
}

func TestSamplePriority(t *testing.T) {
	low := rotating("low", 1, "cape", 10)
	low.Bones["hood"] = formats.BoneChannels{
		Position: formats.Channel{{Pre: molang.ConstVec3(mgl32.Vec3{0, 1, 0}), Post: molang.ConstVec3(mgl32.Vec3{0, 1, 0})}},
	}
	high := rotating("high", 1, "cape", 20)
	tie := rotating("tie", 1, "cape", 30)

	s := NewState(resolver(low, high, tie), seeded())
	hi := event("high", 0)
	hi.Priority = 2
	lo := event("low", 0)
	lo.Priority = 1

	s.Fire(hi)
	s.Fire(lo)

	if v, _ := s.Sample("cape", model.ChannelRotation, nil); v[0] != 20 {
		t.Errorf("cape rotation = %v, want high priority 20", v[0])
	}
	if v, ok := s.Sample("hood", model.ChannelPosition, nil); !ok || v[1] != 1 {
		t.Errorf("hood position = %v, %v; want low priority channel", v, ok)
	}
	if _, ok := s.Sample("hood", model.ChannelRotation, nil); ok {
		t.Error("expected undriven channel to miss")
	}

	tied := event("tie", 0)
	tied.Priority = 2
	s.Fire(tied)
	if v, _ := s.Sample("cape", model.ChannelRotation, nil); v[0] != 30 {
		t.Errorf("cape rotation = %v, want later-started 30", v[0])
	}
}

func TestSampleUsesPlaybackTime(t *testing.T) {
	x := molang.MustParse("query.anim_time * 10 + variable.bias")
	zero := molang.Constant(0)
	v := molang.Vec3{x, zero, zero}
	anim := &model.Animation{
		Name:   "spin",
		Length: 1,
		Bones: map[string]formats.BoneChannels{
			"cape": {Rotation: formats.Channel{{Pre: v, Post: v}}},
		},
	}

	s := NewState(resolver(anim), seeded())
	s.Fire(event("spin", 0))
	s.Advance(0.25)

	ctx := molang.Vars{"variable.bias": 1}
	first, _ := s.Sample("cape", model.ChannelRotation, ctx)
	second, _ := s.Sample("cape", model.ChannelRotation, ctx)
	if first != second {
		t.Errorf("Sample is not repeatable: %v then %v", first, second)
	}
	if first[0] != 3.5 {
		t.Errorf("rotation = %v, want 3.5", first[0])
	}
}

func TestRestartAndStop(t *testing.T) {
	s := NewState(resolver(rotating("flap", 1, "cape", 0)), seeded())
	s.Fire(event("flap", 0))
	s.Fire(event("flap", 0))
	if p := s.Playing(); len(p) != 1 {
		t.Fatalf("playing = %v, want one track", p)
	}
	s.Stop("flap")
	if s.Phase() != PhaseIdle {
		t.Errorf("phase = %v, want idle", s.Phase())
	}
}

func TestSetResolverKeepsProgress(t *testing.T) {
	s := NewState(resolver(rotating("flap", 1, "cape", 10), rotating("sway", 1, "cape", 0)), seeded())
	s.Fire(event("flap", 0))
	s.Fire(event("sway", 0))
	s.Advance(0.5)

	s.SetResolver(resolver(rotating("flap", 1, "cape", 40)))
	if p := s.Playing(); len(p) != 1 || p[0] != "flap" {
		t.Fatalf("playing = %v, want [flap]", p)
	}
	if v, _ := s.Sample("cape", model.ChannelRotation, nil); v[0] != 40 {
		t.Errorf("rotation = %v, want new variant's 40", v[0])
	}
}
