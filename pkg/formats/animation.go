package formats

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/Faultbox/midgard-wearables/pkg/molang"
)

// Animation format errors.
var (
	ErrInvalidAnimation = errors.New("invalid animation")
	ErrInvalidKeyframe  = errors.New("invalid keyframe")
	ErrInvalidTrigger   = errors.New("invalid trigger")
)

// Keyframe is one sample of a bone channel. Pre is used when interpolating
// towards this keyframe and Post when leaving it; they are equal unless the
// asset declares a discontinuity.
type Keyframe struct {
	Time float32
	Pre  molang.Vec3
	Post molang.Vec3
}

// Channel is a time-sorted keyframe list. A nil channel is absent.
type Channel []Keyframe

// BoneChannels holds the animated channels of one bone.
type BoneChannels struct {
	Rotation Channel // degrees
	Position Channel
	Scale    Channel
}

// Effect is a timeline entry payload. The set of variants is closed except
// for UnknownEffect, which stands in for types this build does not know.
type Effect interface {
	effect()
}

// SoundEffect asks the consumer to play a sound.
type SoundEffect struct {
	Name   string
	Volume float32
	Pitch  float32
}

// ParticleEffect asks the consumer to spawn particles, optionally at a locator.
type ParticleEffect struct {
	Name    string
	Locator string
}

// UnknownEffect is an effect whose type is not recognised. It decodes so the
// rest of the asset stays usable, and is never emitted at runtime.
type UnknownEffect struct {
	Type string
	Raw  string
}

func (SoundEffect) effect()    {}
func (ParticleEffect) effect() {}
func (UnknownEffect) effect()  {}

// TimelineEntry schedules an effect at a time within an animation.
type TimelineEntry struct {
	Time   float32
	Effect Effect
}

// AnimationDef is a decoded animation definition.
type AnimationDef struct {
	Name     string
	Length   float32 // seconds
	Bones    map[string]BoneChannels
	Timeline []TimelineEntry // sorted by Time
}

// EventType classifies what triggers an animation event.
type EventType int

const (
	EventUnknown EventType = iota
	EventEquip
	EventIdle
	EventEmote
	EventInteract
	EventUnequip
)

var eventTypeNames = map[string]EventType{
	"equip":    EventEquip,
	"idle":     EventIdle,
	"emote":    EventEmote,
	"interact": EventInteract,
	"unequip":  EventUnequip,
}

// String returns the event type name.
func (t EventType) String() string {
	for name, v := range eventTypeNames {
		if v == t {
			return name
		}
	}
	return "unknown"
}

// ParseEventType maps a name to an EventType; unknown names yield EventUnknown.
func ParseEventType(name string) EventType {
	return eventTypeNames[foldKey(name)]
}

// Target says which cosmetics an event applies to.
type Target int

const (
	TargetSelf Target = iota
	TargetAll
	TargetUnknown
)

// String returns the target name.
func (t Target) String() string {
	switch t {
	case TargetSelf:
		return "self"
	case TargetAll:
		return "all"
	}
	return "unknown"
}

// ParseTarget maps a name to a Target. An empty name means TargetSelf.
func ParseTarget(name string) Target {
	switch foldKey(name) {
	case "", "self":
		return TargetSelf
	case "all":
		return TargetAll
	}
	return TargetUnknown
}

// Event is an animation event definition: when an event of Type is fired,
// the animation Name is played Loops times (0 loops forever) unless
// suppressed by Probability or Skips.
type Event struct {
	Type        EventType
	Target      Target
	Name        string
	OnComplete  *Event
	Probability float32
	Skips       int
	Loops       int
	Priority    int
}

// AnimationFile is a decoded animation asset.
type AnimationFile struct {
	FormatVersion string
	Animations    []AnimationDef
	Events        []*Event
}

// ParseAnimations decodes an animation asset. Malformed expressions fail the
// whole file.
func ParseAnimations(data []byte) (*AnimationFile, error) {
	if !gjson.ValidBytes(data) {
		return nil, ErrInvalidJSON
	}
	root := gjson.ParseBytes(data)

	f := &AnimationFile{FormatVersion: root.Get("format_version").String()}

	var err error
	root.Get("animations").ForEach(func(key, value gjson.Result) bool {
		var def AnimationDef
		def, err = parseAnimationDef(key.String(), value)
		if err != nil {
			err = fmt.Errorf("animation %q: %w", key.String(), err)
			return false
		}
		f.Animations = append(f.Animations, def)
		return true
	})
	if err != nil {
		return nil, err
	}

	for i, t := range root.Get("triggers").Array() {
		ev, err := parseEvent(t)
		if err != nil {
			return nil, fmt.Errorf("trigger %d: %w", i, err)
		}
		f.Events = append(f.Events, ev)
	}
	return f, nil
}

// ParseAnimationsFile decodes an animation asset from disk.
func ParseAnimationsFile(path string) (*AnimationFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading animation file: %w", err)
	}
	return ParseAnimations(data)
}

func parseAnimationDef(name string, a gjson.Result) (AnimationDef, error) {
	def := AnimationDef{
		Name:   name,
		Length: float32(a.Get("animation_length").Float()),
		Bones:  make(map[string]BoneChannels),
	}
	if def.Length < 0 {
		return AnimationDef{}, fmt.Errorf("%w: negative length %v", ErrInvalidAnimation, def.Length)
	}

	var err error
	a.Get("bones").ForEach(func(key, value gjson.Result) bool {
		var ch BoneChannels
		if ch.Rotation, err = parseChannel(value.Get("rotation")); err != nil {
			err = fmt.Errorf("%s rotation: %w", key.String(), err)
			return false
		}
		if ch.Position, err = parseChannel(value.Get("position")); err != nil {
			err = fmt.Errorf("%s position: %w", key.String(), err)
			return false
		}
		if ch.Scale, err = parseChannel(value.Get("scale")); err != nil {
			err = fmt.Errorf("%s scale: %w", key.String(), err)
			return false
		}
		def.Bones[key.String()] = ch
		return true
	})
	if err != nil {
		return AnimationDef{}, err
	}

	a.Get("timeline").ForEach(func(key, value gjson.Result) bool {
		var at float64
		at, err = strconv.ParseFloat(key.String(), 32)
		if err != nil {
			err = fmt.Errorf("%w: timeline time %q", ErrInvalidAnimation, key.String())
			return false
		}
		entries := value.Array()
		if value.IsObject() {
			entries = []gjson.Result{value}
		}
		for _, e := range entries {
			def.Timeline = append(def.Timeline, TimelineEntry{Time: float32(at), Effect: parseEffect(e)})
		}
		return true
	})
	if err != nil {
		return AnimationDef{}, err
	}
	sort.SliceStable(def.Timeline, func(i, j int) bool { return def.Timeline[i].Time < def.Timeline[j].Time })

	// The length defaults to the last keyframe or timeline entry.
	if def.Length == 0 {
		def.Length = def.lastTime()
	}
	return def, nil
}

func (d *AnimationDef) lastTime() float32 {
	var last float32
	for _, ch := range d.Bones {
		for _, c := range []Channel{ch.Rotation, ch.Position, ch.Scale} {
			if n := len(c); n > 0 && c[n-1].Time > last {
				last = c[n-1].Time
			}
		}
	}
	if n := len(d.Timeline); n > 0 && d.Timeline[n-1].Time > last {
		last = d.Timeline[n-1].Time
	}
	return last
}

// parseChannel accepts a bare vector (a constant channel) or an object of
// time keys mapping to vectors or {"pre": ..., "post": ...} pairs.
func parseChannel(r gjson.Result) (Channel, error) {
	if !r.Exists() {
		return nil, nil
	}
	if !r.IsObject() {
		v, err := molang.ParseVec3(r)
		if err != nil {
			return nil, err
		}
		return Channel{{Time: 0, Pre: v, Post: v}}, nil
	}

	var ch Channel
	var err error
	r.ForEach(func(key, value gjson.Result) bool {
		var at float64
		at, err = strconv.ParseFloat(key.String(), 32)
		if err != nil {
			err = fmt.Errorf("%w: time %q", ErrInvalidKeyframe, key.String())
			return false
		}
		kf := Keyframe{Time: float32(at)}
		if value.IsObject() {
			pre, post := value.Get("pre"), value.Get("post")
			if !pre.Exists() {
				pre = post
			}
			if !post.Exists() {
				post = pre
			}
			if kf.Pre, err = molang.ParseVec3(pre); err != nil {
				return false
			}
			if kf.Post, err = molang.ParseVec3(post); err != nil {
				return false
			}
		} else {
			if kf.Pre, err = molang.ParseVec3(value); err != nil {
				return false
			}
			kf.Post = kf.Pre
		}
		ch = append(ch, kf)
		return true
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(ch, func(i, j int) bool { return ch[i].Time < ch[j].Time })
	return ch, nil
}

func parseEffect(e gjson.Result) Effect {
	switch foldKey(e.Get("type").String()) {
	case "sound":
		s := SoundEffect{Name: e.Get("effect").String(), Volume: 1, Pitch: 1}
		if v := e.Get("volume"); v.Exists() {
			s.Volume = float32(v.Float())
		}
		if p := e.Get("pitch"); p.Exists() {
			s.Pitch = float32(p.Float())
		}
		return s
	case "particle":
		return ParticleEffect{Name: e.Get("effect").String(), Locator: e.Get("locator").String()}
	}
	return UnknownEffect{Type: e.Get("type").String(), Raw: e.Raw}
}

func parseEvent(t gjson.Result) (*Event, error) {
	if !t.IsObject() {
		return nil, fmt.Errorf("%w: not an object", ErrInvalidTrigger)
	}
	ev := &Event{
		Type:        ParseEventType(t.Get("type").String()),
		Target:      ParseTarget(t.Get("target").String()),
		Name:        t.Get("name").String(),
		Probability: 1,
		Skips:       int(t.Get("skips").Int()),
		Loops:       1,
		Priority:    int(t.Get("priority").Int()),
	}
	if p := t.Get("probability"); p.Exists() {
		ev.Probability = float32(p.Float())
	}
	if l := t.Get("loops"); l.Exists() {
		ev.Loops = int(l.Int())
	}
	if ev.Name == "" {
		return nil, fmt.Errorf("%w: missing animation name", ErrInvalidTrigger)
	}
	if ev.Skips < 0 || ev.Loops < 0 {
		return nil, fmt.Errorf("%w: negative skips or loops", ErrInvalidTrigger)
	}
	if oc := t.Get("on_complete"); oc.Exists() {
		next, err := parseEvent(oc)
		if err != nil {
			return nil, fmt.Errorf("on_complete: %w", err)
		}
		// A chained event inherits the parent's type unless it names its own.
		if !oc.Get("type").Exists() {
			next.Type = ev.Type
		}
		ev.OnComplete = next
	}
	return ev, nil
}
