// Package wearables composes every cosmetic worn by one avatar: it keeps
// one instance per equipped cosmetic, orders opaque before translucent
// geometry, maintains the shared translucent atlas and drives the two-pass
// render.
package wearables

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-wearables/internal/engine/animation"
	"github.com/Faultbox/midgard-wearables/internal/engine/collision"
	"github.com/Faultbox/midgard-wearables/internal/engine/instance"
	"github.com/Faultbox/midgard-wearables/internal/engine/model"
	"github.com/Faultbox/midgard-wearables/internal/engine/render"
	"github.com/Faultbox/midgard-wearables/internal/logger"
	"github.com/Faultbox/midgard-wearables/pkg/formats"
	"github.com/Faultbox/midgard-wearables/pkg/math"
	"github.com/Faultbox/midgard-wearables/pkg/molang"
)

// Errors returned by UpdateState.
var (
	ErrDuplicateSlot = errors.New("slot worn twice")
	ErrNoModel       = errors.New("cosmetic has no model")
	ErrNoTexture     = errors.New("cosmetic has no texture")
)

// Cosmetic is one equipped cosmetic as the caller describes it.
type Cosmetic struct {
	Slot    string
	ID      string
	Model   *model.Model
	Texture render.Texture
	// Offset moves the cosmetic's skin mask, in skin pixels.
	Offset [3]int
}

// Event is an emitted animation event tagged with the slot that produced it.
type Event struct {
	Slot  string
	Event animation.Emitted
}

// Options configures a Manager. The zero value is usable.
type Options struct {
	// AtlasMaxSize limits atlas edges in pixels; 0 is unlimited.
	AtlasMaxSize int
	// SortTranslucent orders translucent quads back to front.
	SortTranslucent bool
	// DisableClipping skips the exclusion box clipper.
	DisableClipping bool
	// Collision is handed to every instance.
	Collision collision.Provider
	// Seed seeds each instance's event randomness; 0 picks random seeds.
	Seed uint64
}

type entry struct {
	cosmetic Cosmetic
	inst     *instance.Instance
}

// Manager owns the instances worn by one avatar. It is not safe for
// concurrent use; the caller serialises every call, including those that
// reach the render backend.
type Manager struct {
	backend render.Backend
	opts    Options

	entries []*entry          // opaque first, then translucent
	bySlot  map[string]*entry // same entries keyed by slot
	worn    []Cosmetic        // last requested set, in request order

	atlas    *Atlas
	atlasKey string

	pending []Event
	log     *zap.Logger
}

// NewManager returns a manager with nothing worn.
func NewManager(backend render.Backend, opts Options) *Manager {
	return &Manager{
		backend: backend,
		opts:    opts,
		bySlot:  make(map[string]*entry),
		log:     logger.Named("wearables"),
	}
}

func (m *Manager) instanceOptions(c Cosmetic) instance.Options {
	opts := instance.Options{Collision: m.opts.Collision}
	if m.opts.Seed != 0 {
		opts.Rand = rand.New(rand.NewPCG(m.opts.Seed, seedOf(c.Slot)))
	}
	return opts
}

// seedOf derives a stable per-slot stream (FNV-1a).
func seedOf(s string) uint64 {
	h := uint64(14695981039346656037)
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= 1099511628211
	}
	return h
}

// UpdateState reconciles the worn set with worn. A slot that keeps the same
// cosmetic keeps its instance, switching model if the variant changed; any
// other cosmetic gets a new instance. Instances no longer worn are
// invalidated, fire their unequip events and are closed. An invalid set is
// rejected without changes; an atlas failure is reported after the new set
// was applied, and its translucent cosmetics then draw in separate batches.
func (m *Manager) UpdateState(worn []Cosmetic) error {
	seen := make(map[string]bool, len(worn))
	for _, c := range worn {
		switch {
		case seen[c.Slot]:
			return fmt.Errorf("%w: %s", ErrDuplicateSlot, c.Slot)
		case c.Model == nil:
			return fmt.Errorf("%w: %s/%s", ErrNoModel, c.Slot, c.ID)
		case c.Texture == nil:
			return fmt.Errorf("%w: %s/%s", ErrNoTexture, c.Slot, c.ID)
		}
		seen[c.Slot] = true
	}

	var opaque, translucent []*entry
	next := make(map[string]*entry, len(worn))
	for _, c := range worn {
		e, ok := m.bySlot[c.Slot]
		if ok && e.cosmetic.ID == c.ID {
			e.inst.SwitchModel(c.Model)
			e.cosmetic = c
		} else {
			e = &entry{cosmetic: c, inst: instance.New(c.Model, m.instanceOptions(c))}
			m.log.Debug("cosmetic equipped", zap.String("slot", c.Slot), zap.String("id", c.ID))
		}
		next[c.Slot] = e
		if c.Model.Translucent {
			translucent = append(translucent, e)
		} else {
			opaque = append(opaque, e)
		}
	}

	var farewells []Event
	for _, e := range m.entries {
		if cur, ok := next[e.cosmetic.Slot]; ok && cur == e {
			continue
		}
		farewells = append(farewells, m.retire(e)...)
	}

	m.entries = append(opaque, translucent...)
	m.bySlot = next
	m.worn = append(m.worn[:0], worn...)
	m.pump(farewells...)

	return m.refreshAtlas(translucent)
}

// retire fires the unequip events of a removed instance, then invalidates
// and closes it. Its events are queued for the next CollectEvents; its
// broadcasts are returned for forwarding to the instances that remain.
func (m *Manager) retire(e *entry) (broadcasts []Event) {
	e.inst.Trigger(formats.EventUnequip)
	for _, ev := range e.inst.CollectEvents() {
		tagged := Event{Slot: e.cosmetic.Slot, Event: ev}
		if _, ok := ev.(animation.Broadcast); ok {
			broadcasts = append(broadcasts, tagged)
			continue
		}
		m.pending = append(m.pending, tagged)
	}
	e.inst.Close()
	m.log.Debug("cosmetic unequipped", zap.String("slot", e.cosmetic.Slot), zap.String("id", e.cosmetic.ID))
	return broadcasts
}

// refreshAtlas tears the atlas down when the set of distinct translucent
// textures changed and builds a new one when more than one remains.
func (m *Manager) refreshAtlas(translucent []*entry) error {
	var textures []render.Texture
	ids := make(map[uint32]bool)
	for _, e := range translucent {
		t := e.cosmetic.Texture
		if ids[t.ID()] {
			continue
		}
		ids[t.ID()] = true
		textures = append(textures, t)
	}

	key := ""
	if len(textures) > 0 {
		key = textureKey(textures)
	}
	if key == m.atlasKey && (m.atlas != nil || len(textures) < 2) {
		return nil
	}
	m.destroyAtlas()
	m.atlasKey = key

	if len(textures) < 2 {
		return nil
	}
	atlas, err := BuildAtlas(m.backend, textures, m.opts.AtlasMaxSize)
	if err != nil {
		m.atlasKey = ""
		return fmt.Errorf("translucent atlas: %w", err)
	}
	m.atlas = atlas
	m.log.Debug("atlas built",
		zap.Int("textures", atlas.Len()),
		zap.Int("width", atlas.Width),
		zap.Int("height", atlas.Height))
	return nil
}

func (m *Manager) destroyAtlas() {
	if m.atlas == nil {
		return
	}
	m.backend.DeleteTexture(m.atlas.Texture)
	m.log.Debug("atlas torn down", zap.Int("textures", m.atlas.Len()))
	m.atlas = nil
}

// ResetModel unequips the cosmetic in slot, as if UpdateState was called
// without it.
func (m *Manager) ResetModel(slot string) error {
	worn := make([]Cosmetic, 0, len(m.worn))
	for _, c := range m.worn {
		if c.Slot != slot {
			worn = append(worn, c)
		}
	}
	return m.UpdateState(worn)
}

// Update advances every instance by dt seconds.
func (m *Manager) Update(dt float32, ctx molang.Context) {
	for _, e := range m.entries {
		e.inst.Update(dt, ctx)
	}
	m.pump()
}

// Trigger fires t on every worn instance, e.g. an emote or an interaction.
func (m *Manager) Trigger(t formats.EventType) {
	for _, e := range m.entries {
		e.inst.Trigger(t)
	}
	m.pump()
}

// pump moves instance events into the manager queue and forwards
// broadcasts, including the given ones, to every other worn instance.
// Receive never broadcasts, so one forwarding round is enough.
func (m *Manager) pump(broadcasts ...Event) {
	for _, e := range m.entries {
		for _, ev := range e.inst.CollectEvents() {
			if _, ok := ev.(animation.Broadcast); ok {
				broadcasts = append(broadcasts, Event{Slot: e.cosmetic.Slot, Event: ev})
				continue
			}
			m.pending = append(m.pending, Event{Slot: e.cosmetic.Slot, Event: ev})
		}
	}
	if len(broadcasts) == 0 {
		return
	}
	for _, b := range broadcasts {
		trigger := b.Event.(animation.Broadcast).Trigger
		for _, e := range m.entries {
			if e.cosmetic.Slot != b.Slot {
				e.inst.Receive(trigger)
			}
		}
	}
	for _, e := range m.entries {
		for _, ev := range e.inst.CollectEvents() {
			m.pending = append(m.pending, Event{Slot: e.cosmetic.Slot, Event: ev})
		}
	}
}

// CollectEvents hands every pending event to consumer in arrival order and
// empties the queue.
func (m *Manager) CollectEvents(consumer func(Event)) {
	pending := m.pending
	m.pending = nil
	for _, ev := range pending {
		consumer(ev)
	}
}

// exclusionsFor returns the boxes e must avoid: the caller's boxes plus
// those declared by every other worn model.
func (m *Manager) exclusionsFor(e *entry, caller []math.Box) []math.Box {
	if m.opts.DisableClipping {
		return nil
	}
	boxes := append([]math.Box(nil), caller...)
	for _, o := range m.entries {
		if o != e {
			boxes = append(boxes, o.cosmetic.Model.Exclusions...)
		}
	}
	return boxes
}

// Render draws every worn cosmetic into target in two passes: opaque
// instances directly, then all translucent instances as one batch, through
// the atlas when one exists.
func (m *Manager) Render(target render.DrawTarget, view mgl32.Mat4, exclusions []math.Box, light math.Light) {
	translucent := &sortingTarget{
		dst:       target,
		view:      view,
		sortQuads: m.opts.SortTranslucent,
		atlas:     m.atlas,
	}
	for _, e := range m.entries {
		boxes := m.exclusionsFor(e, exclusions)
		if e.cosmetic.Model.Translucent {
			e.inst.Render(translucent, e.cosmetic.Texture, boxes, light)
			continue
		}
		e.inst.Render(target, e.cosmetic.Texture, boxes, light)
	}
	translucent.flush()
}

// Bounds returns the box enclosing every worn cosmetic posed for ctx. It
// does not advance any state.
func (m *Manager) Bounds(ctx molang.Context) (math.Box, bool) {
	var (
		box   math.Box
		found bool
	)
	for _, e := range m.entries {
		b, ok := e.inst.Bounds(ctx)
		if !ok {
			continue
		}
		if !found {
			box, found = b, true
			continue
		}
		box = box.Union(b)
	}
	return box, found
}

// Instance returns the instance worn in slot.
func (m *Manager) Instance(slot string) (*instance.Instance, bool) {
	e, ok := m.bySlot[slot]
	if !ok {
		return nil, false
	}
	return e.inst, true
}

// Slots returns the worn slots in render order.
func (m *Manager) Slots() []string {
	out := make([]string, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.cosmetic.Slot
	}
	return out
}

// Len returns the number of worn cosmetics.
func (m *Manager) Len() int { return len(m.entries) }

// Atlas returns the current translucent atlas, or nil.
func (m *Manager) Atlas() *Atlas { return m.atlas }

// Close unequips everything and releases the atlas.
func (m *Manager) Close() {
	for _, e := range m.entries {
		e.inst.Close()
	}
	m.entries = nil
	m.bySlot = make(map[string]*entry)
	m.worn = nil
	m.destroyAtlas()
	m.atlasKey = ""
}
