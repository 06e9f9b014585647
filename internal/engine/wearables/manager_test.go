package wearables

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/midgard-wearables/internal/engine/animation"
	"github.com/Faultbox/midgard-wearables/internal/engine/instance"
	"github.com/Faultbox/midgard-wearables/internal/engine/model"
	"github.com/Faultbox/midgard-wearables/internal/engine/render"
	"github.com/Faultbox/midgard-wearables/internal/engine/render/soft"
	"github.com/Faultbox/midgard-wearables/internal/engine/skinmask"
	"github.com/Faultbox/midgard-wearables/pkg/formats"
	"github.com/Faultbox/midgard-wearables/pkg/math"
)

const cosmeticGeometry = `{
  "geometry": {
    "identifier": %q,
    "texture_width": 32, "texture_height": 16,
    "translucent": %t,
    "exclusions": %s,
    "bones": [
      {"name": "root", "pivot": [0, 0, 0],
       "locators": {"anchor": [0, 0, 0]},
       "cubes": [{"origin": [%d, 0, 0], "size": [4, 4, 4], "uv": [0, 0]}]}
    ]
  }
}`

const cosmeticAnimations = `{
  "animations": {
    "shine": {"animation_length": 1.0, "bones": {"root": {"scale": [1]}}},
    "fade": {"animation_length": 0.5, "bones": {"root": {"scale": [1]}}}
  },
  "triggers": [
    {"type": "equip", "name": "shine", "target": %q},
    {"type": "unequip", "name": "fade"}
  ]
}`

type fixture struct {
	t       *testing.T
	backend *soft.Backend
}

func newFixture(t *testing.T) *fixture {
	return &fixture{t: t, backend: soft.New()}
}

// cosmetic builds a one-cube cosmetic placed at x along the X axis.
func (f *fixture) cosmetic(slot, id string, translucent bool, x int) Cosmetic {
	return f.cosmeticWith(slot, id, translucent, x, "[]", "self")
}

func (f *fixture) cosmeticWith(slot, id string, translucent bool, x int, exclusions, target string) Cosmetic {
	f.t.Helper()
	geo, err := formats.ParseGeometry([]byte(fmt.Sprintf(cosmeticGeometry, id, translucent, exclusions, x)))
	if err != nil {
		f.t.Fatalf("ParseGeometry: %v", err)
	}
	anims, err := formats.ParseAnimations([]byte(fmt.Sprintf(cosmeticAnimations, target)))
	if err != nil {
		f.t.Fatalf("ParseAnimations: %v", err)
	}
	m, err := model.Build(geo, anims)
	if err != nil {
		f.t.Fatalf("Build: %v", err)
	}
	return Cosmetic{Slot: slot, ID: id, Model: m, Texture: f.texture(32, 16)}
}

func (f *fixture) texture(w, h int) render.Texture {
	f.t.Helper()
	tex, err := f.backend.CreateTexture(image.NewNRGBA(image.Rect(0, 0, w, h)))
	if err != nil {
		f.t.Fatalf("CreateTexture: %v", err)
	}
	return tex
}

func collect(m *Manager) []Event {
	var out []Event
	m.CollectEvents(func(e Event) { out = append(out, e) })
	return out
}

func TestUpdateStateKeepsIdentity(t *testing.T) {
	f := newFixture(t)
	hat := f.cosmetic("head", "crown", false, 0)
	cape := f.cosmetic("back", "cape", false, 4)

	m := NewManager(f.backend, Options{})
	defer m.Close()

	worn := []Cosmetic{hat, cape}
	if err := m.UpdateState(worn); err != nil {
		t.Fatalf("UpdateState: %v", err)
	}
	first := map[string]*instance.Instance{}
	for _, slot := range m.Slots() {
		inst, _ := m.Instance(slot)
		first[slot] = inst
	}

	if err := m.UpdateState(worn); err != nil {
		t.Fatalf("UpdateState: %v", err)
	}
	for _, slot := range m.Slots() {
		inst, _ := m.Instance(slot)
		if first[slot] != inst {
			t.Errorf("slot %s was rebuilt", slot)
		}
	}
	if hat.Model.Refs() != 1 {
		t.Errorf("crown refs = %d, want 1", hat.Model.Refs())
	}
}

func TestSingleOpaqueCosmetic(t *testing.T) {
	f := newFixture(t)
	hat := f.cosmetic("head", "crown", false, 0)
	created := f.backend.Created

	m := NewManager(f.backend, Options{})
	defer m.Close()
	if err := m.UpdateState(nil); err != nil {
		t.Fatalf("UpdateState(empty): %v", err)
	}
	if err := m.UpdateState([]Cosmetic{hat}); err != nil {
		t.Fatalf("UpdateState: %v", err)
	}

	if m.Len() != 1 {
		t.Errorf("Len() = %d, want 1", m.Len())
	}
	if m.Atlas() != nil || f.backend.Created != created {
		t.Error("an atlas was built for an opaque cosmetic")
	}
}

func TestTranslucentAtlasLifecycle(t *testing.T) {
	f := newFixture(t)
	veil := f.cosmetic("face", "veil", true, 0)
	veil.Texture = f.texture(32, 32)
	wings := f.cosmetic("back", "wings", true, 4)
	wings.Texture = f.texture(64, 32)
	live := f.backend.Live()

	m := NewManager(f.backend, Options{})
	defer m.Close()

	if err := m.UpdateState([]Cosmetic{veil, wings}); err != nil {
		t.Fatalf("UpdateState: %v", err)
	}
	atlas := m.Atlas()
	if atlas == nil {
		t.Fatal("expected an atlas for two translucent textures")
	}
	if f.backend.Live() != live+1 {
		t.Errorf("live textures = %d, want %d", f.backend.Live(), live+1)
	}
	if atlas.Width != 64 || atlas.Height != 64 {
		t.Errorf("atlas size = %dx%d, want 64x64", atlas.Width, atlas.Height)
	}

	// An unchanged texture set keeps the atlas.
	if err := m.UpdateState([]Cosmetic{wings, veil}); err != nil {
		t.Fatalf("UpdateState: %v", err)
	}
	if m.Atlas() != atlas {
		t.Error("atlas rebuilt for an unchanged texture set")
	}

	if err := m.ResetModel("back"); err != nil {
		t.Fatalf("ResetModel: %v", err)
	}
	if m.Atlas() != nil {
		t.Error("atlas kept after removing a translucent cosmetic")
	}
	if f.backend.Live() != live {
		t.Errorf("live textures = %d, want %d after teardown", f.backend.Live(), live)
	}
	if _, ok := f.backend.Texture(atlas.Texture.ID()); ok {
		t.Error("atlas texture not deleted")
	}
}

func TestSharedTranslucentTextureNeedsNoAtlas(t *testing.T) {
	f := newFixture(t)
	veil := f.cosmetic("face", "veil", true, 0)
	halo := f.cosmetic("head", "halo", true, 4)
	halo.Texture = veil.Texture

	m := NewManager(f.backend, Options{})
	defer m.Close()
	if err := m.UpdateState([]Cosmetic{veil, halo}); err != nil {
		t.Fatalf("UpdateState: %v", err)
	}
	if m.Atlas() != nil {
		t.Error("atlas built for a single distinct texture")
	}

	var target soft.Target
	m.Render(&target, mgl32.Ident4(), nil, math.FullBright)
	if len(target.Batches) != 1 || target.QuadCount() != 12 {
		t.Errorf("got %d batches with %d quads, want one batch of 12", len(target.Batches), target.QuadCount())
	}
}

func TestOpaqueBeforeTranslucent(t *testing.T) {
	f := newFixture(t)
	worn := []Cosmetic{
		f.cosmetic("face", "veil", true, 0),
		f.cosmetic("head", "crown", false, 4),
		f.cosmetic("back", "wings", true, 8),
		f.cosmetic("feet", "boots", false, 12),
	}

	m := NewManager(f.backend, Options{})
	defer m.Close()
	if err := m.UpdateState(worn); err != nil {
		t.Fatalf("UpdateState: %v", err)
	}

	want := []string{"head", "feet", "face", "back"}
	got := m.Slots()
	if len(got) != len(want) {
		t.Fatalf("Slots() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Slots()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestRenderPasses(t *testing.T) {
	f := newFixture(t)
	crown := f.cosmetic("head", "crown", false, 0)
	veil := f.cosmetic("face", "veil", true, -8)
	veil.Texture = f.texture(32, 32)
	wings := f.cosmetic("back", "wings", true, 8)
	wings.Texture = f.texture(64, 32)

	m := NewManager(f.backend, Options{SortTranslucent: true})
	defer m.Close()
	if err := m.UpdateState([]Cosmetic{veil, wings, crown}); err != nil {
		t.Fatalf("UpdateState: %v", err)
	}

	var target soft.Target
	m.Render(&target, mgl32.Ident4(), nil, math.FullBright)
	if len(target.Batches) != 2 {
		t.Fatalf("got %d batches, want opaque then atlas", len(target.Batches))
	}
	if target.Batches[0].Texture != crown.Texture || len(target.Batches[0].Quads) != 6 {
		t.Error("first batch is not the opaque crown")
	}

	translucent := target.Batches[1]
	if translucent.Texture != m.Atlas().Texture {
		t.Fatal("translucent batch does not use the atlas")
	}
	if len(translucent.Quads) != 12 {
		t.Errorf("translucent batch has %d quads, want 12", len(translucent.Quads))
	}

	// The veil texture (32x32) sits below the wings texture (64x32).
	veilRegion, _ := m.Atlas().Region(veil.Texture.ID())
	if veilRegion != (render.Region{U0: 0, V0: 0.5, U1: 0.5, V1: 1}) {
		t.Errorf("veil region = %+v", veilRegion)
	}

	last := float32(0)
	for i, q := range translucent.Quads {
		d := q.Depth(mgl32.Ident4())
		if i > 0 && d > last {
			t.Fatalf("quad %d is farther than the previous one", i)
		}
		last = d
		for _, v := range q.Vertices {
			if v.U < 0 || v.U > 1 || v.V < 0 || v.V > 1 {
				t.Fatalf("uv (%v, %v) outside the atlas", v.U, v.V)
			}
		}
	}
}

func TestExclusionsFromOtherModels(t *testing.T) {
	f := newFixture(t)
	// The body excludes everything around the origin, including the crown.
	body := f.cosmeticWith("body", "robe", false, 20,
		`[{"min": [-10, -10, -10], "max": [10, 10, 10]}]`, "self")
	crown := f.cosmetic("head", "crown", false, 0)

	m := NewManager(f.backend, Options{})
	defer m.Close()
	if err := m.UpdateState([]Cosmetic{body, crown}); err != nil {
		t.Fatalf("UpdateState: %v", err)
	}

	var target soft.Target
	m.Render(&target, mgl32.Ident4(), nil, math.FullBright)
	if target.QuadCount() != 6 {
		t.Errorf("got %d quads, want only the robe's 6", target.QuadCount())
	}

	unclipped := NewManager(f.backend, Options{DisableClipping: true})
	defer unclipped.Close()
	if err := unclipped.UpdateState([]Cosmetic{body, crown}); err != nil {
		t.Fatalf("UpdateState: %v", err)
	}
	target.Reset()
	unclipped.Render(&target, mgl32.Ident4(), nil, math.FullBright)
	if target.QuadCount() != 12 {
		t.Errorf("got %d quads without clipping, want 12", target.QuadCount())
	}
}

func TestSwitchVariantKeepsInstance(t *testing.T) {
	f := newFixture(t)
	plain := f.cosmetic("head", "crown", false, 0)
	gold := f.cosmetic("head", "crown", false, 0)

	m := NewManager(f.backend, Options{})
	defer m.Close()
	if err := m.UpdateState([]Cosmetic{plain}); err != nil {
		t.Fatalf("UpdateState: %v", err)
	}
	before, _ := m.Instance("head")

	if err := m.UpdateState([]Cosmetic{gold}); err != nil {
		t.Fatalf("UpdateState: %v", err)
	}
	after, _ := m.Instance("head")
	if before != after {
		t.Fatal("variant change rebuilt the instance")
	}
	if after.Model() != gold.Model || plain.Model.Refs() != 0 {
		t.Error("variant model not switched")
	}
}

func TestReplacedInstanceIsInvalidated(t *testing.T) {
	f := newFixture(t)
	crown := f.cosmetic("head", "crown", false, 0)
	helm := f.cosmetic("head", "helm", false, 0)

	m := NewManager(f.backend, Options{})
	defer m.Close()
	if err := m.UpdateState([]Cosmetic{crown}); err != nil {
		t.Fatalf("UpdateState: %v", err)
	}
	old, _ := m.Instance("head")
	anchor, _ := old.Locator("anchor")
	collect(m)

	if err := m.UpdateState([]Cosmetic{helm}); err != nil {
		t.Fatalf("UpdateState: %v", err)
	}
	if anchor.Valid() {
		t.Error("locator of a replaced instance is still valid")
	}
	if cur, _ := m.Instance("head"); cur == old {
		t.Error("different cosmetic in the same slot reused the instance")
	}
	if crown.Model.Refs() != 0 {
		t.Errorf("crown refs = %d, want 0", crown.Model.Refs())
	}

	events := collect(m)
	var sawFade, sawShine bool
	for _, e := range events {
		switch ev := e.Event.(type) {
		case animation.Started:
			if ev.Animation == "fade" && ev.Trigger == formats.EventUnequip {
				sawFade = true
			}
			if ev.Animation == "shine" && ev.Trigger == formats.EventEquip {
				sawShine = true
			}
		}
	}
	if !sawFade || !sawShine {
		t.Errorf("events = %v, want unequip fade and equip shine", events)
	}
}

func TestBroadcastForwarding(t *testing.T) {
	f := newFixture(t)
	crown := f.cosmetic("head", "crown", false, 0)
	wings := f.cosmeticWith("back", "wings", false, 4, "[]", "all")

	m := NewManager(f.backend, Options{})
	defer m.Close()
	if err := m.UpdateState([]Cosmetic{crown}); err != nil {
		t.Fatalf("UpdateState: %v", err)
	}
	collect(m)

	if err := m.UpdateState([]Cosmetic{crown, wings}); err != nil {
		t.Fatalf("UpdateState: %v", err)
	}
	events := collect(m)

	var crownRestarted bool
	for _, e := range events {
		if _, ok := e.Event.(animation.Broadcast); ok {
			t.Error("broadcast leaked to the consumer")
		}
		if s, ok := e.Event.(animation.Started); ok && e.Slot == "head" && s.Animation == "shine" {
			crownRestarted = true
		}
	}
	if !crownRestarted {
		t.Errorf("events = %v, want the crown to receive the wings' equip", events)
	}
}

func TestCollectEventsDrains(t *testing.T) {
	f := newFixture(t)
	m := NewManager(f.backend, Options{})
	defer m.Close()
	if err := m.UpdateState([]Cosmetic{f.cosmetic("head", "crown", false, 0)}); err != nil {
		t.Fatalf("UpdateState: %v", err)
	}
	m.Update(1.0, nil)

	got := collect(m)
	if len(got) != 2 {
		t.Fatalf("events = %v, want Started and Finished", got)
	}
	if got[1].Event != (animation.Finished{Animation: "shine"}) {
		t.Errorf("second event = %#v", got[1].Event)
	}
	if len(collect(m)) != 0 {
		t.Error("second drain returned events")
	}
}

func TestUpdateStateErrors(t *testing.T) {
	f := newFixture(t)
	crown := f.cosmetic("head", "crown", false, 0)
	noTexture := crown
	noTexture.Texture = nil

	tests := []struct {
		name string
		worn []Cosmetic
		want error
	}{
		{"duplicate slot", []Cosmetic{crown, crown}, ErrDuplicateSlot},
		{"no model", []Cosmetic{{Slot: "head", ID: "ghost"}}, ErrNoModel},
		{"no texture", []Cosmetic{noTexture}, ErrNoTexture},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager(f.backend, Options{})
			defer m.Close()
			if err := m.UpdateState(tt.worn); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
			if m.Len() != 0 {
				t.Error("rejected set was partially applied")
			}
		})
	}
}

func TestAtlasTooLarge(t *testing.T) {
	f := newFixture(t)
	veil := f.cosmetic("face", "veil", true, 0)
	wings := f.cosmetic("back", "wings", true, 4)
	wings.Texture = f.texture(64, 32)

	m := NewManager(f.backend, Options{AtlasMaxSize: 32})
	defer m.Close()
	err := m.UpdateState([]Cosmetic{veil, wings})
	if !errors.Is(err, ErrAtlasTooLarge) {
		t.Fatalf("expected ErrAtlasTooLarge, got %v", err)
	}
	if m.Len() != 2 || m.Atlas() != nil {
		t.Error("worn set not applied after atlas failure")
	}

	// Without an atlas each translucent texture gets its own batch.
	var target soft.Target
	m.Render(&target, mgl32.Ident4(), nil, math.FullBright)
	if len(target.Batches) != 2 {
		t.Errorf("got %d batches, want 2", len(target.Batches))
	}
}

func TestBounds(t *testing.T) {
	f := newFixture(t)
	m := NewManager(f.backend, Options{})
	defer m.Close()

	if _, ok := m.Bounds(nil); ok {
		t.Error("expected no bounds with nothing worn")
	}
	if err := m.UpdateState([]Cosmetic{
		f.cosmetic("head", "crown", false, 0),
		f.cosmetic("back", "wings", false, 8),
	}); err != nil {
		t.Fatalf("UpdateState: %v", err)
	}
	b, ok := m.Bounds(nil)
	want := math.Box{Min: mgl32.Vec3{0, 0, 0}, Max: mgl32.Vec3{12, 4, 4}}
	if !ok || !b.Min.ApproxEqual(want.Min) || !b.Max.ApproxEqual(want.Max) {
		t.Errorf("Bounds() = %v, %v; want %v", b, ok, want)
	}
}

func TestMaskSkin(t *testing.T) {
	f := newFixture(t)
	crown := f.cosmetic("head", "crown", false, 0)
	front := skinmask.NewPartMask(skinmask.PartHead)
	front.SetAlpha(8, 8, color.Alpha{A: 255})
	crown.Model.SkinMask = skinmask.Mask{skinmask.PartHead: front}
	crown.Offset = [3]int{1, 0, 0}

	skinImg := image.NewNRGBA(image.Rect(0, 0, 64, 64))
	for i := range skinImg.Pix {
		skinImg.Pix[i] = 0xFF
	}
	skin, err := f.backend.CreateTexture(skinImg)
	if err != nil {
		t.Fatalf("CreateTexture: %v", err)
	}

	m := NewManager(f.backend, Options{})
	defer m.Close()

	same, err := m.MaskSkin(context.Background(), skin)
	if err != nil || same != skin {
		t.Fatalf("MaskSkin with nothing worn = %v, %v; want the skin itself", same, err)
	}

	if err := m.UpdateState([]Cosmetic{crown}); err != nil {
		t.Fatalf("UpdateState: %v", err)
	}
	masked, err := m.MaskSkin(context.Background(), skin)
	if err != nil {
		t.Fatalf("MaskSkin: %v", err)
	}
	if masked == skin {
		t.Fatal("MaskSkin returned the unmasked skin")
	}

	img := <-f.backend.ReadTexture(masked)
	if img.Err != nil {
		t.Fatalf("ReadTexture: %v", img.Err)
	}
	if a := img.Image.NRGBAAt(9, 8).A; a != 0 {
		t.Errorf("offset pixel alpha = %d, want hidden", a)
	}
	if a := img.Image.NRGBAAt(8, 8).A; a != 0xFF {
		t.Errorf("original pixel alpha = %d, want visible after offset", a)
	}

	orig := <-f.backend.ReadTexture(skin)
	if orig.Image.NRGBAAt(9, 8).A != 0xFF {
		t.Error("MaskSkin modified the source texture")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// The soft backend answers immediately, so either outcome is valid;
	// the call must not block.
	if _, err := m.MaskSkin(ctx, skin); err != nil && !errors.Is(err, context.Canceled) {
		t.Errorf("unexpected error %v", err)
	}
}
