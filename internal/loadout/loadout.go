// Package loadout describes a set of worn cosmetics and turns it into
// wearables ready for a Manager.
package loadout

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl32"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/midgard-wearables/internal/assets"
	"github.com/Faultbox/midgard-wearables/internal/config"
	"github.com/Faultbox/midgard-wearables/internal/engine/render"
	"github.com/Faultbox/midgard-wearables/internal/engine/wearables"
	"github.com/Faultbox/midgard-wearables/pkg/math"
)

// ErrEmpty is returned for a loadout that wears nothing.
var ErrEmpty = errors.New("loadout wears nothing")

// Box is an exclusion box as written in YAML.
type Box struct {
	Min [3]float32 `yaml:"min"`
	Max [3]float32 `yaml:"max"`
}

// Loadout is a worn set plus the exclusion boxes of the wearer.
type Loadout struct {
	Roots      []string      `yaml:"roots"`
	Skin       string        `yaml:"skin"`
	Worn       []config.Worn `yaml:"worn"`
	Exclusions []Box         `yaml:"exclusions"`
}

// Parse decodes a YAML loadout.
func Parse(data []byte) (*Loadout, error) {
	var l Loadout
	if err := yaml.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("parsing loadout: %w", err)
	}
	if len(l.Worn) == 0 {
		return nil, ErrEmpty
	}
	for i, w := range l.Worn {
		if w.Slot == "" || w.ID == "" {
			return nil, fmt.Errorf("worn[%d]: slot and id are required", i)
		}
	}
	return &l, nil
}

// Load reads and decodes a YAML loadout file.
func Load(path string) (*Loadout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	l, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return l, nil
}

// Boxes converts the loadout's exclusions to model-space boxes.
func (l *Loadout) Boxes() []math.Box {
	out := make([]math.Box, 0, len(l.Exclusions))
	for _, b := range l.Exclusions {
		out = append(out, math.NewBox(mgl32.Vec3(b.Min), mgl32.Vec3(b.Max)))
	}
	return out
}

// ConfigBoxes converts integer exclusion boxes from the config file.
func ConfigBoxes(boxes [][6]int) []math.Box {
	out := make([]math.Box, 0, len(boxes))
	for _, b := range boxes {
		out = append(out, math.NewBox(
			mgl32.Vec3{float32(b[0]), float32(b[1]), float32(b[2])},
			mgl32.Vec3{float32(b[3]), float32(b[4]), float32(b[5])},
		))
	}
	return out
}

// Equipped is a worn set loaded from a library. It owns the textures it
// uploaded; Release deletes them.
type Equipped struct {
	Cosmetics []wearables.Cosmetic
	backend   render.Backend
}

// Equip loads every worn cosmetic from lib in parallel and uploads its
// texture to backend. On error nothing stays uploaded.
func Equip(ctx context.Context, lib *assets.Library, backend render.Backend, worn []config.Worn) (*Equipped, error) {
	pending := make([]<-chan assets.Result, len(worn))
	for i, w := range worn {
		pending[i] = lib.Load(ctx, w.ID)
	}

	eq := &Equipped{backend: backend}
	var errs []error
	for i, w := range worn {
		res := <-pending[i]
		if res.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", w.Slot, res.Err))
			continue
		}
		if len(errs) > 0 {
			continue
		}
		tex, err := backend.CreateTexture(res.Cosmetic.Image)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: uploading %s: %w", w.Slot, w.ID, err))
			continue
		}
		eq.Cosmetics = append(eq.Cosmetics, wearables.Cosmetic{
			Slot:    w.Slot,
			ID:      w.ID,
			Model:   res.Cosmetic.Model,
			Texture: tex,
			Offset:  w.Offset,
		})
	}
	if err := errors.Join(errs...); err != nil {
		eq.Release()
		return nil, err
	}
	return eq, nil
}

// Release deletes the uploaded textures.
func (e *Equipped) Release() {
	for _, c := range e.Cosmetics {
		e.backend.DeleteTexture(c.Texture)
	}
	e.Cosmetics = nil
}
