package wearables

import (
	"errors"
	"fmt"
	"image"
	"sort"

	"github.com/Faultbox/midgard-wearables/internal/engine/render"
)

// ErrAtlasTooLarge is returned when the textures do not fit the size limit.
var ErrAtlasTooLarge = errors.New("atlas exceeds maximum size")

// Atlas packs several translucent cosmetic textures into one texture so
// their quads can be sorted and drawn as a single batch.
type Atlas struct {
	Texture render.Texture
	Width   int
	Height  int

	regions map[uint32]render.Region
	key     string
}

// Region returns where the texture with the given id lives in the atlas.
func (a *Atlas) Region(id uint32) (render.Region, bool) {
	r, ok := a.regions[id]
	return r, ok
}

// Len returns the number of packed textures.
func (a *Atlas) Len() int { return len(a.regions) }

type placement struct {
	tex  render.Texture
	x, y int
}

// BuildAtlas shelf-packs textures, tallest first, into a new backend
// texture. maxSize limits both edges; 0 means unlimited.
func BuildAtlas(backend render.Backend, textures []render.Texture, maxSize int) (*Atlas, error) {
	if len(textures) == 0 {
		return nil, fmt.Errorf("build atlas: %w", render.ErrEmptyTexture)
	}

	sorted := append([]render.Texture(nil), textures...)
	sort.SliceStable(sorted, func(i, j int) bool {
		_, hi := sorted[i].Size()
		_, hj := sorted[j].Size()
		return hi > hj
	})

	// Shelf width: at least the widest texture, otherwise the square root
	// of the total area rounded up to a power of two.
	area, widest := 0, 0
	for _, t := range sorted {
		w, h := t.Size()
		area += w * h
		widest = max(widest, w)
	}
	shelf := nextPow2(isqrt(area))
	shelf = max(shelf, widest)

	var (
		places         []placement
		x, y, rowH, aw int
	)
	for _, t := range sorted {
		w, h := t.Size()
		if x > 0 && x+w > shelf {
			y += rowH
			x, rowH = 0, 0
		}
		places = append(places, placement{tex: t, x: x, y: y})
		x += w
		rowH = max(rowH, h)
		aw = max(aw, x)
	}
	ah := y + rowH

	if maxSize > 0 && (aw > maxSize || ah > maxSize) {
		return nil, fmt.Errorf("%w: %dx%d > %d", ErrAtlasTooLarge, aw, ah, maxSize)
	}

	tex, err := backend.CreateTexture(image.NewNRGBA(image.Rect(0, 0, aw, ah)))
	if err != nil {
		return nil, fmt.Errorf("create atlas texture: %w", err)
	}

	a := &Atlas{
		Texture: tex,
		Width:   aw,
		Height:  ah,
		regions: make(map[uint32]render.Region, len(places)),
		key:     textureKey(textures),
	}
	for _, p := range places {
		if err := backend.BlitTexture(tex, p.tex, p.x, p.y); err != nil {
			backend.DeleteTexture(tex)
			return nil, fmt.Errorf("blit texture %d: %w", p.tex.ID(), err)
		}
		w, h := p.tex.Size()
		a.regions[p.tex.ID()] = render.Region{
			U0: float32(p.x) / float32(aw),
			V0: float32(p.y) / float32(ah),
			U1: float32(p.x+w) / float32(aw),
			V1: float32(p.y+h) / float32(ah),
		}
	}
	return a, nil
}

// textureKey identifies a texture set independent of order.
func textureKey(textures []render.Texture) string {
	ids := make([]int, len(textures))
	for i, t := range textures {
		ids[i] = int(t.ID())
	}
	sort.Ints(ids)
	return fmt.Sprint(ids)
}

func nextPow2(v int) int {
	p := 1
	for p < v {
		p <<= 1
	}
	return p
}

func isqrt(v int) int {
	r := 0
	for (r+1)*(r+1) <= v {
		r++
	}
	return r
}
