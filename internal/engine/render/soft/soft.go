// Package soft is a CPU render backend. Textures live in host memory as
// NRGBA images and draw calls are recorded rather than rasterised, which
// makes it usable headless: in tools and in tests.
package soft

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"

	"github.com/Faultbox/midgard-wearables/internal/engine/render"
)

// Texture is a host-memory texture.
type Texture struct {
	id  uint32
	img *image.NRGBA
}

// ID implements render.Texture.
func (t *Texture) ID() uint32 { return t.id }

// Size implements render.Texture.
func (t *Texture) Size() (int, int) {
	b := t.img.Bounds()
	return b.Dx(), b.Dy()
}

// Image returns the texture's pixels. The image is owned by the backend.
func (t *Texture) Image() *image.NRGBA { return t.img }

// Backend implements render.Backend in host memory.
type Backend struct {
	nextID   uint32
	textures map[uint32]*Texture

	// Created and Deleted count texture lifecycle calls.
	Created int
	Deleted int
}

// New creates an empty backend.
func New() *Backend {
	return &Backend{textures: make(map[uint32]*Texture)}
}

// CreateTexture copies img into a new texture.
func (b *Backend) CreateTexture(img *image.NRGBA) (render.Texture, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, render.ErrEmptyTexture
	}
	b.nextID++
	dst := image.NewNRGBA(image.Rect(0, 0, img.Bounds().Dx(), img.Bounds().Dy()))
	draw.Draw(dst, dst.Bounds(), img, img.Bounds().Min, draw.Src)

	t := &Texture{id: b.nextID, img: dst}
	b.textures[t.id] = t
	b.Created++
	return t, nil
}

// DeleteTexture releases tex. Unknown textures are ignored.
func (b *Backend) DeleteTexture(tex render.Texture) {
	if tex == nil {
		return
	}
	if _, ok := b.textures[tex.ID()]; !ok {
		return
	}
	delete(b.textures, tex.ID())
	b.Deleted++
}

// BlitTexture copies src into dst at (x, y).
func (b *Backend) BlitTexture(dst, src render.Texture, x, y int) error {
	d, err := b.lookup(dst)
	if err != nil {
		return err
	}
	s, err := b.lookup(src)
	if err != nil {
		return err
	}
	r := s.img.Bounds().Add(image.Pt(x, y))
	if !r.In(d.img.Bounds()) {
		return fmt.Errorf("%w: %v into %v", render.ErrOutOfBounds, r, d.img.Bounds())
	}
	draw.Copy(d.img, r.Min, s.img, s.img.Bounds(), draw.Src, nil)
	return nil
}

// ReadTexture returns a copy of the texture's pixels. The result is ready
// immediately but is still delivered through the channel.
func (b *Backend) ReadTexture(tex render.Texture) <-chan render.ReadResult {
	ch := make(chan render.ReadResult, 1)
	t, err := b.lookup(tex)
	if err != nil {
		ch <- render.ReadResult{Err: err}
		close(ch)
		return ch
	}
	cp := image.NewNRGBA(t.img.Bounds())
	copy(cp.Pix, t.img.Pix)
	ch <- render.ReadResult{Image: cp}
	close(ch)
	return ch
}

// Live returns the number of textures not yet deleted.
func (b *Backend) Live() int { return len(b.textures) }

// Texture returns the backend texture with the given id.
func (b *Backend) Texture(id uint32) (*Texture, bool) {
	t, ok := b.textures[id]
	return t, ok
}

func (b *Backend) lookup(tex render.Texture) (*Texture, error) {
	if tex == nil {
		return nil, render.ErrUnknownTexture
	}
	t, ok := b.textures[tex.ID()]
	if !ok {
		return nil, fmt.Errorf("%w: %d", render.ErrUnknownTexture, tex.ID())
	}
	return t, nil
}

// Batch is one recorded draw call.
type Batch struct {
	Texture render.Texture
	Quads   []render.Quad
}

// Target records draw calls in submission order.
type Target struct {
	Batches []Batch
}

// Draw implements render.DrawTarget.
func (t *Target) Draw(tex render.Texture, quads []render.Quad) {
	cp := make([]render.Quad, len(quads))
	copy(cp, quads)
	t.Batches = append(t.Batches, Batch{Texture: tex, Quads: cp})
}

// QuadCount returns the number of quads recorded so far.
func (t *Target) QuadCount() int {
	n := 0
	for _, b := range t.Batches {
		n += len(b.Quads)
	}
	return n
}

// Reset discards recorded batches.
func (t *Target) Reset() { t.Batches = t.Batches[:0] }
