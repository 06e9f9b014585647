package wearables

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-wearables/internal/engine/render"
	"github.com/Faultbox/midgard-wearables/internal/engine/skinmask"
)

// SkinMask merges the skin masks of every worn cosmetic, each moved by its
// placement offset. Nil means no skin pixel is hidden.
func (m *Manager) SkinMask() skinmask.Mask {
	var masks []skinmask.Mask
	for _, e := range m.entries {
		mask := e.cosmetic.Model.SkinMask
		if len(mask) == 0 {
			continue
		}
		off := e.cosmetic.Offset
		if off != [3]int{} {
			mask = mask.Offset(off[0], off[1], off[2])
		}
		masks = append(masks, mask)
	}
	if len(masks) == 0 {
		return nil
	}
	return skinmask.Merge(masks...)
}

// MaskSkin reads skin back from the backend, hides the pixels covered by
// the worn cosmetics and uploads the result as a new texture owned by the
// caller. With nothing to hide it returns skin itself.
func (m *Manager) MaskSkin(ctx context.Context, skin render.Texture) (render.Texture, error) {
	mask := m.SkinMask()
	if len(mask) == 0 {
		return skin, nil
	}

	var res render.ReadResult
	select {
	case res = <-m.backend.ReadTexture(skin):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if res.Err != nil {
		return nil, fmt.Errorf("read skin texture: %w", res.Err)
	}

	mask.ApplyTo(res.Image)
	tex, err := m.backend.CreateTexture(res.Image)
	if err != nil {
		return nil, fmt.Errorf("upload masked skin: %w", err)
	}
	m.log.Debug("skin masked", zap.Int("parts", len(mask)), zap.Uint32("texture", tex.ID()))
	return tex, nil
}
