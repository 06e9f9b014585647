package math

// Light is a packed sky/block light pair, each level in 0..15.
// The block level sits in the low 16 bits and the sky level in the high 16,
// both scaled by 16 so they can be used directly as lightmap coordinates.
type Light uint32

// FullBright is maximum sky and block light.
const FullBright Light = 0x00F000F0

// NewLight packs sky and block levels. Levels are clamped to 0..15.
func NewLight(sky, block int) Light {
	return Light(uint32(clampLevel(sky))<<20 | uint32(clampLevel(block))<<4)
}

// Sky returns the sky light level.
func (l Light) Sky() int { return int(l>>20) & 0xF }

// Block returns the block light level.
func (l Light) Block() int { return int(l>>4) & 0xF }

// Coords returns the packed pair as lightmap texture coordinates.
func (l Light) Coords() (u, v uint16) {
	return uint16(l & 0xFFFF), uint16(l >> 16)
}

func clampLevel(v int) int {
	if v < 0 {
		return 0
	}
	if v > 15 {
		return 15
	}
	return v
}
