package wearables

import (
	"sort"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/midgard-wearables/internal/engine/render"
)

// sortingTarget collects translucent quads from several instances and
// submits them to dst as one batch, farthest first. With an atlas it remaps
// each quad's UVs from its own texture into the atlas region. Without one,
// a change of texture starts a new batch.
type sortingTarget struct {
	dst       render.DrawTarget
	view      mgl32.Mat4
	sortQuads bool

	atlas *Atlas
	tex   render.Texture
	quads []render.Quad
}

func (s *sortingTarget) Draw(tex render.Texture, quads []render.Quad) {
	if s.atlas == nil {
		if s.tex != nil && s.tex.ID() != tex.ID() {
			s.flush()
		}
		s.tex = tex
		s.quads = append(s.quads, quads...)
		return
	}
	region, ok := s.atlas.Region(tex.ID())
	if !ok {
		return
	}
	s.tex = s.atlas.Texture
	for _, q := range quads {
		for i := range q.Vertices {
			v := &q.Vertices[i]
			v.U, v.V = region.Map(v.U, v.V)
		}
		s.quads = append(s.quads, q)
	}
}

// flush submits the collected quads. When sortQuads is set they are
// ordered back to front as seen through view.
func (s *sortingTarget) flush() {
	if len(s.quads) == 0 {
		return
	}
	if s.sortQuads {
		depths := make([]float32, len(s.quads))
		for i := range s.quads {
			depths[i] = s.quads[i].Depth(s.view)
		}
		sort.Stable(byDepth{s.quads, depths})
	}
	s.dst.Draw(s.tex, s.quads)
	s.quads = nil
}

type byDepth struct {
	quads  []render.Quad
	depths []float32
}

func (b byDepth) Len() int           { return len(b.quads) }
func (b byDepth) Less(i, j int) bool { return b.depths[i] > b.depths[j] }
func (b byDepth) Swap(i, j int) {
	b.quads[i], b.quads[j] = b.quads[j], b.quads[i]
	b.depths[i], b.depths[j] = b.depths[j], b.depths[i]
}
