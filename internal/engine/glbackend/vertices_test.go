package glbackend

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/midgard-wearables/internal/engine/render"
	"github.com/Faultbox/midgard-wearables/pkg/math"
)

func TestAppendQuads(t *testing.T) {
	q := render.Quad{
		Vertices: [4]render.Vertex{
			{Pos: mgl32.Vec3{0, 0, 0}, U: 0, V: 0},
			{Pos: mgl32.Vec3{1, 0, 0}, U: 1, V: 0},
			{Pos: mgl32.Vec3{1, 1, 0}, U: 1, V: 1},
			{Pos: mgl32.Vec3{0, 1, 0}, U: 0, V: 1},
		},
		Color: math.White,
		Light: math.FullBright,
	}
	buf := appendQuads(nil, []render.Quad{q, q})

	if got, want := len(buf), 2*6*floatsPerVertex; got != want {
		t.Fatalf("len = %d, want %d", got, want)
	}
	// Fifth vertex of the first quad is corner 2.
	v := buf[4*floatsPerVertex : 5*floatsPerVertex]
	if v[0] != 1 || v[1] != 1 || v[3] != 1 || v[4] != 1 {
		t.Errorf("vertex 4 = %v, want corner 2", v)
	}
	if v[8] != 1 || v[9] != 1 {
		t.Errorf("alpha/brightness = %f/%f, want 1/1", v[8], v[9])
	}
}

func TestBrightness(t *testing.T) {
	tests := []struct {
		light math.Light
		want  float32
	}{
		{math.FullBright, 1},
		{math.NewLight(0, 0), 0.2},
		{math.NewLight(0, 15), 1},
	}
	for _, tt := range tests {
		if got := brightness(tt.light); mgl32.Abs(got-tt.want) > 1e-6 {
			t.Errorf("brightness(%v) = %f, want %f", tt.light, got, tt.want)
		}
	}
}

func TestAppendLines(t *testing.T) {
	buf := appendLines(nil, []mgl32.Vec3{{0, 0, 0}, {1, 2, 3}}, math.RGBA(255, 0, 0, 255))
	if len(buf) != 2*floatsPerVertex {
		t.Fatalf("len = %d", len(buf))
	}
	if buf[floatsPerVertex+2] != 3 || buf[5] != 1 || buf[6] != 0 {
		t.Errorf("buf = %v", buf)
	}
}
