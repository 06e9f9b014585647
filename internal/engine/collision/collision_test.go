package collision

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestPlaneQuery(t *testing.T) {
	// Floor at y=10 with +Y down: solid below, normal pointing up (-Y).
	floor := NewPlane(mgl32.Vec3{0, 10, 0}, mgl32.Vec3{0, -2, 0})

	tests := []struct {
		name        string
		pos         mgl32.Vec3
		size        float32
		offset      mgl32.Vec3
		wantHit     bool
		wantAllowed mgl32.Vec3
	}{
		{"moving away", mgl32.Vec3{0, 5, 0}, 0, mgl32.Vec3{0, -3, 0}, false, mgl32.Vec3{}},
		{"parallel", mgl32.Vec3{0, 5, 0}, 0, mgl32.Vec3{4, 0, 0}, false, mgl32.Vec3{}},
		{"stops short", mgl32.Vec3{0, 5, 0}, 0, mgl32.Vec3{0, 2, 0}, false, mgl32.Vec3{}},
		{"reaches plane", mgl32.Vec3{0, 5, 0}, 0, mgl32.Vec3{0, 10, 0}, true, mgl32.Vec3{0, 5, 0}},
		{"radius shortens travel", mgl32.Vec3{0, 5, 0}, 1, mgl32.Vec3{0, 8, 0}, true, mgl32.Vec3{0, 4, 0}},
		{"diagonal", mgl32.Vec3{0, 6, 0}, 0, mgl32.Vec3{8, 8, 0}, true, mgl32.Vec3{4, 4, 0}},
		{"already penetrating", mgl32.Vec3{0, 11, 0}, 0, mgl32.Vec3{0, 1, 0}, true, mgl32.Vec3{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hit, ok := floor.Query(tt.pos, tt.size, tt.offset)
			if ok != tt.wantHit {
				t.Fatalf("Query() hit = %v, want %v", ok, tt.wantHit)
			}
			if !ok {
				return
			}
			if !hit.Allowed.ApproxEqual(tt.wantAllowed) {
				t.Errorf("Allowed = %v, want %v", hit.Allowed, tt.wantAllowed)
			}
			if !hit.Normal.ApproxEqual(mgl32.Vec3{0, -1, 0}) {
				t.Errorf("Normal = %v, want (0, -1, 0)", hit.Normal)
			}
		})
	}
}

func TestNoOpNeverHits(t *testing.T) {
	if _, ok := (NoOp{}).Query(mgl32.Vec3{}, 100, mgl32.Vec3{0, 1000, 0}); ok {
		t.Error("NoOp reported a collision")
	}
}

func TestMultiPicksShortestHit(t *testing.T) {
	near := NewPlane(mgl32.Vec3{0, 2, 0}, mgl32.Vec3{0, -1, 0})
	far := NewPlane(mgl32.Vec3{0, 6, 0}, mgl32.Vec3{0, -1, 0})

	hit, ok := Multi{NoOp{}, far, near}.Query(mgl32.Vec3{}, 0, mgl32.Vec3{0, 8, 0})
	if !ok {
		t.Fatal("expected a hit")
	}
	if !hit.Allowed.ApproxEqual(mgl32.Vec3{0, 2, 0}) {
		t.Errorf("Allowed = %v, want (0, 2, 0)", hit.Allowed)
	}
}
