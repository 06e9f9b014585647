package assets

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/Faultbox/midgard-wearables/internal/engine/skinmask"
)

const testGeometry = `{
  "geometry": {
    "identifier": "crown",
    "texture_width": 16, "texture_height": 8,
    "bones": [{"name": "root", "cubes": [{"origin": [0, 0, 0], "size": [2, 2, 2], "uv": [0, 0]}]}]
  }
}`

const testAnimations = `{
  "animations": {"spin": {"animation_length": 1, "bones": {"root": {"rotation": [0, "query.anim_time * 360", 0]}}}},
  "triggers": [{"type": "equip", "name": "spin"}]
}`

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
}

// writeCosmetic lays out a cosmetic directory under root.
func writeCosmetic(t *testing.T, root, id string, withAnims, withMask bool) string {
	t.Helper()
	dir := filepath.Join(root, filepath.FromSlash(id))
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, GeometryFile), []byte(testGeometry), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if withAnims {
		if err := os.WriteFile(filepath.Join(dir, AnimationsFile), []byte(testAnimations), 0644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}
	writePNG(t, filepath.Join(dir, TextureStem+".png"), image.NewNRGBA(image.Rect(0, 0, 16, 8)))

	if withMask {
		// Opaque everywhere except the first texel of the head's front face.
		mask := image.NewNRGBA(image.Rect(0, 0, 64, 64))
		for i := range mask.Pix {
			mask.Pix[i] = 0xFF
		}
		mask.SetNRGBA(8, 8, color.NRGBA{})
		writePNG(t, filepath.Join(dir, SkinMaskStem+".png"), mask)
	}
	return dir
}

func TestGet(t *testing.T) {
	root := t.TempDir()
	dir := writeCosmetic(t, root, "crown", true, true)

	lib := NewLibrary(root)
	c, err := lib.Get(context.Background(), "crown")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if c.ID != "crown" || c.Dir != dir {
		t.Errorf("cosmetic = %s in %s", c.ID, c.Dir)
	}
	if c.Model.Name != "crown" || c.Model.AnimationCount() != 1 {
		t.Errorf("model %q with %d animations", c.Model.Name, c.Model.AnimationCount())
	}
	if c.Image.Bounds().Dx() != 16 {
		t.Errorf("texture width = %d, want 16", c.Image.Bounds().Dx())
	}
	if !c.Model.SkinMask.Hidden(8, 8) || c.Model.SkinMask.Hidden(9, 8) {
		t.Error("skin mask not read from skin_mask.png")
	}
	if _, ok := c.Model.SkinMask[skinmask.PartHead]; !ok {
		t.Error("head part missing from skin mask")
	}

	again, err := lib.Get(context.Background(), "crown")
	if err != nil || again != c {
		t.Fatalf("second Get = %p, %v; want cached %p", again, err, c)
	}
	if hits, misses := lib.Stats(); hits != 1 || misses != 1 {
		t.Errorf("Stats() = %d hits, %d misses; want 1, 1", hits, misses)
	}
}

func TestGetStaticModel(t *testing.T) {
	root := t.TempDir()
	writeCosmetic(t, root, "hats/plain", false, false)

	c, err := NewLibrary(root).Get(context.Background(), "hats/plain")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if c.Model.AnimationCount() != 0 || c.Model.SkinMask != nil {
		t.Error("static cosmetic grew animations or a skin mask")
	}
}

func TestConcurrentLoadsShareDecode(t *testing.T) {
	root := t.TempDir()
	writeCosmetic(t, root, "crown", true, false)
	lib := NewLibrary(root)

	const n = 8
	results := make([]*Cosmetic, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r := <-lib.Load(context.Background(), "crown")
			if r.Err != nil {
				t.Errorf("Load: %v", r.Err)
				return
			}
			results[i] = r.Cosmetic
		}(i)
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		if results[i] != results[0] {
			t.Fatal("concurrent loads decoded separate copies")
		}
	}
	if _, misses := lib.Stats(); misses != 1 {
		t.Errorf("misses = %d, want 1", misses)
	}
}

func TestRootPriority(t *testing.T) {
	base, override := t.TempDir(), t.TempDir()
	writeCosmetic(t, base, "crown", false, false)
	want := writeCosmetic(t, override, "crown", false, false)

	dir, err := NewLibrary(base, override).Resolve("crown")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if dir != want {
		t.Errorf("Resolve() = %s, want %s", dir, want)
	}
}

func TestErrors(t *testing.T) {
	root := t.TempDir()
	writeCosmetic(t, root, "crown", false, false)
	noTex := filepath.Join(root, "bare")
	if err := os.MkdirAll(noTex, 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(noTex, GeometryFile), []byte(testGeometry), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	broken := filepath.Join(root, "broken")
	if err := os.MkdirAll(broken, 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(broken, GeometryFile), []byte(`{"geometry": 1}`), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	tests := []struct {
		id   string
		want error
	}{
		{"missing", ErrNotFound},
		{"../crown", ErrInvalidID},
		{"", ErrInvalidID},
		{"bare", ErrNoTexture},
	}

	lib := NewLibrary(root)
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			if _, err := lib.Get(context.Background(), tt.id); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}

	if _, err := lib.Get(context.Background(), "broken"); err == nil {
		t.Error("expected a decode error")
	}
	if lib.Len() != 0 {
		t.Errorf("Len() = %d, failed loads must not be cached", lib.Len())
	}
}

func TestSweep(t *testing.T) {
	root := t.TempDir()
	writeCosmetic(t, root, "crown", false, false)
	writeCosmetic(t, root, "cape", false, false)
	lib := NewLibrary(root)

	crown, err := lib.Get(context.Background(), "crown")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if _, err := lib.Get(context.Background(), "cape"); err != nil {
		t.Fatalf("Get: %v", err)
	}

	crown.Model.Retain()
	dropped := lib.Sweep()
	if len(dropped) != 1 || dropped[0] != "cape" {
		t.Errorf("Sweep() = %v, want [cape]", dropped)
	}
	if lib.Len() != 1 {
		t.Errorf("Len() = %d, want 1", lib.Len())
	}

	crown.Model.Release()
	if dropped := lib.Sweep(); len(dropped) != 1 || dropped[0] != "crown" {
		t.Errorf("Sweep() = %v, want [crown]", dropped)
	}
}

func TestList(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	writeCosmetic(t, a, "crown", false, false)
	writeCosmetic(t, a, "capes/red", false, false)
	writeCosmetic(t, b, "crown", false, false)
	writeCosmetic(t, b, "wings", false, false)

	ids, err := NewLibrary(a, b, filepath.Join(a, "nope")).List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{"capes/red", "crown", "wings"}
	if len(ids) != len(want) {
		t.Fatalf("List() = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("List()[%d] = %s, want %s", i, ids[i], want[i])
		}
	}
}

func TestLoadCancelled(t *testing.T) {
	root := t.TempDir()
	writeCosmetic(t, root, "crown", false, false)
	lib := NewLibrary(root)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := <-lib.Load(ctx, "crown")
	if r.Err != nil && !errors.Is(r.Err, context.Canceled) {
		t.Errorf("unexpected error %v", r.Err)
	}

	// The decode completes regardless and serves later callers.
	if _, err := lib.Get(context.Background(), "crown"); err != nil {
		t.Errorf("Get after cancelled load: %v", err)
	}
}
