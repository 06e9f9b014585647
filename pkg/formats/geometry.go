package formats

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/tidwall/gjson"

	"github.com/Faultbox/midgard-wearables/pkg/math"
)

// Geometry format errors.
var (
	ErrInvalidJSON      = errors.New("invalid asset JSON")
	ErrMissingGeometry  = errors.New("missing geometry object")
	ErrInvalidBone      = errors.New("invalid bone")
	ErrDuplicateBone    = errors.New("duplicate bone name")
	ErrInvalidCube      = errors.New("invalid cube")
	ErrUnsupportedFaces = errors.New("unsupported face uv layout")
)

// FaceSide identifies one of the six faces of a cube.
// Model space has +Y down, the avatar faces -Z and its right side is -X.
type FaceSide int

const (
	FaceFront  FaceSide = iota // -Z
	FaceBack                   // +Z
	FaceRight                  // -X
	FaceLeft                   // +X
	FaceTop                    // -Y
	FaceBottom                 // +Y
)

// AllFaceSides lists the sides in declaration order.
var AllFaceSides = [6]FaceSide{FaceFront, FaceBack, FaceRight, FaceLeft, FaceTop, FaceBottom}

var faceSideNames = [6]string{"front", "back", "right", "left", "top", "bottom"}

// String returns the lowercase side name.
func (s FaceSide) String() string {
	if s < 0 || int(s) >= len(faceSideNames) {
		return fmt.Sprintf("FaceSide(%d)", int(s))
	}
	return faceSideNames[s]
}

// ParseFaceSide maps a side name to a FaceSide.
func ParseFaceSide(name string) (FaceSide, bool) {
	key := foldKey(name)
	for i, n := range faceSideNames {
		if n == key {
			return FaceSide(i), true
		}
	}
	return 0, false
}

// FaceUV is an explicit texture rectangle for one face.
type FaceUV struct {
	UV   [2]float32
	Size [2]float32
}

// GeoCube is one axis-aligned box of a bone.
type GeoCube struct {
	Origin  mgl32.Vec3 // minimum corner, model space
	Size    mgl32.Vec3
	Inflate float32
	Mirror  bool

	// Exactly one of BoxUV and FaceUVs is set.
	BoxUV   *[2]float32
	FaceUVs map[FaceSide]FaceUV
}

// GeoBone is a bone as declared in the asset, linked to its parent by name.
type GeoBone struct {
	Name     string
	Parent   string
	Pivot    mgl32.Vec3
	Rotation mgl32.Vec3 // degrees
	Mirror   bool
	Physics  bool
	Locators map[string]mgl32.Vec3
	Cubes    []GeoCube
}

// Geometry is a decoded geometry asset.
type Geometry struct {
	FormatVersion string
	Identifier    string
	TextureWidth  int
	TextureHeight int
	Translucent   bool
	Exclusions    []math.Box
	Bones         []GeoBone
}

// ParseGeometry decodes a geometry asset.
func ParseGeometry(data []byte) (*Geometry, error) {
	if !gjson.ValidBytes(data) {
		return nil, ErrInvalidJSON
	}
	root := gjson.ParseBytes(data)
	geo := root.Get("geometry")
	if !geo.IsObject() {
		return nil, ErrMissingGeometry
	}

	g := &Geometry{
		FormatVersion: root.Get("format_version").String(),
		Identifier:    geo.Get("identifier").String(),
		TextureWidth:  int(geo.Get("texture_width").Int()),
		TextureHeight: int(geo.Get("texture_height").Int()),
		Translucent:   geo.Get("translucent").Bool(),
	}
	if g.TextureWidth <= 0 {
		g.TextureWidth = 64
	}
	if g.TextureHeight <= 0 {
		g.TextureHeight = 64
	}

	for _, ex := range geo.Get("exclusions").Array() {
		g.Exclusions = append(g.Exclusions, math.NewBox(
			readVec3(ex.Get("min"), mgl32.Vec3{}),
			readVec3(ex.Get("max"), mgl32.Vec3{}),
		))
	}

	seen := make(map[string]bool)
	for i, b := range geo.Get("bones").Array() {
		bone, err := parseGeoBone(b)
		if err != nil {
			return nil, fmt.Errorf("bone %d: %w", i, err)
		}
		if seen[bone.Name] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateBone, bone.Name)
		}
		seen[bone.Name] = true
		g.Bones = append(g.Bones, bone)
	}

	return g, nil
}

// ParseGeometryFile decodes a geometry asset from disk.
func ParseGeometryFile(path string) (*Geometry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading geometry file: %w", err)
	}
	return ParseGeometry(data)
}

func parseGeoBone(b gjson.Result) (GeoBone, error) {
	bone := GeoBone{
		Name:     b.Get("name").String(),
		Parent:   b.Get("parent").String(),
		Pivot:    readVec3(b.Get("pivot"), mgl32.Vec3{}),
		Rotation: readVec3(b.Get("rotation"), mgl32.Vec3{}),
		Mirror:   b.Get("mirror").Bool(),
		Physics:  b.Get("physics").Bool(),
	}
	if bone.Name == "" {
		return GeoBone{}, fmt.Errorf("%w: missing name", ErrInvalidBone)
	}
	if bone.Parent == bone.Name {
		return GeoBone{}, fmt.Errorf("%w: %s is its own parent", ErrInvalidBone, bone.Name)
	}

	if locs := b.Get("locators"); locs.IsObject() {
		bone.Locators = make(map[string]mgl32.Vec3)
		locs.ForEach(func(key, value gjson.Result) bool {
			// Locators may be a bare offset or {"offset": [...]}.
			if value.IsObject() {
				value = value.Get("offset")
			}
			bone.Locators[key.String()] = readVec3(value, mgl32.Vec3{})
			return true
		})
	}

	for i, c := range b.Get("cubes").Array() {
		cube, err := parseGeoCube(c, bone.Mirror)
		if err != nil {
			return GeoBone{}, fmt.Errorf("%s cube %d: %w", bone.Name, i, err)
		}
		bone.Cubes = append(bone.Cubes, cube)
	}
	return bone, nil
}

func parseGeoCube(c gjson.Result, boneMirror bool) (GeoCube, error) {
	cube := GeoCube{
		Origin:  readVec3(c.Get("origin"), mgl32.Vec3{}),
		Size:    readVec3(c.Get("size"), mgl32.Vec3{}),
		Inflate: float32(c.Get("inflate").Float()),
		Mirror:  boneMirror,
	}
	if m := c.Get("mirror"); m.Exists() {
		cube.Mirror = m.Bool()
	}
	for i := 0; i < 3; i++ {
		if cube.Size[i] < 0 {
			return GeoCube{}, fmt.Errorf("%w: negative size %v", ErrInvalidCube, cube.Size)
		}
	}

	uv := c.Get("uv")
	switch {
	case uv.IsArray():
		box := readVec2(uv)
		cube.BoxUV = &box
	case uv.IsObject():
		cube.FaceUVs = make(map[FaceSide]FaceUV)
		var bad error
		uv.ForEach(func(key, value gjson.Result) bool {
			side, ok := ParseFaceSide(key.String())
			if !ok {
				bad = fmt.Errorf("%w: face %q", ErrUnsupportedFaces, key.String())
				return false
			}
			cube.FaceUVs[side] = FaceUV{
				UV:   readVec2(value.Get("uv")),
				Size: readVec2(value.Get("uv_size")),
			}
			return true
		})
		if bad != nil {
			return GeoCube{}, bad
		}
	default:
		box := [2]float32{}
		cube.BoxUV = &box
	}
	return cube, nil
}

// GetBoneByName returns a bone by its name, or nil if not found.
func (g *Geometry) GetBoneByName(name string) *GeoBone {
	for i := range g.Bones {
		if g.Bones[i].Name == name {
			return &g.Bones[i]
		}
	}
	return nil
}

// GetChildBones returns all bones whose parent is parentName, in file order.
// An empty parentName returns the roots.
func (g *Geometry) GetChildBones(parentName string) []*GeoBone {
	var children []*GeoBone
	for i := range g.Bones {
		if g.Bones[i].Parent == parentName {
			children = append(children, &g.Bones[i])
		}
	}
	return children
}

// GetTotalCubeCount returns the number of cubes across all bones.
func (g *Geometry) GetTotalCubeCount() int {
	total := 0
	for _, b := range g.Bones {
		total += len(b.Cubes)
	}
	return total
}
