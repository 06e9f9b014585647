// Package formats decodes the declarative cosmetic asset files: bone geometry
// and animation definitions.
//
// Assets are JSON. Decoding goes through gjson so that unknown keys and
// forward-incompatible variants are skipped rather than rejected.
package formats

import (
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/tidwall/gjson"
	"golang.org/x/text/cases"
)

// foldKey normalises an enum-like key for case-insensitive matching.
func foldKey(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// readVec3 reads a constant [x, y, z] array. Missing components default to def.
func readVec3(r gjson.Result, def mgl32.Vec3) mgl32.Vec3 {
	if !r.IsArray() {
		return def
	}
	v := def
	for i, item := range r.Array() {
		if i >= 3 {
			break
		}
		v[i] = float32(item.Float())
	}
	return v
}

// readVec2 reads a constant [u, v] array.
func readVec2(r gjson.Result) [2]float32 {
	var v [2]float32
	for i, item := range r.Array() {
		if i >= 2 {
			break
		}
		v[i] = float32(item.Float())
	}
	return v
}
