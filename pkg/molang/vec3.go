package molang

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/tidwall/gjson"
)

// ErrShape is returned when structured data has a shape that cannot describe
// the requested expression kind.
var ErrShape = errors.New("molang: unexpected value shape")

// Vec3 is a 3-vector of scalar expressions.
type Vec3 [3]Expr

// ConstVec3 returns a Vec3 that always evaluates to v.
func ConstVec3(v mgl32.Vec3) Vec3 {
	return Vec3{constant(v[0]), constant(v[1]), constant(v[2])}
}

// Eval evaluates each component against ctx.
func (v Vec3) Eval(ctx Context) mgl32.Vec3 {
	return mgl32.Vec3{v[0].Eval(ctx), v[1].Eval(ctx), v[2].Eval(ctx)}
}

// unitVectors are the symbolic axis tokens accepted in place of a vector.
var unitVectors = map[string]mgl32.Vec3{
	"x": {1, 0, 0},
	"y": {0, 1, 0},
	"z": {0, 0, 1},
}

// ParseScalar decodes a scalar expression from a number or an expression
// string.
func ParseScalar(r gjson.Result) (Expr, error) {
	switch r.Type {
	case gjson.Number:
		return constant(float32(r.Num)), nil
	case gjson.String:
		return Parse(r.Str)
	case gjson.True:
		return constant(1), nil
	case gjson.False:
		return constant(0), nil
	}
	return nil, fmt.Errorf("%w: scalar from %s", ErrShape, describe(r))
}

// ParseVec3 decodes a vector expression.
//
// An array of one to three scalars fills missing trailing components by
// repeating the previous component's expression, so [v] is (v, v, v) and
// [v, w] is (v, w, w). The bare strings "x", "y" and "z" yield the matching
// unit vector. Anything else fails with ErrShape.
func ParseVec3(r gjson.Result) (Vec3, error) {
	switch {
	case r.IsArray():
		items := r.Array()
		if len(items) == 0 || len(items) > 3 {
			return Vec3{}, fmt.Errorf("%w: vector with %d components", ErrShape, len(items))
		}
		var v Vec3
		for i := 0; i < 3; i++ {
			if i >= len(items) {
				v[i] = v[i-1]
				continue
			}
			e, err := ParseScalar(items[i])
			if err != nil {
				return Vec3{}, fmt.Errorf("component %d: %w", i, err)
			}
			v[i] = e
		}
		return v, nil

	case r.Type == gjson.String:
		if u, ok := unitVectors[r.Str]; ok {
			return ConstVec3(u), nil
		}
	}
	return Vec3{}, fmt.Errorf("%w: vector from %s", ErrShape, describe(r))
}

func describe(r gjson.Result) string {
	if !r.Exists() {
		return "missing value"
	}
	raw := r.Raw
	if len(raw) > 32 {
		raw = raw[:32] + "..."
	}
	return fmt.Sprintf("%s %s", r.Type, raw)
}
