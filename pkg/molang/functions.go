package molang

import (
	gomath "math"
)

type function struct {
	arity int
	impl  func(args []float64) float64
}

const (
	degToRad = gomath.Pi / 180
	radToDeg = 180 / gomath.Pi
)

// mathFunctions are the deterministic members of the math namespace.
// Trigonometry works in degrees. The random family is deliberately absent:
// evaluation must not depend on hidden state.
var mathFunctions = map[string]function{
	"math.abs":   {1, func(a []float64) float64 { return gomath.Abs(a[0]) }},
	"math.sin":   {1, func(a []float64) float64 { return gomath.Sin(a[0] * degToRad) }},
	"math.cos":   {1, func(a []float64) float64 { return gomath.Cos(a[0] * degToRad) }},
	"math.asin":  {1, func(a []float64) float64 { return gomath.Asin(a[0]) * radToDeg }},
	"math.acos":  {1, func(a []float64) float64 { return gomath.Acos(a[0]) * radToDeg }},
	"math.atan":  {1, func(a []float64) float64 { return gomath.Atan(a[0]) * radToDeg }},
	"math.atan2": {2, func(a []float64) float64 { return gomath.Atan2(a[0], a[1]) * radToDeg }},
	"math.sqrt":  {1, func(a []float64) float64 { return gomath.Sqrt(a[0]) }},
	"math.exp":   {1, func(a []float64) float64 { return gomath.Exp(a[0]) }},
	"math.ln":    {1, func(a []float64) float64 { return gomath.Log(a[0]) }},
	"math.pow":   {2, func(a []float64) float64 { return gomath.Pow(a[0], a[1]) }},
	"math.floor": {1, func(a []float64) float64 { return gomath.Floor(a[0]) }},
	"math.ceil":  {1, func(a []float64) float64 { return gomath.Ceil(a[0]) }},
	"math.round": {1, func(a []float64) float64 { return gomath.Round(a[0]) }},
	"math.trunc": {1, func(a []float64) float64 { return gomath.Trunc(a[0]) }},
	"math.min":   {2, func(a []float64) float64 { return gomath.Min(a[0], a[1]) }},
	"math.max":   {2, func(a []float64) float64 { return gomath.Max(a[0], a[1]) }},
	"math.mod":   {2, func(a []float64) float64 { return safeMod(a[0], a[1]) }},
	"math.clamp": {3, func(a []float64) float64 { return gomath.Min(gomath.Max(a[0], a[1]), a[2]) }},
	"math.lerp":  {3, func(a []float64) float64 { return a[0] + (a[1]-a[0])*a[2] }},
	"math.lerprotate": {3, func(a []float64) float64 {
		diff := safeMod(a[1]-a[0]+180, 360) - 180
		return a[0] + diff*a[2]
	}},
	"math.hermite_blend": {1, func(a []float64) float64 {
		t := a[0]
		return 3*t*t - 2*t*t*t
	}},
	"math.sign": {1, func(a []float64) float64 {
		switch {
		case a[0] > 0:
			return 1
		case a[0] < 0:
			return -1
		}
		return 0
	}},
}

// mathConstants are bare math namespace members.
var mathConstants = map[string]float32{
	"math.pi": gomath.Pi,
}

// safeMod is a floored modulo that returns 0 for a zero divisor.
func safeMod(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	m := gomath.Mod(a, b)
	if m != 0 && (m < 0) != (b < 0) {
		m += b
	}
	return m
}
