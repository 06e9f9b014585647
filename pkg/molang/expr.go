// Package molang parses and evaluates the procedural expressions that drive
// cosmetic animations.
//
// Expressions are decoded once at asset load time and evaluated many times per
// frame. Evaluation is a pure function of the supplied Context: the evaluator
// keeps no state between calls, so the same context always yields the same
// value and callers may evaluate speculatively (for bounds estimation, say)
// without disturbing playback.
package molang

import (
	gomath "math"
)

// Expr is a parsed scalar expression.
type Expr interface {
	Eval(ctx Context) float32
}

// Constant returns an expression that always evaluates to v.
func Constant(v float32) Expr {
	return constant(v)
}

// IsConstant reports whether e evaluates to the same value in every context,
// returning that value.
func IsConstant(e Expr) (float32, bool) {
	c, ok := e.(constant)
	return float32(c), ok
}

type constant float32

func (c constant) Eval(Context) float32 { return float32(c) }

type lookup string

func (l lookup) Eval(ctx Context) float32 {
	if ctx == nil {
		return 0
	}
	v, _ := ctx.Lookup(string(l))
	return v
}

type unary struct {
	op string
	x  Expr
}

func (u unary) Eval(ctx Context) float32 {
	v := u.x.Eval(ctx)
	switch u.op {
	case "-":
		return -v
	case "!":
		return boolf(v == 0)
	}
	return v
}

type binary struct {
	op   string
	l, r Expr
}

func (b binary) Eval(ctx Context) float32 {
	// Short-circuit forms first so the right side is never evaluated needlessly.
	switch b.op {
	case "&&":
		return boolf(b.l.Eval(ctx) != 0 && b.r.Eval(ctx) != 0)
	case "||":
		return boolf(b.l.Eval(ctx) != 0 || b.r.Eval(ctx) != 0)
	case "??":
		if name, ok := b.l.(lookup); ok {
			if ctx != nil {
				if v, found := ctx.Lookup(string(name)); found {
					return v
				}
			}
			return b.r.Eval(ctx)
		}
		return b.l.Eval(ctx)
	}

	l, r := b.l.Eval(ctx), b.r.Eval(ctx)
	switch b.op {
	case "+":
		return l + r
	case "-":
		return l - r
	case "*":
		return l * r
	case "/":
		if r == 0 {
			return 0
		}
		return l / r
	case "%":
		if r == 0 {
			return 0
		}
		return float32(gomath.Mod(float64(l), float64(r)))
	case "<":
		return boolf(l < r)
	case "<=":
		return boolf(l <= r)
	case ">":
		return boolf(l > r)
	case ">=":
		return boolf(l >= r)
	case "==":
		return boolf(l == r)
	case "!=":
		return boolf(l != r)
	}
	return 0
}

type ternary struct {
	cond, then, els Expr
}

func (t ternary) Eval(ctx Context) float32 {
	if t.cond.Eval(ctx) != 0 {
		return t.then.Eval(ctx)
	}
	if t.els == nil {
		return 0
	}
	return t.els.Eval(ctx)
}

type call struct {
	fn   function
	args []Expr
}

func (c call) Eval(ctx Context) float32 {
	var buf [4]float64
	vals := buf[:0]
	for _, a := range c.args {
		vals = append(vals, float64(a.Eval(ctx)))
	}
	return float32(c.fn.impl(vals))
}

func boolf(b bool) float32 {
	if b {
		return 1
	}
	return 0
}
