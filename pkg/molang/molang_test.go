package molang

import (
	"errors"
	gomath "math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/tidwall/gjson"
)

func approx(a, b float32) bool {
	return gomath.Abs(float64(a-b)) < 1e-4
}

func TestParseEval(t *testing.T) {
	ctx := Vars{
		"query.anim_time":   2,
		"query.is_sneaking": 1,
		"variable.speed":    0.5,
	}

	tests := []struct {
		src  string
		want float32
	}{
		{"1 + 2 * 3", 7},
		{"(1 + 2) * 3", 9},
		{"-4 + 10", 6},
		{"10 / 4", 2.5},
		{"7 % 3", 1},
		{"1 / 0", 0},
		{"query.anim_time * 10", 20},
		{"q.anim_time * 10", 20},
		{"v.speed + 1", 1.5},
		{"query.missing", 0},
		{"query.missing ?? 3", 3},
		{"query.anim_time ?? 3", 2},
		{"q.is_sneaking ? 5 : 6", 5},
		{"!q.is_sneaking ? 5 : 6", 6},
		{"q.anim_time > 1 && q.anim_time < 3", 1},
		{"q.anim_time >= 3 || false", 0},
		{"q.anim_time == 2", 1},
		{"math.sin(90)", 1},
		{"math.cos(180)", -1},
		{"math.clamp(15, 0, 10)", 10},
		{"math.lerp(0, 10, 0.25)", 2.5},
		{"math.max(q.anim_time, 5)", 5},
		{"math.abs(-3.5)", 3.5},
		{"math.pi", float32(gomath.Pi)},
		{"math.mod(-1, 4)", 3},
		{"2.5f * 2", 5},
		{"1 + 1;", 2},
		{"Query.Anim_Time", 2},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			e, err := Parse(tt.src)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", tt.src, err)
			}
			if got := e.Eval(ctx); !approx(got, tt.want) {
				t.Errorf("Eval(%q) = %v, want %v", tt.src, got, tt.want)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []string{
		"",
		"1 +",
		"(1 + 2",
		"math.sin(1, 2)",
		"math.nope(1)",
		"speed * 2",
		"1 $ 2",
		"'unterminated",
		"1 2",
	}

	for _, src := range tests {
		t.Run(src, func(t *testing.T) {
			_, err := Parse(src)
			if err == nil {
				t.Fatalf("Parse(%q) expected error", src)
			}
			if !errors.Is(err, ErrSyntax) {
				t.Errorf("Parse(%q) error %v does not wrap ErrSyntax", src, err)
			}
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Errorf("Parse(%q) error is %T, want *ParseError", src, err)
			}
		})
	}
}

func TestConstantFolding(t *testing.T) {
	e := MustParse("math.sin(30) * 2 + 1")
	v, ok := IsConstant(e)
	if !ok {
		t.Fatal("expected constant expression to fold")
	}
	if !approx(v, 2) {
		t.Errorf("folded value = %v, want 2", v)
	}

	if _, ok := IsConstant(MustParse("q.anim_time + 1")); ok {
		t.Error("expression reading the context must not fold")
	}
}

func TestEvalIsPure(t *testing.T) {
	e := MustParse("math.sin(q.anim_time * 45) * v.amp + q.anim_time")
	ctx := Vars{"query.anim_time": 1.25, "variable.amp": 3}

	first := e.Eval(ctx)
	for i := 0; i < 10; i++ {
		if got := e.Eval(ctx); got != first {
			t.Fatalf("evaluation %d = %v, want %v", i, got, first)
		}
	}
}

func TestLayeredContext(t *testing.T) {
	ctx := Layered{
		nil,
		Vars{"query.anim_time": 1},
		Vars{"query.anim_time": 9, "query.life_time": 4},
	}

	if got := MustParse("q.anim_time").Eval(ctx); got != 1 {
		t.Errorf("first layer should win, got %v", got)
	}
	if got := MustParse("q.life_time").Eval(ctx); got != 4 {
		t.Errorf("fallthrough lookup = %v, want 4", got)
	}
}

func TestParseVec3(t *testing.T) {
	ctx := Vars{"query.anim_time": 2}

	tests := []struct {
		name string
		json string
		want mgl32.Vec3
	}{
		{"one component repeats", `[3]`, mgl32.Vec3{3, 3, 3}},
		{"two components repeat last", `[1, 2]`, mgl32.Vec3{1, 2, 2}},
		{"three components", `[1, 2, 3]`, mgl32.Vec3{1, 2, 3}},
		{"expression component", `["q.anim_time * 2", 0]`, mgl32.Vec3{4, 0, 0}},
		{"single expression repeats", `["q.anim_time"]`, mgl32.Vec3{2, 2, 2}},
		{"unit x", `"x"`, mgl32.Vec3{1, 0, 0}},
		{"unit y", `"y"`, mgl32.Vec3{0, 1, 0}},
		{"unit z", `"z"`, mgl32.Vec3{0, 0, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := ParseVec3(gjson.Parse(tt.json))
			if err != nil {
				t.Fatalf("ParseVec3(%s) error: %v", tt.json, err)
			}
			if got := v.Eval(ctx); got != tt.want {
				t.Errorf("ParseVec3(%s) = %v, want %v", tt.json, got, tt.want)
			}
		})
	}
}

func TestParseVec3Errors(t *testing.T) {
	tests := []struct {
		name    string
		json    string
		wantErr error
	}{
		{"empty array", `[]`, ErrShape},
		{"four components", `[1, 2, 3, 4]`, ErrShape},
		{"object", `{"x": 1}`, ErrShape},
		{"bare number", `5`, ErrShape},
		{"unknown token", `"w"`, ErrShape},
		{"nested array", `[[1]]`, ErrShape},
		{"bad expression", `["1 +"]`, ErrSyntax},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseVec3(gjson.Parse(tt.json))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ParseVec3(%s) error = %v, want %v", tt.json, err, tt.wantErr)
			}
		})
	}
}

func TestParseScalar(t *testing.T) {
	tests := []struct {
		json string
		want float32
	}{
		{`1.5`, 1.5},
		{`"2 * 3"`, 6},
		{`true`, 1},
		{`false`, 0},
	}
	for _, tt := range tests {
		e, err := ParseScalar(gjson.Parse(tt.json))
		if err != nil {
			t.Fatalf("ParseScalar(%s) error: %v", tt.json, err)
		}
		if got := e.Eval(nil); got != tt.want {
			t.Errorf("ParseScalar(%s) = %v, want %v", tt.json, got, tt.want)
		}
	}

	if _, err := ParseScalar(gjson.Parse(`[1]`)); !errors.Is(err, ErrShape) {
		t.Errorf("ParseScalar([1]) error = %v, want ErrShape", err)
	}
}

func TestCanonical(t *testing.T) {
	tests := map[string]string{
		"q.anim_time":     "query.anim_time",
		"v.x":             "variable.x",
		"t.tmp":           "temp.tmp",
		"query.life_time": "query.life_time",
		"math.sin":        "math.sin",
		"Q.Foo":           "query.foo",
	}
	for in, want := range tests {
		if got := Canonical(in); got != want {
			t.Errorf("Canonical(%q) = %q, want %q", in, got, want)
		}
	}
}
