package molang

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSyntax is wrapped by every ParseError.
var ErrSyntax = errors.New("molang: syntax error")

// ParseError describes a malformed expression.
type ParseError struct {
	Source string
	Pos    int
	Msg    string
}

func newParseError(src string, pos int, format string, args ...any) *ParseError {
	return &ParseError{Source: src, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("molang: %s at offset %d in %q", e.Msg, e.Pos, e.Source)
}

func (e *ParseError) Unwrap() error { return ErrSyntax }

// namespaceAliases maps the short namespace prefixes to their canonical form.
var namespaceAliases = map[string]string{
	"q": "query",
	"v": "variable",
	"t": "temp",
	"c": "context",
}

// Canonical returns the canonical lookup name for an identifier, expanding the
// short namespace aliases ("q.anim_time" becomes "query.anim_time").
func Canonical(name string) string {
	name = strings.ToLower(name)
	ns, rest, ok := strings.Cut(name, ".")
	if !ok {
		return name
	}
	if full, ok := namespaceAliases[ns]; ok {
		return full + "." + rest
	}
	return name
}

// Parse parses a scalar expression. A single trailing semicolon is accepted,
// as authoring tools commonly emit one.
func Parse(src string) (Expr, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{src: src, toks: toks}
	e, err := p.expr()
	if err != nil {
		return nil, err
	}
	if p.peek().text == ";" {
		p.next()
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, newParseError(src, t.pos, "unexpected %q", t.text)
	}
	return e, nil
}

// MustParse is like Parse but panics on error. It is meant for constants in
// code and tests.
func MustParse(src string) Expr {
	e, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return e
}

type parser struct {
	src  string
	toks []token
	i    int
}

func (p *parser) peek() token { return p.toks[p.i] }

func (p *parser) next() token {
	t := p.toks[p.i]
	if t.kind != tokEOF {
		p.i++
	}
	return t
}

func (p *parser) accept(op string) bool {
	if t := p.peek(); t.kind == tokOp && t.text == op {
		p.i++
		return true
	}
	return false
}

func (p *parser) expect(op string) error {
	if !p.accept(op) {
		t := p.peek()
		return newParseError(p.src, t.pos, "expected %q", op)
	}
	return nil
}

func (p *parser) expr() (Expr, error) {
	return p.conditional()
}

// conditional := coalesce ("?" expr (":" expr)?)?
func (p *parser) conditional() (Expr, error) {
	cond, err := p.coalesce()
	if err != nil {
		return nil, err
	}
	if !p.accept("?") {
		return cond, nil
	}
	then, err := p.expr()
	if err != nil {
		return nil, err
	}
	var els Expr
	if p.accept(":") {
		if els, err = p.expr(); err != nil {
			return nil, err
		}
	}
	return fold(ternary{cond: cond, then: then, els: els}), nil
}

var precedence = [][]string{
	{"??"},
	{"||"},
	{"&&"},
	{"==", "!="},
	{"<", "<=", ">", ">="},
	{"+", "-"},
	{"*", "/", "%"},
}

func (p *parser) coalesce() (Expr, error) {
	return p.binaryLevel(0)
}

func (p *parser) binaryLevel(level int) (Expr, error) {
	if level == len(precedence) {
		return p.unary()
	}
	left, err := p.binaryLevel(level + 1)
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.kind != tokOp || !contains(precedence[level], t.text) {
			return left, nil
		}
		p.next()
		right, err := p.binaryLevel(level + 1)
		if err != nil {
			return nil, err
		}
		left = fold(binary{op: t.text, l: left, r: right})
	}
}

func (p *parser) unary() (Expr, error) {
	t := p.peek()
	if t.kind == tokOp && (t.text == "-" || t.text == "!" || t.text == "+") {
		p.next()
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		return fold(unary{op: t.text, x: x}), nil
	}
	return p.primary()
}

func (p *parser) primary() (Expr, error) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		return constant(t.num), nil

	case tokOp:
		if t.text == "(" {
			e, err := p.expr()
			if err != nil {
				return nil, err
			}
			if err := p.expect(")"); err != nil {
				return nil, err
			}
			return e, nil
		}

	case tokIdent:
		return p.identifier(t)

	case tokEOF:
		return nil, newParseError(p.src, t.pos, "unexpected end of expression")
	}
	return nil, newParseError(p.src, t.pos, "unexpected %q", t.text)
}

func (p *parser) identifier(t token) (Expr, error) {
	name := Canonical(t.text)
	switch name {
	case "true":
		return constant(1), nil
	case "false":
		return constant(0), nil
	}

	if fn, ok := mathFunctions[name]; ok {
		if err := p.expect("("); err != nil {
			return nil, err
		}
		var args []Expr
		if !p.accept(")") {
			for {
				a, err := p.expr()
				if err != nil {
					return nil, err
				}
				args = append(args, a)
				if p.accept(")") {
					break
				}
				if err := p.expect(","); err != nil {
					return nil, err
				}
			}
		}
		if len(args) != fn.arity {
			return nil, newParseError(p.src, t.pos, "%s takes %d arguments, got %d", name, fn.arity, len(args))
		}
		return fold(call{fn: fn, args: args}), nil
	}

	if c, ok := mathConstants[name]; ok {
		return constant(c), nil
	}

	if strings.HasPrefix(name, "math.") {
		return nil, newParseError(p.src, t.pos, "unknown function %s", name)
	}
	if !strings.Contains(name, ".") {
		return nil, newParseError(p.src, t.pos, "unqualified name %s", name)
	}
	return lookup(name), nil
}

// fold collapses a node whose operands are all constant into a constant.
func fold(e Expr) Expr {
	switch n := e.(type) {
	case unary:
		if _, ok := n.x.(constant); !ok {
			return e
		}
	case binary:
		if n.op == "??" {
			return e
		}
		_, lc := n.l.(constant)
		_, rc := n.r.(constant)
		if !lc || !rc {
			return e
		}
	case ternary:
		if _, ok := n.cond.(constant); !ok {
			return e
		}
		if _, ok := n.then.(constant); !ok {
			return e
		}
		if n.els != nil {
			if _, ok := n.els.(constant); !ok {
				return e
			}
		}
	case call:
		for _, a := range n.args {
			if _, ok := a.(constant); !ok {
				return e
			}
		}
	default:
		return e
	}
	return constant(e.Eval(nil))
}

func contains(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}
