package molang

import (
	"strconv"
	"strings"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokIdent
	tokString
	tokOp
)

type token struct {
	kind tokenKind
	text string
	num  float32
	pos  int
}

// twoCharOps lists the operators that are longer than one byte.
var twoCharOps = []string{"??", "==", "!=", "<=", ">=", "&&", "||"}

func lex(src string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++

		case isDigit(c) || (c == '.' && i+1 < len(src) && isDigit(src[i+1])):
			start := i
			for i < len(src) && (isDigit(src[i]) || src[i] == '.') {
				i++
			}
			// Molang allows a trailing "f" float suffix.
			text := src[start:i]
			if i < len(src) && (src[i] == 'f' || src[i] == 'F') {
				i++
			}
			v, err := strconv.ParseFloat(text, 32)
			if err != nil {
				return nil, newParseError(src, start, "invalid number %q", text)
			}
			toks = append(toks, token{kind: tokNumber, text: text, num: float32(v), pos: start})

		case isIdentStart(c):
			start := i
			for i < len(src) && (isIdentStart(src[i]) || isDigit(src[i]) || src[i] == '.') {
				i++
			}
			toks = append(toks, token{kind: tokIdent, text: strings.ToLower(src[start:i]), pos: start})

		case c == '\'':
			start := i
			i++
			for i < len(src) && src[i] != '\'' {
				i++
			}
			if i >= len(src) {
				return nil, newParseError(src, start, "unterminated string")
			}
			toks = append(toks, token{kind: tokString, text: src[start+1 : i], pos: start})
			i++

		default:
			op := ""
			for _, two := range twoCharOps {
				if strings.HasPrefix(src[i:], two) {
					op = two
					break
				}
			}
			if op == "" {
				if !strings.ContainsRune("+-*/%()<>!?:,;", rune(c)) {
					return nil, newParseError(src, i, "unexpected character %q", c)
				}
				op = string(c)
			}
			toks = append(toks, token{kind: tokOp, text: op, pos: i})
			i += len(op)
		}
	}
	toks = append(toks, token{kind: tokEOF, pos: len(src)})
	return toks, nil
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
