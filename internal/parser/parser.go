// Package parser lexes and parses BachT agent text into an ast.Expr.
//
// The grammar (precedence low to high, all binary operators
// right-associative):
//
//	agent      := choice
//	choice     := para ("+" choice)?
//	para       := seq  ("||" para)?
//	seq        := simple (";" seq)?
//	simple     := prim | "(" choice ")"
//	prim       := ("tell"|"ask"|"get"|"nask") "(" token ")"
//	token      := [a-z][a-zA-Z0-9_]*
//
// No whitespace is tolerated anywhere in the input.
package parser

import (
	"fmt"

	"github.com/haricheung/agentic-shell/internal/ast"
)

// ErrorKind classifies why Parse rejected its input.
type ErrorKind int

const (
	ErrEmpty ErrorKind = iota
	ErrTrailing
	ErrBadToken
	ErrUnknownPrimitive
	ErrUnbalancedParen
)

func (k ErrorKind) String() string {
	switch k {
	case ErrEmpty:
		return "Empty"
	case ErrTrailing:
		return "Trailing"
	case ErrBadToken:
		return "BadToken"
	case ErrUnknownPrimitive:
		return "UnknownPrimitive"
	case ErrUnbalancedParen:
		return "UnbalancedParen"
	default:
		return "Unknown"
	}
}

// ParseError describes where and why parsing failed.
type ParseError struct {
	Kind     ErrorKind
	Position int
	Detail   string
}

func (e *ParseError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("parse error at position %d: %s: %s", e.Position, e.Kind, e.Detail)
	}
	return fmt.Sprintf("parse error at position %d: %s", e.Position, e.Kind)
}

var primitiveKeywords = [...]ast.Kind{ast.Tell, ast.Ask, ast.Get, ast.Nask}

// Parse parses text into an Expr, or returns a *ParseError describing
// the failing position. Parse consumes the entire input — trailing
// characters after a complete agent expression are an error.
func Parse(text string) (ast.Expr, error) {
	if text == "" {
		return nil, &ParseError{Kind: ErrEmpty, Position: 0}
	}

	p := &parser{input: text}
	expr, err := p.parseChoice()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.input) {
		return nil, &ParseError{Kind: ErrTrailing, Position: p.pos, Detail: p.input[p.pos:]}
	}
	return expr, nil
}

type parser struct {
	input string
	pos   int
}

func (p *parser) rest() string { return p.input[p.pos:] }

func (p *parser) hasPrefix(s string) bool {
	rest := p.rest()
	if len(rest) < len(s) {
		return false
	}
	return rest[:len(s)] == s
}

// parseChoice := para ("+" choice)?
func (p *parser) parseChoice() (ast.Expr, error) {
	left, err := p.parsePara()
	if err != nil {
		return nil, err
	}
	if p.hasPrefix(string(ast.Choice)) {
		p.pos++
		right, err := p.parseChoice()
		if err != nil {
			return nil, err
		}
		return ast.NewNode(ast.Choice, left, right), nil
	}
	return left, nil
}

// parsePara := seq ("||" para)?
func (p *parser) parsePara() (ast.Expr, error) {
	left, err := p.parseSeq()
	if err != nil {
		return nil, err
	}
	if p.hasPrefix(string(ast.Par)) {
		p.pos += len(ast.Par)
		right, err := p.parsePara()
		if err != nil {
			return nil, err
		}
		return ast.NewNode(ast.Par, left, right), nil
	}
	return left, nil
}

// parseSeq := simple (";" seq)?
func (p *parser) parseSeq() (ast.Expr, error) {
	left, err := p.parseSimple()
	if err != nil {
		return nil, err
	}
	if p.hasPrefix(string(ast.Seq)) {
		p.pos++
		right, err := p.parseSeq()
		if err != nil {
			return nil, err
		}
		return ast.NewNode(ast.Seq, left, right), nil
	}
	return left, nil
}

// parseSimple := prim | "(" choice ")"
func (p *parser) parseSimple() (ast.Expr, error) {
	if p.hasPrefix("(") {
		start := p.pos
		p.pos++
		inner, err := p.parseChoice()
		if err != nil {
			return nil, err
		}
		if !p.hasPrefix(")") {
			return nil, &ParseError{Kind: ErrUnbalancedParen, Position: start}
		}
		p.pos++
		return inner, nil
	}

	name, ok := scanIdentifier(p.rest())
	if !ok || !p.hasPrefix(name+"(") {
		return nil, &ParseError{Kind: ErrBadToken, Position: p.pos, Detail: "expected a primitive or '('"}
	}

	kindPos := p.pos
	kind, known := matchPrimitiveKeyword(name)
	p.pos += len(name) + 1 // consume "name("

	tok, ok := scanToken(p.rest())
	if !ok {
		return nil, &ParseError{Kind: ErrBadToken, Position: p.pos, Detail: "invalid token"}
	}
	p.pos += len(tok)

	if !p.hasPrefix(")") {
		return nil, &ParseError{Kind: ErrUnbalancedParen, Position: p.pos}
	}
	p.pos++

	if !known {
		return nil, &ParseError{Kind: ErrUnknownPrimitive, Position: kindPos, Detail: name}
	}
	return ast.NewPrim(kind, ast.Token(tok)), nil
}

func matchPrimitiveKeyword(name string) (ast.Kind, bool) {
	for _, k := range primitiveKeywords {
		if string(k) == name {
			return k, true
		}
	}
	return "", false
}

// scanIdentifier reads a lowercase-leading identifier (the same
// lexical shape as a token) from the start of s, used to recognize a
// "name(" form before deciding whether name is a known primitive.
func scanIdentifier(s string) (string, bool) {
	return scanToken(s)
}

// scanToken reads the longest prefix of s matching the token regex
// ^[a-z][a-zA-Z0-9_]*.
func scanToken(s string) (string, bool) {
	if len(s) == 0 || !isLowerAlpha(s[0]) {
		return "", false
	}
	i := 1
	for i < len(s) && isTokenCont(s[i]) {
		i++
	}
	return s[:i], true
}

func isLowerAlpha(c byte) bool { return c >= 'a' && c <= 'z' }

func isUpperAlpha(c byte) bool { return c >= 'A' && c <= 'Z' }

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isTokenCont(c byte) bool {
	return isLowerAlpha(c) || isUpperAlpha(c) || isDigit(c) || c == '_'
}
