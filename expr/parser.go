// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package expr

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gogpu/effectc/glsl"
)

// Node is an expression AST node.
type Node interface {
	node()
}

// Literal is a number or boolean constant.
type Literal struct {
	Value Value
}

// Ident is a macro or identifier reference.
type Ident struct {
	Name string
}

// Defined is the preprocessor defined(NAME) operator.
type Defined struct {
	Name string
}

// Unary is a prefix operation.
type Unary struct {
	Op string
	X  Node
}

// Binary is an infix operation.
type Binary struct {
	Op          string
	Left, Right Node
}

func (*Literal) node() {}
func (*Ident) node()   {}
func (*Defined) node() {}
func (*Unary) node()   {}
func (*Binary) node()  {}

// ParseError represents an expression syntax error.
type ParseError struct {
	Message string
	Token   glsl.Token
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("column %d: %s", e.Token.Column, e.Message)
}

// Parser parses constant expressions with a precedence-climbing
// recursive descent.
type Parser struct {
	tokens  []glsl.Token
	current int
}

// NewParser creates a parser over significant tokens. The sequence must end
// with TokenEOF.
func NewParser(tokens []glsl.Token) *Parser {
	return &Parser{tokens: glsl.Significant(tokens)}
}

// Parse parses source as a single expression.
func Parse(source string) (Node, error) {
	tokens, err := glsl.Tokenize(source)
	if err != nil {
		return nil, err
	}
	p := NewParser(tokens)
	n, perr := p.Parse()
	if perr != nil {
		return nil, perr
	}
	return n, nil
}

// Parse parses an expression and requires all input to be consumed.
func (p *Parser) Parse() (Node, *ParseError) {
	if p.isAtEnd() {
		return nil, p.errorf("empty expression")
	}
	n, err := p.logicalOr()
	if err != nil {
		return nil, err
	}
	if !p.isAtEnd() {
		return nil, p.errorf("unexpected %q", p.peek().Text)
	}
	return n, nil
}

// logicalOr parses || expressions.
func (p *Parser) logicalOr() (Node, *ParseError) {
	return p.binary(p.logicalAnd, "||")
}

// logicalAnd parses && expressions.
func (p *Parser) logicalAnd() (Node, *ParseError) {
	return p.binary(p.equality, "&&")
}

// equality parses == and != expressions.
func (p *Parser) equality() (Node, *ParseError) {
	return p.binary(p.comparison, "==", "!=")
}

// comparison parses ordering comparisons.
func (p *Parser) comparison() (Node, *ParseError) {
	return p.binary(p.additive, "<", "<=", ">", ">=")
}

// additive parses + and - expressions.
func (p *Parser) additive() (Node, *ParseError) {
	return p.binary(p.multiplicative, "+", "-")
}

// multiplicative parses *, / and % expressions.
func (p *Parser) multiplicative() (Node, *ParseError) {
	return p.binary(p.unary, "*", "/", "%")
}

func (p *Parser) binary(operand func() (Node, *ParseError), ops ...string) (Node, *ParseError) {
	left, err := operand()
	if err != nil {
		return nil, err
	}

	for {
		op, ok := p.matchOp(ops...)
		if !ok {
			return left, nil
		}
		right, err := operand()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: op, Left: left, Right: right}
	}
}

// unary parses prefix operators.
func (p *Parser) unary() (Node, *ParseError) {
	if op, ok := p.matchOp("!", "-", "+"); ok {
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &Unary{Op: op, X: x}, nil
	}
	return p.primary()
}

// primary parses literals, identifiers, defined() and parenthesized expressions.
func (p *Parser) primary() (Node, *ParseError) {
	tok := p.peek()

	switch {
	case tok.Kind == glsl.TokenInteger || tok.Kind == glsl.TokenFloat:
		p.advance()
		v, err := parseNumber(tok)
		if err != nil {
			return nil, &ParseError{Message: err.Error(), Token: tok}
		}
		return &Literal{Value: v}, nil

	case tok.Is(glsl.TokenKeyword, "true"):
		p.advance()
		return &Literal{Value: Bool(true)}, nil

	case tok.Is(glsl.TokenKeyword, "false"):
		p.advance()
		return &Literal{Value: Bool(false)}, nil

	case tok.Is(glsl.TokenIdent, "defined"):
		p.advance()
		paren := p.checkOp("(")
		if paren {
			p.advance()
		}
		name := p.peek()
		if !name.IsWord() {
			return nil, p.errorf("expected macro name after defined")
		}
		p.advance()
		if paren {
			if _, ok := p.matchOp(")"); !ok {
				return nil, p.errorf("expected ')' after defined(%s", name.Text)
			}
		}
		return &Defined{Name: name.Text}, nil

	case tok.IsWord():
		p.advance()
		return &Ident{Name: tok.Text}, nil

	case tok.IsOp("("):
		p.advance()
		n, err := p.logicalOr()
		if err != nil {
			return nil, err
		}
		if _, ok := p.matchOp(")"); !ok {
			return nil, p.errorf("expected ')'")
		}
		return n, nil
	}

	if p.isAtEnd() {
		return nil, p.errorf("unexpected end of expression")
	}
	return nil, p.errorf("unexpected %q", tok.Text)
}

func parseNumber(tok glsl.Token) (Value, error) {
	text := tok.Text
	if tok.Kind == glsl.TokenFloat {
		text = strings.TrimRight(text, "fFlL")
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return Value{}, fmt.Errorf("invalid float literal %q", tok.Text)
		}
		return Float(f), nil
	}
	text = strings.TrimRight(text, "uU")
	n, err := strconv.ParseInt(text, 0, 64)
	if err != nil {
		u, uerr := strconv.ParseUint(text, 0, 64)
		if uerr != nil {
			return Value{}, fmt.Errorf("invalid integer literal %q", tok.Text)
		}
		n = int64(u) //nolint:gosec // G115: wraps like the GLSL preprocessor
	}
	return Int(n), nil
}

func (p *Parser) advance() glsl.Token {
	tok := p.tokens[p.current]
	if !p.isAtEnd() {
		p.current++
	}
	return tok
}

func (p *Parser) peek() glsl.Token {
	return p.tokens[p.current]
}

func (p *Parser) isAtEnd() bool {
	return p.tokens[p.current].Kind == glsl.TokenEOF
}

func (p *Parser) checkOp(op string) bool {
	return p.peek().IsOp(op)
}

func (p *Parser) matchOp(ops ...string) (string, bool) {
	for _, op := range ops {
		if p.checkOp(op) {
			p.advance()
			return op, true
		}
	}
	return "", false
}

func (p *Parser) errorf(format string, args ...any) *ParseError {
	return &ParseError{Message: fmt.Sprintf(format, args...), Token: p.peek()}
}
