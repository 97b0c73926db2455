// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package validate

import (
	"fmt"

	"github.com/gogpu/effectc/diag"
	"github.com/gogpu/effectc/glsl"
)

// Syntax checks tokens against the GLSL ES 1.00 grammar. Preprocessor
// lines are ignored, so both sides of a conditional must parse. The first
// error is returned with the line of the offending token.
func Syntax(tokens []glsl.Token) error {
	var sig []glsl.Token
	for _, t := range tokens {
		if t.IsTrivia() || t.Kind == glsl.TokenPreprocessor {
			continue
		}
		sig = append(sig, t)
	}
	if len(sig) == 0 || sig[len(sig)-1].Kind != glsl.TokenEOF {
		sig = append(sig, glsl.Token{Kind: glsl.TokenEOF})
	}
	p := &parser{tokens: sig, structs: make(map[string]bool)}
	return p.translationUnit()
}

// parser is a recognizer: it builds no tree and stops at the first error.
type parser struct {
	tokens  []glsl.Token
	current int
	structs map[string]bool
}

var declQualifiers = map[string]bool{
	"const": true, "attribute": true, "varying": true, "uniform": true, "invariant": true,
	"lowp": true, "mediump": true, "highp": true,
}

var paramQualifiers = map[string]bool{
	"const": true, "in": true, "out": true, "inout": true,
	"lowp": true, "mediump": true, "highp": true,
}

var assignOps = map[string]bool{
	"=": true, "+=": true, "-=": true, "*=": true, "/=": true, "%=": true,
	"<<=": true, ">>=": true, "&=": true, "^=": true, "|=": true,
}

var binaryPrecedence = map[string]int{
	"||": 1, "^^": 2, "&&": 3,
	"|": 4, "^": 5, "&": 6,
	"==": 7, "!=": 7,
	"<": 8, ">": 8, "<=": 8, ">=": 8,
	"<<": 9, ">>": 9,
	"+": 10, "-": 10,
	"*": 11, "/": 11, "%": 11,
}

func (p *parser) translationUnit() error {
	for !p.isAtEnd() {
		if p.matchOp(";") {
			continue
		}
		if err := p.external(); err != nil {
			return err
		}
	}
	return nil
}

// external parses a global declaration or function definition.
func (p *parser) external() error {
	if p.checkWord("precision") {
		return p.precisionStmt()
	}
	p.qualifiers(declQualifiers)
	if p.checkWord("struct") {
		if err := p.structSpec(); err != nil {
			return err
		}
		if p.matchOp(";") {
			return nil
		}
		return p.declarators()
	}
	if err := p.typeSpec(); err != nil {
		return err
	}
	if _, err := p.identifier(); err != nil {
		return err
	}
	if p.matchOp("(") {
		if err := p.parameters(); err != nil {
			return err
		}
		if p.matchOp(";") {
			return nil
		}
		return p.compound()
	}
	return p.declaratorRest()
}

func (p *parser) precisionStmt() error {
	p.advance()
	if !glsl.IsPrecision(p.peek().Text) {
		return p.unexpected("precision qualifier")
	}
	p.advance()
	if err := p.typeSpec(); err != nil {
		return err
	}
	return p.expectOp(";")
}

func (p *parser) qualifiers(allowed map[string]bool) {
	for p.peek().Kind == glsl.TokenKeyword && allowed[p.peek().Text] {
		p.advance()
	}
}

func (p *parser) structSpec() error {
	p.advance()
	if p.peek().Kind == glsl.TokenIdent {
		p.structs[p.advance().Text] = true
	}
	if err := p.expectOp("{"); err != nil {
		return err
	}
	for !p.checkOp("}") {
		if p.isAtEnd() {
			return p.unexpected("'}'")
		}
		p.qualifiers(declQualifiers)
		if err := p.typeSpec(); err != nil {
			return err
		}
		if err := p.declarators(); err != nil {
			return err
		}
	}
	p.advance()
	return nil
}

// typeSpec accepts a basic type, a declared struct or an identifier that
// may be a macro expanding to a type.
func (p *parser) typeSpec() error {
	tok := p.peek()
	switch {
	case tok.Kind == glsl.TokenKeyword && isTypeName(tok.Text):
		p.advance()
		return nil
	case tok.Kind == glsl.TokenIdent:
		p.advance()
		return nil
	}
	return p.unexpected("type")
}

func isTypeName(name string) bool {
	if name == "void" {
		return true
	}
	_, ok := glsl.LookupType(name)
	return ok
}

func (p *parser) identifier() (glsl.Token, error) {
	tok := p.peek()
	if tok.Kind != glsl.TokenIdent && tok.Kind != glsl.TokenBuiltin {
		return tok, p.unexpected("identifier")
	}
	return p.advance(), nil
}

// declarators parses "name[n] = init, ..." up to and including ';'.
func (p *parser) declarators() error {
	if _, err := p.identifier(); err != nil {
		return err
	}
	return p.declaratorRest()
}

// declaratorRest continues declarators after the first name.
func (p *parser) declaratorRest() error {
	for {
		if p.matchOp("[") {
			if err := p.expression(); err != nil {
				return err
			}
			if err := p.expectOp("]"); err != nil {
				return err
			}
		}
		if p.matchOp("=") {
			if err := p.assignment(); err != nil {
				return err
			}
		}
		if !p.matchOp(",") {
			return p.expectOp(";")
		}
		if _, err := p.identifier(); err != nil {
			return err
		}
	}
}

// parameters parses a parameter list after '(' up to and including ')'.
func (p *parser) parameters() error {
	if p.matchOp(")") {
		return nil
	}
	if p.checkWord("void") && p.peekAt(1).IsOp(")") {
		p.advance()
		p.advance()
		return nil
	}
	for {
		p.qualifiers(paramQualifiers)
		if err := p.typeSpec(); err != nil {
			return err
		}
		if k := p.peek().Kind; k == glsl.TokenIdent || k == glsl.TokenBuiltin {
			p.advance()
		}
		if p.matchOp("[") {
			if err := p.expression(); err != nil {
				return err
			}
			if err := p.expectOp("]"); err != nil {
				return err
			}
		}
		if !p.matchOp(",") {
			return p.expectOp(")")
		}
	}
}

func (p *parser) compound() error {
	if err := p.expectOp("{"); err != nil {
		return err
	}
	for !p.checkOp("}") {
		if p.isAtEnd() {
			return p.unexpected("'}'")
		}
		if err := p.statement(); err != nil {
			return err
		}
	}
	p.advance()
	return nil
}

func (p *parser) statement() error {
	tok := p.peek()
	switch {
	case tok.IsOp("{"):
		return p.compound()
	case tok.IsOp(";"):
		p.advance()
		return nil
	case tok.Is(glsl.TokenKeyword, "if"):
		return p.ifStmt()
	case tok.Is(glsl.TokenKeyword, "for"):
		return p.forStmt()
	case tok.Is(glsl.TokenKeyword, "while"):
		p.advance()
		if err := p.condition(); err != nil {
			return err
		}
		return p.statement()
	case tok.Is(glsl.TokenKeyword, "do"):
		p.advance()
		if err := p.statement(); err != nil {
			return err
		}
		if !p.checkWord("while") {
			return p.unexpected("'while'")
		}
		p.advance()
		if err := p.condition(); err != nil {
			return err
		}
		return p.expectOp(";")
	case tok.Is(glsl.TokenKeyword, "return"):
		p.advance()
		if p.matchOp(";") {
			return nil
		}
		if err := p.expression(); err != nil {
			return err
		}
		return p.expectOp(";")
	case tok.Is(glsl.TokenKeyword, "break"), tok.Is(glsl.TokenKeyword, "continue"),
		tok.Is(glsl.TokenKeyword, "discard"):
		p.advance()
		return p.expectOp(";")
	case p.isDeclaration():
		return p.localDeclaration()
	}
	if err := p.expression(); err != nil {
		return err
	}
	return p.expectOp(";")
}

func (p *parser) condition() error {
	if err := p.expectOp("("); err != nil {
		return err
	}
	if err := p.expression(); err != nil {
		return err
	}
	return p.expectOp(")")
}

func (p *parser) ifStmt() error {
	p.advance()
	if err := p.condition(); err != nil {
		return err
	}
	if err := p.statement(); err != nil {
		return err
	}
	if p.checkWord("else") {
		p.advance()
		return p.statement()
	}
	return nil
}

func (p *parser) forStmt() error {
	p.advance()
	if err := p.expectOp("("); err != nil {
		return err
	}
	switch {
	case p.matchOp(";"):
	case p.isDeclaration():
		if err := p.localDeclaration(); err != nil {
			return err
		}
	default:
		if err := p.expression(); err != nil {
			return err
		}
		if err := p.expectOp(";"); err != nil {
			return err
		}
	}
	if !p.checkOp(";") {
		if err := p.expression(); err != nil {
			return err
		}
	}
	if err := p.expectOp(";"); err != nil {
		return err
	}
	if !p.checkOp(")") {
		if err := p.expression(); err != nil {
			return err
		}
	}
	if err := p.expectOp(")"); err != nil {
		return err
	}
	return p.statement()
}

// isDeclaration reports whether the statement at the cursor declares
// variables: it starts with a qualifier or struct, or with a type followed
// by a name.
func (p *parser) isDeclaration() bool {
	tok, next := p.peek(), p.peekAt(1)
	switch {
	case tok.Kind == glsl.TokenKeyword && (declQualifiers[tok.Text] || tok.Text == "struct"):
		return true
	case tok.Kind == glsl.TokenKeyword && isTypeName(tok.Text):
		return next.Kind == glsl.TokenIdent
	case tok.Kind == glsl.TokenIdent:
		return next.Kind == glsl.TokenIdent
	}
	return false
}

func (p *parser) localDeclaration() error {
	p.qualifiers(declQualifiers)
	if p.checkWord("struct") {
		if err := p.structSpec(); err != nil {
			return err
		}
		if p.matchOp(";") {
			return nil
		}
		return p.declarators()
	}
	if err := p.typeSpec(); err != nil {
		return err
	}
	return p.declarators()
}

// expression parses a comma expression.
func (p *parser) expression() error {
	for {
		if err := p.assignment(); err != nil {
			return err
		}
		if !p.matchOp(",") {
			return nil
		}
	}
}

func (p *parser) assignment() error {
	if err := p.conditional(); err != nil {
		return err
	}
	if tok := p.peek(); tok.Kind == glsl.TokenOperator && assignOps[tok.Text] {
		p.advance()
		return p.assignment()
	}
	return nil
}

func (p *parser) conditional() error {
	if err := p.binary(1); err != nil {
		return err
	}
	if !p.matchOp("?") {
		return nil
	}
	if err := p.expression(); err != nil {
		return err
	}
	if err := p.expectOp(":"); err != nil {
		return err
	}
	return p.assignment()
}

// binary parses operators binding at least as tightly as minPrec.
func (p *parser) binary(minPrec int) error {
	if err := p.unary(); err != nil {
		return err
	}
	for {
		tok := p.peek()
		prec, ok := binaryPrecedence[tok.Text]
		if tok.Kind != glsl.TokenOperator || !ok || prec < minPrec {
			return nil
		}
		p.advance()
		if err := p.binary(prec + 1); err != nil {
			return err
		}
	}
}

func (p *parser) unary() error {
	switch tok := p.peek(); {
	case tok.IsOp("+"), tok.IsOp("-"), tok.IsOp("!"), tok.IsOp("~"), tok.IsOp("++"), tok.IsOp("--"):
		p.advance()
		return p.unary()
	}
	return p.postfix()
}

func (p *parser) postfix() error {
	if err := p.primary(); err != nil {
		return err
	}
	for {
		switch {
		case p.matchOp("["):
			if err := p.expression(); err != nil {
				return err
			}
			if err := p.expectOp("]"); err != nil {
				return err
			}
		case p.matchOp("("):
			if err := p.arguments(); err != nil {
				return err
			}
		case p.matchOp("."):
			if !p.peek().IsWord() {
				return p.unexpected("field name")
			}
			p.advance()
		case p.matchOp("++"), p.matchOp("--"):
		default:
			return nil
		}
	}
}

func (p *parser) arguments() error {
	if p.matchOp(")") {
		return nil
	}
	if p.checkWord("void") && p.peekAt(1).IsOp(")") {
		p.advance()
		p.advance()
		return nil
	}
	for {
		if err := p.assignment(); err != nil {
			return err
		}
		if !p.matchOp(",") {
			return p.expectOp(")")
		}
	}
}

func (p *parser) primary() error {
	tok := p.peek()
	switch {
	case tok.Kind == glsl.TokenIdent, tok.Kind == glsl.TokenBuiltin,
		tok.Kind == glsl.TokenInteger, tok.Kind == glsl.TokenFloat,
		tok.Is(glsl.TokenKeyword, "true"), tok.Is(glsl.TokenKeyword, "false"):
		p.advance()
		return nil
	case tok.Kind == glsl.TokenKeyword && isTypeName(tok.Text) && p.peekAt(1).IsOp("("):
		p.advance()
		return nil
	case tok.IsOp("("):
		p.advance()
		if err := p.expression(); err != nil {
			return err
		}
		return p.expectOp(")")
	}
	return p.unexpected("expression")
}

// Helper methods

func (p *parser) advance() glsl.Token {
	tok := p.tokens[p.current]
	if !p.isAtEnd() {
		p.current++
	}
	return tok
}

func (p *parser) peek() glsl.Token {
	return p.tokens[p.current]
}

func (p *parser) peekAt(n int) glsl.Token {
	if p.current+n >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.current+n]
}

func (p *parser) isAtEnd() bool {
	return p.peek().Kind == glsl.TokenEOF
}

func (p *parser) checkOp(op string) bool {
	return p.peek().IsOp(op)
}

func (p *parser) checkWord(word string) bool {
	return p.peek().Is(glsl.TokenKeyword, word)
}

func (p *parser) matchOp(op string) bool {
	if p.checkOp(op) {
		p.advance()
		return true
	}
	return false
}

func (p *parser) expectOp(op string) error {
	if p.matchOp(op) {
		return nil
	}
	return p.unexpected(fmt.Sprintf("'%s'", op))
}

func (p *parser) unexpected(want string) error {
	tok := p.peek()
	if tok.Kind == glsl.TokenEOF {
		return diag.Errorf(tok.Line, "syntax error: expected %s, found end of source", want)
	}
	return diag.Errorf(tok.Line, "syntax error: expected %s, found '%s'", want, tok.Text)
}
