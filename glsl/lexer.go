// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package glsl

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Lexer tokenizes GLSL source code.
type Lexer struct {
	source    string
	pos       int
	line      int
	column    int
	start     int
	startLine int
	startCol  int
	lineStart bool // only whitespace seen since the last newline
	tokens    []Token
}

// NewLexer creates a new lexer for the given source.
func NewLexer(source string) *Lexer {
	// Whitespace is kept, so expect roughly one token per 3 characters.
	estTokens := len(source) / 3
	if estTokens < 16 {
		estTokens = 16
	}
	return &Lexer{
		source:    source,
		line:      1,
		column:    1,
		lineStart: true,
		tokens:    make([]Token, 0, estTokens),
	}
}

// Tokenize returns all tokens from the source, terminated by TokenEOF.
func (l *Lexer) Tokenize() ([]Token, error) {
	for !l.isAtEnd() {
		l.start = l.pos
		l.startLine = l.line
		l.startCol = l.column
		if err := l.scanToken(); err != nil {
			return nil, err
		}
	}

	l.tokens = append(l.tokens, Token{
		Kind:   TokenEOF,
		Line:   l.line,
		Column: l.column,
		Offset: l.pos,
	})

	return l.tokens, nil
}

// Tokenize is a shorthand for NewLexer(source).Tokenize().
func Tokenize(source string) ([]Token, error) {
	return NewLexer(source).Tokenize()
}

func (l *Lexer) scanToken() error {
	r := l.advance()

	switch {
	case r == '\n' || r == ' ' || r == '\t' || r == '\r' || r == '\f' || r == '\v':
		l.whitespace(r)
		return nil
	case r == '#' && l.lineStart:
		l.directive()
		return nil
	case r == '/' && l.peek() == '/':
		for l.peek() != '\n' && !l.isAtEnd() {
			l.advance()
		}
		l.addToken(TokenLineComment)
		return nil
	case r == '/' && l.peek() == '*':
		l.advance()
		return l.blockComment()
	case isDigit(r) || (r == '.' && isDigit(l.peek())):
		l.number(r)
		return nil
	case isAlpha(r) || r == '_':
		l.identifier()
		return nil
	default:
		l.operator()
		return nil
	}
}

func (l *Lexer) whitespace(first rune) {
	if first == '\n' {
		l.newline()
	}
	for !l.isAtEnd() {
		switch l.peek() {
		case '\n':
			l.advance()
			l.newline()
		case ' ', '\t', '\r', '\f', '\v':
			l.advance()
		default:
			l.tokens = append(l.tokens, l.token(TokenWhitespace))
			return
		}
	}
	l.tokens = append(l.tokens, l.token(TokenWhitespace))
}

// directive consumes a preprocessor line including backslash continuations.
func (l *Lexer) directive() {
	for !l.isAtEnd() {
		c := l.peek()
		if c == '\\' && (l.peekNext() == '\n' || (l.peekNext() == '\r' && l.peekAt(2) == '\n')) {
			l.advance()
			if l.peek() == '\r' {
				l.advance()
			}
			l.advance()
			l.newline()
			continue
		}
		if c == '\n' {
			break
		}
		l.advance()
	}
	l.addToken(TokenPreprocessor)
}

func (l *Lexer) blockComment() error {
	for !l.isAtEnd() {
		if l.peek() == '*' && l.peekNext() == '/' {
			l.advance()
			l.advance()
			l.addToken(TokenBlockComment)
			return nil
		}
		if l.advance() == '\n' {
			l.newline()
		}
	}
	return fmt.Errorf("%d:%d: unterminated block comment", l.startLine, l.startCol)
}

func (l *Lexer) number(first rune) {
	if first == '0' && (l.peek() == 'x' || l.peek() == 'X') {
		l.advance()
		for isHexDigit(l.peek()) {
			l.advance()
		}
		if l.peek() == 'u' || l.peek() == 'U' {
			l.advance()
		}
		l.addToken(TokenInteger)
		return
	}

	isFloat := first == '.'
	for isDigit(l.peek()) {
		l.advance()
	}
	if !isFloat && l.peek() == '.' {
		isFloat = true
		l.advance()
		for isDigit(l.peek()) {
			l.advance()
		}
	}
	if l.peek() == 'e' || l.peek() == 'E' {
		next := l.peekNext()
		if isDigit(next) || ((next == '+' || next == '-') && isDigit(l.peekAt(2))) {
			isFloat = true
			l.advance()
			if l.peek() == '+' || l.peek() == '-' {
				l.advance()
			}
			for isDigit(l.peek()) {
				l.advance()
			}
		}
	}

	switch {
	case isFloat && (l.peek() == 'f' || l.peek() == 'F'):
		l.advance()
	case isFloat && (l.peek() == 'l' || l.peek() == 'L') && (l.peekNext() == 'f' || l.peekNext() == 'F'):
		l.advance()
		l.advance()
	case !isFloat && (l.peek() == 'u' || l.peek() == 'U'):
		l.advance()
	}

	if isFloat {
		l.addToken(TokenFloat)
	} else {
		l.addToken(TokenInteger)
	}
}

func (l *Lexer) identifier() {
	for isAlphaNumeric(l.peek()) || l.peek() == '_' {
		l.advance()
	}
	l.addToken(classifyWord(l.source[l.start:l.pos]))
}

// operators lists multi-character operators, longest first.
var operators = []string{
	"<<=", ">>=",
	"++", "--", "<<", ">>", "<=", ">=", "==", "!=", "&&", "||", "^^",
	"+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=",
}

func (l *Lexer) operator() {
	rest := l.source[l.start:]
	for _, op := range operators {
		if strings.HasPrefix(rest, op) {
			for i := 1; i < len(op); i++ {
				l.advance()
			}
			l.addToken(TokenOperator)
			return
		}
	}
	l.addToken(TokenOperator)
}

func (l *Lexer) token(kind TokenKind) Token {
	return Token{
		Kind:   kind,
		Text:   l.source[l.start:l.pos],
		Line:   l.startLine,
		Column: l.startCol,
		Offset: l.start,
	}
}

func (l *Lexer) addToken(kind TokenKind) {
	l.tokens = append(l.tokens, l.token(kind))
	if kind != TokenWhitespace && kind != TokenBlockComment {
		l.lineStart = false
	}
}

func (l *Lexer) newline() {
	l.line++
	l.column = 1
	l.lineStart = true
}

func (l *Lexer) advance() rune {
	r, size := utf8.DecodeRuneInString(l.source[l.pos:])
	l.pos += size
	l.column++
	return r
}

func (l *Lexer) peek() rune {
	return l.peekAt(0)
}

func (l *Lexer) peekNext() rune {
	return l.peekAt(1)
}

// peekAt returns the byte n positions ahead. Only used for ASCII lookahead.
func (l *Lexer) peekAt(n int) rune {
	if l.pos+n >= len(l.source) {
		return 0
	}
	if n == 0 {
		r, _ := utf8.DecodeRuneInString(l.source[l.pos:])
		return r
	}
	return rune(l.source[l.pos+n])
}

func (l *Lexer) isAtEnd() bool {
	return l.pos >= len(l.source)
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isHexDigit(r rune) bool {
	return isDigit(r) || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

func isAlpha(r rune) bool {
	return unicode.IsLetter(r)
}

func isAlphaNumeric(r rune) bool {
	return isAlpha(r) || isDigit(r)
}

// IsIdentStart reports whether the byte can start an identifier.
func IsIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// IsIdentChar reports whether the byte can continue an identifier.
func IsIdentChar(c byte) bool {
	return IsIdentStart(c) || (c >= '0' && c <= '9')
}
