// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package glsl

// TokenKind represents the type of token.
type TokenKind uint8

const (
	TokenEOF TokenKind = iota

	TokenIdent        // user identifier
	TokenKeyword      // language keyword or type name
	TokenBuiltin      // built-in function or gl_ variable
	TokenPreprocessor // whole directive line, continuations included
	TokenOperator     // punctuation and operators
	TokenInteger      // integer literal
	TokenFloat        // floating point literal
	TokenWhitespace   // spaces, tabs and newlines
	TokenLineComment  // // ...
	TokenBlockComment // /* ... */
)

// String returns the string representation of the token kind.
func (k TokenKind) String() string {
	switch k {
	case TokenEOF:
		return "EOF"
	case TokenIdent:
		return "ident"
	case TokenKeyword:
		return "keyword"
	case TokenBuiltin:
		return "builtin"
	case TokenPreprocessor:
		return "preprocessor"
	case TokenOperator:
		return "operator"
	case TokenInteger:
		return "integer"
	case TokenFloat:
		return "float"
	case TokenWhitespace:
		return "whitespace"
	case TokenLineComment:
		return "line-comment"
	case TokenBlockComment:
		return "block-comment"
	default:
		return "Unknown"
	}
}

// Token represents a lexical token.
type Token struct {
	Kind   TokenKind
	Text   string
	Line   int // 1-based line of the first character
	Column int // 1-based column of the first character
	Offset int // byte offset into the tokenized source
}

// End returns the byte offset just past the token.
func (t Token) End() int {
	return t.Offset + len(t.Text)
}

// Is reports whether the token has the given kind and text.
func (t Token) Is(kind TokenKind, text string) bool {
	return t.Kind == kind && t.Text == text
}

// IsOp reports whether the token is the given operator.
func (t Token) IsOp(op string) bool {
	return t.Kind == TokenOperator && t.Text == op
}

// IsWord reports whether the token is an identifier, keyword or builtin.
func (t Token) IsWord() bool {
	return t.Kind == TokenIdent || t.Kind == TokenKeyword || t.Kind == TokenBuiltin
}

// IsTrivia reports whether the token carries no syntax (whitespace or comment).
func (t Token) IsTrivia() bool {
	return t.Kind == TokenWhitespace || t.Kind == TokenLineComment || t.Kind == TokenBlockComment
}

// Significant returns the tokens that are not trivia.
func Significant(tokens []Token) []Token {
	out := make([]Token, 0, len(tokens)/2)
	for _, t := range tokens {
		if !t.IsTrivia() {
			out = append(out, t)
		}
	}
	return out
}
