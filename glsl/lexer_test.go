// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package glsl

import (
	"strings"
	"testing"
)

func significantKinds(t *testing.T, source string) []TokenKind {
	t.Helper()
	tokens, err := Tokenize(source)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	var kinds []TokenKind
	for _, tok := range Significant(tokens) {
		kinds = append(kinds, tok.Kind)
	}
	return kinds
}

func TestLexerBasicTokens(t *testing.T) {
	tests := []struct {
		input    string
		expected []TokenKind
	}{
		{"vec4 a;", []TokenKind{TokenKeyword, TokenIdent, TokenOperator, TokenEOF}},
		{"gl_Position = x;", []TokenKind{TokenBuiltin, TokenOperator, TokenIdent, TokenOperator, TokenEOF}},
		{"1 2u 0x1F", []TokenKind{TokenInteger, TokenInteger, TokenInteger, TokenEOF}},
		{"1.0 .5 2e3 1.5f 3.0lf", []TokenKind{TokenFloat, TokenFloat, TokenFloat, TokenFloat, TokenFloat, TokenEOF}},
		{"a.x", []TokenKind{TokenIdent, TokenOperator, TokenIdent, TokenEOF}},
	}

	for _, tt := range tests {
		got := significantKinds(t, tt.input)
		if len(got) != len(tt.expected) {
			t.Errorf("%q: expected %d tokens, got %d (%v)", tt.input, len(tt.expected), len(got), got)
			continue
		}
		for i := range got {
			if got[i] != tt.expected[i] {
				t.Errorf("%q token %d: expected %v, got %v", tt.input, i, tt.expected[i], got[i])
			}
		}
	}
}

func TestLexerOperators(t *testing.T) {
	input := "<<= >>= ++ -- << >> <= >= == != && || ^^ += -= *= /= ; ( ) { } [ ] ? :"
	tokens, err := Tokenize(input)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	want := strings.Fields(input)
	sig := Significant(tokens)
	if len(sig) != len(want)+1 {
		t.Fatalf("Expected %d tokens, got %d", len(want)+1, len(sig))
	}
	for i, w := range want {
		if !sig[i].IsOp(w) {
			t.Errorf("Token %d: expected operator %q, got %v %q", i, w, sig[i].Kind, sig[i].Text)
		}
	}
}

func TestLexerPreprocessor(t *testing.T) {
	source := "#if USE_A\n  # define X \\\n  1\nfloat a; // # not a directive\n#endif\n"
	tokens, err := Tokenize(source)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	var directives []Token
	for _, tok := range tokens {
		if tok.Kind == TokenPreprocessor {
			directives = append(directives, tok)
		}
	}
	if len(directives) != 3 {
		t.Fatalf("Expected 3 directives, got %d", len(directives))
	}
	if directives[0].Text != "#if USE_A" || directives[0].Line != 1 {
		t.Errorf("directive 0 = %q at line %d", directives[0].Text, directives[0].Line)
	}
	if directives[1].Text != "# define X \\\n  1" || directives[1].Line != 2 {
		t.Errorf("directive 1 = %q at line %d", directives[1].Text, directives[1].Line)
	}
	if directives[2].Text != "#endif" || directives[2].Line != 5 {
		t.Errorf("directive 2 = %q at line %d", directives[2].Text, directives[2].Line)
	}
}

func TestLexerOffsetsCoverSource(t *testing.T) {
	source := "precision highp float;\n/* block\ncomment */\nvoid main() { gl_FragColor = vec4(1.0); }\n"
	tokens, err := Tokenize(source)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	var sb strings.Builder
	offset := 0
	for _, tok := range tokens {
		if tok.Offset != offset {
			t.Fatalf("token %q: offset %d, want %d", tok.Text, tok.Offset, offset)
		}
		sb.WriteString(tok.Text)
		offset = tok.End()
	}
	if sb.String() != source {
		t.Errorf("concatenated tokens do not reproduce the source")
	}
}

func TestLexerLineNumbers(t *testing.T) {
	source := "a\n/* x\ny */ b\n\nc"
	tokens, err := Tokenize(source)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	lines := map[string]int{}
	for _, tok := range tokens {
		if tok.Kind == TokenIdent {
			lines[tok.Text] = tok.Line
		}
	}
	want := map[string]int{"a": 1, "b": 3, "c": 5}
	for name, line := range want {
		if lines[name] != line {
			t.Errorf("%s: line %d, want %d", name, lines[name], line)
		}
	}
}

func TestLexerUnterminatedComment(t *testing.T) {
	_, err := Tokenize("float a; /* never closed")
	if err == nil {
		t.Fatal("expected error for unterminated block comment")
	}
	if !strings.Contains(err.Error(), "1:10") {
		t.Errorf("error %q should carry the comment position", err)
	}
}

func TestCursorSignificant(t *testing.T) {
	tokens, err := Tokenize("uniform  /* c */ vec4 color ;")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	cur := NewCursor(tokens)
	if tok := cur.NextSignificant(); tok.Text != "uniform" {
		t.Fatalf("got %q, want uniform", tok.Text)
	}
	if tok := cur.PeekSignificant(); tok.Text != "vec4" {
		t.Fatalf("peek got %q, want vec4", tok.Text)
	}
	cur.NextSignificant()
	cur.NextSignificant()
	if !cur.AcceptOp(";") {
		t.Fatal("expected ';'")
	}
	cur.SkipTrivia()
	if !cur.Done() {
		t.Errorf("cursor should be at EOF, at %q", cur.Peek().Text)
	}
}

func TestCursorSkipBalanced(t *testing.T) {
	tokens, err := Tokenize("{ a { b } c } d")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	cur := NewCursor(tokens)
	cur.NextSignificant()
	closing := cur.SkipBalanced("{", "}")
	if !closing.IsOp("}") || closing.Offset != 12 {
		t.Errorf("closing = %q at %d", closing.Text, closing.Offset)
	}
	if tok := cur.NextSignificant(); tok.Text != "d" {
		t.Errorf("after group got %q, want d", tok.Text)
	}
}
