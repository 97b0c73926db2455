// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package glsl

// Cursor walks an immutable token sequence. All position state lives in
// the cursor, so several cursors can scan the same tokens independently.
type Cursor struct {
	tokens []Token
	pos    int
}

// NewCursor creates a cursor positioned at the first token.
func NewCursor(tokens []Token) *Cursor {
	if len(tokens) == 0 || tokens[len(tokens)-1].Kind != TokenEOF {
		end := 0
		if len(tokens) > 0 {
			end = tokens[len(tokens)-1].End()
		}
		tokens = append(tokens[:len(tokens):len(tokens)], Token{Kind: TokenEOF, Offset: end})
	}
	return &Cursor{tokens: tokens}
}

// Tokens returns the underlying token sequence.
func (c *Cursor) Tokens() []Token {
	return c.tokens
}

// Pos returns the index of the current token.
func (c *Cursor) Pos() int {
	return c.pos
}

// Seek moves the cursor to the given token index.
func (c *Cursor) Seek(pos int) {
	switch {
	case pos < 0:
		c.pos = 0
	case pos >= len(c.tokens):
		c.pos = len(c.tokens) - 1
	default:
		c.pos = pos
	}
}

// Done reports whether the cursor reached EOF.
func (c *Cursor) Done() bool {
	return c.tokens[c.pos].Kind == TokenEOF
}

// Peek returns the current token without consuming it.
func (c *Cursor) Peek() Token {
	return c.tokens[c.pos]
}

// Next consumes and returns the current token.
func (c *Cursor) Next() Token {
	t := c.tokens[c.pos]
	if t.Kind != TokenEOF {
		c.pos++
	}
	return t
}

// SkipTrivia advances past whitespace and comments.
func (c *Cursor) SkipTrivia() {
	for c.tokens[c.pos].IsTrivia() {
		c.pos++
	}
}

// PeekSignificant returns the next non-trivia token without consuming it.
func (c *Cursor) PeekSignificant() Token {
	i := c.pos
	for c.tokens[i].IsTrivia() {
		i++
	}
	return c.tokens[i]
}

// NextSignificant consumes trivia and returns the next non-trivia token.
func (c *Cursor) NextSignificant() Token {
	c.SkipTrivia()
	return c.Next()
}

// AcceptOp consumes the next significant token if it is the given operator.
func (c *Cursor) AcceptOp(op string) bool {
	if c.PeekSignificant().IsOp(op) {
		c.NextSignificant()
		return true
	}
	return false
}

// SkipBalanced consumes tokens up to and including the operator closing the
// group opened by open. The opening operator must already be consumed.
// Returns the closing token, or EOF if the group is unterminated.
func (c *Cursor) SkipBalanced(open, close string) Token {
	depth := 1
	for !c.Done() {
		t := c.Next()
		if t.Kind != TokenOperator {
			continue
		}
		switch t.Text {
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return t
			}
		}
	}
	return c.Peek()
}
