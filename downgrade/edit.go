// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package downgrade

import (
	"slices"
	"strings"

	"github.com/gogpu/effectc/glsl"
)

// edit replaces code[start:end] with text.
type edit struct {
	start, end int
	text       string
}

// apply performs non-overlapping edits on code.
func apply(code string, edits []edit) string {
	if len(edits) == 0 {
		return code
	}
	slices.SortStableFunc(edits, func(a, b edit) int { return a.start - b.start })
	var sb strings.Builder
	sb.Grow(len(code))
	last := 0
	for _, e := range edits {
		if e.start < last {
			continue
		}
		sb.WriteString(code[last:e.start])
		sb.WriteString(e.text)
		last = e.end
	}
	sb.WriteString(code[last:])
	return sb.String()
}

// blank returns the newlines of text, which keeps line numbers when text
// is removed.
func blank(text string) string {
	return strings.Repeat("\n", strings.Count(text, "\n"))
}

// nextSignificant returns the index of the first non-trivia token at or
// after i.
func nextSignificant(tokens []glsl.Token, i int) int {
	for i < len(tokens) && tokens[i].IsTrivia() {
		i++
	}
	return i
}

// prevSignificant returns the index of the last non-trivia token before i,
// or -1.
func prevSignificant(tokens []glsl.Token, i int) int {
	for i--; i >= 0 && tokens[i].IsTrivia(); i-- {
	}
	return i
}

// closing returns the index of the token closing the group opened at
// tokens[open].
func closing(tokens []glsl.Token, open int, openOp, closeOp string) int {
	depth := 0
	for i := open; i < len(tokens); i++ {
		switch {
		case tokens[i].IsOp(openOp):
			depth++
		case tokens[i].IsOp(closeOp):
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return len(tokens) - 1
}
