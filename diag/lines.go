// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package diag

import "strings"

// LineMap maps the lines of generated text back to the lines of the
// source it was generated from. Passes that insert or remove lines record
// it with Splice; diagnostics are then translated with Source.
//
// A nil *LineMap is valid and maps every line to itself.
type LineMap struct {
	src []int // src[i] is the source line of generated line i+1
}

// NewLineMap returns the identity map for code.
func NewLineMap(code string) *LineMap {
	n := strings.Count(code, "\n") + 1
	m := &LineMap{src: make([]int, n)}
	for i := range m.src {
		m.src[i] = i + 1
	}
	return m
}

// Splice records that removed generated lines starting at line were
// replaced by added lines. All added lines map to the source of line.
func (m *LineMap) Splice(line, removed, added int) {
	if m == nil || line < 1 || line > len(m.src) || removed == added {
		return
	}
	removed = min(removed, len(m.src)-line+1)
	origin := m.src[line-1]
	out := make([]int, 0, len(m.src)-removed+added)
	out = append(out, m.src[:line-1]...)
	for range added {
		out = append(out, origin)
	}
	out = append(out, m.src[line-1+removed:]...)
	m.src = out
}

// Source returns the source line of a generated line. Lines past the end
// keep their distance from the last mapped line.
func (m *LineMap) Source(line int) int {
	if m == nil || line < 1 || len(m.src) == 0 {
		return line
	}
	if line > len(m.src) {
		return m.src[len(m.src)-1] + line - len(m.src)
	}
	return m.src[line-1]
}

// Map translates the line of d in place. It returns d.
func (m *LineMap) Map(d *Diagnostic) *Diagnostic {
	if d != nil && d.Line > 0 {
		d.Line = m.Source(d.Line)
	}
	return d
}
