// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package diag

import "testing"

func TestLineMapSplice(t *testing.T) {
	m := NewLineMap("a\nb\nc\nd")
	m.Splice(2, 1, 3) // b became three lines
	m.Splice(5, 2, 1) // c and d were joined
	tests := []struct{ line, want int }{
		{1, 1}, {2, 2}, {3, 2}, {4, 2}, {5, 3}, {6, 4}, {0, 0},
	}
	for _, tt := range tests {
		if got := m.Source(tt.line); got != tt.want {
			t.Errorf("Source(%d) = %d, want %d", tt.line, got, tt.want)
		}
	}
}

func TestLineMapNil(t *testing.T) {
	var m *LineMap
	m.Splice(1, 1, 4)
	if got := m.Source(7); got != 7 {
		t.Errorf("nil Source(7) = %d, want 7", got)
	}
	d := m.Map(Warningf(3, "w"))
	if d.Line != 3 {
		t.Errorf("nil Map line = %d, want 3", d.Line)
	}
}

func TestLineMapMap(t *testing.T) {
	m := NewLineMap("a\nb")
	m.Splice(1, 1, 5)
	d := m.Map(Errorf(6, "e"))
	if d.Line != 2 {
		t.Errorf("Map line = %d, want 2", d.Line)
	}
	if d := m.Map(Errorf(0, "e")); d.Line != 0 {
		t.Errorf("unknown line mapped to %d", d.Line)
	}
}
