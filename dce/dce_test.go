// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package dce

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/gogpu/effectc/glsl"
)

const graphSource = `precision highp float;
uniform vec4 tint;
float helper(float x) { return x * 2.0; }
float unused(float x) {
  return x;
}
highp vec4 shade(vec2 uv) {
  return vec4(helper(uv.x), uv.y, 0.0, 1.0) * tint;
}
vec4 other() { return vec4(unused(1.0)); }
float declared(float x);
void main() {
  gl_FragColor = vec4(1.0);
}
`

func keptNames(fns []Function) []string {
	var names []string
	for _, fn := range fns {
		names = append(names, fn.Name)
	}
	return names
}

func TestFunctions(t *testing.T) {
	tokens, err := glsl.Tokenize(graphSource)
	if err != nil {
		t.Fatal(err)
	}
	fns := Functions(tokens)
	want := []string{"helper", "unused", "shade", "other", "main"}
	if got := keptNames(fns); !slices.Equal(got, want) {
		t.Fatalf("Functions() = %v, want %v", got, want)
	}
	if !slices.Equal(fns[2].Calls, []string{"helper"}) {
		t.Errorf("shade calls = %v", fns[2].Calls)
	}
	if !strings.HasPrefix(graphSource[fns[2].Start:], "highp vec4 shade") {
		t.Errorf("shade heading should include the precision qualifier")
	}
}

func TestEliminate(t *testing.T) {
	res, err := Eliminate(graphSource, "shade")
	if err != nil {
		t.Fatalf("Eliminate() error: %v", err)
	}

	if got := keptNames(res.Functions); !slices.Equal(got, []string{"helper", "shade", "main"}) {
		t.Errorf("kept = %v", got)
	}
	if strings.Contains(res.Code, "unused") || strings.Contains(res.Code, "other()") {
		t.Errorf("unreachable functions left in output:\n%s", res.Code)
	}
	if strings.Count(res.Code, "\n") != strings.Count(graphSource, "\n") {
		t.Error("line count must be preserved")
	}
	for _, fn := range res.Functions {
		text := res.Code[fn.Start:fn.End]
		if !strings.Contains(graphSource, text) {
			t.Errorf("kept function %s text changed: %q", fn.Name, text)
		}
		if !strings.HasSuffix(text, "}") {
			t.Errorf("function %s span does not end at its closing brace: %q", fn.Name, text)
		}
	}
}

func TestEliminateClosure(t *testing.T) {
	src := "void c() {}\nvoid b() { c(); }\nvoid a() { b(); }\nvoid d() { a(); }\nvoid e() {}\n"
	tests := []struct {
		entry string
		want  []string
	}{
		{"a", []string{"c", "b", "a"}},
		{"c", []string{"c"}},
		{"d", []string{"c", "b", "a", "d"}},
		{"e", []string{"e"}},
	}
	for _, tt := range tests {
		res, err := Eliminate(src, tt.entry)
		if err != nil {
			t.Fatalf("Eliminate(%s) error: %v", tt.entry, err)
		}
		if got := keptNames(res.Functions); !slices.Equal(got, tt.want) {
			t.Errorf("Eliminate(%s) kept %v, want %v", tt.entry, got, tt.want)
		}
	}
}

func TestEliminateMissingEntry(t *testing.T) {
	res, err := Eliminate("float first() { return 1.0; }\nfloat second() { return 2.0; }\n", "nope")
	if !errors.Is(err, ErrEntryNotFound) {
		t.Fatalf("expected ErrEntryNotFound, got %v", err)
	}
	if got := keptNames(res.Functions); !slices.Equal(got, []string{"first"}) {
		t.Errorf("fallback kept %v, want [first]", got)
	}
}

func TestEliminateNoFunctions(t *testing.T) {
	res, err := Eliminate("uniform vec4 a;", "main")
	if err != nil || res.Code != "uniform vec4 a;" {
		t.Errorf("Eliminate() = %q, %v", res.Code, err)
	}
}
