// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package validate

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"

	"github.com/gogpu/effectc/diag"
	"github.com/gogpu/effectc/glsl"
	"github.com/gogpu/effectc/reflection"
)

type recorder struct {
	diags diag.Diagnostics
}

func (r *recorder) Report(d *diag.Diagnostic) { r.diags.Add(d) }

const validFragment = `#extension GL_EXT_shader_texture_lod: require
precision mediump float;
uniform sampler2D mainTex;
uniform vec4 tint[2];
varying vec2 v_uv;
struct Light { vec3 dir; float intensity; };
float luma(vec3 c);
float luma(vec3 c) { return dot(c, vec3(0.299, 0.587, 0.114)); }
void main() {
  Light l;
  l.dir = vec3(0.0, 1.0, 0.0);
  vec4 c = texture2D(mainTex, v_uv) * tint[0];
  for (int i = 0; i < 4; i++) {
    if (c.a < 0.5) discard; else c.rgb += vec3(0.1);
  }
  c.rgb = luma(c.rgb) > 0.5 ? c.rgb : -c.bgr;
#if USE_FOG
  c.rgb = mix(c.rgb, vec3(1.0), 0.5);
#endif
  gl_FragColor = c;
}
`

func TestCheckValid(t *testing.T) {
	r := &recorder{}
	if err := Check(validFragment, reflection.StageFragment, r); err != nil {
		t.Fatalf("Check() error: %v", err)
	}
	if len(r.diags) != 0 {
		t.Errorf("unexpected warnings: %v", r.diags)
	}
}

func TestReservedWords(t *testing.T) {
	tests := []struct {
		src  string
		line int
		want string
	}{
		{"void main() {\n  float texture = 1.0;\n}", 2, "mobile drivers"},
		{"void main() {\n  uint x = 1u;\n}", 2, "'uint' is a reserved word"},
		{"float gl_Custom;", 1, "'gl_Custom' is a reserved word"},
	}
	for _, tt := range tests {
		tokens, err := glsl.Tokenize(tt.src)
		if err != nil {
			t.Fatal(err)
		}
		err = ReservedWords(tokens)
		var d *diag.Diagnostic
		if !errors.As(err, &d) {
			t.Errorf("ReservedWords(%q) = %v, want diagnostic", tt.src, err)
			continue
		}
		if d.Line != tt.line || !strings.Contains(d.Message, tt.want) {
			t.Errorf("ReservedWords(%q) = line %d %q, want line %d containing %q", tt.src, d.Line, d.Message, tt.line, tt.want)
		}
	}

	tokens, _ := glsl.Tokenize("void main() { vec4 c = s.texture; }")
	if err := ReservedWords(tokens); err != nil {
		t.Errorf("member name flagged: %v", err)
	}
}

func TestPrecision(t *testing.T) {
	tests := []struct {
		src   string
		stage reflection.Stage
		want  string
	}{
		{"void main() {}", reflection.StageFragment, "no default precision"},
		{"precision highp float;\n#extension GL_OES_standard_derivatives: enable\n", reflection.StageFragment, "must come before"},
		{"void main() {}", reflection.StageVertex, ""},
		{"precision lowp int;\nvoid main() {}", reflection.StageFragment, "no default precision"},
	}
	for _, tt := range tests {
		tokens, _ := glsl.Tokenize(tt.src)
		r := &recorder{}
		Precision(tokens, tt.stage, r)
		if tt.want == "" {
			if len(r.diags) != 0 {
				t.Errorf("Precision(%q) reported %v", tt.src, r.diags)
			}
			continue
		}
		if len(r.diags) != 1 || !strings.Contains(r.diags[0].Message, tt.want) {
			t.Errorf("Precision(%q) = %v, want one warning containing %q", tt.src, r.diags, tt.want)
		}
		if r.diags[0].Severity != diag.SeverityWarning {
			t.Errorf("Precision(%q) severity = %v", tt.src, r.diags[0].Severity)
		}
	}
}

func TestPrecisionWarningLine(t *testing.T) {
	tests := []struct {
		src  string
		line int
	}{
		{"uniform sampler2D tex;\nvarying vec2 v_uv;\nvoid main() {\n  float a = 1.0;\n}", 2},
		{"precision lowp int;\n\nmediump float x;", 3},
		{"void main() {}", 0},
	}
	for _, tt := range tests {
		tokens, _ := glsl.Tokenize(tt.src)
		r := &recorder{}
		Precision(tokens, reflection.StageFragment, r)
		if len(r.diags) != 1 {
			t.Fatalf("Precision(%q) = %v, want one warning", tt.src, r.diags)
		}
		if r.diags[0].Line != tt.line {
			t.Errorf("Precision(%q) line = %d, want %d", tt.src, r.diags[0].Line, tt.line)
		}
	}
}

func TestSyntaxErrors(t *testing.T) {
	tests := []struct {
		src  string
		line int
	}{
		{"void main() {\n  float a = 1.0\n}", 3},
		{"void main() {\n  a = (1.0 + ;\n}", 2},
		{"in vec3 a_position;", 1},
		{"void main() {\n  if (x) {\n", 3},
		{"layout(location = 0) out vec4 c;", 1},
	}
	for _, tt := range tests {
		tokens, _ := glsl.Tokenize(tt.src)
		err := Syntax(tokens)
		var d *diag.Diagnostic
		if !errors.As(err, &d) {
			t.Errorf("Syntax(%q) = %v, want diagnostic", tt.src, err)
			continue
		}
		if d.Line != tt.line {
			t.Errorf("Syntax(%q) line = %d, want %d (%s)", tt.src, d.Line, tt.line, d.Message)
		}
		if !strings.HasPrefix(d.Message, "syntax error") {
			t.Errorf("Syntax(%q) message = %q", tt.src, d.Message)
		}
	}
}

func TestSyntaxValid(t *testing.T) {
	for _, src := range []string{
		"attribute vec3 a_position;\nvoid main() { gl_Position = vec4(a_position, 1.0); }",
		"const int N = 4;\nuniform mat4 m[N];\nvoid main(void) { int i = 0; do { i++; } while (i < N); }",
		"float f(in float x, out float y) { y = x; return x * 2.0; }",
		"void main() { vec2 a = vec2(1.0), b; a.x = a.y = 0.0; bool k = !(a.x >= b.y) && true ^^ false; }",
		"void main() { int x = 1 << 2 | 3 & ~4; x %= 2; while (x > 0) { x--; if (x == 1) break; else continue; } }",
	} {
		tokens, _ := glsl.Tokenize(src)
		if err := Syntax(tokens); err != nil {
			t.Errorf("Syntax(%q) error: %v", src, err)
		}
	}
}

func TestStrictSource(t *testing.T) {
	defines := []*reflection.Define{
		{Name: "USE_FOG", Type: reflection.DefineBoolean},
		{Name: "LAYERS", Type: reflection.DefineNumber, Range: []float64{1, 4}},
		{Name: "QUALITY", Type: reflection.DefineNumber},
		{Name: "MODE", Type: reflection.DefineString, Options: []string{"LOW", "HIGH"}},
		{Name: "LIMIT", Type: reflection.DefineConstant, Default: 8},
		{Name: "EMPTY", Type: reflection.DefineString},
	}
	got := StrictSource("void main() {}\n", defines)
	want := "#version 100\n#define USE_FOG 0\n#define LAYERS 1\n#define QUALITY 0\n#define MODE LOW\n#define LIMIT 8\nvoid main() {}\n"
	if got != want {
		t.Errorf("StrictSource() =\n%s\nwant\n%s", got, want)
	}
}

func TestNewExternalCompiler(t *testing.T) {
	c, err := NewExternalCompiler("")
	if err != nil {
		t.Fatal(err)
	}
	if c.Bin != "glslangValidator" || len(c.Args) != 1 || c.Args[0] != "-l" {
		t.Errorf("default compiler = %+v", c)
	}

	c, err = NewExternalCompiler(`glslc --target-env="opengl es"`)
	if err != nil {
		t.Fatal(err)
	}
	if c.Bin != "glslc" || len(c.Args) != 1 || c.Args[0] != "--target-env=opengl es" {
		t.Errorf("parsed compiler = %+v", c)
	}

	if _, err := NewExternalCompiler(`glslc "unterminated`); err == nil {
		t.Error("expected error for unterminated quote")
	}
}

func TestExternalCompilerLink(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	ok, _ := NewExternalCompiler(`sh -c 'test -f "$0" && test -f "$1"'`)
	if err := ok.Link(context.Background(), "void main() {}", "void main() {}"); err != nil {
		t.Errorf("Link() error: %v", err)
	}

	failing, _ := NewExternalCompiler(`sh -c 'echo "ERROR: 0:1: syntax error"; exit 2'`)
	err := failing.Link(context.Background(), "", "")
	var le *LinkError
	if !errors.As(err, &le) {
		t.Fatalf("Link() = %v, want *LinkError", err)
	}
	if !strings.Contains(le.Output, "ERROR: 0:1: syntax error") {
		t.Errorf("LinkError.Output = %q", le.Output)
	}
}
