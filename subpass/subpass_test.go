// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package subpass

import (
	"strings"
	"testing"

	"github.com/gogpu/effectc/diag"
	"github.com/gogpu/effectc/glsl"
)

func TestExpandColorIn(t *testing.T) {
	src := "precision highp float;\n#pragma subpassColor in highp myColor\nvoid main() {}"
	res, err := Expand(src, nil)
	if err != nil {
		t.Fatalf("Expand() error: %v", err)
	}

	want := []string{
		"#if __VERSION__ >= 450",
		"layout(input_attachment_index = 0) uniform highp subpassInput myColor;",
		"#define subpassLoad_myColor subpassLoad(myColor)",
		"#elif __VERSION__ >= 300",
		"layout(location = 0) inout highp vec4 myColor;",
		"#else",
		"#define subpassLoad_myColor gl_LastFragData[0]",
		"#endif",
	}
	for _, w := range want {
		if !strings.Contains(res.Code, w) {
			t.Errorf("output missing %q:\n%s", w, res.Code)
		}
	}
	if strings.Contains(res.Code, "#pragma") {
		t.Errorf("pragma left in output:\n%s", res.Code)
	}
	if len(res.Extensions) != 1 || res.Extensions[0].Name != ExtFramebufferFetch {
		t.Errorf("Extensions = %+v", res.Extensions)
	}
}

func TestExpandOrderingAndIndices(t *testing.T) {
	src := strings.Join([]string{
		"#pragma subpassColor out gbuffer0",
		"#pragma subpassDepth in depth",
		"#pragma subpassColor inout accum",
		"#pragma usubpassStencil in stencil",
		"#pragma subpassColor in albedo",
		"void main() {}",
		"#pragma subpass",
	}, "\n")
	res, err := Expand(src, nil)
	if err != nil {
		t.Fatalf("Expand() error: %v", err)
	}

	got := map[string]Statement{}
	var order []string
	for _, st := range res.Statements {
		got[st.Name] = st
		order = append(order, st.Name)
	}

	wantOrder := "albedo,depth,stencil,gbuffer0,accum"
	if strings.Join(order, ",") != wantOrder {
		t.Errorf("order = %v, want %s", order, wantOrder)
	}

	indices := map[string][2]int{
		"gbuffer0": {-1, 0},
		"depth":    {0, -1},
		"accum":    {1, 1},
		"stencil":  {2, -1},
		"albedo":   {3, 2},
	}
	for name, w := range indices {
		st := got[name]
		if st.InputIndex != w[0] || st.Location != w[1] {
			t.Errorf("%s: input %d location %d, want %d %d", name, st.InputIndex, st.Location, w[0], w[1])
		}
	}

	lines := strings.Split(res.Code, "\n")
	if lines[0] != "" || !strings.HasPrefix(lines[6], "#if __VERSION__ >= 450") {
		t.Errorf("declarations must be emitted at the marker:\n%s", res.Code)
	}
	if !strings.Contains(res.Code, "uniform usubpassInput stencil;") {
		t.Errorf("unsigned stencil input missing:\n%s", res.Code)
	}
	if !strings.Contains(res.Code, "uniform subpassInput accum_input;") ||
		!strings.Contains(res.Code, "layout(location = 1) out vec4 accum;") {
		t.Errorf("inout color declarations missing:\n%s", res.Code)
	}

	var names []string
	for _, e := range res.Extensions {
		names = append(names, e.Name)
	}
	if strings.Join(names, ",") != ExtFramebufferFetch+","+ExtFramebufferFetchDepthStencil+","+ExtDrawBuffers {
		t.Errorf("Extensions = %v", names)
	}
}

func TestExpandCapabilityErrors(t *testing.T) {
	tests := []string{
		"#pragma subpassDepth out d",
		"#pragma usubpassDepth in d",
		"#pragma subpassStencil in s",
		"#pragma subpassStencil inout s",
		"#pragma subpassColor sideways c",
		"#pragma subpassColor in ultrap c",
		"#pragma subpassColor in",
		"#pragma subpassColor in a\n#pragma subpassColor out a",
		"#pragma subpass\n#pragma subpass",
	}
	for _, src := range tests {
		if _, err := Expand(src, nil); err == nil {
			t.Errorf("Expand(%q) should fail", src)
		}
	}
}

func TestExpandWithoutPragmas(t *testing.T) {
	src := "void main() { vec4 c = subpassLoad_x; }"
	res, err := Expand(src, nil)
	if err != nil {
		t.Fatalf("Expand() error: %v", err)
	}
	if res.Code != src || len(res.Statements) != 0 {
		t.Errorf("source should be unchanged, got %q", res.Code)
	}
}

func TestParsePragmaSignedness(t *testing.T) {
	st, ok, err := ParsePragma("isubpassColor", "in mediump ids", 3)
	if err != nil || !ok {
		t.Fatalf("ParsePragma() = %v, %v", ok, err)
	}
	if st.Scalar != glsl.ScalarInt || st.Precision != "mediump" || st.Name != "ids" || st.Line != 3 {
		t.Errorf("unexpected statement %+v", st)
	}
	if _, ok, _ := ParsePragma("rate", "x pass", 1); ok {
		t.Error("non-subpass pragma must be ignored")
	}
}

func TestExpandRecordsLines(t *testing.T) {
	src := "precision highp float;\n#pragma subpassColor in highp myColor\nvoid main() {\n  float x = 1.0;\n}"
	lines := diag.NewLineMap(src)
	res, err := Expand(src, lines)
	if err != nil {
		t.Fatalf("Expand() error: %v", err)
	}
	generated := strings.Split(res.Code, "\n")
	for i, line := range generated {
		want := 0
		switch {
		case line == "void main() {":
			want = 3
		case strings.Contains(line, "float x"):
			want = 4
		case strings.HasPrefix(line, "#if __VERSION__"), line == "#endif":
			want = 2
		default:
			continue
		}
		if got := lines.Source(i + 1); got != want {
			t.Errorf("line %d %q maps to %d, want %d", i+1, line, got, want)
		}
	}
}
