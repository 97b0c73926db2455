// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package macro

import (
	"strings"
	"testing"

	"github.com/gogpu/effectc/diag"
)

type recordSink struct {
	diags diag.Diagnostics
}

func (r *recordSink) Report(d *diag.Diagnostic) {
	r.diags.Add(d)
}

func TestExpandLiteral(t *testing.T) {
	src := "#pragma define USE_FOO 1\n#pragma define COUNT USE_FOO + 2\n#if USE_FOO\nfloat a[COUNT];\n#endif\nfloat USE_FOOBAR;"
	got, literals := ExpandLiteral(src)

	want := "\n\n#if 1\nfloat a[1 + 2];\n#endif\nfloat USE_FOOBAR;"
	if got != want {
		t.Errorf("ExpandLiteral() = %q, want %q", got, want)
	}
	if len(literals) != 2 {
		t.Fatalf("expected 2 literals, got %d", len(literals))
	}
	if literals[1].Name != "COUNT" || literals[1].Value != "1 + 2" || literals[1].Line != 2 {
		t.Errorf("literal = %+v", literals[1])
	}
}

func TestExpandLiteralIgnoresFunctions(t *testing.T) {
	src := "#pragma define F(a) a * 2\n#pragma define-meta X range([0, 3])"
	got, literals := ExpandLiteral(src)
	if got != src || len(literals) != 0 {
		t.Errorf("ExpandLiteral() changed %q to %q (%v)", src, got, literals)
	}
}

func TestExpandFunctions(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "simple",
			input: "#pragma define SQ(x) ((x) * (x))\nfloat a = SQ(b + 1);",
			want:  "\nfloat a = ((b + 1) * (b + 1));",
		},
		{
			name:  "nested parens",
			input: "#pragma define ADD(a, b) (a + b)\nfloat c = ADD(f(1, 2), g[3]);",
			want:  "\nfloat c = (f(1, 2) + g[3]);",
		},
		{
			name:  "outer before inner",
			input: "#pragma define A(x) (x + 1)\n#pragma define B(x) A(x) * 2\nfloat d = B(A(y));",
			want:  "\n\nfloat d = ((y + 1) + 1) * 2;",
		},
		{
			name:  "no arguments",
			input: "#pragma define ONE() 1.0\nfloat e = ONE();",
			want:  "\nfloat e = 1.0;",
		},
		{
			name:  "multi-line body at top level",
			input: "#pragma define BODY(v) \\\n  v.x += 1.0; \\\n  v.y += 2.0;\nvoid main() {\n  BODY(p)\n}",
			want:  "\n\n\nvoid main() {\n  p.x += 1.0; \n  p.y += 2.0;\n}",
		},
		{
			name:  "multi-line body inside a macro",
			input: "#pragma define INC(v) v += 1; \\\n  v *= 2;\n#define OUTER(p) \\\n    INC(p) \\\n    p = 0;",
			want:  "\n\n#define OUTER(p) \\\n    p += 1; \\\n    p *= 2; \\\n    p = 0;",
		},
		{
			name:  "identifier boundaries",
			input: "#pragma define M(a) a\nfloat MM(1); float x = M(q);",
			want:  "\nfloat MM(1); float x = q;",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpandFunctions(tt.input, nil, nil)
			if err != nil {
				t.Fatalf("ExpandFunctions() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ExpandFunctions() =\n%q\nwant\n%q", got, tt.want)
			}
		})
	}
}

func TestExpandFunctionsWarnings(t *testing.T) {
	sink := &recordSink{}
	src := "#pragma define R(x) R(x) + 1\n#pragma define P(a, b) a - b\nfloat f = R(1) + P(2);"
	got, err := ExpandFunctions(src, nil, sink)
	if err != nil {
		t.Fatalf("ExpandFunctions() error: %v", err)
	}
	if !strings.Contains(got, "R(1)") {
		t.Errorf("recursive macro must stay unexpanded: %q", got)
	}
	if !strings.Contains(got, "2 - ;") {
		t.Errorf("missing argument should substitute empty text: %q", got)
	}

	var recursive, arity bool
	for _, d := range sink.diags {
		if d.Severity != diag.SeverityWarning {
			t.Errorf("unexpected error diagnostic %v", d)
		}
		recursive = recursive || strings.Contains(d.Message, "recursive macro 'R'")
		arity = arity || strings.Contains(d.Message, "expects 2 arguments, got 1")
	}
	if !recursive || !arity {
		t.Errorf("missing warnings: %v", sink.diags)
	}
}

func TestExpandFunctionsKeepsSourceLines(t *testing.T) {
	src := strings.Join([]string{
		"#pragma define BLEND(a, b) \\",
		"  vec4 c = a; \\",
		"  c += b;",
		"#pragma define P(a, b) a - b",
		"void main() {",
		"  BLEND(x, y)",
		"  float f = P(1);",
		"}",
	}, "\n")
	sink := &recordSink{}
	lines := diag.NewLineMap(src)
	got, err := ExpandFunctions(src, lines, sink)
	if err != nil {
		t.Fatalf("ExpandFunctions() error: %v", err)
	}
	if n := strings.Count(got, "\n") + 1; n != 9 {
		t.Fatalf("expanded code has %d lines, want 9:\n%s", n, got)
	}
	if len(sink.diags) != 1 || sink.diags[0].Line != 7 {
		t.Errorf("arity warning = %v, want one warning at line 7", sink.diags)
	}
	for generated, want := range map[int]int{5: 5, 6: 6, 7: 6, 8: 7, 9: 8} {
		if got := lines.Source(generated); got != want {
			t.Errorf("Source(%d) = %d, want %d", generated, got, want)
		}
	}
}

func TestExpandFunctionsMutualRecursionStops(t *testing.T) {
	sink := &recordSink{}
	src := "#pragma define A(x) B(x)\n#pragma define B(x) A(x)\nfloat f = A(1);"
	if _, err := ExpandFunctions(src, nil, sink); err != nil {
		t.Fatalf("ExpandFunctions() error: %v", err)
	}
	found := false
	for _, d := range sink.diags {
		found = found || strings.Contains(d.Message, "expansion stopped")
	}
	if !found {
		t.Error("expected the expansion cap warning")
	}
}

func TestExpandFunctionsUnterminated(t *testing.T) {
	_, err := ExpandFunctions("#pragma define F(a) a\nfloat x = F(1;", nil, nil)
	if err == nil {
		t.Fatal("expected error for unterminated call")
	}
}

func TestReplaceIdent(t *testing.T) {
	got := ReplaceIdent("a ab a_b ba a", "a", "X")
	if got != "X ab a_b ba X" {
		t.Errorf("ReplaceIdent() = %q", got)
	}
}
