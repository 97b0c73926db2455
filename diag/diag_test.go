// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package diag

import (
	"errors"
	"strings"
	"testing"
)

var errSentinel = errors.New("sentinel")

func TestDiagnosticError(t *testing.T) {
	tests := []struct {
		d    Diagnostic
		want string
	}{
		{Diagnostic{Effect: "builtin-standard", Shader: "standard-fs", Line: 12, Message: "boom"}, "builtin-standard.standard-fs - 12: boom"},
		{Diagnostic{Effect: "fx", Shader: "vs", Message: "boom"}, "fx.vs: boom"},
		{Diagnostic{Line: 3, Message: "boom"}, "line 3: boom"},
		{Diagnostic{Message: "boom"}, "boom"},
	}
	for _, tt := range tests {
		if got := tt.d.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}

func TestErrorfWraps(t *testing.T) {
	err := Errorf(4, "can not resolve '%s': %w", "common", errSentinel)
	if !errors.Is(err, errSentinel) {
		t.Error("Errorf should keep the wrapped error reachable")
	}
	if err.Line != 4 || err.Severity != SeverityError {
		t.Errorf("unexpected diagnostic %+v", err)
	}
}

func TestCollectorStampsAndPromotes(t *testing.T) {
	c := NewCollector("fx", nil, false)
	c.SetShader("vs")
	c.Report(Warningf(2, "precision missing"))
	if c.Err() != nil {
		t.Fatalf("warning must not fail the build: %v", c.Err())
	}
	ws := c.Diagnostics().Warnings()
	if len(ws) != 1 || ws[0].Error() != "fx.vs - 2: precision missing" {
		t.Errorf("warnings = %v", ws)
	}

	strict := NewCollector("fx", nil, true)
	strict.SetShader("fs")
	strict.Report(Warningf(0, "recursive macro"))
	if err := strict.Err(); err == nil || !strings.Contains(err.Error(), "fx.fs: recursive macro") {
		t.Errorf("Err() = %v, want promoted warning", err)
	}
}

func TestCollectorFail(t *testing.T) {
	c := NewCollector("fx", nil, false)
	c.SetShader("cs")
	err := c.Fail(errSentinel)
	if !errors.Is(err, errSentinel) {
		t.Error("Fail should wrap the stage error")
	}
	if err.Error() != "fx.cs: sentinel" {
		t.Errorf("Fail() = %q", err)
	}
	if !c.Diagnostics().HasErrors() {
		t.Error("collector should record the failure")
	}
	if c.Fail(nil) != nil {
		t.Error("Fail(nil) must be nil")
	}
}

func TestFormatWithContext(t *testing.T) {
	d := Errorf(2, "bad")
	d.Source = "void main() {\n  foo();\n}"
	out := d.FormatWithContext()
	if !strings.Contains(out, "  2|   foo();") {
		t.Errorf("missing context line:\n%s", out)
	}
}
