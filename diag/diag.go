// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package diag reports effect compiler errors and warnings.
//
// Stage packages return fatal conditions as *Diagnostic errors created with
// Errorf and report non-fatal conditions to a Sink. The build orchestrator
// owns one Collector per build; it stamps every diagnostic with the effect
// and shader names, mirrors warnings to slog and optionally promotes them to
// errors.
package diag

import (
	"errors"
	"fmt"
	"strings"
)

// Severity classifies a diagnostic.
type Severity uint8

const (
	SeverityError Severity = iota
	SeverityWarning
)

// String returns the severity name.
func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

// Diagnostic is an error or warning attached to a shader source line.
type Diagnostic struct {
	Severity Severity
	Effect   string
	Shader   string
	Line     int // 1-based; 0 when unknown
	Message  string
	Source   string // shader text the line refers to, for context display

	cause error
}

// Error implements the error interface. The format is
// "<effect>.<shader> - <line>: <message>".
func (d *Diagnostic) Error() string {
	var sb strings.Builder
	switch {
	case d.Effect != "" && d.Shader != "":
		sb.WriteString(d.Effect + "." + d.Shader)
	case d.Effect != "":
		sb.WriteString(d.Effect)
	case d.Shader != "":
		sb.WriteString(d.Shader)
	}
	if d.Line > 0 {
		if sb.Len() > 0 {
			sb.WriteString(" - ")
		} else {
			sb.WriteString("line ")
		}
		fmt.Fprintf(&sb, "%d", d.Line)
	}
	if sb.Len() > 0 {
		sb.WriteString(": ")
	}
	sb.WriteString(d.Message)
	return sb.String()
}

// Unwrap returns the error the diagnostic was created from, if any.
func (d *Diagnostic) Unwrap() error {
	return d.cause
}

// FormatWithContext returns the message followed by the offending source
// line, when the source is known.
func (d *Diagnostic) FormatWithContext() string {
	if d.Source == "" || d.Line == 0 {
		return d.Severity.String() + ": " + d.Error()
	}
	lines := strings.Split(d.Source, "\n")
	if d.Line > len(lines) {
		return d.Severity.String() + ": " + d.Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %s\n", d.Severity, d.Error())
	sb.WriteString("   |\n")
	fmt.Fprintf(&sb, "%3d| %s\n", d.Line, lines[d.Line-1])
	return sb.String()
}

// Errorf creates an error diagnostic. The format supports %w; the wrapped
// error stays reachable through errors.Is and errors.As.
func Errorf(line int, format string, args ...any) *Diagnostic {
	err := fmt.Errorf(format, args...)
	return &Diagnostic{Severity: SeverityError, Line: line, Message: err.Error(), cause: err}
}

// Warningf creates a warning diagnostic.
func Warningf(line int, format string, args ...any) *Diagnostic {
	return &Diagnostic{Severity: SeverityWarning, Line: line, Message: fmt.Sprintf(format, args...)}
}

// Wrap converts err into a diagnostic. Diagnostics are returned as is; other
// errors become error diagnostics that unwrap to err.
func Wrap(err error) *Diagnostic {
	if err == nil {
		return nil
	}
	var d *Diagnostic
	if errors.As(err, &d) {
		return d
	}
	return &Diagnostic{Severity: SeverityError, Message: err.Error(), cause: err}
}

// Diagnostics is a list of diagnostics.
type Diagnostics []*Diagnostic

// Error implements the error interface.
func (ds Diagnostics) Error() string {
	if len(ds) == 0 {
		return "no errors"
	}
	if len(ds) == 1 {
		return ds[0].Error()
	}
	return fmt.Sprintf("%s (and %d more)", ds[0].Error(), len(ds)-1)
}

// FormatAll returns all diagnostics formatted with context.
func (ds Diagnostics) FormatAll() string {
	var sb strings.Builder
	for i, d := range ds {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(d.FormatWithContext())
	}
	return sb.String()
}

// Add appends a diagnostic.
func (ds *Diagnostics) Add(d *Diagnostic) {
	*ds = append(*ds, d)
}

// Len returns the number of diagnostics.
func (ds Diagnostics) Len() int {
	return len(ds)
}

// HasErrors reports whether any diagnostic is an error.
func (ds Diagnostics) HasErrors() bool {
	for _, d := range ds {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Warnings returns only the warnings.
func (ds Diagnostics) Warnings() Diagnostics {
	var out Diagnostics
	for _, d := range ds {
		if d.Severity == SeverityWarning {
			out = append(out, d)
		}
	}
	return out
}
