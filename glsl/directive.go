// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package glsl

import (
	"strings"
)

// Directive is a parsed preprocessor line.
type Directive struct {
	Name string // "if", "pragma", "include", ...
	Body string // text after the name, continuations joined, comments removed
}

// ParseDirective splits a preprocessor token text into its name and body.
// The second result is false if text is not a directive.
func ParseDirective(text string) (Directive, bool) {
	text = strings.TrimLeft(text, " \t")
	if !strings.HasPrefix(text, "#") {
		return Directive{}, false
	}
	text = JoinContinuations(text[1:])
	text = stripComments(text)
	text = strings.TrimSpace(text)

	end := 0
	for end < len(text) && IsIdentChar(text[end]) {
		end++
	}
	return Directive{
		Name: text[:end],
		Body: strings.TrimSpace(text[end:]),
	}, true
}

// Pragma returns the pragma name and its argument text for a "#pragma" directive.
// Pragma names may contain dashes ("define-meta", "unfilterable-float").
func (d Directive) Pragma() (name, args string, ok bool) {
	if d.Name != "pragma" {
		return "", "", false
	}
	end := 0
	for end < len(d.Body) && (IsIdentChar(d.Body[end]) || d.Body[end] == '-') {
		end++
	}
	if end == 0 {
		return "", "", false
	}
	return d.Body[:end], strings.TrimSpace(d.Body[end:]), true
}

// JoinContinuations removes backslash-newline sequences.
func JoinContinuations(text string) string {
	if !strings.Contains(text, "\\") {
		return text
	}
	text = strings.ReplaceAll(text, "\\\r\n", " ")
	return strings.ReplaceAll(text, "\\\n", " ")
}

func stripComments(text string) string {
	if !strings.Contains(text, "/") {
		return text
	}
	var sb strings.Builder
	for i := 0; i < len(text); i++ {
		if text[i] == '/' && i+1 < len(text) {
			if text[i+1] == '/' {
				break
			}
			if text[i+1] == '*' {
				end := strings.Index(text[i+2:], "*/")
				if end < 0 {
					break
				}
				sb.WriteByte(' ')
				i += end + 3
				continue
			}
		}
		sb.WriteByte(text[i])
	}
	return sb.String()
}

// IsStandardPragma reports whether a pragma is defined by GLSL itself and
// must be passed through to the driver.
func IsStandardPragma(name string) bool {
	return name == "optimize" || name == "debug" || name == "STDGL"
}
