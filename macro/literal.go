// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package macro expands the "#pragma define" macros of effect shaders.
//
// Literal macros (#pragma define NAME VALUE) are substituted textually.
// Function-like macros (#pragma define NAME(a, b) BODY) are expanded at
// every call site by a worklist that handles one call at a time until no
// call remains or MaxExpansions is reached.
package macro

import (
	"strings"

	"github.com/gogpu/effectc/glsl"
)

// Literal is an object-like macro definition.
type Literal struct {
	Name  string
	Value string // with earlier literals already substituted
	Line  int
}

// ExpandLiteral removes literal "#pragma define" lines and replaces every
// occurrence of their names. Later definitions may reference earlier ones.
// Definition lines become blank lines so line numbers are preserved.
func ExpandLiteral(code string) (string, []Literal) {
	lines := strings.Split(code, "\n")
	var literals []Literal
	for i, line := range lines {
		name, value, ok := parseLiteral(line)
		if !ok {
			continue
		}
		for _, l := range literals {
			value = ReplaceIdent(value, l.Name, l.Value)
		}
		literals = append(literals, Literal{Name: name, Value: value, Line: i + 1})
		lines[i] = ""
	}
	if len(literals) == 0 {
		return code, nil
	}

	code = strings.Join(lines, "\n")
	for _, l := range literals {
		code = ReplaceIdent(code, l.Name, l.Value)
	}
	return code, literals
}

// parseLiteral recognizes "#pragma define NAME VALUE" where NAME is not
// directly followed by a parameter list.
func parseLiteral(line string) (name, value string, ok bool) {
	args, ok := defineArgs(line)
	if !ok {
		return "", "", false
	}
	end := identEnd(args)
	if end == 0 || (end < len(args) && args[end] == '(') {
		return "", "", false
	}
	return args[:end], strings.TrimSpace(args[end:]), true
}

// defineArgs returns the text after "#pragma define" for a define pragma line.
func defineArgs(line string) (string, bool) {
	trimmed := strings.TrimLeft(line, " \t")
	if !strings.HasPrefix(trimmed, "#") {
		return "", false
	}
	d, ok := glsl.ParseDirective(trimmed)
	if !ok {
		return "", false
	}
	name, args, ok := d.Pragma()
	if !ok || name != "define" {
		return "", false
	}
	return args, true
}

func identEnd(s string) int {
	if s == "" || !glsl.IsIdentStart(s[0]) {
		return 0
	}
	end := 1
	for end < len(s) && glsl.IsIdentChar(s[end]) {
		end++
	}
	return end
}
