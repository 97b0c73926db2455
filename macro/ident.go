// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package macro

import (
	"strings"

	"github.com/gogpu/effectc/glsl"
)

// IndexIdent returns the offset of the first whole-identifier occurrence of
// name in s at or after from, or -1.
func IndexIdent(s, name string, from int) int {
	for from <= len(s)-len(name) {
		i := strings.Index(s[from:], name)
		if i < 0 {
			return -1
		}
		i += from
		end := i + len(name)
		if (i == 0 || !glsl.IsIdentChar(s[i-1])) && (end == len(s) || !glsl.IsIdentChar(s[end])) {
			return i
		}
		from = i + 1
	}
	return -1
}

// ReplaceIdent replaces every whole-identifier occurrence of name in s.
func ReplaceIdent(s, name, repl string) string {
	i := IndexIdent(s, name, 0)
	if i < 0 {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s))
	last := 0
	for i >= 0 {
		sb.WriteString(s[last:i])
		sb.WriteString(repl)
		last = i + len(name)
		i = IndexIdent(s, name, last)
	}
	sb.WriteString(s[last:])
	return sb.String()
}

// substitute replaces identifiers found in repl in a single pass, so
// replacement text is never rescanned.
func substitute(s string, repl map[string]string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); {
		if !glsl.IsIdentStart(s[i]) || (i > 0 && glsl.IsIdentChar(s[i-1])) {
			sb.WriteByte(s[i])
			i++
			continue
		}
		j := i + 1
		for j < len(s) && glsl.IsIdentChar(s[j]) {
			j++
		}
		if r, ok := repl[s[i:j]]; ok {
			sb.WriteString(r)
		} else {
			sb.WriteString(s[i:j])
		}
		i = j
	}
	return sb.String()
}

// lineAt returns the 1-based line number of offset in s.
func lineAt(s string, offset int) int {
	return strings.Count(s[:offset], "\n") + 1
}

// lineBounds returns the start and end offsets of the line holding offset.
func lineBounds(s string, offset int) (start, end int) {
	start = strings.LastIndexByte(s[:offset], '\n') + 1
	end = strings.IndexByte(s[offset:], '\n')
	if end < 0 {
		return start, len(s)
	}
	return start, offset + end
}

func indentOf(line string) string {
	return line[:len(line)-len(strings.TrimLeft(line, " \t"))]
}
