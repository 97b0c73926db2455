// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package macro

import (
	"strings"

	"github.com/gogpu/effectc/diag"
)

// MaxExpansions caps the number of call sites expanded by ExpandFunctions.
// Mutually recursive macros reach it; expansion then stops with a warning.
const MaxExpansions = 4096

// Function is a function-like macro definition.
type Function struct {
	Name   string
	Params []string
	Body   string // raw body, escaped newlines kept
	Line   int

	start, end int // definition span in the source
	recursive  bool
}

// ExpandFunctions expands every call of a function-like "#pragma define"
// macro, leftmost call first, and removes the definitions. Problems that do
// not stop expansion are reported to sink with their lines translated
// through lines, which may be nil. Expansions that change the number of
// lines are recorded in lines. Returned errors carry lines of the code as
// it was when expansion stopped; translate them with lines.
func ExpandFunctions(code string, lines *diag.LineMap, sink diag.Sink) (string, error) {
	if sink == nil {
		sink = diag.Discard
	}
	if !strings.Contains(code, "#pragma") {
		return code, nil
	}

	fns, err := ParseFunctions(code)
	if err != nil {
		return "", err
	}
	if len(fns) == 0 {
		return code, nil
	}
	recursive := make(map[string]bool)
	for _, fn := range fns {
		if fn.recursive {
			recursive[fn.Name] = true
			sink.Report(lines.Map(diag.Warningf(fn.Line, "recursive macro '%s' is not expanded", fn.Name)))
		}
	}

	for n := 0; ; n++ {
		if n == MaxExpansions {
			sink.Report(diag.Warningf(0, "macro expansion stopped after %d expansions, check for mutually recursive macros", MaxExpansions))
			break
		}
		fn, pos, ok := leftmostCall(code, fns, recursive)
		if !ok {
			break
		}
		if code, err = expandCall(code, fn, pos, inDefinition(fns, pos), lines, sink); err != nil {
			return "", err
		}
		if fns, err = ParseFunctions(code); err != nil {
			return "", err
		}
	}

	return removeDefinitions(code, fns), nil
}

// ParseFunctions returns the function-like macro definitions in code in
// declaration order.
func ParseFunctions(code string) ([]Function, error) {
	var fns []Function
	offset := 0
	lineNo := 1
	for offset < len(code) {
		lineEnd := strings.IndexByte(code[offset:], '\n')
		if lineEnd < 0 {
			lineEnd = len(code)
		} else {
			lineEnd += offset
		}
		line := code[offset:lineEnd]

		if args, ok := defineArgs(line); ok {
			if end := identEnd(args); end > 0 && end < len(args) && args[end] == '(' {
				defEnd, lines := continuationEnd(code, lineEnd)
				fn, err := parseFunction(code[offset:defEnd], lineNo)
				if err != nil {
					return nil, err
				}
				fn.start, fn.end = offset, defEnd
				fns = append(fns, fn)
				lineNo += lines
				offset = defEnd
				lineEnd = defEnd
			}
		}

		lineNo++
		offset = lineEnd + 1
	}
	return fns, nil
}

// continuationEnd returns the end of the line-continued directive whose
// first line ends at lineEnd and the number of extra lines it spans.
func continuationEnd(code string, lineEnd int) (int, int) {
	extra := 0
	for lineEnd < len(code) && strings.HasSuffix(strings.TrimRight(code[:lineEnd], " \t\r"), "\\") {
		next := strings.IndexByte(code[lineEnd+1:], '\n')
		if next < 0 {
			return len(code), extra + 1
		}
		lineEnd += next + 1
		extra++
	}
	return lineEnd, extra
}

func parseFunction(def string, line int) (Function, error) {
	hash := strings.Index(def, "define")
	rest := def[hash+len("define"):]
	rest = strings.TrimLeft(rest, " \t")
	nameEnd := identEnd(rest)
	fn := Function{Name: rest[:nameEnd], Line: line}

	closeParen := strings.IndexByte(rest, ')')
	if closeParen < 0 || strings.Contains(rest[nameEnd+1:closeParen], "\n") {
		return Function{}, diag.Errorf(line, "malformed macro definition '%s': missing ')'", fn.Name)
	}
	for _, p := range strings.Split(rest[nameEnd+1:closeParen], ",") {
		if p = strings.TrimSpace(p); p != "" {
			fn.Params = append(fn.Params, p)
		}
	}
	body := strings.TrimSpace(rest[closeParen+1:])
	for strings.HasPrefix(body, "\\\n") {
		body = strings.TrimSpace(body[2:])
	}
	fn.Body = body
	fn.recursive = callIndex(fn.Body, fn.Name, 0) >= 0
	return fn, nil
}

// callIndex returns the offset of the first call NAME( in s at or after from.
func callIndex(s, name string, from int) int {
	for {
		i := IndexIdent(s, name, from)
		if i < 0 {
			return -1
		}
		j := i + len(name)
		for j < len(s) && (s[j] == ' ' || s[j] == '\t') {
			j++
		}
		if j < len(s) && s[j] == '(' && !inLineComment(s, i) {
			return i
		}
		from = i + 1
	}
}

func inLineComment(s string, offset int) bool {
	start, _ := lineBounds(s, offset)
	return strings.Contains(s[start:offset], "//")
}

func leftmostCall(code string, fns []Function, recursive map[string]bool) (Function, int, bool) {
	best, bestPos := Function{}, -1
	for _, fn := range fns {
		if recursive[fn.Name] {
			continue
		}
		from := 0
		for {
			i := callIndex(code, fn.Name, from)
			if i < 0 {
				break
			}
			if i >= fn.start && i < fn.end {
				from = fn.end
				continue
			}
			if bestPos < 0 || i < bestPos {
				best, bestPos = fn, i
			}
			break
		}
	}
	return best, bestPos, bestPos >= 0
}

func inDefinition(fns []Function, pos int) bool {
	for _, fn := range fns {
		if pos >= fn.start && pos < fn.end {
			return true
		}
	}
	return false
}

// expandCall replaces the call of fn at pos with the substituted body.
// Calls inside another macro keep the escaped newlines of the body.
func expandCall(code string, fn Function, pos int, inMacro bool, lines *diag.LineMap, sink diag.Sink) (string, error) {
	line := lineAt(code, pos)
	open := strings.IndexByte(code[pos:], '(') + pos
	args, end, ok := splitArgs(code, open)
	if !ok {
		return "", diag.Errorf(line, "unterminated call of macro '%s'", fn.Name)
	}
	if len(args) == 1 && args[0] == "" && len(fn.Params) == 0 {
		args = nil
	}
	if len(args) != len(fn.Params) {
		sink.Report(lines.Map(diag.Warningf(line, "macro '%s' expects %d arguments, got %d", fn.Name, len(fn.Params), len(args))))
	}

	repl := make(map[string]string, len(fn.Params))
	for i, p := range fn.Params {
		if i < len(args) {
			repl[p] = args[i]
		} else {
			repl[p] = ""
		}
	}
	body := substitute(fn.Body, repl)

	lineStart, lineEnd := lineBounds(code, pos)
	indent := indentOf(code[lineStart:lineEnd])
	if inMacro || insideMacro(code, lineStart, lineEnd) {
		body = reindent(body, "\\\n", "\\\n"+indent)
	} else {
		body = reindent(body, "\\\n", "\n"+indent)
	}
	lines.Splice(line, strings.Count(code[pos:end], "\n")+1, strings.Count(body, "\n")+1)
	return code[:pos] + body + code[end:], nil
}

// insideMacro reports whether the line is part of a line-continued macro.
func insideMacro(code string, lineStart, lineEnd int) bool {
	if strings.HasSuffix(strings.TrimRight(code[lineStart:lineEnd], " \t\r"), "\\") {
		return true
	}
	if lineStart == 0 {
		return false
	}
	prev := strings.TrimRight(code[:lineStart-1], " \t\r")
	return strings.HasSuffix(prev, "\\")
}

// reindent replaces every marker, and the indentation following it, with repl.
func reindent(body, marker, repl string) string {
	parts := strings.Split(body, marker)
	for i := 1; i < len(parts); i++ {
		parts[i] = strings.TrimLeft(parts[i], " \t")
	}
	return strings.Join(parts, repl)
}

// splitArgs parses the argument list opening at code[open] == '('. It
// returns the trimmed arguments and the offset after the closing ')'.
func splitArgs(code string, open int) ([]string, int, bool) {
	var args []string
	depth := 0
	start := open + 1
	for i := open; i < len(code); i++ {
		switch code[i] {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
			if depth == 0 {
				args = append(args, strings.TrimSpace(code[start:i]))
				return args, i + 1, true
			}
		case ',':
			if depth == 1 {
				args = append(args, strings.TrimSpace(code[start:i]))
				start = i + 1
			}
		}
	}
	return nil, 0, false
}

// removeDefinitions blanks out definition lines, keeping the line count.
func removeDefinitions(code string, fns []Function) string {
	if len(fns) == 0 {
		return code
	}
	var sb strings.Builder
	last := 0
	for _, fn := range fns {
		sb.WriteString(code[last:fn.start])
		sb.WriteString(strings.Repeat("\n", strings.Count(code[fn.start:fn.end], "\n")))
		last = fn.end
	}
	sb.WriteString(code[last:])
	return sb.String()
}
