// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package downgrade

import (
	"strings"

	"github.com/gogpu/effectc/diag"
	"github.com/gogpu/effectc/expr"
	"github.com/gogpu/effectc/glsl"
)

// branch is the folding state of one #if chain.
type branch struct {
	emitted bool // an #if directive was written, so #endif must be too
	done    bool // a branch was definitely taken
	keep    bool // the current branch is kept
	dead    bool // the whole chain sits in a dropped region
}

// Fold evaluates the conditionals of code that only depend on __VERSION__
// and keeps the taken branches. Conditions it cannot decide stay in place
// with their branches folded recursively. Removed lines become blank.
func Fold(code string, version int) (string, error) {
	tokens, err := glsl.Tokenize(code)
	if err != nil {
		return "", err
	}
	env := expr.Map{"__VERSION__": expr.Int(int64(version))}

	var sb strings.Builder
	sb.Grow(len(code))
	var stack []branch
	keeping := func() bool {
		return len(stack) == 0 || stack[len(stack)-1].keep
	}

	for _, tok := range tokens {
		if tok.Kind != glsl.TokenPreprocessor {
			if keeping() {
				sb.WriteString(tok.Text)
			} else {
				sb.WriteString(blank(tok.Text))
			}
			continue
		}

		d, _ := glsl.ParseDirective(tok.Text)
		out := ""
		switch d.Name {
		case "if", "ifdef", "ifndef":
			if !keeping() {
				stack = append(stack, branch{dead: true, done: true})
				break
			}
			known, value, err := evaluate(d, env, tok.Line)
			if err != nil {
				return "", err
			}
			switch {
			case !known:
				stack = append(stack, branch{emitted: true, keep: true})
				out = tok.Text
			case value:
				stack = append(stack, branch{done: true, keep: true})
			default:
				stack = append(stack, branch{})
			}

		case "elif", "else":
			if len(stack) == 0 {
				return "", diag.Errorf(tok.Line, "#%s without #if", d.Name)
			}
			b := &stack[len(stack)-1]
			if b.dead || b.done {
				b.keep = false
				break
			}
			known, value := true, true
			if d.Name == "elif" {
				var err error
				known, value, err = evaluate(d, env, tok.Line)
				if err != nil {
					return "", err
				}
			}
			switch {
			case !known:
				b.keep = true
				if b.emitted {
					out = tok.Text
				} else {
					out = "#if " + d.Body + blank(tok.Text)
					b.emitted = true
				}
			case value:
				b.keep, b.done = true, true
				if b.emitted {
					out = "#else" + blank(tok.Text)
				}
			default:
				b.keep = false
			}

		case "endif":
			if len(stack) == 0 {
				return "", diag.Errorf(tok.Line, "#endif without #if")
			}
			if stack[len(stack)-1].emitted {
				out = tok.Text
			}
			stack = stack[:len(stack)-1]

		default:
			if keeping() {
				out = tok.Text
			}
		}
		if out == "" {
			out = blank(tok.Text)
		}
		sb.WriteString(out)
	}
	if len(stack) > 0 {
		return "", diag.Errorf(tokens[len(tokens)-1].Line, "unterminated #if block")
	}
	return sb.String(), nil
}

// evaluate decides a conditional directive. Only __VERSION__ is known, so
// #ifdef and #ifndef are never decided.
func evaluate(d glsl.Directive, env expr.Env, line int) (known, value bool, err error) {
	if d.Name == "ifdef" || d.Name == "ifndef" {
		return false, false, nil
	}
	n, err := expr.Parse(d.Body)
	if err != nil {
		return false, false, diag.Errorf(line, "invalid preprocessor condition '%s': %v", d.Body, err)
	}
	v, known, err := expr.Partial(n, env)
	if err != nil {
		return false, false, diag.Errorf(line, "%v in '%s'", err, d.Body)
	}
	return known, known && v.Truthy(), nil
}
