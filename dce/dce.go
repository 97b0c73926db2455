// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package dce removes shader functions that the entry point cannot reach.
//
// Functions are found by scanning top-level tokens for the heading
// "[precision] returnType name(...) {". A call graph is built from the
// identifiers used in each body, and every function outside the transitive
// closure of the entry point is cut from the source. A function named main
// is always kept.
package dce

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/gogpu/effectc/glsl"
)

// ErrEntryNotFound is returned, wrapped, when the entry function does not
// exist. The result then treats the first function as the entry.
var ErrEntryNotFound = errors.New("entry function not found")

// Function is a top-level function definition.
type Function struct {
	Name  string
	Start int // offset of the first heading token
	End   int // offset just past the closing brace
	Calls []string
}

// Result is the output of Eliminate.
type Result struct {
	Code      string
	Functions []Function // kept functions, offsets into Code
}

// Eliminate removes every function not reachable from entry. Removed
// definitions are replaced by their newlines so line numbers are kept.
func Eliminate(code, entry string) (Result, error) {
	tokens, err := glsl.Tokenize(code)
	if err != nil {
		return Result{}, err
	}
	fns := Functions(tokens)
	if len(fns) == 0 {
		if entry != "" && entry != "main" {
			return Result{Code: code}, fmt.Errorf("%w: '%s'", ErrEntryNotFound, entry)
		}
		return Result{Code: code}, nil
	}

	var entryErr error
	start := -1
	for i, fn := range fns {
		if fn.Name == entry {
			start = i
			break
		}
	}
	if start < 0 {
		start = 0
		entryErr = fmt.Errorf("%w: '%s', using '%s'", ErrEntryNotFound, entry, fns[0].Name)
	}

	live := reachable(fns, fns[start].Name)
	live["main"] = true

	var sb strings.Builder
	sb.Grow(len(code))
	var kept []Function
	last, removed := 0, 0
	for _, fn := range fns {
		if live[fn.Name] {
			fn.Start -= removed
			fn.End -= removed
			kept = append(kept, fn)
			continue
		}
		sb.WriteString(code[last:fn.Start])
		newlines := strings.Count(code[fn.Start:fn.End], "\n")
		sb.WriteString(strings.Repeat("\n", newlines))
		removed += fn.End - fn.Start - newlines
		last = fn.End
	}
	sb.WriteString(code[last:])

	return Result{Code: sb.String(), Functions: kept}, entryErr
}

// reachable returns the names reachable from entry through calls.
func reachable(fns []Function, entry string) map[string]bool {
	calls := make(map[string][]string, len(fns))
	for _, fn := range fns {
		calls[fn.Name] = append(calls[fn.Name], fn.Calls...)
	}
	live := map[string]bool{entry: true}
	queue := []string{entry}
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		for _, callee := range calls[name] {
			if !live[callee] {
				live[callee] = true
				queue = append(queue, callee)
			}
		}
	}
	return live
}

// Functions finds the top-level function definitions in tokens, in source
// order, with the calls each makes to the others.
func Functions(tokens []glsl.Token) []Function {
	cur := glsl.NewCursor(tokens)
	var fns []Function
	var heading []glsl.Token // significant tokens since the last top-level boundary

	for !cur.Done() {
		tok := cur.NextSignificant()
		switch {
		case tok.Kind == glsl.TokenPreprocessor:
			heading = heading[:0]
		case tok.IsOp(";") || tok.IsOp("}"):
			heading = heading[:0]
		case tok.IsOp("{"):
			cur.SkipBalanced("{", "}")
			heading = heading[:0]
		case tok.IsOp("("):
			nameIdx := len(heading) - 1
			isFunc := nameIdx >= 1 && heading[nameIdx].IsWord() && heading[nameIdx-1].IsWord()
			cur.SkipBalanced("(", ")")
			if !isFunc || !cur.PeekSignificant().IsOp("{") {
				heading = append(heading, tok)
				continue
			}
			first := nameIdx - 1
			if first > 0 && glsl.IsPrecision(heading[first-1].Text) {
				first--
			}
			bodyStart := cur.Pos()
			cur.NextSignificant()
			closing := cur.SkipBalanced("{", "}")
			end := closing.End()
			if closing.Kind == glsl.TokenEOF {
				end = closing.Offset
			}
			fns = append(fns, Function{
				Name:  heading[nameIdx].Text,
				Start: heading[first].Offset,
				End:   end,
			})
			words := make(map[string]bool)
			for _, t := range cur.Tokens()[bodyStart:cur.Pos()] {
				if t.IsWord() {
					words[t.Text] = true
				}
			}
			fns[len(fns)-1].Calls = collectCalls(words, heading[nameIdx].Text)
			heading = heading[:0]
		default:
			heading = append(heading, tok)
		}
	}

	names := make(map[string]bool, len(fns))
	for _, fn := range fns {
		names[fn.Name] = true
	}
	for i := range fns {
		calls := fns[i].Calls[:0]
		for _, c := range fns[i].Calls {
			if names[c] {
				calls = append(calls, c)
			}
		}
		fns[i].Calls = calls
	}
	return fns
}

// collectCalls returns the words of a body in a stable order, excluding
// the function's own name.
func collectCalls(words map[string]bool, self string) []string {
	out := make([]string, 0, len(words))
	for w := range words {
		if w != self {
			out = append(out, w)
		}
	}
	slices.Sort(out)
	return out
}
